package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depmap-project/depmap/internal/domain"
	"github.com/depmap-project/depmap/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in demo topology",
	Long: `Load the built-in demo topology into the database.

The demo models a small production estate: two subnets, a bare-metal host, a
Kubernetes worker node, a VM, a storage server, a core switch, and two
software systems (payments-api deployed on the VM, observability-stack in a
cluster namespace).

The stored topology is replaced in a single transaction, exactly like
'depmap import'.

Examples:
  depmap seed
  depmap seed --db ./demo.db`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	schema := domain.DemoSchema()

	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "[dry-run] would seed %d subnets, %d hardware nodes, %d VMs, %d clusters, %d systems, %d deployments\n",
			len(schema.Subnets),
			len(schema.HardwareNodes),
			len(schema.VirtualMachines),
			len(schema.KubernetesClusters),
			len(schema.SoftwareSystems),
			len(schema.DeploymentInstances),
		)
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if err := st.SaveSchema(ctx, schema, store.Extras{}); err != nil {
		return storeError("seeding demo topology", err)
	}

	printer := newPrinter()
	printer.Success("seeded demo topology: %d subnets, %d hardware nodes, %d VMs, %d clusters, %d systems, %d deployments",
		len(schema.Subnets),
		len(schema.HardwareNodes),
		len(schema.VirtualMachines),
		len(schema.KubernetesClusters),
		len(schema.SoftwareSystems),
		len(schema.DeploymentInstances),
	)
	printer.PrintHints("seed")
	return nil
}
