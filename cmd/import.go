package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depmap-project/depmap/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a topology manifest into the database",
	Long: `Decode and validate a JSON or YAML topology manifest, then replace the
stored topology with it in a single transaction.

Records with unresolvable references are skipped with a diagnostic; any
structural violation aborts the import and leaves the previously stored
topology untouched.

Examples:
  depmap import -f topology.yaml
  depmap import -f inventory.json --db ./ops.db`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("file", "f", "", "manifest file (JSON or YAML)")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")

	manifest, schema, diags, err := loadManifest(cmd, path)
	if err != nil {
		return err
	}

	printDiagnostics(cmd, diags)

	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "[dry-run] would import %d subnets, %d hardware nodes, %d VMs, %d clusters, %d systems, %d deployments from %s\n",
			len(schema.Subnets),
			len(schema.HardwareNodes),
			len(schema.VirtualMachines),
			len(schema.KubernetesClusters),
			len(schema.SoftwareSystems),
			len(schema.DeploymentInstances),
			path,
		)
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	dependencies, links := manifest.Extras()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if err := st.SaveSchema(ctx, schema, store.Extras{Dependencies: dependencies, NetworkLinks: links}); err != nil {
		return storeError("importing topology", err)
	}

	logger.Debug("topology imported",
		"source", path,
		"systems", len(schema.SoftwareSystems),
		"deployments", len(schema.DeploymentInstances),
	)

	printer := newPrinter()
	printer.Success("imported %s: %d subnets, %d hardware nodes, %d VMs, %d clusters, %d systems, %d deployments",
		path,
		len(schema.Subnets),
		len(schema.HardwareNodes),
		len(schema.VirtualMachines),
		len(schema.KubernetesClusters),
		len(schema.SoftwareSystems),
		len(schema.DeploymentInstances),
	)
	printer.PrintHints("import")
	return nil
}
