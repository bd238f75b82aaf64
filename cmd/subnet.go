package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/depmap-project/depmap/internal/output"
	"github.com/depmap-project/depmap/internal/store"
	"github.com/depmap-project/depmap/internal/topology"
)

var subnetCmd = &cobra.Command{
	Use:   "subnet SUBNET_ID",
	Short: "List deployments resolved into a subnet",
	Long: `Show which software systems have deployment instances landing in one
subnet, grouped by system and component. A deployment lands in the subnet
when its resolved target (hardware node, VM, or cluster) is assigned there.

Examples:
  depmap subnet subnet-prod
  depmap subnet subnet-prod --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSubnet,
}

func init() {
	rootCmd.AddCommand(subnetCmd)

	subnetCmd.Flags().Bool("json", false, "output only the JSON payload")
}

func runSubnet(cmd *cobra.Command, args []string) error {
	subnetID := args[0]
	jsonOnly, _ := cmd.Flags().GetBool("json")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	view, err := st.SubnetDeployments(ctx, subnetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &output.CLIError{
				Summary:    fmt.Sprintf("subnet '%s' not found", subnetID),
				Suggestion: "Run 'depmap list subnets' to see stored subnets",
				ExitCode:   output.ExitUsageError,
			}
		}
		return storeError("resolving subnet deployments", err)
	}

	payload, err := jsonPayload(view)
	if err != nil {
		return storeError("encoding subnet view", err)
	}

	w := cmd.OutOrStdout()
	if jsonOnly {
		fmt.Fprintln(w, payload)
		return nil
	}

	fmt.Fprintln(w, subnetSummary(view))
	fmt.Fprintln(w, "\nJSON:")
	fmt.Fprintln(w, payload)

	newPrinter().PrintHints("subnet")
	return nil
}

func subnetSummary(view *topology.SubnetView) string {
	lines := []string{
		fmt.Sprintf("Subnet: %s (%s)", view.Subnet.Name, view.Subnet.ID),
		fmt.Sprintf("CIDR: %s", view.Subnet.CIDR),
		fmt.Sprintf("Systems deployed: %d", len(view.Systems)),
		fmt.Sprintf("Deployments in subnet: %d", view.DeploymentCount()),
	}
	return strings.Join(lines, "\n")
}
