package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/depmap-project/depmap/internal/output"
	"github.com/depmap-project/depmap/internal/store"
	"github.com/depmap-project/depmap/internal/topology"
)

var topologyCmd = &cobra.Command{
	Use:   "topology SYSTEM_ID",
	Short: "Resolve a system's full deployment topology",
	Long: `Resolve the stored topology of one software system: its components,
deployment instances, their targets, and the physical graph (subnets,
hardware nodes, VMs, clusters) those targets live in.

Examples:
  depmap topology sys-payments
  depmap topology sys-payments --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTopology,
}

func init() {
	rootCmd.AddCommand(topologyCmd)

	topologyCmd.Flags().Bool("json", false, "output only the JSON payload")
}

func runTopology(cmd *cobra.Command, args []string) error {
	systemID := args[0]
	jsonOnly, _ := cmd.Flags().GetBool("json")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	resolved, err := st.SystemTopology(ctx, systemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &output.CLIError{
				Summary:    fmt.Sprintf("system '%s' not found", systemID),
				Suggestion: "Run 'depmap list systems' to see stored systems",
				ExitCode:   output.ExitUsageError,
			}
		}
		return storeError("resolving system topology", err)
	}

	payload, err := jsonPayload(resolved)
	if err != nil {
		return storeError("encoding topology", err)
	}

	w := cmd.OutOrStdout()
	if jsonOnly {
		fmt.Fprintln(w, payload)
		return nil
	}

	fmt.Fprintln(w, systemSummary(resolved))
	fmt.Fprintln(w, "\nJSON:")
	fmt.Fprintln(w, payload)

	newPrinter().PrintHints("topology")
	return nil
}

// systemSummary condenses a resolved topology into the five headline lines.
func systemSummary(resolved *topology.Resolved) string {
	version := resolved.System.Version
	if version == "" {
		version = "n/a"
	}

	names := make(map[string]struct{})
	for _, rel := range resolved.Relations {
		if rel.SubnetName != "" {
			names[rel.SubnetName] = struct{}{}
		}
	}
	subnets := make([]string, 0, len(names))
	for name := range names {
		subnets = append(subnets, name)
	}
	sort.Strings(subnets)
	subnetList := strings.Join(subnets, ", ")
	if subnetList == "" {
		subnetList = "none"
	}

	lines := []string{
		fmt.Sprintf("System: %s (%s)", resolved.System.Name, resolved.System.ID),
		fmt.Sprintf("Version: %s", version),
		fmt.Sprintf("Components: %d", len(resolved.Components)),
		fmt.Sprintf("Deployments: %d", len(resolved.Relations)),
		fmt.Sprintf("Subnets: %s", subnetList),
	}
	return strings.Join(lines, "\n")
}
