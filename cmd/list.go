package cmd

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/depmap-project/depmap/internal/output"
)

var listCmd = &cobra.Command{
	Use:     "list systems|subnets|nodes",
	Aliases: []string{"ls"},
	Short:   "List stored topology entities",
	Long: `List stored systems, subnets, or nodes with headline counts.

Examples:
  depmap list systems          # Systems with component/deployment counts
  depmap list subnets          # Subnets with node counts
  depmap list nodes            # Hardware, VM, storage, and switch nodes
  depmap list systems --json   # Output as JSON`,
	ValidArgs: []string{"systems", "subnets", "nodes"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:      runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("json", false, "output as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	switch args[0] {
	case "systems":
		rows, err := st.ListSystems(ctx)
		if err != nil {
			return storeError("listing systems", err)
		}
		if jsonOutput {
			return encodeJSON(cmd, rows)
		}
		table := output.NewTableWithWriter(cmd.OutOrStdout(), []string{"ID", "NAME", "VERSION", "COMPONENTS", "DEPLOYMENTS"})
		for _, row := range rows {
			version := row.Version
			if version == "" {
				version = "n/a"
			}
			table.AddRow([]string{row.ID, row.Name, version, strconv.Itoa(row.Components), strconv.Itoa(row.Deployments)})
		}
		table.Render()

	case "subnets":
		rows, err := st.ListSubnets(ctx)
		if err != nil {
			return storeError("listing subnets", err)
		}
		if jsonOutput {
			return encodeJSON(cmd, rows)
		}
		table := output.NewTableWithWriter(cmd.OutOrStdout(), []string{"ID", "CIDR", "NAME", "HARDWARE", "VMS"})
		for _, row := range rows {
			table.AddRow([]string{row.ID, row.CIDR, row.Name, strconv.Itoa(row.HardwareNodes), strconv.Itoa(row.VirtualMachines)})
		}
		table.Render()

	case "nodes":
		rows, err := st.ListNodes(ctx)
		if err != nil {
			return storeError("listing nodes", err)
		}
		if jsonOutput {
			return encodeJSON(cmd, rows)
		}
		table := output.NewTableWithWriter(cmd.OutOrStdout(), []string{"ID", "TYPE", "HOSTNAME", "ADDRESS", "SUBNET"})
		for _, row := range rows {
			table.AddRow([]string{row.ID, row.Type, row.Hostname, row.Address, row.SubnetID})
		}
		table.Render()
	}

	newPrinter().PrintHints("list")
	return nil
}

func encodeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
