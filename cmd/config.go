package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depmap-project/depmap/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Display the effective depmap configuration after merging defaults,
the config file, environment variables, and flags.

Examples:
  depmap config                # Show all config
  depmap config --json         # Output as JSON`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("json", false, "output as JSON")
}

func runConfig(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	printer := newPrinter()
	printer.Header("Current Configuration")

	table := output.NewTableWithWriter(cmd.OutOrStdout(), []string{"KEY", "VALUE"})
	table.AddRow([]string{"database.path", cfg.Database.Path})
	table.AddRow([]string{"diagram.format", cfg.Diagram.Format})
	table.AddRow([]string{"diagram.plantuml_binary", cfg.Diagram.PlantUMLBinary})
	table.AddRow([]string{"diagram.timeout", fmt.Sprintf("%v", cfg.Diagram.Timeout)})
	table.AddRow([]string{"artifacts.dir", cfg.Artifacts.Dir})
	table.AddRow([]string{"logging.level", cfg.Logging.Level})
	table.AddRow([]string{"logging.format", cfg.Logging.Format})
	table.AddRow([]string{"output.color", cfg.Output.Color})
	table.Render()

	return nil
}
