package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/depmap-project/depmap/internal/domain"
	"github.com/depmap-project/depmap/internal/ingest"
	"github.com/depmap-project/depmap/internal/output"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a topology manifest",
	Long: `Decode a JSON or YAML topology manifest and run the strict import
validation against it, without writing anything to the database.

Records with unresolvable references are reported as diagnostics and skipped;
structural violations (duplicate ids, malformed addresses, addresses outside
their subnet, malformed deployment targets) fail the run.

Examples:
  depmap validate -f topology.yaml
  depmap validate -f topology.json --verbose`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("file", "f", "", "manifest file (JSON or YAML)")
	_ = validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")

	_, schema, diags, err := loadManifest(cmd, path)
	if err != nil {
		return err
	}

	printDiagnostics(cmd, diags)

	printer := newPrinter()
	printer.Success("manifest %s is valid: %d subnets, %d hardware nodes, %d VMs, %d systems, %d deployments",
		path,
		len(schema.Subnets),
		len(schema.HardwareNodes),
		len(schema.VirtualMachines),
		len(schema.SoftwareSystems),
		len(schema.DeploymentInstances),
	)
	printer.PrintHints("validate")
	return nil
}

// loadManifest reads, decodes, and validates a manifest file. Diagnostics
// collected before a hard validation failure are printed before returning.
func loadManifest(cmd *cobra.Command, path string) (*ingest.Manifest, *domain.Schema, *ingest.Diagnostics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, &output.CLIError{
			Summary:    fmt.Sprintf("reading manifest %s", path),
			Detail:     err.Error(),
			Suggestion: "Check the -f path",
			ExitCode:   output.ExitUsageError,
		}
	}

	manifest, err := ingest.DecodeManifest(data)
	if err != nil {
		return nil, nil, nil, &output.CLIError{
			Summary:    fmt.Sprintf("parsing manifest %s", path),
			Detail:     err.Error(),
			Suggestion: "Manifests must be a JSON or YAML document carrying the topology collections",
			ExitCode:   output.ExitUsageError,
		}
	}

	schema, diags, err := manifest.Build(filepath.Base(path))
	if err != nil {
		printDiagnostics(cmd, diags)
		return nil, nil, nil, &output.CLIError{
			Summary:  fmt.Sprintf("manifest %s failed validation", path),
			Detail:   err.Error(),
			ExitCode: output.ExitValidationError,
		}
	}

	return manifest, schema, diags, nil
}

// printDiagnostics renders import findings as a table on the command output.
func printDiagnostics(cmd *cobra.Command, diags *ingest.Diagnostics) {
	if diags == nil || diags.Len() == 0 {
		return
	}

	printer := newPrinter()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Diagnostics (%d):\n", diags.Len())

	table := output.NewTableWithWriter(w, []string{"LEVEL", "CODE", "MESSAGE", "CONTEXT"})
	for _, d := range diags.Entries {
		table.AddRow([]string{
			printer.LevelBadge(string(d.Level)),
			d.Code,
			d.Message,
			contextString(d.Context),
		})
	}
	table.Render()
}

func contextString(ctx map[string]string) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+ctx[k])
	}
	return strings.Join(parts, " ")
}
