package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/depmap-project/depmap/internal/output"
)

var docsCmd = &cobra.Command{
	Use:    "docs",
	Short:  "Generate CLI documentation",
	Long:   `Generate man pages or markdown documentation for all depmap commands.`,
	Hidden: true,
	RunE:   runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)

	docsCmd.Flags().String("format", "markdown", "documentation format: markdown or man")
	docsCmd.Flags().String("output", "./docs", "output directory")
}

func runDocs(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	dir, _ := cmd.Flags().GetString("output")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	switch format {
	case "markdown":
		return doc.GenMarkdownTree(rootCmd, dir)
	case "man":
		header := &doc.GenManHeader{Title: "DEPMAP", Section: "1"}
		return doc.GenManTree(rootCmd, header, dir)
	default:
		return &output.CLIError{
			Summary:    fmt.Sprintf("unknown docs format: %s", format),
			Suggestion: "Use --format markdown or --format man",
			ExitCode:   output.ExitUsageError,
		}
	}
}
