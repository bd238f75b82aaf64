package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/depmap-project/depmap/internal/artifact"
	"github.com/depmap-project/depmap/internal/diagram"
	"github.com/depmap-project/depmap/internal/output"
	"github.com/depmap-project/depmap/internal/plantuml"
	"github.com/depmap-project/depmap/internal/store"
	"github.com/depmap-project/depmap/internal/validate"
)

// renderConcurrency bounds the render --all fan-out.
const renderConcurrency = 4

var renderCmd = &cobra.Command{
	Use:   "render [SYSTEM_ID]",
	Short: "Render a deployment diagram for a system",
	Long: `Resolve a system's stored topology and render it as a PlantUML
deployment diagram, optionally delegating to the plantuml binary for PNG or
SVG output. When the binary is unavailable the PUML text is still produced.

Examples:
  depmap render sys-payments                       # Print PlantUML text
  depmap render sys-payments --format png          # Write sys-payments-deployment.png
  depmap render sys-payments --format svg -o d.svg
  depmap render sys-payments --artifacts           # Persist PUML to the artifact store
  depmap render --all --format png                 # Render every stored system`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().String("format", "", "diagram format: puml, png, or svg (default from config)")
	renderCmd.Flags().StringP("output", "o", "", "output file path")
	renderCmd.Flags().Bool("artifacts", false, "persist the PUML text to the artifact store")
	renderCmd.Flags().Bool("all", false, "render every stored system")
}

// renderOutcome collects what one system's render produced.
type renderOutcome struct {
	systemID      string
	format        string
	puml          string
	systemVersion string
	outputPath    string
	imagePath     string
	artifactPath  string
	summary       string
}

func runRender(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	toArtifacts, _ := cmd.Flags().GetBool("artifacts")

	if format == "" {
		format = cfg.Diagram.Format
	}
	switch format {
	case "puml", "png", "svg":
	default:
		return &output.CLIError{
			Summary:    fmt.Sprintf("invalid diagram format: %s", format),
			Suggestion: "Use --format puml, png, or svg",
			ExitCode:   output.ExitUsageError,
		}
	}

	if all && len(args) > 0 {
		return &output.CLIError{
			Summary:    "render --all takes no SYSTEM_ID argument",
			Suggestion: "Drop the argument, or drop --all to render one system",
			ExitCode:   output.ExitUsageError,
		}
	}
	if !all && len(args) == 0 {
		return &output.CLIError{
			Summary:    "missing SYSTEM_ID argument",
			Suggestion: "Pass a system id, or use --all to render every stored system",
			ExitCode:   output.ExitUsageError,
		}
	}
	if all && outputPath != "" {
		return &output.CLIError{
			Summary:    "cannot combine --all with --output",
			Suggestion: "With --all each system is written to <system-id>-deployment.<format>",
			ExitCode:   output.ExitUsageError,
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var artifacts *artifact.Store
	var requestID string
	if toArtifacts {
		artifacts, err = artifact.NewStore(cfg.Artifacts.Dir)
		if err != nil {
			return &output.CLIError{
				Summary:    fmt.Sprintf("opening artifact store %s", cfg.Artifacts.Dir),
				Detail:     err.Error(),
				Suggestion: "Check artifacts.dir in .depmap.yaml",
				ExitCode:   output.ExitConfigError,
			}
		}
		requestID = artifact.NewRequestID()
	}

	var img diagram.ImageRenderer
	if format != "puml" {
		executor := plantuml.NewExecutor(cfg.Diagram.PlantUMLBinary, logger, dryRun)
		img = plantuml.NewRenderer(executor, cfg.Diagram.Timeout, logger)
	}

	if all {
		return runRenderAll(cmd, st, img, artifacts, requestID, format)
	}

	outcome, err := renderSystem(context.Background(), st, args[0], format, outputPath, img, artifacts, requestID)
	if err != nil {
		return err
	}

	payload, err := jsonPayload(renderPayload(outcome, requestID))
	if err != nil {
		return storeError("encoding render result", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, outcome.summary)
	fmt.Fprintln(w, "\nJSON:")
	fmt.Fprintln(w, payload)

	newPrinter().PrintHints("render")
	return nil
}

// runRenderAll renders every stored system with a bounded worker pool and
// reports per-system summaries in listing order.
func runRenderAll(cmd *cobra.Command, st *store.Store, img diagram.ImageRenderer, artifacts *artifact.Store, requestID, format string) error {
	listCtx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	rows, err := st.ListSystems(listCtx)
	cancel()
	if err != nil {
		return storeError("listing systems", err)
	}

	printer := newPrinter()
	if len(rows) == 0 {
		printer.Info("no systems stored")
		return nil
	}

	outcomes := make([]*renderOutcome, len(rows))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(renderConcurrency)
	for i, row := range rows {
		g.Go(func() error {
			outcome, err := renderSystem(ctx, st, row.ID, format, "", img, artifacts, requestID)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, outcome := range outcomes {
		fmt.Fprintln(w, outcome.summary)
		if outcome.artifactPath != "" {
			fmt.Fprintf(w, "  artifact: %s\n", outcome.artifactPath)
		}
	}
	printer.Success("rendered %d systems", len(rows))
	return nil
}

// renderSystem resolves, validates, and renders one system. outputPath is
// optional; with an empty path image formats default to
// <system-id>-deployment.<format>.
func renderSystem(ctx context.Context, st *store.Store, systemID, format, outputPath string, img diagram.ImageRenderer, artifacts *artifact.Store, requestID string) (*renderOutcome, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	resolved, err := st.SystemTopology(resolveCtx, systemID)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &output.CLIError{
				Summary:    fmt.Sprintf("system '%s' not found", systemID),
				Suggestion: "Run 'depmap list systems' to see stored systems",
				ExitCode:   output.ExitUsageError,
			}
		}
		return nil, storeError("resolving system topology", err)
	}

	if err := validate.ForDiagram(systemID, resolved); err != nil {
		return nil, &output.CLIError{
			Summary:  fmt.Sprintf("system '%s' failed diagram validation", systemID),
			Detail:   err.Error(),
			ExitCode: output.ExitValidationError,
		}
	}

	outcome := &renderOutcome{
		systemID:      systemID,
		format:        format,
		systemVersion: resolved.System.Version,
	}

	if format == "puml" {
		outcome.puml = diagram.RenderPUML(systemID, resolved)
		outcome.summary = fmt.Sprintf("Generated PlantUML for system %s", systemID)
		if outputPath != "" {
			if err := os.WriteFile(outputPath, []byte(outcome.puml), 0o644); err != nil {
				return nil, &output.CLIError{
					Summary:  fmt.Sprintf("writing %s", outputPath),
					Detail:   err.Error(),
					ExitCode: output.ExitGeneral,
				}
			}
			outcome.outputPath = outputPath
			outcome.summary = fmt.Sprintf("Generated PUML diagram at %s", outputPath)
		}
	} else {
		path := outputPath
		if path == "" {
			path = fmt.Sprintf("%s-deployment.%s", systemID, format)
		}
		result, err := diagram.RenderSystem(ctx, systemID, resolved, diagram.ImageOptions{
			Path:     path,
			Format:   format,
			Renderer: img,
		})
		if err != nil {
			return nil, &output.CLIError{
				Summary:  fmt.Sprintf("rendering %s diagram for %s", format, systemID),
				Detail:   err.Error(),
				ExitCode: output.ExitGeneral,
			}
		}
		outcome.puml = result.PUML
		outcome.outputPath = path
		outcome.imagePath = result.ImagePath
		if result.ImagePath != "" {
			outcome.summary = fmt.Sprintf("Generated %s diagram at %s", strings.ToUpper(format), path)
		} else {
			outcome.summary = fmt.Sprintf("PlantUML runtime unavailable; generated PUML only for %s", systemID)
		}
	}

	if artifacts != nil {
		stored, err := artifacts.WriteText(requestID, artifact.Descriptor{
			SchemaID:      systemID,
			SchemaVersion: outcome.systemVersion,
			SystemID:      systemID,
		}, outcome.puml, "text/plantuml")
		if err != nil {
			return nil, &output.CLIError{
				Summary:  fmt.Sprintf("storing artifact for %s", systemID),
				Detail:   err.Error(),
				ExitCode: output.ExitGeneral,
			}
		}
		outcome.artifactPath = stored.Path
	}

	return outcome, nil
}

// renderPayload mirrors the render result as a JSON-friendly map. image_path
// stays null when no image was produced.
func renderPayload(outcome *renderOutcome, requestID string) map[string]any {
	payload := map[string]any{
		"system_id": outcome.systemID,
		"format":    outcome.format,
		"puml":      outcome.puml,
	}
	if outcome.format != "puml" {
		payload["output_path"] = outcome.outputPath
		if outcome.imagePath != "" {
			payload["image_path"] = outcome.imagePath
		} else {
			payload["image_path"] = nil
		}
	} else if outcome.outputPath != "" {
		payload["output_path"] = outcome.outputPath
	}
	if outcome.artifactPath != "" {
		payload["artifact_path"] = outcome.artifactPath
		payload["request_id"] = requestID
	}
	return payload
}
