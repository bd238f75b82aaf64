// Package cmd contains all CLI commands for depmap
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/depmap-project/depmap/internal/config"
	"github.com/depmap-project/depmap/internal/output"
	"github.com/depmap-project/depmap/internal/store"
)

var (
	cfgFile string
	verbose bool
	dryRun  bool
	dbPath  string
	noColor bool
	cfg     *config.Config
	logger  *slog.Logger
	version = "dev"
)

// dbTimeout bounds each database phase of a command run.
const dbTimeout = 10 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "depmap",
	Short: "Deployment topology mapping CLI",
	Long: `depmap tracks infrastructure deployment topology: subnets, hardware nodes,
virtual machines, Kubernetes clusters, storage servers, network switches, and
the deployment instances linking software systems to those targets.

Validated topologies are persisted to a local sqlite database and resolved
into per-system or per-subnet views and PlantUML deployment diagrams.

Example usage:
  depmap seed                           # Load the built-in demo topology
  depmap import -f topology.yaml        # Validate and store a manifest
  depmap topology sys-payments          # Resolve a system's full topology
  depmap render sys-payments --format png
  depmap list systems                   # List stored systems`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command, reporting failures to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		newPrinter().FormatError(cliErr)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	return err
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .depmap.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show external commands without executing")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the sqlite database (default depmap.db)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error

	// Setup logger before config is available
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Load configuration
	cfg, err = config.Load(cfgFile, dbPath)
	if err != nil {
		return &output.CLIError{
			Summary:    "loading config",
			Detail:     err.Error(),
			Suggestion: "Check .depmap.yaml syntax or use --config to point at a valid file",
			ExitCode:   output.ExitConfigError,
		}
	}

	// Rebuild logger with the configured level and format
	logLevel = slogLevel(cfg.Logging.Level)
	if verbose {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	logger.Debug("configuration loaded",
		"database", cfg.Database.Path,
		"artifacts_dir", cfg.Artifacts.Dir,
		"diagram_format", cfg.Diagram.Format,
	)

	return nil
}

func slogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newPrinter builds a Printer honoring --no-color and the configured color mode.
func newPrinter() *output.Printer {
	mode := output.ColorAuto
	if cfg != nil {
		if parsed, err := output.ParseColorMode(cfg.Output.Color); err == nil {
			mode = parsed
		}
	}
	if noColor {
		mode = output.ColorNever
	}
	return output.NewPrinter(mode)
}

// openStore opens the sqlite topology store at the configured path.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, &output.CLIError{
			Summary:    fmt.Sprintf("opening database %s", cfg.Database.Path),
			Detail:     err.Error(),
			Suggestion: "Check the --db flag or database.path in .depmap.yaml",
			ExitCode:   output.ExitConfigError,
		}
	}
	return st, nil
}

// storeError maps a failed database phase to a structured CLI error.
func storeError(action string, err error) *output.CLIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &output.CLIError{
			Summary:    action + " timed out",
			Detail:     err.Error(),
			Suggestion: "Retry, or check that the database file is not locked by another process",
			ExitCode:   output.ExitTimeout,
		}
	}
	return &output.CLIError{
		Summary:  action + " failed",
		Detail:   err.Error(),
		ExitCode: output.ExitGeneral,
	}
}

// jsonPayload marshals v indented with sorted keys so repeated runs emit
// byte-identical payloads.
func jsonPayload(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	sorted, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return "", err
	}
	return string(sorted), nil
}
