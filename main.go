// Package main is the entry point for the depmap CLI
package main

import (
	"errors"
	"os"

	"github.com/depmap-project/depmap/cmd"
	"github.com/depmap-project/depmap/internal/output"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	cmd.SetVersion(version)
	if err := cmd.Execute(); err != nil {
		var cliErr *output.CLIError
		if errors.As(err, &cliErr) {
			os.Exit(cliErr.ExitCode)
		}
		os.Exit(output.ExitGeneral)
	}
}
