package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/depmap-project/depmap/internal/output"
	"github.com/depmap-project/depmap/internal/topology"
)

func setupTopologyTest(t *testing.T) string {
	t.Helper()
	db := setupCmdTest(t)
	topologyCmd.Flags().Set("json", "false")
	return db
}

func TestTopology_Summary(t *testing.T) {
	db := setupTopologyTest(t)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"topology", "sys-payments", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("topology command failed: %v", err)
	}

	out := buf.String()
	for _, line := range []string{
		"System: payments-api (sys-payments)",
		"Version: 2.4.1",
		"Components: 1",
		"Deployments: 1",
		"Subnets: production",
		"JSON:",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("missing %q in output:\n%s", line, out)
		}
	}
}

func TestTopology_JSONOnly(t *testing.T) {
	db := setupTopologyTest(t)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"topology", "sys-observability", "--json", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("topology --json failed: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "System: ") {
		t.Errorf("--json output should not contain the summary lines, got:\n%s", out)
	}

	var resolved topology.Resolved
	if err := json.Unmarshal(buf.Bytes(), &resolved); err != nil {
		t.Fatalf("invalid JSON output: %v\nGot: %s", err, out)
	}
	if resolved.System.ID != "sys-observability" {
		t.Errorf("system id = %q, want sys-observability", resolved.System.ID)
	}
	if len(resolved.Deployments) != 1 {
		t.Errorf("expected 1 deployment, got %d", len(resolved.Deployments))
	}
	if len(resolved.Clusters["cluster-prod-01"]) != 1 {
		t.Errorf("expected cluster-prod-01 with 1 member, got %+v", resolved.Clusters)
	}
}

func TestTopology_UnknownSystem(t *testing.T) {
	db := setupTopologyTest(t)
	seedDemo(t, db)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"topology", "sys-ghost", "--db", db})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for unknown system, got nil")
	}

	var cliErr *output.CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected *output.CLIError, got %T: %v", err, err)
	}
	if cliErr.ExitCode != output.ExitUsageError {
		t.Errorf("exit code = %d, want %d", cliErr.ExitCode, output.ExitUsageError)
	}
	if !strings.Contains(cliErr.Summary, "sys-ghost") {
		t.Errorf("summary should name the system, got: %q", cliErr.Summary)
	}
}
