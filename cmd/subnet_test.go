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

func setupSubnetTest(t *testing.T) string {
	t.Helper()
	db := setupCmdTest(t)
	subnetCmd.Flags().Set("json", "false")
	return db
}

func TestSubnet_Summary(t *testing.T) {
	db := setupSubnetTest(t)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"subnet", "subnet-prod", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("subnet command failed: %v", err)
	}

	out := buf.String()
	for _, line := range []string{
		"Subnet: production (subnet-prod)",
		"CIDR: 10.0.0.0/24",
		"Systems deployed: 2",
		"Deployments in subnet: 2",
		"JSON:",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("missing %q in output:\n%s", line, out)
		}
	}
}

func TestSubnet_EmptySubnet(t *testing.T) {
	db := setupSubnetTest(t)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"subnet", "subnet-mgmt", "--json", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("subnet --json failed: %v", err)
	}

	var view topology.SubnetView
	if err := json.Unmarshal(buf.Bytes(), &view); err != nil {
		t.Fatalf("invalid JSON output: %v\nGot: %s", err, buf.String())
	}
	if view.Subnet.ID != "subnet-mgmt" {
		t.Errorf("subnet id = %q, want subnet-mgmt", view.Subnet.ID)
	}
	if len(view.Systems) != 0 {
		t.Errorf("management subnet should have no deployments, got %+v", view.Systems)
	}
}

func TestSubnet_UnknownSubnet(t *testing.T) {
	db := setupSubnetTest(t)
	seedDemo(t, db)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"subnet", "subnet-ghost", "--db", db})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for unknown subnet, got nil")
	}

	var cliErr *output.CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected *output.CLIError, got %T: %v", err, err)
	}
	if cliErr.ExitCode != output.ExitUsageError {
		t.Errorf("exit code = %d, want %d", cliErr.ExitCode, output.ExitUsageError)
	}
}
