package cmd

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/depmap-project/depmap/internal/output"
)

const validManifestYAML = `subnets:
  - id: subnet-app
    cidr: 192.168.10.0/24
    name: app
hardware_nodes:
  - id: node-app-01
    hostname: app-01
    ip_address: 192.168.10.10
    subnet_id: subnet-app
virtual_machines:
  - id: vm-web-01
    hostname: web-01
    ip_address: 192.168.10.21
    subnet_id: subnet-app
    host_node_id: node-app-01
software_systems:
  - id: sys-shop
    name: shop-api
    version: 1.0.0
deployment_instances:
  - id: deploy-shop-vm
    system_id: sys-shop
    target_kind: VM
    target_node_id: vm-web-01
    component_id: shop-service
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest fixture: %v", err)
	}
	return name
}

func TestValidate_ValidManifest(t *testing.T) {
	setupCmdTest(t)
	path := writeManifest(t, "topology.yaml", validManifestYAML)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"validate", "-f", path})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if strings.Contains(buf.String(), "Diagnostics") {
		t.Errorf("clean manifest produced diagnostics:\n%s", buf.String())
	}
}

func TestValidate_ReportsMissingReferences(t *testing.T) {
	setupCmdTest(t)
	manifest := validManifestYAML + `storage_servers:
  - id: storage-orphan-01
    hostname: orphan-01
    ip_address: 192.168.99.30
    subnet_id: subnet-ghost
`
	path := writeManifest(t, "topology.yaml", manifest)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"validate", "-f", path})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Diagnostics (1):", "missing_reference", "subnet-ghost"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestValidate_RejectsBadCIDR(t *testing.T) {
	setupCmdTest(t)
	path := writeManifest(t, "topology.yaml", `subnets:
  - id: subnet-bad
    cidr: not-a-cidr
    name: broken
`)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"validate", "-f", path})

	err := rootCmd.Execute()
	var cliErr *output.CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected *output.CLIError, got %T: %v", err, err)
	}
	if cliErr.ExitCode != output.ExitValidationError {
		t.Errorf("exit code = %d, want %d", cliErr.ExitCode, output.ExitValidationError)
	}
	if !strings.Contains(cliErr.Summary, "failed validation") {
		t.Errorf("summary = %q", cliErr.Summary)
	}
}

func TestValidate_RejectsMalformedDocument(t *testing.T) {
	setupCmdTest(t)
	path := writeManifest(t, "topology.json", `{"subnets": [`)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"validate", "-f", path})

	err := rootCmd.Execute()
	var cliErr *output.CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected *output.CLIError, got %T: %v", err, err)
	}
	if cliErr.ExitCode != output.ExitUsageError {
		t.Errorf("exit code = %d, want %d", cliErr.ExitCode, output.ExitUsageError)
	}
	if !strings.Contains(cliErr.Summary, "parsing manifest") {
		t.Errorf("summary = %q", cliErr.Summary)
	}
}

func TestValidate_MissingFile(t *testing.T) {
	setupCmdTest(t)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"validate", "-f", "no-such-manifest.yaml"})

	err := rootCmd.Execute()
	var cliErr *output.CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected *output.CLIError, got %T: %v", err, err)
	}
	if cliErr.ExitCode != output.ExitUsageError {
		t.Errorf("exit code = %d, want %d", cliErr.ExitCode, output.ExitUsageError)
	}
	if !strings.Contains(cliErr.Summary, "reading manifest") {
		t.Errorf("summary = %q", cliErr.Summary)
	}
}
