package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/depmap-project/depmap/internal/store"
)

func setupListTest(t *testing.T) string {
	t.Helper()
	db := setupCmdTest(t)
	listCmd.Flags().Set("json", "false")
	return db
}

func TestList_Systems(t *testing.T) {
	db := setupListTest(t)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"list", "systems", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("list systems failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"sys-observability", "sys-payments", "payments-api", "2.4.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in table:\n%s", want, out)
		}
	}
}

func TestList_SystemsJSON(t *testing.T) {
	db := setupListTest(t)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"list", "systems", "--json", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("list systems --json failed: %v", err)
	}

	var rows []store.SystemRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v\nGot: %s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 systems, got %d", len(rows))
	}
	if rows[0].ID != "sys-observability" || rows[1].ID != "sys-payments" {
		t.Errorf("systems out of order: %q, %q", rows[0].ID, rows[1].ID)
	}
	if rows[1].Components != 1 || rows[1].Deployments != 1 {
		t.Errorf("sys-payments counts = %d/%d, want 1/1", rows[1].Components, rows[1].Deployments)
	}
}

func TestList_Subnets(t *testing.T) {
	db := setupListTest(t)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"list", "subnets", "--json", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("list subnets failed: %v", err)
	}

	var rows []store.SubnetRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v\nGot: %s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 subnets, got %d", len(rows))
	}
	prod := rows[1]
	if prod.ID != "subnet-prod" || prod.CIDR != "10.0.0.0/24" {
		t.Errorf("unexpected second row: %+v", prod)
	}
	if prod.HardwareNodes != 2 || prod.VirtualMachines != 1 {
		t.Errorf("subnet-prod counts = %d/%d, want 2/1", prod.HardwareNodes, prod.VirtualMachines)
	}
}

func TestList_Nodes(t *testing.T) {
	db := setupListTest(t)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"list", "nodes", "--json", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("list nodes failed: %v", err)
	}

	var rows []store.NodeRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v\nGot: %s", err, buf.String())
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 nodes, got %d", len(rows))
	}

	types := make([]string, len(rows))
	for i, row := range rows {
		types[i] = row.Type
	}
	want := []string{"hardware", "hardware", "storage", "switch", "vm"}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("node types = %v, want %v", types, want)
		}
	}
	if rows[4].ID != "vm-app-01" || rows[4].Address != "10.0.0.21" {
		t.Errorf("unexpected vm row: %+v", rows[4])
	}
}

func TestList_RejectsUnknownKind(t *testing.T) {
	db := setupListTest(t)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"list", "volumes", "--db", db})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for unknown list kind, got nil")
	}
}
