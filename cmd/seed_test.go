package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/depmap-project/depmap/internal/store"
)

func TestSeed_CreatesDatabase(t *testing.T) {
	db := setupCmdTest(t)

	seedDemo(t, db)

	if _, err := os.Stat(db); err != nil {
		t.Fatalf("expected database file at %s: %v", db, err)
	}
}

func TestSeed_Rerunnable(t *testing.T) {
	db := setupCmdTest(t)

	seedDemo(t, db)
	seedDemo(t, db)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"list", "systems", "--json", "--db", db})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("list systems failed: %v", err)
	}
	listCmd.Flags().Set("json", "false")

	var rows []store.SystemRow
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON output: %v\nGot: %s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 systems after reseeding, got %d: %+v", len(rows), rows)
	}
}

func TestSeed_DryRunWritesNothing(t *testing.T) {
	db := setupCmdTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"seed", "--dry-run", "--db", db})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("seed --dry-run failed: %v", err)
	}
	dryRun = false

	if !strings.Contains(buf.String(), "[dry-run]") {
		t.Errorf("expected dry-run marker in output, got: %q", buf.String())
	}
	if _, err := os.Stat(db); !os.IsNotExist(err) {
		t.Errorf("dry-run should not create the database, stat err = %v", err)
	}
}
