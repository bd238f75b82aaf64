package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/depmap-project/depmap/internal/config"
)

func setupConfigTest(t *testing.T) string {
	t.Helper()
	db := setupCmdTest(t)
	configCmd.Flags().Set("json", "false")
	return db
}

func TestConfig_Table(t *testing.T) {
	setupConfigTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config command failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"database.path", "diagram.format", "artifacts.dir", "logging.level"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in table:\n%s", want, out)
		}
	}
}

func TestConfig_JSON(t *testing.T) {
	db := setupConfigTest(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "--json", "--db", db})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config --json failed: %v", err)
	}

	var got config.Config
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nGot: %s", err, buf.String())
	}
	if got.Database.Path != db {
		t.Errorf("database path = %q, want %q", got.Database.Path, db)
	}
	if got.Logging.Level != "info" {
		t.Errorf("logging level = %q, want info", got.Logging.Level)
	}
}

func TestConfig_ReadsFileFromWorkingDirectory(t *testing.T) {
	setupConfigTest(t)
	content := "diagram:\n  format: svg\n"
	if err := os.WriteFile(".depmap.yaml", []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "--json"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config --json failed: %v", err)
	}

	var got config.Config
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nGot: %s", err, buf.String())
	}
	if got.Diagram.Format != "svg" {
		t.Errorf("diagram format = %q, want svg from .depmap.yaml", got.Diagram.Format)
	}
}

func TestConfig_RejectsInvalidFile(t *testing.T) {
	setupConfigTest(t)
	content := "logging:\n  level: whisper\n"
	if err := os.WriteFile(".depmap.yaml", []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"config"})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for invalid logging level, got nil")
	}
}
