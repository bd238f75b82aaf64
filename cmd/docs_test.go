package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func setupDocsTest(t *testing.T) {
	t.Helper()
	setupCmdTest(t)
	docsCmd.Flags().Set("format", "markdown")
	docsCmd.Flags().Set("output", "./docs")
}

func TestDocsMan(t *testing.T) {
	setupDocsTest(t)

	tmpDir := t.TempDir()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"docs", "--format", "man", "--output", tmpDir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("docs --format man failed: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(tmpDir, "*.1"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(matches) == 0 {
		t.Error("no man pages generated")
	}
}

func TestDocsMarkdown(t *testing.T) {
	setupDocsTest(t)

	tmpDir := t.TempDir()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"docs", "--format", "markdown", "--output", tmpDir})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("docs --format markdown failed: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(tmpDir, "*.md"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(matches) == 0 {
		entries, _ := os.ReadDir(tmpDir)
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("no markdown files generated. Files in dir: %v", names)
	}
}

func TestDocsUnknownFormat(t *testing.T) {
	setupDocsTest(t)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"docs", "--format", "html", "--output", t.TempDir()})

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for unknown docs format, got nil")
	}
}
