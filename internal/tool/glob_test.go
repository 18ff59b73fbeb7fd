package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGlobTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	tool := NewGlobTool(tmpDir)
	input := json.RawMessage(`{"pattern": "*.go"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "a.go") || !strings.Contains(result.Output, "b.go") {
		t.Errorf("Output should list both .go files, got: %s", result.Output)
	}
	if strings.Contains(result.Output, "c.txt") {
		t.Errorf("Output should not include c.txt, got: %s", result.Output)
	}
	if result.Metadata["count"] != 2 {
		t.Errorf("count = %v, want 2", result.Metadata["count"])
	}
}

func TestGlobTool_Recursive(t *testing.T) {
	tmpDir := t.TempDir()
	sub := filepath.Join(tmpDir, "pkg", "deep")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("Failed to create dirs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "nested.go"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	tool := NewGlobTool(tmpDir)
	input := json.RawMessage(`{"pattern": "**/*.go"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "nested.go") {
		t.Errorf("Output should include nested file, got: %s", result.Output)
	}
}

func TestGlobTool_NoMatches(t *testing.T) {
	tool := NewGlobTool(t.TempDir())
	input := json.RawMessage(`{"pattern": "*.nonexistent"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "No files found" {
		t.Errorf("Output = %q, want 'No files found'", result.Output)
	}
}

func TestGlobTool_SkipsHiddenDirs(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "config.go"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	tool := NewGlobTool(tmpDir)
	input := json.RawMessage(`{"pattern": "**/*.go"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(result.Output, ".git") {
		t.Errorf("Output should skip .git, got: %s", result.Output)
	}
}

func TestGlobTool_InvalidPattern(t *testing.T) {
	tool := NewGlobTool(t.TempDir())
	input := json.RawMessage(`{"pattern": "[unclosed"}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Error("Execute should reject an invalid pattern")
	}
}
