package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "output.txt")

	tool := NewWriteTool(tmpDir)

	input := json.RawMessage(`{"filePath": "` + testFile + `", "content": "Hello, World!"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "13 bytes") {
		t.Errorf("Output should report byte count, got: %s", result.Output)
	}

	written, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(written) != "Hello, World!" {
		t.Errorf("File content = %q", written)
	}
}

func TestWriteTool_Overwrite(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "existing.txt")
	if err := os.WriteFile(testFile, []byte("old content"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tool := NewWriteTool(tmpDir)

	input := json.RawMessage(`{"filePath": "` + testFile + `", "content": "new content"}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	written, _ := os.ReadFile(testFile)
	if string(written) != "new content" {
		t.Errorf("File content = %q, want overwritten content", written)
	}
}

func TestWriteTool_CreatesParentDirs(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c", "deep.txt")

	tool := NewWriteTool(tmpDir)

	input := json.RawMessage(`{"filePath": "` + nested + `", "content": "nested"}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if _, err := os.Stat(nested); err != nil {
		t.Errorf("Nested file should exist: %v", err)
	}
}

func TestWriteTool_RelativePath(t *testing.T) {
	tmpDir := t.TempDir()

	tool := NewWriteTool(tmpDir)

	input := json.RawMessage(`{"filePath": "rel.txt", "content": "relative"}`)
	if _, err := tool.Execute(context.Background(), input, &Context{WorkDir: tmpDir}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	written, err := os.ReadFile(filepath.Join(tmpDir, "rel.txt"))
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(written) != "relative" {
		t.Errorf("File content = %q", written)
	}
}

func TestWriteTool_InvalidInput(t *testing.T) {
	tool := NewWriteTool("/tmp")

	input := json.RawMessage(`{bad`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Error("Expected error for invalid JSON input")
	}
}
