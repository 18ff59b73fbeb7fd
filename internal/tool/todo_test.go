package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestTodoWriteTool_Execute(t *testing.T) {
	tool := NewTodoWriteTool()
	toolCtx := testContext()

	input := json.RawMessage(`{
		"todos": [
			{"content": "write tests", "activeForm": "Writing tests", "status": "in_progress"},
			{"content": "review", "activeForm": "Reviewing"}
		]
	}`)
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result.Output, "[~] #1 write tests") {
		t.Errorf("Output should show in-progress marker, got: %s", result.Output)
	}
	if !strings.Contains(result.Output, "[ ] #2 review") {
		t.Errorf("Missing status defaults to pending, got: %s", result.Output)
	}
	if result.Metadata["count"] != 2 {
		t.Errorf("count = %v, want 2", result.Metadata["count"])
	}
}

func TestTodoWriteTool_EmptyContent(t *testing.T) {
	tool := NewTodoWriteTool()
	input := json.RawMessage(`{"todos": [{"content": "  "}]}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Error("Execute should reject empty content")
	}
}

func TestTodoWriteTool_InvalidStatus(t *testing.T) {
	tool := NewTodoWriteTool()
	input := json.RawMessage(`{"todos": [{"content": "x", "status": "bogus"}]}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Error("Execute should reject an invalid status")
	}
}

func TestTodoWriteTool_ClearList(t *testing.T) {
	tool := NewTodoWriteTool()
	toolCtx := testContext()

	input := json.RawMessage(`{"todos": [{"content": "x"}]}`)
	if _, err := tool.Execute(context.Background(), input, toolCtx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"todos": []}`), toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "Todo list is empty" {
		t.Errorf("Output = %q", result.Output)
	}
}

func TestTodoWriteTool_NoTodoAccess(t *testing.T) {
	tool := NewTodoWriteTool()
	input := json.RawMessage(`{"todos": [{"content": "x"}]}`)
	if _, err := tool.Execute(context.Background(), input, &Context{}); err == nil {
		t.Error("Execute should fail without todo access")
	}
}

func TestTodoReadTool_Execute(t *testing.T) {
	toolCtx := testContext()

	writeInput := json.RawMessage(`{"todos": [{"content": "first", "status": "completed"}]}`)
	if _, err := NewTodoWriteTool().Execute(context.Background(), writeInput, toolCtx); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	result, err := NewTodoReadTool().Execute(context.Background(), json.RawMessage(`{}`), toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "[x] #1 first") {
		t.Errorf("Output = %s", result.Output)
	}
}

func TestTodoReadTool_StoreError(t *testing.T) {
	toolCtx := testContext()
	toolCtx.Todos = failingTodos{}

	if _, err := NewTodoReadTool().Execute(context.Background(), json.RawMessage(`{}`), toolCtx); err == nil {
		t.Error("Execute should surface store errors")
	}
}

func TestAskTool_NeverExecutesDirectly(t *testing.T) {
	tool := NewAskTool()
	input := json.RawMessage(`{"questions": [{"question": "ok?"}]}`)
	if _, err := tool.Execute(context.Background(), input, testContext()); err == nil {
		t.Error("Ask must be dispatched by the session loop, not the registry")
	}
}
