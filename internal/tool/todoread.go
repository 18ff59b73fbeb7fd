package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

const todoReadDescription = `Reads the current session todo list.

Usage:
- Takes no parameters
- Returns the todos with their ids and statuses`

// TodoReadTool returns the session's current todo list.
type TodoReadTool struct{}

// NewTodoReadTool creates a new todoread tool.
func NewTodoReadTool() *TodoReadTool {
	return &TodoReadTool{}
}

func (t *TodoReadTool) ID() string          { return "todoread" }
func (t *TodoReadTool) Description() string { return todoReadDescription }

func (t *TodoReadTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {}
	}`)
}

func (t *TodoReadTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	if toolCtx == nil || toolCtx.Todos == nil {
		return nil, fmt.Errorf("todo access not available")
	}

	todos, err := toolCtx.Todos.ListTodos(ctx, toolCtx.SessionID)
	if err != nil {
		return nil, err
	}

	return &Result{
		Title:    fmt.Sprintf("%d todos", len(todos)),
		Output:   formatTodos(todos),
		Metadata: map[string]any{"count": len(todos)},
	}, nil
}
