package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parley-ai/parley/pkg/types"
)

const todoWriteDescription = `Use this tool to create and manage a structured task list for your current session.

Usage:
- The input replaces the entire todo list
- Mark a todo as in_progress BEFORE beginning work on it
- Mark a todo as completed IMMEDIATELY after finishing
- Only ONE todo should be in_progress at a time
- activeForm is the present-continuous label shown while the todo is in progress`

// TodoWriteTool replaces the session's todo list.
type TodoWriteTool struct{}

// TodoWriteInput represents the input for the todowrite tool.
type TodoWriteInput struct {
	Todos []TodoItemInput `json:"todos"`
}

// TodoItemInput is a single todo in the replacement list.
type TodoItemInput struct {
	Content    string `json:"content"`
	ActiveForm string `json:"activeForm"`
	Status     string `json:"status"`
}

// NewTodoWriteTool creates a new todowrite tool.
func NewTodoWriteTool() *TodoWriteTool {
	return &TodoWriteTool{}
}

func (t *TodoWriteTool) ID() string          { return "todowrite" }
func (t *TodoWriteTool) Description() string { return todoWriteDescription }

func (t *TodoWriteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"todos": {
				"type": "array",
				"description": "The complete replacement todo list"
			}
		},
		"required": ["todos"]
	}`)
}

func (t *TodoWriteTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params TodoWriteInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if toolCtx == nil || toolCtx.Todos == nil {
		return nil, fmt.Errorf("todo access not available")
	}

	items := make([]types.Todo, 0, len(params.Todos))
	for i, item := range params.Todos {
		if strings.TrimSpace(item.Content) == "" {
			return nil, fmt.Errorf("todo %d has empty content", i)
		}
		status := item.Status
		if status == "" {
			status = types.TodoPending
		}
		switch status {
		case types.TodoPending, types.TodoInProgress, types.TodoCompleted:
		default:
			return nil, fmt.Errorf("todo %d has invalid status %q", i, item.Status)
		}
		items = append(items, types.Todo{
			Content:    item.Content,
			ActiveForm: item.ActiveForm,
			Status:     status,
		})
	}

	todos, err := toolCtx.Todos.ReplaceTodos(ctx, toolCtx.SessionID, items)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, todo := range todos {
		if todo.Status == types.TodoCompleted {
			completed++
		}
	}

	return &Result{
		Title:  fmt.Sprintf("%d todos (%d completed)", len(todos), completed),
		Output: formatTodos(todos),
		Metadata: map[string]any{
			"count":     len(todos),
			"completed": completed,
		},
	}, nil
}

func formatTodos(todos []types.Todo) string {
	if len(todos) == 0 {
		return "Todo list is empty"
	}
	var sb strings.Builder
	for _, todo := range todos {
		marker := " "
		switch todo.Status {
		case types.TodoInProgress:
			marker = "~"
		case types.TodoCompleted:
			marker = "x"
		}
		fmt.Fprintf(&sb, "[%s] #%d %s\n", marker, todo.ID, todo.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}
