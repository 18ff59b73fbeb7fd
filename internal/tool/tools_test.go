package tool

import (
	"context"
	"fmt"

	"github.com/parley-ai/parley/pkg/types"
)

// testContext returns a tool context with an in-memory todo store.
func testContext() *Context {
	return &Context{
		SessionID: "ses_test",
		MessageID: "msg_test",
		CallID:    "call_test",
		Todos:     newFakeTodos(),
	}
}

// fakeTodos is an in-memory TodoAccess used by tool tests.
type fakeTodos struct {
	todos  []types.Todo
	nextID int
}

func newFakeTodos() *fakeTodos {
	return &fakeTodos{nextID: 1}
}

func (f *fakeTodos) ListTodos(ctx context.Context, sessionID string) ([]types.Todo, error) {
	return types.CloneTodos(f.todos), nil
}

func (f *fakeTodos) ReplaceTodos(ctx context.Context, sessionID string, items []types.Todo) ([]types.Todo, error) {
	todos := make([]types.Todo, len(items))
	for i, item := range items {
		todos[i] = item
		if todos[i].ID == 0 {
			todos[i].ID = f.nextID
			f.nextID++
		}
		if todos[i].Ordering == 0 {
			todos[i].Ordering = i + 1
		}
	}
	f.todos = todos
	return types.CloneTodos(todos), nil
}

// failingTodos rejects every call, for error-path tests.
type failingTodos struct{}

func (failingTodos) ListTodos(ctx context.Context, sessionID string) ([]types.Todo, error) {
	return nil, fmt.Errorf("todo store unavailable")
}

func (failingTodos) ReplaceTodos(ctx context.Context, sessionID string, items []types.Todo) ([]types.Todo, error) {
	return nil, fmt.Errorf("todo store unavailable")
}
