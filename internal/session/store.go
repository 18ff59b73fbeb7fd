// Package session implements conversation state: the session value
// transforms, schema migration, message transformation, the streaming
// turn loop, and the ask suspension bridge.
package session

import (
	"fmt"
	"time"

	"github.com/parley-ai/parley/pkg/types"
)

// The functions in this file are pure transforms: each takes a Session
// value and returns a new one, leaving the input untouched. All
// invariants (updated >= created, append-only messages, monotonic todo
// ids) are enforced here and nowhere else.

// Create returns a fresh session for the given provider and model.
func Create(provider, model string) types.Session {
	now := time.Now().UnixMilli()
	return types.Session{
		ID:         newSessionID(),
		Provider:   provider,
		Model:      model,
		Version:    types.SchemaVersion,
		Time:       types.SessionTime{Created: now, Updated: now},
		Messages:   []types.Message{},
		Todos:      []types.Todo{},
		NextTodoID: 1,
	}
}

// AppendMessage returns a new session with msg appended. A message with
// empty content is a contract violation and is rejected.
func AppendMessage(s types.Session, msg types.Message) (types.Session, error) {
	if len(msg.Content) == 0 {
		return types.Session{}, &ValidationError{Reason: "message content must not be empty"}
	}
	if msg.Role != "user" && msg.Role != "assistant" {
		return types.Session{}, &ValidationError{Reason: fmt.Sprintf("invalid role %q", msg.Role)}
	}

	out := s
	out.Messages = make([]types.Message, len(s.Messages), len(s.Messages)+1)
	copy(out.Messages, s.Messages)
	out.Messages = append(out.Messages, msg)
	return touch(out), nil
}

// SetTitle returns a new session with the title replaced.
func SetTitle(s types.Session, title string) types.Session {
	out := s
	out.Title = title
	return touch(out)
}

// SetTodos returns a new session with the todo list replaced and the id
// counter advanced. Every todo id must be below nextTodoID, and the
// counter never moves backwards.
func SetTodos(s types.Session, todos []types.Todo, nextTodoID int) (types.Session, error) {
	if nextTodoID < s.NextTodoID {
		return types.Session{}, &ValidationError{
			Reason: fmt.Sprintf("nextTodoId %d below current %d", nextTodoID, s.NextTodoID),
		}
	}
	for _, todo := range todos {
		if todo.ID >= nextTodoID {
			return types.Session{}, &ValidationError{
				Reason: fmt.Sprintf("todo id %d not below nextTodoId %d", todo.ID, nextTodoID),
			}
		}
		if todo.ID < 1 {
			return types.Session{}, &ValidationError{
				Reason: fmt.Sprintf("todo id %d invalid", todo.ID),
			}
		}
	}

	out := s
	out.Todos = types.CloneTodos(todos)
	if out.Todos == nil {
		out.Todos = []types.Todo{}
	}
	ensureOrdering(out.Todos)
	out.NextTodoID = nextTodoID
	return touch(out), nil
}

// ensureOrdering assigns sequential orderings when the caller supplied
// none. Explicit orderings pass through untouched.
func ensureOrdering(todos []types.Todo) {
	allZero := true
	for _, todo := range todos {
		if todo.Ordering != 0 {
			allZero = false
			break
		}
	}
	if !allZero {
		return
	}
	for i := range todos {
		todos[i].Ordering = i + 1
	}
}

// touch bumps the updated timestamp, never backwards.
func touch(s types.Session) types.Session {
	now := time.Now().UnixMilli()
	if now > s.Time.Updated {
		s.Time.Updated = now
	}
	return s
}

// NewUserMessage assembles a user turn with the resource context and
// todo snapshot frozen at creation time.
func NewUserMessage(text string, attachments []types.Attachment, todos []types.Todo) types.Message {
	return types.Message{
		ID:           newMessageID(),
		Role:         "user",
		Content:      []types.Part{types.NewTextPart(text)},
		Time:         types.MessageTime{Created: time.Now().UnixMilli()},
		Attachments:  attachments,
		Metadata:     CaptureResourceContext(),
		TodoSnapshot: types.CloneTodos(todos),
	}
}
