// Package types provides the core data types for the Parley server.
package types

// SchemaVersion is the current persisted session schema generation.
// Version 0 sessions stored message content as a bare string; version 1
// stores an ordered array of typed parts.
const SchemaVersion = 1

// Session is the unit of conversation state.
//
// Sessions are value-oriented: every mutation in the session package
// returns a new Session rather than updating one in place, so a Session
// held by a caller never changes underneath it.
type Session struct {
	ID         string      `json:"id"`
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	Title      string      `json:"title,omitempty"`
	Version    int         `json:"version"`
	Time       SessionTime `json:"time"`
	Messages   []Message   `json:"messages"`
	Todos      []Todo      `json:"todos"`
	NextTodoID int         `json:"nextTodoId"`
}

// SessionTime contains session timestamps in Unix milliseconds.
// Updated is monotonically non-decreasing and bumped on every mutation.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

// Todo is a single tracked task in a session. IDs are assigned from
// Session.NextTodoID and never reused; Ordering defines display order
// and is not necessarily contiguous.
type Todo struct {
	ID         int    `json:"id"`
	Content    string `json:"content"`
	ActiveForm string `json:"activeForm,omitempty"`
	Status     string `json:"status"` // "pending" | "in_progress" | "completed"
	Ordering   int    `json:"ordering"`
}

// Todo statuses.
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
)

// CloneTodos returns a deep copy of a todo list. Snapshots stored on
// messages must not alias the live list.
func CloneTodos(todos []Todo) []Todo {
	if todos == nil {
		return nil
	}
	out := make([]Todo, len(todos))
	copy(out, todos)
	return out
}
