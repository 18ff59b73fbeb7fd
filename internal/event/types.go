package event

import "github.com/parley-ai/parley/pkg/types"

// SessionData is the payload for session.created and session.updated.
type SessionData struct {
	Info *types.Session `json:"info"`
}

// TodoData is the payload for todo.updated.
type TodoData struct {
	SessionID string       `json:"sessionId"`
	Todos     []types.Todo `json:"todos"`
}

// AskPendingData is the payload for ask.pending.
type AskPendingData struct {
	SessionID  string              `json:"sessionId"`
	QuestionID string              `json:"questionId"`
	Questions  []types.AskQuestion `json:"questions"`
}

// AskResolvedData is the payload for ask.resolved.
type AskResolvedData struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	Aborted    bool   `json:"aborted,omitempty"`
}
