// Package stream defines the typed event union emitted by one
// streaming turn, and its line-oriented wire encoding. UI collaborators
// consume these events with a switch on the concrete type; the encoder
// writes one JSON object per line with a leading "type" tag.
package stream

import "github.com/parley-ai/parley/pkg/types"

// Event is one member of the streaming event union.
type Event interface {
	EventType() string
}

// SessionCreated announces the lazily created session before any other
// event of the first turn.
type SessionCreated struct {
	SessionID string `json:"sessionId"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

func (SessionCreated) EventType() string { return "session-created" }

// TitleStart marks the beginning of model-assisted title streaming.
type TitleStart struct{}

func (TitleStart) EventType() string { return "title-start" }

// TitleDelta carries an incremental title fragment.
type TitleDelta struct {
	Text string `json:"text"`
}

func (TitleDelta) EventType() string { return "title-delta" }

// TitleComplete carries the final, cleaned title.
type TitleComplete struct {
	Title string `json:"title"`
}

func (TitleComplete) EventType() string { return "title-complete" }

// AssistantMessageCreated announces the assistant turn being assembled.
type AssistantMessageCreated struct {
	MessageID string `json:"messageId"`
}

func (AssistantMessageCreated) EventType() string { return "assistant-message-created" }

// TextStart opens a text part. Every TextDelta is bracketed by a
// TextStart and a TextEnd.
type TextStart struct{}

func (TextStart) EventType() string { return "text-start" }

// TextDelta carries an incremental text fragment.
type TextDelta struct {
	Text string `json:"text"`
}

func (TextDelta) EventType() string { return "text-delta" }

// TextEnd closes a text part.
type TextEnd struct{}

func (TextEnd) EventType() string { return "text-end" }

// ReasoningStart opens a reasoning part.
type ReasoningStart struct{}

func (ReasoningStart) EventType() string { return "reasoning-start" }

// ReasoningDelta carries an incremental reasoning fragment.
type ReasoningDelta struct {
	Text string `json:"text"`
}

func (ReasoningDelta) EventType() string { return "reasoning-delta" }

// ReasoningEnd closes a reasoning part.
type ReasoningEnd struct {
	Duration int64 `json:"duration,omitempty"`
}

func (ReasoningEnd) EventType() string { return "reasoning-end" }

// ToolInputStart opens argument streaming for one tool call.
type ToolInputStart struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
}

func (ToolInputStart) EventType() string { return "tool-input-start" }

// ToolInputDelta carries an incremental raw-JSON argument fragment.
type ToolInputDelta struct {
	ToolCallID    string `json:"toolCallId"`
	ToolName      string `json:"toolName"`
	ArgsTextDelta string `json:"argsTextDelta"`
}

func (ToolInputDelta) EventType() string { return "tool-input-delta" }

// ToolInputEnd closes argument streaming with the parsed arguments.
type ToolInputEnd struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args"`
}

func (ToolInputEnd) EventType() string { return "tool-input-end" }

// ToolCall announces that the named tool is about to execute.
type ToolCall struct {
	ToolCallID string         `json:"toolCallId"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args"`
}

func (ToolCall) EventType() string { return "tool-call" }

// ToolResult carries a successful tool outcome.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Result     string `json:"result"`
	Duration   int64  `json:"duration"`
}

func (ToolResult) EventType() string { return "tool-result" }

// ToolError carries a failed tool outcome. A tool error does not
// terminate the stream; the model is given the chance to react.
type ToolError struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Error      string `json:"error"`
	Duration   int64  `json:"duration"`
}

func (ToolError) EventType() string { return "tool-error" }

// AskQuestion suspends the stream until the question set is answered
// through the separate answer endpoint.
type AskQuestion struct {
	QuestionID string              `json:"questionId"`
	Questions  []types.AskQuestion `json:"questions"`
}

func (AskQuestion) EventType() string { return "ask-question" }

// Complete terminates a successful stream.
type Complete struct {
	Usage        types.Usage `json:"usage"`
	FinishReason string      `json:"finishReason"`
}

func (Complete) EventType() string { return "complete" }

// Error terminates a failed stream.
type Error struct {
	Error string `json:"error"`
}

func (Error) EventType() string { return "error" }

// Abort terminates a cancelled stream.
type Abort struct{}

func (Abort) EventType() string { return "abort" }
