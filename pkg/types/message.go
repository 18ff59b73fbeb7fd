package types

// Message is one turn of a conversation, user or assistant.
type Message struct {
	ID           string       `json:"id"`
	Role         string       `json:"role"` // "user" | "assistant"
	Content      []Part       `json:"content"`
	Time         MessageTime  `json:"time"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
	FinishReason string       `json:"finishReason,omitempty"`

	// Metadata is the resource-context snapshot captured once when the
	// turn was created. It is never recomputed: replaying it verbatim
	// keeps historical turns byte-identical across provider calls, which
	// preserves provider-side prompt caching.
	Metadata *ResourceContext `json:"metadata,omitempty"`

	// TodoSnapshot is a full copy of the session's todos at turn
	// creation time. Like Metadata it is historical fact, not live state.
	TodoSnapshot []Todo `json:"todoSnapshot,omitempty"`
}

// MessageTime contains timestamps for a message in Unix milliseconds.
type MessageTime struct {
	Created   int64  `json:"created"`
	Completed *int64 `json:"completed,omitempty"`
}

// Finish reasons reported on assistant turns.
const (
	FinishStop    = "stop"
	FinishToolUse = "tool_use"
	FinishLength  = "length"
	FinishAborted = "aborted"
	FinishError   = "error"
)

// Usage contains token accounting for an assistant turn.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add accumulates usage from another sample, recomputing the total.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
}

// Attachment references a file included with a user turn. Content is
// read lazily through the attachment cache, not stored on the session.
type Attachment struct {
	Path         string `json:"path"`
	RelativePath string `json:"relativePath"`
	Size         int64  `json:"size,omitempty"`
}

// ResourceContext is a frozen capture of system state taken once at
// turn creation.
type ResourceContext struct {
	Timestamp  int64  `json:"timestamp"`
	Hostname   string `json:"hostname,omitempty"`
	Platform   string `json:"platform"`
	WorkDir    string `json:"workDir,omitempty"`
	Goroutines int    `json:"goroutines,omitempty"`
	HeapBytes  uint64 `json:"heapBytes,omitempty"`
}
