package types

import (
	"encoding/json"
	"fmt"
)

// Part is one semantic unit of a turn's content. A message may mix all
// part kinds; ordering inside Message.Content reflects emission order
// and is preserved on replay.
type Part interface {
	PartType() string
}

// Part type tags.
const (
	PartText      = "text"
	PartReasoning = "reasoning"
	PartTool      = "tool"
	PartError     = "error"
)

// Tool part statuses.
const (
	ToolPending   = "pending"
	ToolRunning   = "running"
	ToolCompleted = "completed"
	ToolFailed    = "failed"
)

// TextPart is plain assistant or user text.
type TextPart struct {
	Type    string `json:"type"` // always "text"
	Content string `json:"content"`
}

func (p *TextPart) PartType() string { return PartText }

// NewTextPart creates a text part.
func NewTextPart(content string) *TextPart {
	return &TextPart{Type: PartText, Content: content}
}

// ReasoningPart is extended-thinking content.
type ReasoningPart struct {
	Type     string `json:"type"` // always "reasoning"
	Content  string `json:"content"`
	Duration int64  `json:"duration,omitempty"` // milliseconds
}

func (p *ReasoningPart) PartType() string { return PartReasoning }

// ToolPart records one tool call and its outcome.
type ToolPart struct {
	Type     string         `json:"type"` // always "tool"
	CallID   string         `json:"callId"`
	Name     string         `json:"name"`
	Status   string         `json:"status"` // pending | running | completed | failed
	Input    map[string]any `json:"input,omitempty"`
	Output   string         `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration int64          `json:"duration,omitempty"` // milliseconds
}

func (p *ToolPart) PartType() string { return PartTool }

// ErrorPart records a stream failure inside the turn that produced it.
type ErrorPart struct {
	Type  string `json:"type"` // always "error"
	Error string `json:"error"`
}

func (p *ErrorPart) PartType() string { return PartError }

// UnmarshalPart decodes a single part from its tagged JSON form.
func UnmarshalPart(data []byte) (Part, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	switch tag.Type {
	case PartText:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PartReasoning:
		var p ReasoningPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PartTool:
		var p ToolPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	case PartError:
		var p ErrorPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", tag.Type)
	}
}

// UnmarshalJSON decodes the part union inside Content.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		Content []json.RawMessage `json:"content"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.Content = make([]Part, 0, len(aux.Content))
	for _, raw := range aux.Content {
		part, err := UnmarshalPart(raw)
		if err != nil {
			return err
		}
		m.Content = append(m.Content, part)
	}
	return nil
}
