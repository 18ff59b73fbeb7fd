package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

const askDescription = `Asks the user one or more questions and waits for their answers.

Usage:
- Use this when you need a decision or clarification from the user before continuing
- Each question may offer predefined options; multiSelect allows picking several
- The answers are returned as the tool result`

// AskTool declares the ask tool schema. Execution is handled by the
// session loop, which suspends the stream until the user answers.
type AskTool struct{}

// AskInput represents the input for the ask tool.
type AskInput struct {
	Questions []AskQuestionInput `json:"questions"`
}

// AskQuestionInput is a single question posed to the user.
type AskQuestionInput struct {
	Question    string           `json:"question"`
	Header      string           `json:"header,omitempty"`
	MultiSelect bool             `json:"multiSelect,omitempty"`
	Options     []AskOptionInput `json:"options,omitempty"`
}

// AskOptionInput is a predefined answer option.
type AskOptionInput struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// NewAskTool creates a new ask tool.
func NewAskTool() *AskTool {
	return &AskTool{}
}

func (t *AskTool) ID() string          { return "ask" }
func (t *AskTool) Description() string { return askDescription }

func (t *AskTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"questions": {
				"type": "array",
				"description": "Questions to ask the user, each with question, optional header, multiSelect and options"
			}
		},
		"required": ["questions"]
	}`)
}

// Execute always fails: ask calls never run through the registry. The
// session loop intercepts them and suspends the stream instead.
func (t *AskTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	return nil, fmt.Errorf("ask is dispatched by the session loop")
}
