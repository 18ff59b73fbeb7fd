package types

// AskQuestion is one question posed to the human by the ask tool.
type AskQuestion struct {
	Question    string      `json:"question"`
	Header      string      `json:"header,omitempty"`
	MultiSelect bool        `json:"multiSelect,omitempty"`
	Options     []AskOption `json:"options,omitempty"`
}

// AskOption is a selectable answer for an ask question.
type AskOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// AskAnswers maps a question key to the chosen answer. Values are a
// string for single-select questions or a string list for multi-select.
type AskAnswers map[string]any
