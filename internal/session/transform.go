package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/internal/attachment"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/types"
)

// Transformer converts stored turns into provider-ready messages. It
// never mutates its input; historical turns must render byte-identical
// on every call so the provider's prompt cache stays warm.
type Transformer struct {
	cache *attachment.Cache
	log   zerolog.Logger
}

// NewTransformer creates a transformer over the given attachment cache.
func NewTransformer(cache *attachment.Cache) *Transformer {
	return &Transformer{
		cache: cache,
		log:   logging.For("transform"),
	}
}

// Transform produces the ordered provider message list for a turn
// history. Each turn maps to one primary message; completed tool parts
// additionally produce the tool-role result messages the chat protocol
// requires. A turn with zero transformable parts is dropped with a
// logged warning rather than failing the call.
func (t *Transformer) Transform(messages []types.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))

	for _, msg := range messages {
		primary, results := t.transformTurn(msg)
		if primary == nil {
			t.log.Warn().Str("message", msg.ID).Msg("dropping turn with no transformable parts")
			continue
		}
		out = append(out, primary)
		out = append(out, results...)
	}

	return out
}

// transformTurn flattens one turn. The returned results slice holds
// tool-role messages for any tool parts that carry output.
func (t *Transformer) transformTurn(msg types.Message) (*schema.Message, []*schema.Message) {
	var blocks []string
	var toolCalls []schema.ToolCall
	var results []*schema.Message

	// Stored context and snapshot are replayed verbatim, never
	// recomputed.
	if msg.Metadata != nil {
		blocks = append(blocks, formatResourceContext(msg.Metadata))
	}
	if msg.TodoSnapshot != nil {
		blocks = append(blocks, formatTodoSnapshot(msg.TodoSnapshot))
	}

	for _, part := range msg.Content {
		switch p := part.(type) {
		case *types.TextPart:
			if p.Content != "" {
				blocks = append(blocks, p.Content)
			}
		case *types.ReasoningPart:
			// Reasoning is not replayed to the provider.
		case *types.ToolPart:
			toolCalls = append(toolCalls, schema.ToolCall{
				ID: p.CallID,
				Function: schema.FunctionCall{
					Name:      p.Name,
					Arguments: marshalToolInput(p.Input),
				},
			})
			if result := toolResultMessage(p); result != nil {
				results = append(results, result)
			}
		case *types.ErrorPart:
			blocks = append(blocks, "Error: "+p.Error)
		}
	}

	for _, att := range msg.Attachments {
		blocks = append(blocks, t.resolveAttachment(att))
	}

	if len(blocks) == 0 && len(toolCalls) == 0 {
		return nil, nil
	}

	role := schema.Assistant
	if msg.Role == "user" {
		role = schema.User
	}

	return &schema.Message{
		Role:      role,
		Content:   strings.Join(blocks, "\n\n"),
		ToolCalls: toolCalls,
	}, results
}

// resolveAttachment reads attachment content through the process-wide
// cache. An unreadable file degrades to a placeholder; lost historical
// context cannot be recovered mid-conversation, so the transform never
// aborts on it.
func (t *Transformer) resolveAttachment(att types.Attachment) string {
	name := att.RelativePath
	if name == "" {
		name = att.Path
	}

	content, err := t.cache.Get(att.Path)
	if err != nil {
		t.log.Warn().Str("path", att.Path).Err(err).Msg("attachment unreadable")
		return fmt.Sprintf("<attachment path=%q>\n(unreadable: %v)\n</attachment>", name, err)
	}
	return fmt.Sprintf("<attachment path=%q>\n%s\n</attachment>", name, content)
}

// toolResultMessage builds the tool-role message for a finished tool
// part, or nil while the call is still pending.
func toolResultMessage(p *types.ToolPart) *schema.Message {
	switch p.Status {
	case types.ToolCompleted:
		return &schema.Message{
			Role:       schema.Tool,
			ToolCallID: p.CallID,
			Content:    p.Output,
		}
	case types.ToolFailed:
		return &schema.Message{
			Role:       schema.Tool,
			ToolCallID: p.CallID,
			Content:    "Error: " + p.Error,
		}
	}
	return nil
}

func marshalToolInput(input map[string]any) string {
	if input == nil {
		return "{}"
	}
	data, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func formatTodoSnapshot(todos []types.Todo) string {
	if len(todos) == 0 {
		return "<todos>\n(empty)\n</todos>"
	}
	var sb strings.Builder
	sb.WriteString("<todos>\n")
	for _, todo := range todos {
		fmt.Fprintf(&sb, "#%d [%s] %s\n", todo.ID, todo.Status, todo.Content)
	}
	sb.WriteString("</todos>")
	return sb.String()
}
