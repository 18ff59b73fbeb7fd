package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/internal/stream"
	"github.com/parley-ai/parley/pkg/types"
)

// relayResult is what one provider stream produced.
type relayResult struct {
	finishReason string
	usage        *types.Usage
	toolParts    []*types.ToolPart
}

// relayState assembles whole parts from cumulative chunks while
// relaying deltas immediately. Text and reasoning brackets never
// interleave: opening one kind closes the other first.
type relayState struct {
	t *turn

	textContent      string
	textOpen         bool
	reasoningContent string
	reasoningOpen    bool
	reasoningStart   int64

	toolOrder []string
	toolParts map[string]*types.ToolPart
	toolArgs  map[string]string
}

// relayStream consumes one provider completion, relaying every event in
// arrival order and appending assembled parts to the turn. Providers
// send cumulative content per chunk; the relay computes and emits only
// the growth.
func (o *Orchestrator) relayStream(ctx context.Context, t *turn, completion *provider.CompletionStream) (*relayResult, error) {
	rs := &relayState{
		t:         t,
		toolParts: make(map[string]*types.ToolPart),
		toolArgs:  make(map[string]string),
	}
	result := &relayResult{}

	for {
		select {
		case <-ctx.Done():
			rs.closeBrackets()
			return nil, &AbortError{}
		default:
		}

		msg, err := completion.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			rs.closeBrackets()
			return nil, err
		}

		rs.handleChunk(msg, result)
	}

	rs.closeBrackets()
	result.toolParts = rs.finishToolParts()

	if result.finishReason == "" {
		if len(result.toolParts) > 0 {
			result.finishReason = types.FinishToolUse
		} else {
			result.finishReason = types.FinishStop
		}
	}

	return result, nil
}

func (rs *relayState) handleChunk(msg *schema.Message, result *relayResult) {
	if msg.ReasoningContent != "" && len(msg.ReasoningContent) > len(rs.reasoningContent) {
		rs.closeText()
		if !rs.reasoningOpen {
			rs.reasoningOpen = true
			rs.reasoningStart = time.Now().UnixMilli()
			rs.t.emit(&stream.ReasoningStart{})
		}
		delta := msg.ReasoningContent[len(rs.reasoningContent):]
		rs.reasoningContent = msg.ReasoningContent
		rs.t.emit(&stream.ReasoningDelta{Text: delta})
	}

	if msg.Content != "" && len(msg.Content) > len(rs.textContent) {
		rs.closeReasoning()
		if !rs.textOpen {
			rs.textOpen = true
			rs.t.emit(&stream.TextStart{})
		}
		delta := msg.Content[len(rs.textContent):]
		rs.textContent = msg.Content
		rs.t.emit(&stream.TextDelta{Text: delta})
	}

	for _, tc := range msg.ToolCalls {
		if tc.ID == "" && len(rs.toolOrder) == 0 {
			continue
		}
		id := tc.ID
		if id == "" {
			// Argument fragments for the most recent call may arrive
			// without an id.
			id = rs.toolOrder[len(rs.toolOrder)-1]
		}

		part, exists := rs.toolParts[id]
		if !exists {
			rs.closeText()
			rs.closeReasoning()
			part = &types.ToolPart{
				Type:   types.PartTool,
				CallID: id,
				Name:   tc.Function.Name,
				Status: types.ToolPending,
			}
			rs.toolParts[id] = part
			rs.toolOrder = append(rs.toolOrder, id)
			rs.toolArgs[id] = ""
			rs.t.emit(&stream.ToolInputStart{ToolCallID: id, ToolName: part.Name})
		}
		if part.Name == "" && tc.Function.Name != "" {
			part.Name = tc.Function.Name
		}

		if args := tc.Function.Arguments; args != "" && len(args) > len(rs.toolArgs[id]) {
			delta := args[len(rs.toolArgs[id]):]
			rs.toolArgs[id] = args
			rs.t.emit(&stream.ToolInputDelta{ToolCallID: id, ToolName: part.Name, ArgsTextDelta: delta})
		}
	}

	if msg.ResponseMeta != nil {
		if msg.ResponseMeta.Usage != nil {
			result.usage = &types.Usage{
				PromptTokens:     msg.ResponseMeta.Usage.PromptTokens,
				CompletionTokens: msg.ResponseMeta.Usage.CompletionTokens,
				TotalTokens:      msg.ResponseMeta.Usage.PromptTokens + msg.ResponseMeta.Usage.CompletionTokens,
			}
		}
		if reason := msg.ResponseMeta.FinishReason; reason != "" {
			result.finishReason = normalizeFinishReason(reason)
		}
	}
}

// closeText ends an open text bracket and records the assembled part.
func (rs *relayState) closeText() {
	if !rs.textOpen {
		return
	}
	rs.textOpen = false
	rs.t.emit(&stream.TextEnd{})
	rs.t.parts = append(rs.t.parts, types.NewTextPart(rs.textContent))
	rs.textContent = ""
}

// closeReasoning ends an open reasoning bracket and records the part.
func (rs *relayState) closeReasoning() {
	if !rs.reasoningOpen {
		return
	}
	rs.reasoningOpen = false
	duration := time.Now().UnixMilli() - rs.reasoningStart
	rs.t.emit(&stream.ReasoningEnd{Duration: duration})
	rs.t.parts = append(rs.t.parts, &types.ReasoningPart{
		Type:     types.PartReasoning,
		Content:  rs.reasoningContent,
		Duration: duration,
	})
	rs.reasoningContent = ""
}

func (rs *relayState) closeBrackets() {
	rs.closeText()
	rs.closeReasoning()
}

// finishToolParts parses accumulated argument text, emits the
// tool-input-end events, and records the parts on the turn in call
// order. A call whose argument text is not valid JSON is marked failed
// here; it must not execute with empty input.
func (rs *relayState) finishToolParts() []*types.ToolPart {
	parts := make([]*types.ToolPart, 0, len(rs.toolOrder))
	for _, id := range rs.toolOrder {
		part := rs.toolParts[id]

		var args map[string]any
		if raw := rs.toolArgs[id]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				part.Status = types.ToolFailed
				part.Error = fmt.Sprintf("invalid tool arguments: %v", err)
			}
		}
		if args == nil {
			args = map[string]any{}
		}
		part.Input = args

		rs.t.emit(&stream.ToolInputEnd{ToolCallID: id, ToolName: part.Name, Args: args})
		rs.t.parts = append(rs.t.parts, part)
		parts = append(parts, part)
	}
	return parts
}

// normalizeFinishReason maps vendor finish reasons onto the stored set.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "stop", "end_turn", "stop_sequence":
		return types.FinishStop
	case "tool_use", "tool_calls":
		return types.FinishToolUse
	case "max_tokens", "length":
		return types.FinishLength
	default:
		return reason
	}
}
