package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/parley-ai/parley/pkg/types"
)

func TestMarshal_TagFirst(t *testing.T) {
	data, err := Marshal(&TextDelta{Text: "hello"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"type":"text-delta","text":"hello"}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestMarshal_EmptyEvent(t *testing.T) {
	data, err := Marshal(&TextStart{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"type":"text-start"}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestUnmarshal_RoundTrip(t *testing.T) {
	events := []Event{
		&SessionCreated{SessionID: "ses_1", Provider: "anthropic", Model: "claude-sonnet-4"},
		&TitleStart{},
		&TitleDelta{Text: "Fix "},
		&TitleComplete{Title: "Fix parser"},
		&AssistantMessageCreated{MessageID: "msg_1"},
		&TextStart{},
		&TextDelta{Text: "chunk"},
		&TextEnd{},
		&ReasoningStart{},
		&ReasoningDelta{Text: "thinking"},
		&ReasoningEnd{Duration: 120},
		&ToolInputStart{ToolCallID: "call_1", ToolName: "read"},
		&ToolInputDelta{ToolCallID: "call_1", ToolName: "read", ArgsTextDelta: `{"pa`},
		&ToolInputEnd{ToolCallID: "call_1", ToolName: "read", Args: map[string]any{"path": "a.go"}},
		&ToolCall{ToolCallID: "call_1", ToolName: "read", Args: map[string]any{"path": "a.go"}},
		&ToolResult{ToolCallID: "call_1", ToolName: "read", Result: "contents", Duration: 4},
		&ToolError{ToolCallID: "call_1", ToolName: "read", Error: "file not found", Duration: 2},
		&AskQuestion{QuestionID: "ask_1", Questions: []types.AskQuestion{{Question: "proceed?"}}},
		&Complete{Usage: types.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, FinishReason: "end_turn"},
		&Error{Error: "provider unavailable"},
		&Abort{},
	}

	for _, e := range events {
		data, err := Marshal(e)
		if err != nil {
			t.Fatalf("Marshal %s failed: %v", e.EventType(), err)
		}

		decoded, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal %s failed: %v", e.EventType(), err)
		}
		if decoded.EventType() != e.EventType() {
			t.Errorf("Type mismatch: got %s, want %s", decoded.EventType(), e.EventType())
		}

		// Re-encoding the decoded event reproduces the wire bytes
		again, err := Marshal(decoded)
		if err != nil {
			t.Fatalf("Re-Marshal %s failed: %v", e.EventType(), err)
		}
		if string(again) != string(data) {
			t.Errorf("%s: re-encode mismatch\n got: %s\nwant: %s", e.EventType(), again, data)
		}
	}
}

func TestUnmarshal_UnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":"mystery-event"}`))
	if err == nil {
		t.Fatal("Expected error for unknown event type")
	}
	if !strings.Contains(err.Error(), "mystery-event") {
		t.Errorf("Error should name the unknown type: %v", err)
	}
}

func TestUnmarshal_InvalidJSON(t *testing.T) {
	if _, err := Unmarshal([]byte(`{not json`)); err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
}

func TestWriter_OneEventPerLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.Write(&TextStart{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(&TextDelta{Text: "hi"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			t.Errorf("Line is not valid JSON: %q", line)
		}
	}
}

func TestReader_SkipsBlankLines(t *testing.T) {
	input := "\n" + `{"type":"text-start"}` + "\n\n  \n" + `{"type":"text-delta","text":"a"}` + "\n"
	r := NewReader(strings.NewReader(input))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, ok := first.(*TextStart); !ok {
		t.Errorf("Expected *TextStart, got %T", first)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	delta, ok := second.(*TextDelta)
	if !ok {
		t.Fatalf("Expected *TextDelta, got %T", second)
	}
	if delta.Text != "a" {
		t.Errorf("Text = %q, want %q", delta.Text, "a")
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestReaderWriter_Pipeline(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	sent := []Event{
		&AssistantMessageCreated{MessageID: "msg_1"},
		&TextStart{},
		&TextDelta{Text: "hello"},
		&TextEnd{},
		&Complete{FinishReason: "end_turn"},
	}
	for _, e := range sent {
		if err := w.Write(e); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	r := NewReader(&buf)
	for i := 0; ; i++ {
		e, err := r.Next()
		if err == io.EOF {
			if i != len(sent) {
				t.Errorf("Decoded %d events, want %d", i, len(sent))
			}
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if e.EventType() != sent[i].EventType() {
			t.Errorf("Event %d: got %s, want %s", i, e.EventType(), sent[i].EventType())
		}
	}
}

func TestRecorder(t *testing.T) {
	var rec Recorder
	rec.Record(&TextStart{})
	rec.Record(&TextDelta{Text: "x"})

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	// Events returns a copy, not the live slice
	rec.Record(&TextEnd{})
	if len(events) != 2 {
		t.Errorf("Snapshot should not grow, got %d", len(events))
	}
	if len(rec.Events()) != 3 {
		t.Errorf("Expected 3 recorded events, got %d", len(rec.Events()))
	}
}
