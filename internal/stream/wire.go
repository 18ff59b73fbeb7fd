package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Marshal encodes an event as a single JSON object with a leading
// "type" tag followed by the event's own fields.
func Marshal(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	tag, _ := json.Marshal(e.EventType())
	buf.Write(tag)
	if len(body) > 2 { // more than "{}"
		buf.WriteByte(',')
		buf.Write(body[1 : len(body)-1])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Unmarshal decodes a single wire line back into its concrete event.
func Unmarshal(data []byte) (Event, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	decode := func(e Event) (Event, error) {
		if err := json.Unmarshal(data, e); err != nil {
			return nil, err
		}
		return e, nil
	}

	switch tag.Type {
	case "session-created":
		return decode(&SessionCreated{})
	case "title-start":
		return decode(&TitleStart{})
	case "title-delta":
		return decode(&TitleDelta{})
	case "title-complete":
		return decode(&TitleComplete{})
	case "assistant-message-created":
		return decode(&AssistantMessageCreated{})
	case "text-start":
		return decode(&TextStart{})
	case "text-delta":
		return decode(&TextDelta{})
	case "text-end":
		return decode(&TextEnd{})
	case "reasoning-start":
		return decode(&ReasoningStart{})
	case "reasoning-delta":
		return decode(&ReasoningDelta{})
	case "reasoning-end":
		return decode(&ReasoningEnd{})
	case "tool-input-start":
		return decode(&ToolInputStart{})
	case "tool-input-delta":
		return decode(&ToolInputDelta{})
	case "tool-input-end":
		return decode(&ToolInputEnd{})
	case "tool-call":
		return decode(&ToolCall{})
	case "tool-result":
		return decode(&ToolResult{})
	case "tool-error":
		return decode(&ToolError{})
	case "ask-question":
		return decode(&AskQuestion{})
	case "complete":
		return decode(&Complete{})
	case "error":
		return decode(&Error{})
	case "abort":
		return decode(&Abort{})
	default:
		return nil, fmt.Errorf("unknown stream event type %q", tag.Type)
	}
}

// Writer encodes events to an io.Writer, one per line, flushing after
// each event when the destination supports it.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher interface{ Flush() error }
}

// NewWriter creates a line writer for the destination.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(interface{ Flush() error }); ok {
		sw.flusher = f
	}
	return sw
}

// Write encodes one event and appends a newline.
func (w *Writer) Write(e Event) error {
	data, err := Marshal(e)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(append(data, '\n')); err != nil {
		return err
	}
	if w.flusher != nil {
		return w.flusher.Flush()
	}
	return nil
}

// Reader decodes events from a line-oriented source.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a reader over the source. Lines up to 10 MiB are
// accepted to accommodate large tool results.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	return &Reader{scanner: sc}
}

// Next returns the next event, or io.EOF at end of stream.
func (r *Reader) Next() (Event, error) {
	for r.scanner.Scan() {
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return Unmarshal(line)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Recorder captures an event trace. Tests assert ordering invariants
// against the recorded slice.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Record appends an event to the trace.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the trace so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
