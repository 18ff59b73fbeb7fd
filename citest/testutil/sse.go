package testutil

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// SSEEvent is one decoded server-sent event.
type SSEEvent struct {
	Type string
	Data json.RawMessage
}

// SSEClient consumes the /event stream.
type SSEClient struct {
	Events <-chan SSEEvent

	cancel context.CancelFunc
	resp   *http.Response
}

// OpenSSE connects to the server's event stream and decodes events onto
// a channel until closed. Heartbeat comments are skipped.
func OpenSSE(baseURL string) (*SSEClient, error) {
	ctx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/event", nil)
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	events := make(chan SSEEvent, 64)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)

		var current SSEEvent
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				current.Type = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				current.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
			case line == "":
				if current.Type != "" {
					events <- current
				}
				current = SSEEvent{}
			}
		}
	}()

	return &SSEClient{Events: events, cancel: cancel, resp: resp}, nil
}

// Close disconnects from the stream.
func (c *SSEClient) Close() {
	c.cancel()
	c.resp.Body.Close()
}
