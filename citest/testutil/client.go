package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parley-ai/parley/internal/stream"
	"github.com/parley-ai/parley/pkg/types"
)

// TestClient is a thin HTTP client for the test server.
type TestClient struct {
	baseURL string
	http    *http.Client
}

// NewTestClient creates a client for the given base URL.
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Response is one completed HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports whether the status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

func (c *TestClient) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Get performs a GET request.
func (c *TestClient) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *TestClient) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *TestClient) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *TestClient) Delete(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// CreateSession creates a session on the default model.
func (c *TestClient) CreateSession(ctx context.Context) (*types.Session, error) {
	resp, err := c.Post(ctx, "/session", map[string]string{})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create session: status %d: %s", resp.StatusCode, resp.Body)
	}
	var sess types.Session
	if err := resp.JSON(&sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// GetSession fetches a session by ID.
func (c *TestClient) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	resp, err := c.Get(ctx, "/session/"+sessionID)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("get session: status %d: %s", resp.StatusCode, resp.Body)
	}
	var sess types.Session
	if err := resp.JSON(&sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession removes a session by ID.
func (c *TestClient) DeleteSession(ctx context.Context, sessionID string) error {
	resp, err := c.Delete(ctx, "/session/"+sessionID)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("delete session: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// ListSessions lists sessions, newest first.
func (c *TestClient) ListSessions(ctx context.Context) ([]*types.Session, error) {
	resp, err := c.Get(ctx, "/session")
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("list sessions: status %d: %s", resp.StatusCode, resp.Body)
	}
	var sessions []*types.Session
	if err := resp.JSON(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SendMessage runs one streaming turn and collects every event until
// the stream ends.
func (c *TestClient) SendMessage(ctx context.Context, sessionID, content string) ([]stream.Event, error) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session/"+sessionID+"/message", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("send message: status %d: %s", resp.StatusCode, data)
	}

	var events []stream.Event
	reader := stream.NewReader(resp.Body)
	for {
		e, err := reader.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}
