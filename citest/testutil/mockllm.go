// Package testutil provides helpers for integration tests: an in-process
// server, a scriptable mock provider, and a thin HTTP client.
package testutil

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/pkg/types"
)

type mockScript struct {
	chunks []*schema.Message
	err    error
}

// MockLLM is a scriptable provider. Scripts are consumed in order, one
// per CreateCompletion call; with no script queued it streams a fixed
// greeting so unrelated tests do not have to script anything.
type MockLLM struct {
	mu       sync.Mutex
	scripts  []mockScript
	requests []*provider.CompletionRequest
}

// NewMockLLM creates a mock provider.
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) ID() string         { return "mock" }
func (m *MockLLM) Name() string       { return "Mock" }
func (m *MockLLM) IsConfigured() bool { return true }

func (m *MockLLM) Models() []types.Model {
	return []types.Model{
		{
			ID:            "test-model",
			Name:          "Test Model",
			ProviderID:    "mock",
			ContextLength: 200000,
			SupportsTools: true,
		},
	}
}

// ScriptText queues one streamed response assembled from the given
// pieces. Chunks carry cumulative content, the way real providers
// stream.
func (m *MockLLM) ScriptText(pieces ...string) {
	chunks := make([]*schema.Message, 0, len(pieces)+1)
	var content string
	for _, piece := range pieces {
		content += piece
		chunks = append(chunks, &schema.Message{
			Role:    schema.Assistant,
			Content: content,
		})
	}
	chunks = append(chunks, &schema.Message{
		Role:    schema.Assistant,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "end_turn",
			Usage:        &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
		},
	})

	m.mu.Lock()
	m.scripts = append(m.scripts, mockScript{chunks: chunks})
	m.mu.Unlock()
}

// ScriptError queues one failing completion call.
func (m *MockLLM) ScriptError(err error) {
	m.mu.Lock()
	m.scripts = append(m.scripts, mockScript{err: err})
	m.mu.Unlock()
}

// Requests returns a copy of every completion request seen so far.
func (m *MockLLM) Requests() []*provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*provider.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockLLM) CreateCompletion(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionStream, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	var script mockScript
	if len(m.scripts) > 0 {
		script = m.scripts[0]
		m.scripts = m.scripts[1:]
	}
	m.mu.Unlock()

	if script.err != nil {
		return nil, script.err
	}
	chunks := script.chunks
	if chunks == nil {
		chunks = []*schema.Message{
			{Role: schema.Assistant, Content: "Hello from the mock provider."},
			{
				Role:    schema.Assistant,
				Content: "Hello from the mock provider.",
				ResponseMeta: &schema.ResponseMeta{
					FinishReason: "end_turn",
					Usage:        &schema.TokenUsage{PromptTokens: 8, CompletionTokens: 6},
				},
			},
		}
	}
	return provider.NewCompletionStream(schema.StreamReaderFromArray(chunks)), nil
}
