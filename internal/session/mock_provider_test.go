package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/pkg/types"
)

// mockProvider replays scripted completions. Each CreateCompletion call
// consumes the next script; chunks carry cumulative content, matching
// what real providers send.
type mockProvider struct {
	mu      sync.Mutex
	scripts [][]*schema.Message
	errs    []error
	calls   int

	// streams, when set for a call index, is returned as-is. Tests use
	// pipe-backed readers here to hold a stream open.
	streams []*schema.StreamReader[*schema.Message]

	// requests records what the core asked for, for assertions.
	requests []*provider.CompletionRequest
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockProvider) ID() string   { return "mock" }
func (m *mockProvider) Name() string { return "Mock" }

func (m *mockProvider) Models() []types.Model {
	return []types.Model{{
		ID:              "test-model",
		Name:            "Test Model",
		ProviderID:      "mock",
		ContextLength:   200000,
		MaxOutputTokens: 8192,
		SupportsTools:   true,
	}}
}

func (m *mockProvider) IsConfigured() bool { return true }

func (m *mockProvider) CreateCompletion(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++
	m.requests = append(m.requests, req)

	if call < len(m.errs) && m.errs[call] != nil {
		return nil, m.errs[call]
	}
	if call < len(m.streams) && m.streams[call] != nil {
		return provider.NewCompletionStream(m.streams[call]), nil
	}
	if call >= len(m.scripts) {
		return nil, fmt.Errorf("unscripted completion call %d", call)
	}
	return provider.NewCompletionStream(schema.StreamReaderFromArray(m.scripts[call])), nil
}

// newMockRegistry wraps a mock provider in a registry whose default
// model resolves to the mock.
func newMockRegistry(m *mockProvider) *provider.Registry {
	registry := provider.NewRegistry(&types.Config{Model: "mock/test-model"})
	registry.Register(m)
	return registry
}

// textScript builds cumulative text chunks ending in a stop.
func textScript(pieces ...string) []*schema.Message {
	var chunks []*schema.Message
	var acc string
	for _, piece := range pieces {
		acc += piece
		chunks = append(chunks, &schema.Message{Role: schema.Assistant, Content: acc})
	}
	chunks = append(chunks, &schema.Message{
		Role: schema.Assistant,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "end_turn",
			Usage:        &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
		},
	})
	return chunks
}
