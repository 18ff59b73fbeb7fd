// Package provider abstracts model providers behind the Eino framework.
// The session core consumes only this seam: a configured check and a
// streaming completion call.
package provider

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/parley-ai/parley/pkg/types"
)

// Provider is one model vendor.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the list of available models.
	Models() []types.Model

	// IsConfigured reports whether the provider has credentials and can
	// accept completion calls.
	IsConfigured() bool

	// CreateCompletion starts a streaming completion.
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error)
}

// CompletionRequest is a request to generate a completion.
type CompletionRequest struct {
	Model       string
	Messages    []*schema.Message
	Tools       []*schema.ToolInfo
	MaxTokens   int
	Temperature float64
}

// CompletionStream wraps an Eino stream reader. Recv returns io.EOF
// when the provider finishes.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewCompletionStream wraps a stream reader.
func NewCompletionStream(reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{reader: reader}
}

// Recv receives the next message chunk from the stream.
func (s *CompletionStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close closes the stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}
