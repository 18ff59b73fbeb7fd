package testutil

import (
	"net/http/httptest"
	"os"

	"github.com/parley-ai/parley/internal/attachment"
	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/internal/server"
	"github.com/parley-ai/parley/internal/session"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/internal/tool"
	"github.com/parley-ai/parley/pkg/types"
)

// TestServer is an in-process server wired against temp-dir storage and
// the mock provider.
type TestServer struct {
	HTTP *httptest.Server
	Mock *MockLLM
	Bus  *event.Bus

	dir string
}

// StartTestServer assembles the full service stack and serves it from
// an httptest listener.
func StartTestServer() (*TestServer, error) {
	dir, err := os.MkdirTemp("", "parley-citest-*")
	if err != nil {
		return nil, err
	}

	store := storage.New(dir)
	bus := event.NewBus()

	mock := NewMockLLM()
	providers := provider.NewRegistry(&types.Config{Model: "mock/test-model"})
	providers.Register(mock)

	tools := tool.DefaultRegistry(dir)
	cache := attachment.NewCache()

	sessions := session.NewService(store, bus)
	ask := session.NewAskCoordinator(bus)
	transformer := session.NewTransformer(cache)
	orchestrator := session.NewOrchestrator(sessions, providers, tools, ask, transformer, session.Options{})

	srv := server.New(server.DefaultConfig(), sessions, orchestrator, providers, tools, bus)

	return &TestServer{
		HTTP: httptest.NewServer(srv.Handler()),
		Mock: mock,
		Bus:  bus,
		dir:  dir,
	}, nil
}

// Client returns a test client bound to this server.
func (s *TestServer) Client() *TestClient {
	return NewTestClient(s.HTTP.URL)
}

// Stop shuts the server down and removes its storage directory.
func (s *TestServer) Stop() {
	s.HTTP.Close()
	s.Bus.Close()
	os.RemoveAll(s.dir)
}
