// Package mcp connects external MCP servers and surfaces their tools
// into the tool registry.
package mcp

import (
	"context"
	"fmt"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/tool"
	"github.com/parley-ai/parley/pkg/types"
)

// Manager owns the connections to configured MCP servers.
type Manager struct {
	mu      sync.RWMutex
	servers map[string]*serverConn
	log     zerolog.Logger
}

type serverConn struct {
	name   string
	client *mcpclient.Client
	tools  []mcp.Tool
}

// NewManager creates an empty MCP manager.
func NewManager() *Manager {
	return &Manager{
		servers: make(map[string]*serverConn),
		log:     logging.For("mcp"),
	}
}

// Connect starts every configured server over stdio, lists its tools,
// and registers them. A server that fails to start is logged and
// skipped; external tooling must never block startup.
func (m *Manager) Connect(ctx context.Context, configs map[string]types.MCPServerConfig, registry *tool.Registry) {
	for name, cfg := range configs {
		if err := m.connectServer(ctx, name, cfg, registry); err != nil {
			m.log.Warn().Str("server", name).Err(err).Msg("mcp server unavailable")
		}
	}
}

func (m *Manager) connectServer(ctx context.Context, name string, cfg types.MCPServerConfig, registry *tool.Registry) error {
	if cfg.Command == "" {
		return fmt.Errorf("empty command")
	}

	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, k+"="+v)
	}

	client, err := mcpclient.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "parley", Version: "1.0.0"}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		client.Close()
		return fmt.Errorf("failed to initialize: %w", err)
	}

	toolsResult, err := client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	conn := &serverConn{name: name, client: client, tools: toolsResult.Tools}
	m.mu.Lock()
	if old, ok := m.servers[name]; ok {
		old.client.Close()
	}
	m.servers[name] = conn
	m.mu.Unlock()

	for _, serverTool := range toolsResult.Tools {
		registry.Register(newServerTool(m, name, serverTool))
	}

	m.log.Info().Str("server", name).Int("tools", len(toolsResult.Tools)).Msg("mcp server connected")
	return nil
}

// call invokes a tool on a connected server.
func (m *Manager) call(ctx context.Context, server, toolName string, args map[string]any) (string, error) {
	m.mu.RLock()
	conn, ok := m.servers[server]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("mcp server not connected: %s", server)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	result, err := conn.client.CallTool(ctx, req)
	if err != nil {
		return "", err
	}

	var output string
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			output += text.Text
		}
	}
	if result.IsError {
		return "", fmt.Errorf("%s", output)
	}
	return output, nil
}

// Close shuts down all server connections.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, conn := range m.servers {
		if err := conn.client.Close(); err != nil {
			m.log.Debug().Str("server", name).Err(err).Msg("close failed")
		}
	}
	m.servers = make(map[string]*serverConn)
}
