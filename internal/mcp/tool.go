package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/parley-ai/parley/internal/tool"
)

// ServerTool adapts one MCP server tool to the local tool interface.
// IDs are prefixed with the server name so tools from different
// servers cannot collide.
type ServerTool struct {
	manager  *Manager
	server   string
	toolName string
	info     mcp.Tool
}

func newServerTool(manager *Manager, server string, info mcp.Tool) *ServerTool {
	return &ServerTool{
		manager:  manager,
		server:   server,
		toolName: info.Name,
		info:     info,
	}
}

func (t *ServerTool) ID() string {
	return t.server + "_" + t.toolName
}

func (t *ServerTool) Description() string {
	return t.info.Description
}

func (t *ServerTool) Parameters() json.RawMessage {
	data, err := json.Marshal(t.info.InputSchema)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return data
}

func (t *ServerTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	var args map[string]any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
	}

	output, err := t.manager.call(ctx, t.server, t.toolName, args)
	if err != nil {
		return nil, err
	}

	return &tool.Result{
		Title:  t.ID(),
		Output: output,
		Metadata: map[string]any{
			"server": t.server,
			"tool":   t.toolName,
		},
	}, nil
}
