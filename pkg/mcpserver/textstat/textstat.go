// Package textstat provides an MCP server with text inspection tools.
// It backs the MCP client integration tests and doubles as a template
// for external tool servers.
package textstat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates the textstat MCP server with its tools registered.
func NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		"textstat",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	wordCount := mcp.NewTool("word_count",
		mcp.WithDescription("Counts lines, words, and characters in a block of text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to analyze"),
		),
	)
	s.AddTool(wordCount, wordCountHandler)

	head := mcp.NewTool("head",
		mcp.WithDescription("Returns the first N lines of a block of text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to slice"),
		),
		mcp.WithNumber("lines",
			mcp.Required(),
			mcp.Description("Number of lines to keep"),
		),
	)
	s.AddTool(head, headHandler)

	return s
}

func wordCountHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := request.GetArguments()["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text argument is required"), nil
	}
	return mcp.NewToolResultText(countStats(text)), nil
}

func headHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text, ok := args["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text argument is required"), nil
	}
	n, err := toLineCount(args["lines"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid lines: %v", err)), nil
	}

	lines := strings.Split(text, "\n")
	if n < len(lines) {
		lines = lines[:n]
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// countStats summarizes text as "lines=N words=N chars=N". Characters
// are counted in runes, not bytes.
func countStats(text string) string {
	lines := 0
	if text != "" {
		lines = strings.Count(text, "\n")
		if !strings.HasSuffix(text, "\n") {
			lines++
		}
	}
	words := len(strings.Fields(text))
	chars := utf8.RuneCountInString(text)
	return fmt.Sprintf("lines=%d words=%d chars=%d", lines, words, chars)
}

// toLineCount accepts the numeric shapes a JSON decoder may hand us.
func toLineCount(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, fmt.Errorf("must be non-negative, got %v", n)
		}
		return int(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("must be non-negative, got %d", n)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("lines argument is required")
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
