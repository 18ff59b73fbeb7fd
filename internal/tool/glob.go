package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const globDescription = `Fast file pattern matching tool that works with any codebase size.

Usage:
- Supports glob patterns like "**/*.js" or "src/**/*.ts"
- Returns matching file paths sorted by modification time
- Use this tool when you need to find files by name patterns`

const globMaxResults = 100

// GlobTool implements file pattern matching.
type GlobTool struct {
	workDir string
}

// GlobInput represents the input for the glob tool.
type GlobInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// NewGlobTool creates a new glob tool.
func NewGlobTool(workDir string) *GlobTool {
	return &GlobTool{workDir: workDir}
}

func (t *GlobTool) ID() string          { return "glob" }
func (t *GlobTool) Description() string { return globDescription }

func (t *GlobTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The glob pattern to match files against"
			},
			"path": {
				"type": "string",
				"description": "Directory to search in (default: current directory)"
			}
		},
		"required": ["pattern"]
	}`)
}

func (t *GlobTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params GlobInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if !doublestar.ValidatePattern(params.Pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", params.Pattern)
	}

	searchDir := resolvePath(t.workDir, toolCtx, params.Path)

	type match struct {
		path  string
		mtime time.Time
	}

	var matches []match
	err := doublestar.GlobWalk(os.DirFS(searchDir), params.Pattern, func(path string, d os.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || skipHiddenDir(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		matches = append(matches, match{path: path, mtime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob failed: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].mtime.After(matches[j].mtime)
	})

	truncated := false
	if len(matches) > globMaxResults {
		matches = matches[:globMaxResults]
		truncated = true
	}

	if len(matches) == 0 {
		return &Result{
			Title:    params.Pattern,
			Output:   "No files found",
			Metadata: map[string]any{"count": 0},
		}, nil
	}

	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(filepath.Join(searchDir, m.path))
		sb.WriteString("\n")
	}
	if truncated {
		sb.WriteString(fmt.Sprintf("(Results limited to %d files. Use a more specific pattern.)\n", globMaxResults))
	}

	return &Result{
		Title:  params.Pattern,
		Output: strings.TrimRight(sb.String(), "\n"),
		Metadata: map[string]any{
			"count":     len(matches),
			"truncated": truncated,
		},
	}, nil
}

func skipHiddenDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" || part == "node_modules" {
			return true
		}
	}
	return false
}
