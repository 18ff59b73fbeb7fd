package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const listDescription = `Lists files and directories in a given path.

Usage:
- The path parameter should be an absolute path
- Optionally provide glob patterns to ignore
- Results are sorted with directories first`

var defaultIgnorePatterns = []string{
	"node_modules",
	".git",
	"dist",
	"build",
	"target",
	"vendor",
	"__pycache__",
	".venv",
}

// ListTool implements directory listing.
type ListTool struct {
	workDir string
}

// ListInput represents the input for the list tool.
type ListInput struct {
	Path   string   `json:"path,omitempty"`
	Ignore []string `json:"ignore,omitempty"`
}

// NewListTool creates a new list tool.
func NewListTool(workDir string) *ListTool {
	return &ListTool{workDir: workDir}
}

func (t *ListTool) ID() string          { return "list" }
func (t *ListTool) Description() string { return listDescription }

func (t *ListTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The absolute path to the directory to list"
			},
			"ignore": {
				"type": "array",
				"description": "List of glob patterns to ignore"
			}
		}
	}`)
}

func (t *ListTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ListInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	listPath := resolvePath(t.workDir, toolCtx, params.Path)

	ignorePatterns := append([]string{}, defaultIgnorePatterns...)
	ignorePatterns = append(ignorePatterns, params.Ignore...)

	entries, err := os.ReadDir(listPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var sb strings.Builder
	count := 0
	for _, entry := range entries {
		if shouldIgnore(entry.Name(), ignorePatterns) {
			continue
		}
		count++
		if entry.IsDir() {
			sb.WriteString(fmt.Sprintf("[dir ] %s\n", entry.Name()))
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		sb.WriteString(fmt.Sprintf("[file] %s (%d bytes)\n", entry.Name(), size))
	}

	output := strings.TrimRight(sb.String(), "\n")
	if output == "" {
		output = "(empty directory)"
	}

	return &Result{
		Title:  listPath,
		Output: output,
		Metadata: map[string]any{
			"path":  listPath,
			"count": count,
		},
	}, nil
}

func shouldIgnore(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if name == pattern {
			return true
		}
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
