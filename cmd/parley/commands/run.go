package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/internal/stream"
	"github.com/parley-ai/parley/pkg/types"
)

var (
	runServer  string
	runSession string
	runFiles   []string
	runJSON    bool
	runVerbose bool
)

var runCmd = &cobra.Command{
	Use:   "run [message...]",
	Short: "Send a message to a running Parley server",
	Long: `Send a message to a running Parley server and stream the reply.

Examples:
  parley run "Summarize the README"
  parley run --session ses_abc123 "Continue from where we left off"
  parley run --file main.go "Review this file"
  parley run --json "Explain this" | jq -r .type`,
	RunE: runMessage,
}

func init() {
	runCmd.Flags().StringVar(&runServer, "server", "http://127.0.0.1:7683", "Server base URL")
	runCmd.Flags().StringVarP(&runSession, "session", "s", "", "Session ID to continue")
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "File(s) to attach to the message")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Emit raw NDJSON events instead of text")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Show tool activity and reasoning")
}

func runMessage(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	if message == "" {
		return fmt.Errorf("message required. Usage: parley run \"your message\"")
	}

	attachments, err := buildAttachments(runFiles)
	if err != nil {
		return err
	}

	sessionID := runSession
	if sessionID == "" {
		sessionID, err = createSession(cmd.Context())
		if err != nil {
			return err
		}
		if runVerbose {
			fmt.Fprintf(os.Stderr, "session %s\n", sessionID)
		}
	}

	body, err := json.Marshal(struct {
		Content     string             `json:"content"`
		Attachments []types.Attachment `json:"attachments,omitempty"`
	}{Content: message, Attachments: attachments})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/session/%s/message", strings.TrimRight(runServer, "/"), sessionID)
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", runServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	return renderStream(resp.Body, sessionID)
}

// createSession creates a fresh session, retrying with backoff so a
// just-started server has time to come up.
func createSession(ctx context.Context) (string, error) {
	var sessionID string

	operation := func() error {
		resp, err := http.Post(strings.TrimRight(runServer, "/")+"/session", "application/json", strings.NewReader("{}"))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return backoff.Permanent(fmt.Errorf("create session: %s: %s", resp.Status, strings.TrimSpace(string(data))))
		}

		var sess types.Session
		if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
			return err
		}
		sessionID = sess.ID
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return "", fmt.Errorf("failed to create session at %s: %w", runServer, err)
	}
	return sessionID, nil
}

func buildAttachments(files []string) ([]types.Attachment, error) {
	var attachments []types.Attachment
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("cannot attach %s: %w", file, err)
		}
		attachments = append(attachments, types.Attachment{
			Path:         abs,
			RelativePath: file,
			Size:         info.Size(),
		})
	}
	return attachments, nil
}

// renderStream consumes the NDJSON event stream and renders it for a
// terminal. With --json the raw events pass through untouched.
func renderStream(r io.Reader, sessionID string) error {
	reader := stream.NewReader(r)
	writer := stream.NewWriter(os.Stdout)

	for {
		ev, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}

		if runJSON {
			if err := writer.Write(ev); err != nil {
				return err
			}
			continue
		}

		switch e := ev.(type) {
		case *stream.TextDelta:
			fmt.Print(e.Text)
		case *stream.TextEnd:
			fmt.Println()
		case *stream.ReasoningDelta:
			if runVerbose {
				fmt.Fprint(os.Stderr, e.Text)
			}
		case *stream.ReasoningEnd:
			if runVerbose {
				fmt.Fprintln(os.Stderr)
			}
		case *stream.ToolCall:
			if runVerbose {
				fmt.Fprintf(os.Stderr, "→ %s\n", e.ToolName)
			}
		case *stream.ToolResult:
			if runVerbose {
				fmt.Fprintf(os.Stderr, "✓ %s (%dms)\n", e.ToolName, e.Duration)
			}
		case *stream.ToolError:
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", e.ToolName, e.Error)
		case *stream.TitleComplete:
			if runVerbose {
				fmt.Fprintf(os.Stderr, "title: %s\n", e.Title)
			}
		case *stream.AskQuestion:
			fmt.Fprintf(os.Stderr, "\nThe assistant is asking (question %s):\n", e.QuestionID)
			for _, q := range e.Questions {
				fmt.Fprintf(os.Stderr, "  %s\n", q.Question)
				for _, opt := range q.Options {
					fmt.Fprintf(os.Stderr, "    - %s\n", opt.Label)
				}
			}
			fmt.Fprintf(os.Stderr, "Answer via: POST %s/session/%s/ask/%s\n", runServer, sessionID, e.QuestionID)
		case *stream.Complete:
			if runVerbose {
				fmt.Fprintf(os.Stderr, "\ndone (%s, %d in / %d out tokens)\n",
					e.FinishReason, e.Usage.PromptTokens, e.Usage.CompletionTokens)
			}
			return nil
		case *stream.Abort:
			fmt.Fprintln(os.Stderr, "\naborted")
			return nil
		case *stream.Error:
			return fmt.Errorf("turn failed: %s", e.Error)
		}
	}
}
