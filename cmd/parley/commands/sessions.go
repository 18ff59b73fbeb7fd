package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/parley-ai/parley/pkg/types"
)

var (
	sessionsServer string
	sessionsLimit  int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions on a running Parley server",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsServer, "server", "http://127.0.0.1:7683", "Server base URL")
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 0, "Maximum number of sessions to list")
}

func runSessions(cmd *cobra.Command, args []string) error {
	url := strings.TrimRight(sessionsServer, "/") + "/session"
	if sessionsLimit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, sessionsLimit)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", sessionsServer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var sessions []*types.Session
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMODEL\tMESSAGES\tUPDATED\t")
	for _, sess := range sessions {
		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		updated := time.UnixMilli(sess.Time.Updated).Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%d\t%s\t\n",
			sess.ID, title, sess.Provider, sess.Model, len(sess.Messages), updated)
	}
	return w.Flush()
}
