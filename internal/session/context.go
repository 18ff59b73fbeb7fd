package session

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/parley-ai/parley/pkg/types"
)

// CaptureResourceContext samples system state for a new turn. The
// result is frozen onto the message and replayed verbatim afterwards;
// only tool output ever sees a fresh sample (see the orchestrator's
// result hook).
func CaptureResourceContext() *types.ResourceContext {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	hostname, _ := os.Hostname()
	workDir, _ := os.Getwd()

	return &types.ResourceContext{
		Timestamp:  time.Now().UnixMilli(),
		Hostname:   hostname,
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		WorkDir:    workDir,
		Goroutines: runtime.NumGoroutine(),
		HeapBytes:  mem.HeapAlloc,
	}
}

// formatResourceContext renders a snapshot as the context block
// injected into provider messages.
func formatResourceContext(rc *types.ResourceContext) string {
	if rc == nil {
		return ""
	}
	return fmt.Sprintf(
		"<system-context>\ntime: %s\nhost: %s\nplatform: %s\nworkdir: %s\ngoroutines: %d\nheap: %d bytes\n</system-context>",
		time.UnixMilli(rc.Timestamp).UTC().Format(time.RFC3339),
		rc.Hostname, rc.Platform, rc.WorkDir, rc.Goroutines, rc.HeapBytes,
	)
}
