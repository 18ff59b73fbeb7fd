package session

import "fmt"

// ValidationError reports malformed input rejected before any provider
// call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Migration stages at which loading persisted data can fail.
const (
	StageParse      = "parse"
	StageMigration  = "migration"
	StageValidation = "validation"
)

// MigrationError reports persisted data that cannot be upgraded to the
// current schema, with the stage that failed.
type MigrationError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *MigrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("migration failed at %s stage: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("migration failed at %s stage: %s", e.Stage, e.Reason)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// ProviderError reports a transport or model failure mid-stream. It is
// surfaced as a terminal error event, never retried here.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "provider: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ToolExecutionError reports a failed non-ask tool. It is captured as a
// tool-error event and does not terminate the stream.
type ToolExecutionError struct {
	ToolName string
	Err      error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.ToolName, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// AbortError reports caller-initiated cancellation. The partial turn is
// persisted with finish reason "aborted".
type AbortError struct{}

func (e *AbortError) Error() string { return "aborted" }

// AskResolutionError reports a late, duplicate, or mismatched ask
// answer. It is returned to the answering caller only and never
// surfaces into the active stream.
type AskResolutionError struct {
	Reason string
}

func (e *AskResolutionError) Error() string {
	return "ask resolution: " + e.Reason
}
