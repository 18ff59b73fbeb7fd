package session

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/types"
)

// Schema generations. Version 0 stored a turn's content as a bare
// string and had no todos; version 1 stores typed part arrays. Loading
// always goes through Migrate so both generations keep working.

// rawSession is the tolerant shape used to inspect persisted bytes
// before they are promoted to a typed Session.
type rawSession struct {
	ID         string            `json:"id"`
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	Title      string            `json:"title"`
	Version    *int              `json:"version"`
	Time       *types.SessionTime `json:"time"`
	Created    *int64            `json:"created"`
	Updated    *int64            `json:"updated"`
	Messages   []json.RawMessage `json:"messages"`
	Todos      []types.Todo      `json:"todos"`
	NextTodoID *int              `json:"nextTodoId"`
}

// rawTurn is the tolerant shape for one persisted turn.
type rawTurn struct {
	ID           string                 `json:"id"`
	Role         string                 `json:"role"`
	Content      json.RawMessage        `json:"content"`
	Timestamp    *int64                 `json:"timestamp"`
	Time         *types.MessageTime     `json:"time"`
	Attachments  []types.Attachment     `json:"attachments"`
	Usage        *types.Usage           `json:"usage"`
	FinishReason string                 `json:"finishReason"`
	Metadata     *types.ResourceContext `json:"metadata"`
	TodoSnapshot []types.Todo           `json:"todoSnapshot"`
}

// SessionVersion inspects persisted bytes and reports their schema
// generation. Pure inspection, no side effects.
func SessionVersion(raw []byte) int {
	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0
	}
	if probe.Version != nil && *probe.Version >= types.SchemaVersion {
		return types.SchemaVersion
	}
	return 0
}

// NeedsMigration reports whether persisted bytes predate the current
// schema. Pure inspection, no side effects.
func NeedsMigration(raw []byte) bool {
	return SessionVersion(raw) < types.SchemaVersion
}

// Migrate converts arbitrary previously-persisted bytes into a valid
// current-schema Session or a typed failure. Rules, in order: reject if
// id/provider/model are missing; default todos and nextTodoId; wrap
// bare-string content as a single text part; drop turns missing role or
// content rather than failing the whole session.
func Migrate(raw []byte) (*types.Session, error) {
	var rs rawSession
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, &MigrationError{Stage: StageParse, Reason: "invalid JSON", Err: err}
	}

	if rs.ID == "" || rs.Provider == "" || rs.Model == "" {
		return nil, &MigrationError{Stage: StageMigration, Reason: "missing id, provider or model"}
	}

	sess := types.Session{
		ID:       rs.ID,
		Provider: rs.Provider,
		Model:    rs.Model,
		Title:    rs.Title,
		Version:  types.SchemaVersion,
		Messages: []types.Message{},
		Todos:    []types.Todo{},
	}

	switch {
	case rs.Time != nil:
		sess.Time = *rs.Time
	case rs.Created != nil:
		sess.Time.Created = *rs.Created
		sess.Time.Updated = *rs.Created
		if rs.Updated != nil {
			sess.Time.Updated = *rs.Updated
		}
	default:
		now := time.Now().UnixMilli()
		sess.Time = types.SessionTime{Created: now, Updated: now}
	}
	if sess.Time.Updated < sess.Time.Created {
		sess.Time.Updated = sess.Time.Created
	}

	if rs.Todos != nil {
		sess.Todos = rs.Todos
	}
	sess.NextTodoID = 1
	if rs.NextTodoID != nil && *rs.NextTodoID >= 1 {
		sess.NextTodoID = *rs.NextTodoID
	}
	for _, todo := range sess.Todos {
		if todo.ID >= sess.NextTodoID {
			sess.NextTodoID = todo.ID + 1
		}
	}

	for _, rawMsg := range rs.Messages {
		msg, ok := migrateTurn(rawMsg)
		if !ok {
			log := logging.For("session")
			log.Warn().Msg("dropping unreadable turn during migration")
			continue
		}
		sess.Messages = append(sess.Messages, msg)
	}

	if !Validate(&sess) {
		return nil, &MigrationError{Stage: StageValidation, Reason: "migrated session failed validation"}
	}

	return &sess, nil
}

// migrateTurn upgrades one persisted turn, reporting ok=false when the
// turn is too corrupt to keep.
func migrateTurn(raw json.RawMessage) (types.Message, bool) {
	var rt rawTurn
	if err := json.Unmarshal(raw, &rt); err != nil {
		return types.Message{}, false
	}
	if rt.Role == "" || len(rt.Content) == 0 {
		return types.Message{}, false
	}

	msg := types.Message{
		ID:           rt.ID,
		Role:         rt.Role,
		Attachments:  rt.Attachments,
		Usage:        rt.Usage,
		FinishReason: rt.FinishReason,
		Metadata:     rt.Metadata,
		TodoSnapshot: rt.TodoSnapshot,
	}
	if msg.ID == "" {
		msg.ID = newMessageID()
	}

	switch {
	case rt.Time != nil:
		msg.Time = *rt.Time
	case rt.Timestamp != nil:
		msg.Time.Created = *rt.Timestamp
	}

	content := bytes.TrimSpace(rt.Content)
	if len(content) > 0 && content[0] == '"' {
		// Version 0: bare string content.
		var text string
		if err := json.Unmarshal(content, &text); err != nil {
			return types.Message{}, false
		}
		msg.Content = []types.Part{types.NewTextPart(text)}
		return msg, true
	}

	var rawParts []json.RawMessage
	if err := json.Unmarshal(content, &rawParts); err != nil {
		return types.Message{}, false
	}
	for _, rawPart := range rawParts {
		part, err := types.UnmarshalPart(rawPart)
		if err != nil {
			return types.Message{}, false
		}
		msg.Content = append(msg.Content, part)
	}
	if len(msg.Content) == 0 {
		return types.Message{}, false
	}
	return msg, true
}

// Validate runs the final structural check after migration. A session
// failing it is never persisted or returned to callers.
func Validate(s *types.Session) bool {
	if s == nil || s.ID == "" || s.Provider == "" || s.Model == "" {
		return false
	}
	if s.Time.Updated < s.Time.Created {
		return false
	}
	if s.NextTodoID < 1 {
		return false
	}
	for _, todo := range s.Todos {
		if todo.ID >= s.NextTodoID || todo.ID < 1 {
			return false
		}
		switch todo.Status {
		case types.TodoPending, types.TodoInProgress, types.TodoCompleted:
		default:
			return false
		}
	}
	for _, msg := range s.Messages {
		if msg.Role != "user" && msg.Role != "assistant" {
			return false
		}
		if len(msg.Content) == 0 {
			return false
		}
	}
	return true
}

// Serialize produces the compact storage encoding with the updated
// timestamp refreshed to serialization time.
func Serialize(s types.Session) ([]byte, error) {
	return json.Marshal(touch(s))
}

// SerializePretty produces the 2-space-indented export encoding, also
// with updated refreshed.
func SerializePretty(s types.Session) ([]byte, error) {
	return json.MarshalIndent(touch(s), "", "  ")
}

// Deserialize loads persisted bytes, migrating old generations as
// needed.
func Deserialize(raw []byte) (*types.Session, error) {
	return Migrate(raw)
}
