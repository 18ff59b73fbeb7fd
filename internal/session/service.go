package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/pkg/types"
)

// Service persists sessions and publishes lifecycle events. Sessions
// themselves are values; the service only serializes writers per id so
// two concurrent turns cannot clobber each other's persistence.
type Service struct {
	storage *storage.Storage
	bus     *event.Bus
	log     zerolog.Logger

	mu      sync.Mutex
	writers map[string]*sync.Mutex
}

// NewService creates a session service over the given storage and bus.
func NewService(store *storage.Storage, bus *event.Bus) *Service {
	return &Service{
		storage: store,
		bus:     bus,
		log:     logging.For("session"),
		writers: make(map[string]*sync.Mutex),
	}
}

func (s *Service) writer(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.writers[id]
	if !ok {
		w = &sync.Mutex{}
		s.writers[id] = w
	}
	return w
}

// Create makes and persists a fresh session.
func (s *Service) Create(ctx context.Context, provider, model string) (*types.Session, error) {
	sess := Create(provider, model)
	if err := s.save(ctx, &sess); err != nil {
		return nil, err
	}

	s.log.Info().Str("session", sess.ID).Str("provider", provider).Str("model", model).Msg("session created")
	s.bus.Publish(event.Event{
		Type: event.SessionCreated,
		Data: event.SessionData{Info: &sess},
	})
	return &sess, nil
}

// Get loads a session, migrating old schema generations transparently.
func (s *Service) Get(ctx context.Context, id string) (*types.Session, error) {
	raw, err := s.storage.GetRaw(ctx, []string{"session", id})
	if err != nil {
		return nil, err
	}

	if NeedsMigration(raw) {
		s.log.Debug().Str("session", id).Msg("migrating session to current schema")
	}
	sess, err := Deserialize(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return sess, nil
}

// List returns up to limit sessions, newest last (ULID key order).
func (s *Service) List(ctx context.Context, limit int) ([]*types.Session, error) {
	ids, err := s.storage.List(ctx, []string{"session"}, limit)
	if err != nil {
		return nil, err
	}

	sessions := make([]*types.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			s.log.Warn().Str("session", id).Err(err).Msg("skipping unloadable session")
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Delete removes a persisted session and drops its writer lock so the
// map does not accumulate entries for sessions that no longer exist.
func (s *Service) Delete(ctx context.Context, id string) error {
	w := s.writer(id)
	w.Lock()
	err := s.storage.Delete(ctx, []string{"session", id})
	w.Unlock()
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.writers, id)
	s.mu.Unlock()
	return nil
}

// Update applies a pure transform to the stored session under the
// per-id writer lock and persists the result.
func (s *Service) Update(ctx context.Context, id string, fn func(types.Session) (types.Session, error)) (*types.Session, error) {
	w := s.writer(id)
	w.Lock()
	defer w.Unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := fn(*current)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}

	s.bus.Publish(event.Event{
		Type: event.SessionUpdated,
		Data: event.SessionData{Info: &next},
	})
	return &next, nil
}

// Append appends a message to the stored session.
func (s *Service) Append(ctx context.Context, id string, msg types.Message) (*types.Session, error) {
	return s.Update(ctx, id, func(sess types.Session) (types.Session, error) {
		return AppendMessage(sess, msg)
	})
}

// SetTitle replaces the stored session's title.
func (s *Service) SetTitle(ctx context.Context, id, title string) (*types.Session, error) {
	return s.Update(ctx, id, func(sess types.Session) (types.Session, error) {
		return SetTitle(sess, title), nil
	})
}

// ListTodos returns the session's current todos.
func (s *Service) ListTodos(ctx context.Context, sessionID string) ([]types.Todo, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return types.CloneTodos(sess.Todos), nil
}

// ReplaceTodos replaces the session's todo list. Items with a zero id
// are new and get ids from the session's counter; the counter only ever
// advances, so ids are never reused even after deletion.
func (s *Service) ReplaceTodos(ctx context.Context, sessionID string, items []types.Todo) ([]types.Todo, error) {
	sess, err := s.Update(ctx, sessionID, func(sess types.Session) (types.Session, error) {
		next := sess.NextTodoID
		todos := make([]types.Todo, len(items))
		for i, item := range items {
			todos[i] = item
			if todos[i].ID == 0 {
				todos[i].ID = next
				next++
			}
		}
		return SetTodos(sess, todos, next)
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(event.Event{
		Type: event.TodoUpdated,
		Data: event.TodoData{SessionID: sessionID, Todos: sess.Todos},
	})
	return types.CloneTodos(sess.Todos), nil
}

// save persists the session with a refreshed updated timestamp.
func (s *Service) save(ctx context.Context, sess *types.Session) error {
	if !Validate(sess) {
		return &ValidationError{Reason: "refusing to persist invalid session"}
	}
	data, err := Serialize(*sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	return s.storage.PutRaw(ctx, []string{"session", sess.ID}, data)
}
