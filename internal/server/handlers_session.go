package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parley-ai/parley/internal/session"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/pkg/types"
)

// CreateSessionRequest is the body for POST /session. Both fields are
// optional; the configured default model fills the gaps.
type CreateSessionRequest struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.Body != nil {
		// An empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.Provider == "" || req.Model == "" {
		model, err := s.providers.DefaultModel()
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "no configured provider available")
			return
		}
		if req.Provider == "" {
			req.Provider = model.ProviderID
		}
		if req.Model == "" {
			req.Model = model.ID
		}
	}

	if _, err := s.providers.GetModel(req.Provider, req.Model); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	sess, err := s.sessions.Create(r.Context(), req.Provider, req.Model)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	sessions, err := s.sessions.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.sessions.Delete(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

// exportSession returns the pretty-printed session document.
func (s *Server) exportSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	data, err := session.SerializePretty(*sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	w.Write([]byte("\n"))
}

func (s *Server) getTodos(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"todos":      sess.Todos,
		"nextTodoId": sess.NextTodoID,
	})
}

// PutTodosRequest replaces a session's todo list. Items without an id
// are new; ids are assigned by the session's counter.
type PutTodosRequest struct {
	Todos []types.Todo `json:"todos"`
}

func (s *Server) putTodos(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req PutTodosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	todos, err := s.sessions.ReplaceTodos(r.Context(), sessionID, req.Todos)
	if err != nil {
		var verr *session.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, verr.Error())
			return
		}
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": todos})
}

// ProviderInfo is the wire shape for one provider.
type ProviderInfo struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Configured bool          `json:"configured"`
	Models     []types.Model `json:"models"`
}

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	providers := s.providers.List()
	infos := make([]ProviderInfo, 0, len(providers))
	for _, p := range providers {
		infos = append(infos, ProviderInfo{
			ID:         p.ID(),
			Name:       p.Name(),
			Configured: p.IsConfigured(),
			Models:     p.Models(),
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tools.IDs())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadSession fetches the session named in the URL, writing the error
// response itself when it cannot.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*types.Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		} else {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		}
		return nil, false
	}
	return sess, true
}
