package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-ai/parley/internal/session"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/internal/stream"
	"github.com/parley-ai/parley/pkg/types"
)

// SendMessageRequest is the body for POST /session/{sessionID}/message.
type SendMessageRequest struct {
	Content     string             `json:"content"`
	Attachments []types.Attachment `json:"attachments,omitempty"`
}

// sendMessage runs one streaming turn, writing the event union as
// newline-delimited JSON until the turn reaches a terminal state.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content is required")
		return
	}

	if _, err := s.sessions.Get(r.Context(), sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found")
		} else {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writer := stream.NewWriter(w)
	emit := func(e stream.Event) {
		if err := writer.Write(e); err != nil {
			s.log.Debug().Err(err).Msg("stream write failed, client likely gone")
		}
	}

	err := s.orchestrator.SendMessage(r.Context(), sessionID, req.Content, req.Attachments, emit)
	if err != nil {
		var verr *session.ValidationError
		if errors.As(err, &verr) {
			// Rejected before any event was written; the terminal error
			// event is still the contract for this endpoint.
			emit(&stream.Error{Error: verr.Error()})
			return
		}
		// Terminal abort/error events were already emitted by the
		// orchestrator; nothing more to write.
		s.log.Debug().Str("session", sessionID).Err(err).Msg("turn ended with error")
	}
}

// AnswerAskRequest is the body for POST /session/{sessionID}/ask/{questionID}.
type AnswerAskRequest struct {
	Answers types.AskAnswers `json:"answers"`
}

// answerAsk resolves a pending ask question. An unknown or mismatched
// question id is rejected without touching the active stream.
func (s *Server) answerAsk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	questionID := chi.URLParam(r, "questionID")

	var req AnswerAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	if err := s.orchestrator.AnswerAsk(sessionID, questionID, req.Answers); err != nil {
		var rerr *session.AskResolutionError
		if errors.As(err, &rerr) {
			writeError(w, http.StatusConflict, ErrCodeConflict, rerr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

// abortSession cancels the session's active stream.
func (s *Server) abortSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if !s.orchestrator.Abort(sessionID) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no active stream for session")
		return
	}
	writeSuccess(w)
}
