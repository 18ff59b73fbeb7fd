package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/types"
)

// AskCoordinator bridges the synchronous tool-execution point in a
// stream to an answer delivered through a separate request. Each
// session has at most one outstanding question; the waiting goroutine
// parks on a channel until the answer or an abort arrives, and is
// unblocked exactly once.
type AskCoordinator struct {
	mu      sync.Mutex
	pending map[string]*askRequest // keyed by session id
	bus     *event.Bus
	log     zerolog.Logger
}

type askRequest struct {
	questionID string
	questions  []types.AskQuestion
	outcome    chan askOutcome // buffered, written exactly once
}

type askOutcome struct {
	answers types.AskAnswers
	aborted bool
}

// Pending is the handle to one suspended ask call.
type Pending struct {
	QuestionID string
	Questions  []types.AskQuestion

	coordinator *AskCoordinator
	sessionID   string
	outcome     <-chan askOutcome
}

// NewAskCoordinator creates an ask coordinator publishing on bus.
func NewAskCoordinator(bus *event.Bus) *AskCoordinator {
	return &AskCoordinator{
		pending: make(map[string]*askRequest),
		bus:     bus,
		log:     logging.For("ask"),
	}
}

// Suspend registers the stream's outstanding question set and returns a
// handle to wait on. A second suspend while one is pending is a
// contract violation and fails fast.
func (c *AskCoordinator) Suspend(sessionID string, questions []types.AskQuestion) (*Pending, error) {
	if len(questions) == 0 {
		return nil, &ValidationError{Reason: "ask requires at least one question"}
	}

	c.mu.Lock()
	if _, exists := c.pending[sessionID]; exists {
		c.mu.Unlock()
		return nil, &AskResolutionError{Reason: "a question is already pending for this session"}
	}

	req := &askRequest{
		questionID: newQuestionID(),
		questions:  questions,
		outcome:    make(chan askOutcome, 1),
	}
	c.pending[sessionID] = req
	c.mu.Unlock()

	c.log.Debug().Str("session", sessionID).Str("question", req.questionID).Msg("ask suspended")
	c.bus.Publish(event.Event{
		Type: event.AskPending,
		Data: event.AskPendingData{SessionID: sessionID, QuestionID: req.questionID, Questions: questions},
	})

	return &Pending{
		QuestionID:  req.questionID,
		Questions:   questions,
		coordinator: c,
		sessionID:   sessionID,
		outcome:     req.outcome,
	}, nil
}

// Wait parks until the question is answered or aborted. Cancelling ctx
// resolves the pending request with the abort sentinel so nothing is
// left parked forever.
func (p *Pending) Wait(ctx context.Context) (types.AskAnswers, error) {
	select {
	case out := <-p.outcome:
		if out.aborted {
			return nil, &AbortError{}
		}
		return out.answers, nil
	case <-ctx.Done():
		p.coordinator.AbortPending(p.sessionID)
		// The sentinel write may have raced a real answer; drain the
		// channel so the outcome is observed either way.
		out := <-p.outcome
		if out.aborted {
			return nil, &AbortError{}
		}
		return out.answers, nil
	}
}

// Resolve delivers the user's answers and unblocks the waiting stream
// exactly once. A late, duplicate, or mismatched answer is a logged
// warning returned only to the answering caller; it never touches the
// active stream.
func (c *AskCoordinator) Resolve(sessionID, questionID string, answers types.AskAnswers) error {
	c.mu.Lock()
	req, ok := c.pending[sessionID]
	if !ok {
		c.mu.Unlock()
		c.log.Warn().Str("session", sessionID).Str("question", questionID).Msg("answer for no pending question")
		return &AskResolutionError{Reason: "no pending question"}
	}
	if req.questionID != questionID {
		c.mu.Unlock()
		c.log.Warn().Str("session", sessionID).Str("question", questionID).
			Str("pending", req.questionID).Msg("answer for mismatched question id")
		return &AskResolutionError{Reason: "question id does not match the pending question"}
	}
	delete(c.pending, sessionID)
	c.mu.Unlock()

	req.outcome <- askOutcome{answers: answers}

	c.bus.Publish(event.Event{
		Type: event.AskResolved,
		Data: event.AskResolvedData{SessionID: sessionID, QuestionID: questionID},
	})
	return nil
}

// AbortPending resolves the session's pending question, if any, with
// the abort sentinel so the stream can unwind cleanly.
func (c *AskCoordinator) AbortPending(sessionID string) {
	c.mu.Lock()
	req, ok := c.pending[sessionID]
	if ok {
		delete(c.pending, sessionID)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	req.outcome <- askOutcome{aborted: true}

	c.log.Debug().Str("session", sessionID).Str("question", req.questionID).Msg("pending ask aborted")
	c.bus.Publish(event.Event{
		Type: event.AskResolved,
		Data: event.AskResolvedData{SessionID: sessionID, QuestionID: req.questionID, Aborted: true},
	})
}

// PendingQuestion reports the currently pending question id for a
// session, if one exists.
func (c *AskCoordinator) PendingQuestion(sessionID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.pending[sessionID]
	if !ok {
		return "", false
	}
	return req.questionID, true
}
