package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/pkg/types"
)

func askQuestions() []types.AskQuestion {
	return []types.AskQuestion{{
		Question: "Which database should I use?",
		Options:  []types.AskOption{{Label: "sqlite"}, {Label: "postgres"}},
	}}
}

func TestAskCoordinator_ResolveUnblocksWait(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	pending, err := coord.Suspend("ses_1", askQuestions())
	require.NoError(t, err)
	require.NotEmpty(t, pending.QuestionID)

	answers := types.AskAnswers{"0": "sqlite"}
	go func() {
		// Resolve after Wait has parked.
		time.Sleep(10 * time.Millisecond)
		assert.NoError(t, coord.Resolve("ses_1", pending.QuestionID, answers))
	}()

	got, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, answers, got)

	_, ok := coord.PendingQuestion("ses_1")
	assert.False(t, ok, "resolved question no longer pending")
}

func TestAskCoordinator_SecondSuspendFailsFast(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	_, err := coord.Suspend("ses_1", askQuestions())
	require.NoError(t, err)

	_, err = coord.Suspend("ses_1", askQuestions())
	var aerr *AskResolutionError
	require.ErrorAs(t, err, &aerr)

	// A different session is unaffected.
	_, err = coord.Suspend("ses_2", askQuestions())
	assert.NoError(t, err)
}

func TestAskCoordinator_SuspendRequiresQuestions(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	_, err := coord.Suspend("ses_1", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAskCoordinator_ResolveWithoutPending(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	err := coord.Resolve("ses_1", "q_nope", types.AskAnswers{})
	var aerr *AskResolutionError
	require.ErrorAs(t, err, &aerr)
}

func TestAskCoordinator_MismatchedQuestionID(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	pending, err := coord.Suspend("ses_1", askQuestions())
	require.NoError(t, err)

	err = coord.Resolve("ses_1", "q_other", types.AskAnswers{"0": "x"})
	var aerr *AskResolutionError
	require.ErrorAs(t, err, &aerr)

	// The real question is still pending and answerable.
	id, ok := coord.PendingQuestion("ses_1")
	require.True(t, ok)
	assert.Equal(t, pending.QuestionID, id)
	assert.NoError(t, coord.Resolve("ses_1", pending.QuestionID, types.AskAnswers{"0": "sqlite"}))
}

func TestAskCoordinator_DuplicateResolve(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	pending, err := coord.Suspend("ses_1", askQuestions())
	require.NoError(t, err)

	require.NoError(t, coord.Resolve("ses_1", pending.QuestionID, types.AskAnswers{"0": "sqlite"}))

	err = coord.Resolve("ses_1", pending.QuestionID, types.AskAnswers{"0": "postgres"})
	var aerr *AskResolutionError
	require.ErrorAs(t, err, &aerr)

	// The waiter observes only the first answer.
	got, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.AskAnswers{"0": "sqlite"}, got)
}

func TestAskCoordinator_AbortPending(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	pending, err := coord.Suspend("ses_1", askQuestions())
	require.NoError(t, err)

	coord.AbortPending("ses_1")

	_, err = pending.Wait(context.Background())
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)

	_, ok := coord.PendingQuestion("ses_1")
	assert.False(t, ok)
}

func TestAskCoordinator_WaitCancelledContext(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	pending, err := coord.Suspend("ses_1", askQuestions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pending.Wait(ctx)
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
}

func TestAskCoordinator_AbortWithNothingPending(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	coord := NewAskCoordinator(bus)

	// Must not panic or leave state behind.
	coord.AbortPending("ses_unknown")
	_, ok := coord.PendingQuestion("ses_unknown")
	assert.False(t, ok)
}
