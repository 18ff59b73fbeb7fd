package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/internal/stream"
	"github.com/parley-ai/parley/internal/tool"
	"github.com/parley-ai/parley/pkg/types"
)

// Stream states. A turn moves Idle → Transforming → Streaming →
// {ToolExecuting ⇄ Streaming} → Finalizing → {Complete | Aborted |
// Errored}.
type State string

const (
	StateIdle          State = "idle"
	StateTransforming  State = "transforming"
	StateStreaming     State = "streaming"
	StateToolExecuting State = "tool_executing"
	StateFinalizing    State = "finalizing"
	StateComplete      State = "complete"
	StateAborted       State = "aborted"
	StateErrored       State = "errored"
)

// MaxSteps bounds the tool-call loop within one turn.
const MaxSteps = 50

// Options tune orchestrator behavior.
type Options struct {
	MaxSteps       int
	AutoTitle      bool
	TitleMaxLength int
}

// Orchestrator drives one streaming turn end to end: append the user
// turn, transform history, stream the model response, execute tools,
// and persist the assembled assistant turn exactly once. One stream per
// session may be active at a time.
type Orchestrator struct {
	sessions    *Service
	registry    *provider.Registry
	tools       *tool.Registry
	ask         *AskCoordinator
	transformer *Transformer
	titles      *TitleGenerator
	opts        Options
	log         zerolog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(sessions *Service, registry *provider.Registry, tools *tool.Registry, ask *AskCoordinator, transformer *Transformer, opts Options) *Orchestrator {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = MaxSteps
	}
	return &Orchestrator{
		sessions:    sessions,
		registry:    registry,
		tools:       tools,
		ask:         ask,
		transformer: transformer,
		titles:      NewTitleGenerator(registry, opts.TitleMaxLength),
		opts:        opts,
		log:         logging.For("orchestrator"),
	}
}

func (o *Orchestrator) ensureActive() {
	if o.active == nil {
		o.active = make(map[string]context.CancelFunc)
	}
}

// AnswerAsk delivers the user's answers for the pending question.
// A questionID that does not match the pending one is rejected without
// touching the active stream.
func (o *Orchestrator) AnswerAsk(sessionID, questionID string, answers types.AskAnswers) error {
	return o.ask.Resolve(sessionID, questionID, answers)
}

// Abort cancels the session's active stream, if any. The partially
// assembled turn is persisted, never silently discarded.
func (o *Orchestrator) Abort(sessionID string) bool {
	o.mu.Lock()
	cancel, ok := o.active[sessionID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// turn tracks one in-flight streaming turn.
type turn struct {
	session   *types.Session
	message   types.Message
	parts     []types.Part
	usage     types.Usage
	state     State
	emit      func(stream.Event)
	finalized bool
}

// SendMessage runs one full streaming turn, relaying every event to
// emit as it is produced. When sessionID is empty a session is created
// lazily and announced with a session-created event. The call returns
// when the turn reaches a terminal state; emit is never called after
// it returns.
func (o *Orchestrator) SendMessage(ctx context.Context, sessionID, userText string, attachments []types.Attachment, emit func(stream.Event)) error {
	// Serialize emission: the concurrent title goroutine shares the sink.
	var emitMu sync.Mutex
	syncEmit := func(e stream.Event) {
		emitMu.Lock()
		defer emitMu.Unlock()
		emit(e)
	}

	sess, created, err := o.resolveSession(ctx, sessionID, userText)
	if err != nil {
		return err
	}
	if created {
		syncEmit(&stream.SessionCreated{SessionID: sess.ID, Provider: sess.Provider, Model: sess.Model})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.ensureActive()
	if _, busy := o.active[sess.ID]; busy {
		o.mu.Unlock()
		return &ValidationError{Reason: "a stream is already active for this session"}
	}
	o.active[sess.ID] = cancel
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.active, sess.ID)
		o.mu.Unlock()
	}()

	// The user turn is persisted before any provider call so it
	// survives a failed stream.
	userMsg := NewUserMessage(userText, attachments, sess.Todos)
	firstTurn := len(sess.Messages) == 0
	sess, err = o.sessions.Append(ctx, sess.ID, userMsg)
	if err != nil {
		return err
	}

	var titleDone sync.WaitGroup
	if firstTurn && sess.Title == "" {
		titleDone.Add(1)
		go func() {
			defer titleDone.Done()
			o.generateTitle(ctx, sess, userText, syncEmit)
		}()
	}
	defer titleDone.Wait()

	t := &turn{
		session: sess,
		message: types.Message{
			ID:   newMessageID(),
			Role: "assistant",
			Time: types.MessageTime{Created: time.Now().UnixMilli()},
		},
		state: StateIdle,
		emit:  syncEmit,
	}
	syncEmit(&stream.AssistantMessageCreated{MessageID: t.message.ID})

	return o.runTurn(ctx, t)
}

// resolveSession loads the target session, creating one lazily when no
// id was supplied.
func (o *Orchestrator) resolveSession(ctx context.Context, sessionID, userText string) (*types.Session, bool, error) {
	if userText == "" {
		return nil, false, &ValidationError{Reason: "message text must not be empty"}
	}
	if sessionID != "" {
		sess, err := o.sessions.Get(ctx, sessionID)
		return sess, false, err
	}

	model, err := o.registry.DefaultModel()
	if err != nil {
		return nil, false, err
	}
	sess, err := o.sessions.Create(ctx, model.ProviderID, model.ID)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// generateTitle runs title generation concurrently with the main
// stream. Auto titling disabled means deterministic truncation only.
func (o *Orchestrator) generateTitle(ctx context.Context, sess *types.Session, userText string, emit func(stream.Event)) {
	var title string
	if o.opts.AutoTitle {
		title = o.titles.Generate(ctx, sess, userText, emit)
	} else {
		emit(&stream.TitleStart{})
		title = TruncateTitle(userText, o.opts.TitleMaxLength)
		emit(&stream.TitleComplete{Title: title})
	}

	if _, err := o.sessions.SetTitle(context.WithoutCancel(ctx), sess.ID, title); err != nil {
		o.log.Warn().Str("session", sess.ID).Err(err).Msg("failed to persist title")
	}
}

// runTurn executes the agentic loop for one turn.
func (o *Orchestrator) runTurn(ctx context.Context, t *turn) error {
	prov, err := o.registry.Get(t.session.Provider)
	if err != nil {
		return o.finalizeError(ctx, t, &ProviderError{Err: err})
	}
	model, err := o.registry.GetModel(t.session.Provider, t.session.Model)
	if err != nil {
		return o.finalizeError(ctx, t, &ProviderError{Err: err})
	}

	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return o.finalizeAbort(t)
		}
		if step >= o.opts.MaxSteps {
			return o.finalizeError(ctx, t, &ProviderError{Err: fmt.Errorf("maximum steps (%d) exceeded", o.opts.MaxSteps)})
		}

		t.state = StateTransforming
		req := o.buildRequest(t, model)

		t.state = StateStreaming
		completion, err := prov.CreateCompletion(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return o.finalizeAbort(t)
			}
			return o.finalizeError(ctx, t, &ProviderError{Err: err})
		}

		result, err := o.relayStream(ctx, t, completion)
		completion.Close()
		if err != nil {
			if _, aborted := err.(*AbortError); aborted || ctx.Err() != nil {
				return o.finalizeAbort(t)
			}
			return o.finalizeError(ctx, t, &ProviderError{Err: err})
		}

		if result.usage != nil {
			t.usage.Add(*result.usage)
		}

		switch result.finishReason {
		case types.FinishToolUse:
			t.state = StateToolExecuting
			aborted, err := o.executeToolCalls(ctx, t, result.toolParts)
			if err != nil {
				return o.finalizeError(ctx, t, err)
			}
			if aborted {
				return o.finalizeAbort(t)
			}
			continue

		case types.FinishLength:
			return o.finalizeComplete(ctx, t, types.FinishLength)

		default:
			return o.finalizeComplete(ctx, t, types.FinishStop)
		}
	}
}

// buildRequest assembles the provider request from history plus the
// working turn.
func (o *Orchestrator) buildRequest(t *turn, model *types.Model) *provider.CompletionRequest {
	history := t.session.Messages
	if len(t.parts) > 0 {
		working := t.message
		working.Content = t.parts
		history = append(append([]types.Message{}, history...), working)
	}

	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: buildSystemPrompt(t.session),
	})
	messages = append(messages, o.transformer.Transform(history)...)

	return &provider.CompletionRequest{
		Model:     model.ID,
		Messages:  messages,
		Tools:     o.tools.ToolInfos(),
		MaxTokens: model.MaxOutputTokens,
	}
}

// executeToolCalls runs each pending tool part, emitting tool-call and
// tool-result/tool-error events. Ask calls suspend the stream. The
// returned bool reports an abort observed while waiting.
func (o *Orchestrator) executeToolCalls(ctx context.Context, t *turn, toolParts []*types.ToolPart) (bool, error) {
	for _, part := range toolParts {
		args := part.Input
		t.emit(&stream.ToolCall{ToolCallID: part.CallID, ToolName: part.Name, Args: args})

		// Argument text that never parsed was marked failed during
		// assembly; report it back instead of executing with no input.
		if part.Status == types.ToolFailed {
			t.emit(&stream.ToolError{ToolCallID: part.CallID, ToolName: part.Name, Error: part.Error})
			continue
		}

		if part.Name == "ask" {
			aborted := o.executeAsk(ctx, t, part)
			if aborted {
				return true, nil
			}
			continue
		}

		o.executeTool(ctx, t, part)

		if ctx.Err() != nil {
			return true, nil
		}
	}
	return false, nil
}

// executeAsk suspends the stream on the ask coordinator and waits for
// an externally delivered answer. Reports whether the wait ended in an
// abort; the pending tool part then stays without a result.
func (o *Orchestrator) executeAsk(ctx context.Context, t *turn, part *types.ToolPart) bool {
	start := time.Now()
	part.Status = types.ToolRunning

	questions, err := parseAskQuestions(part.Input)
	if err == nil {
		var pending *Pending
		pending, err = o.ask.Suspend(t.session.ID, questions)
		if err == nil {
			t.emit(&stream.AskQuestion{QuestionID: pending.QuestionID, Questions: questions})

			answers, waitErr := pending.Wait(ctx)
			if waitErr != nil {
				return true
			}

			output, _ := json.Marshal(answers)
			duration := time.Since(start).Milliseconds()
			part.Status = types.ToolCompleted
			part.Output = string(output)
			part.Duration = duration
			t.emit(&stream.ToolResult{ToolCallID: part.CallID, ToolName: part.Name, Result: part.Output, Duration: duration})
			return false
		}
	}

	duration := time.Since(start).Milliseconds()
	part.Status = types.ToolFailed
	part.Error = err.Error()
	part.Duration = duration
	t.emit(&stream.ToolError{ToolCallID: part.CallID, ToolName: part.Name, Error: err.Error(), Duration: duration})
	return false
}

// executeTool runs one local tool. Failures become tool-error events;
// the model gets the chance to react, so they never terminate the
// stream. Successful output is suffixed with a fresh resource-context
// snapshot so the model sees live system state without touching the
// cache-stable history.
func (o *Orchestrator) executeTool(ctx context.Context, t *turn, part *types.ToolPart) {
	start := time.Now()
	part.Status = types.ToolRunning

	fail := func(msg string) {
		duration := time.Since(start).Milliseconds()
		part.Status = types.ToolFailed
		part.Error = msg
		part.Duration = duration
		t.emit(&stream.ToolError{ToolCallID: part.CallID, ToolName: part.Name, Error: msg, Duration: duration})
	}

	impl, ok := o.tools.Get(part.Name)
	if !ok {
		fail(fmt.Sprintf("tool not found: %s", part.Name))
		return
	}

	input, err := json.Marshal(part.Input)
	if err != nil {
		fail(fmt.Sprintf("invalid tool input: %v", err))
		return
	}

	result, err := impl.Execute(ctx, input, &tool.Context{
		SessionID: t.session.ID,
		MessageID: t.message.ID,
		CallID:    part.CallID,
		Todos:     o.sessions,
	})
	if err != nil {
		execErr := &ToolExecutionError{ToolName: part.Name, Err: err}
		fail(execErr.Error())
		return
	}

	duration := time.Since(start).Milliseconds()
	part.Status = types.ToolCompleted
	part.Output = result.Output + "\n\n" + formatResourceContext(CaptureResourceContext())
	part.Duration = duration
	t.emit(&stream.ToolResult{ToolCallID: part.CallID, ToolName: part.Name, Result: result.Output, Duration: duration})
}

// finalizeComplete appends the assembled assistant turn exactly once
// and emits the terminal complete event.
func (o *Orchestrator) finalizeComplete(ctx context.Context, t *turn, finishReason string) error {
	t.state = StateFinalizing
	if err := o.persistTurn(ctx, t, finishReason); err != nil {
		t.state = StateErrored
		t.emit(&stream.Error{Error: err.Error()})
		return err
	}
	t.state = StateComplete
	t.emit(&stream.Complete{Usage: t.usage, FinishReason: finishReason})
	return nil
}

// finalizeAbort persists whatever was assembled before cancellation
// with finish reason aborted and emits the terminal abort event.
func (o *Orchestrator) finalizeAbort(t *turn) error {
	t.state = StateFinalizing
	// The caller's context is gone; persistence must still happen.
	if err := o.persistTurn(context.Background(), t, types.FinishAborted); err != nil {
		o.log.Error().Str("session", t.session.ID).Err(err).Msg("failed to persist aborted turn")
	}
	t.state = StateAborted
	t.emit(&stream.Abort{})
	return &AbortError{}
}

// finalizeError appends an error part describing the failure, persists
// the partial turn, and emits the terminal error event. Retrying is the
// caller's concern.
func (o *Orchestrator) finalizeError(ctx context.Context, t *turn, cause error) error {
	t.state = StateFinalizing
	t.parts = append(t.parts, &types.ErrorPart{Type: types.PartError, Error: cause.Error()})
	if err := o.persistTurn(context.WithoutCancel(ctx), t, types.FinishError); err != nil {
		o.log.Error().Str("session", t.session.ID).Err(err).Msg("failed to persist errored turn")
	}
	t.state = StateErrored
	t.emit(&stream.Error{Error: cause.Error()})
	return cause
}

// persistTurn appends the assistant turn to the session exactly once.
// A turn that produced no parts at all records a placeholder so the
// finish reason is not lost.
func (o *Orchestrator) persistTurn(ctx context.Context, t *turn, finishReason string) error {
	if t.finalized {
		return nil
	}
	t.finalized = true

	msg := t.message
	msg.Content = t.parts
	if len(msg.Content) == 0 {
		msg.Content = []types.Part{types.NewTextPart("")}
	}
	now := time.Now().UnixMilli()
	msg.Time.Completed = &now
	msg.FinishReason = finishReason
	if t.usage.TotalTokens > 0 || t.usage.PromptTokens > 0 || t.usage.CompletionTokens > 0 {
		usage := t.usage
		msg.Usage = &usage
	}

	sess, err := o.sessions.Append(ctx, t.session.ID, msg)
	if err != nil {
		return err
	}
	t.session = sess
	return nil
}

// parseAskQuestions decodes the ask tool's input into typed questions.
func parseAskQuestions(input map[string]any) ([]types.AskQuestion, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid ask input: %v", err)}
	}
	var parsed struct {
		Questions []types.AskQuestion `json:"questions"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid ask input: %v", err)}
	}
	if len(parsed.Questions) == 0 {
		return nil, &ValidationError{Reason: "ask requires at least one question"}
	}
	return parsed.Questions, nil
}

// buildSystemPrompt assembles the leading system message.
func buildSystemPrompt(sess *types.Session) string {
	return fmt.Sprintf(`You are Parley, a conversational assistant with access to tools.

Be concise and direct. Use the available tools when they help answer the user. Track multi-step work with the todo tools, and use the ask tool when you need a decision from the user before continuing.

Session: %s
Provider: %s
Model: %s`, sess.ID, sess.Provider, sess.Model)
}
