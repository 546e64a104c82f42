package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/logging"
	"github.com/hupe1980/agentcity/session"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run.
	MaxModelCalls int
	// RunTimeout bounds one run; zero disables the bound. On expiry the
	// in-flight persona invocation is cancelled and world state stays as of
	// the last applied event batch.
	RunTimeout time.Duration
	// SessionStore persists room sessions.
	SessionStore core.SessionStore
	// Logger receives structured runner diagnostics.
	Logger logging.Logger
}

// Runner coordinates agent execution: it creates run contexts, streams
// events, applies side effects and persists history. Unlike a single-root
// design, the agent to execute is chosen per request (router, pinned persona
// or a chain). Public methods are safe for concurrent use.
type Runner struct {
	eventBufferSize int
	maxModelCalls   int
	runTimeout      time.Duration

	sessionStore core.SessionStore
	logger       logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   50,
		SessionStore:    session.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		runTimeout:      opts.RunTimeout,
		sessionStore:    opts.SessionStore,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// SessionStore exposes the configured session store.
func (r *Runner) SessionStore() core.SessionStore { return r.sessionStore }

// Run starts an asynchronous invocation of ag for the given room. It returns
// the run id, a channel of processed events and an error channel; both
// channels close when the run finishes.
func (r *Runner) Run(
	ctx context.Context,
	roomID string,
	ag core.Agent,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	sess, err := r.sessionStore.Get(roomID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	runID := core.NewID()

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)

	var cancel context.CancelFunc
	if r.runTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	runCtx := core.NewRunContext(
		ctx,
		roomID,
		runID,
		core.AgentInfo{ID: ag.Name(), Name: ag.Name()},
		userContent,
		r.maxModelCalls,
		agentEmit,
		sess,
		r.sessionStore,
		r.logger,
	)

	// Persist the user turn. It is deliberately not added to the live
	// session: agents append their current input themselves.
	userEvent := core.NewEvent(runID, "user")
	userEvent.Content = &userContent
	if err := r.sessionStore.AppendEvent(roomID, userEvent); err != nil {
		cancel()
		r.mu.Lock()
		delete(r.activeRuns, runID)
		r.mu.Unlock()
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	go func() {
		defer func() {
			close(agentEmit)
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
		}()

		if err := r.runAgent(runCtx, ag); err != nil {
			select {
			case <-runCtx.Done():
			case errorsCh <- fmt.Errorf("agent execution failed: %w", err):
			}
		}
	}()

	go func() {
		defer func() { close(eventsCh); close(errorsCh) }()
		r.processEvents(runCtx, roomID, agentEmit, eventsCh, errorsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync executes a run to completion and returns the final assistant
// message text plus all processed events.
func (r *Runner) RunSync(
	ctx context.Context,
	roomID string,
	ag core.Agent,
	userContent core.Content,
) (string, []core.Event, error) {
	_, eventsCh, errorsCh, err := r.Run(ctx, roomID, ag, userContent)
	if err != nil {
		return "", nil, err
	}

	var (
		events []core.Event
		final  string
	)
	for ev := range eventsCh {
		events = append(events, ev)
		if ev.IsFinalResponse() {
			final = ev.Content.Text()
		}
	}
	if runErr := <-errorsCh; runErr != nil {
		return final, events, runErr
	}
	return final, events, nil
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}
	cancel()
	return nil
}

// ActiveRuns returns the number of in-flight runs.
func (r *Runner) ActiveRuns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeRuns)
}

func (r *Runner) runAgent(runCtx *core.RunContext, ag core.Agent) error {
	if err := ag.Start(runCtx); err != nil {
		return err
	}
	defer func() {
		if err := ag.Stop(runCtx); err != nil {
			r.logger.Warn("runner.agent.stop.error", "agent", ag.Name(), "error", err.Error())
		}
	}()

	return ag.Run(runCtx)
}

func (r *Runner) processEvents(
	runCtx *core.RunContext,
	roomID string,
	agentEmit <-chan core.Event,
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	for ev := range agentEmit {
		if err := r.applyEventActions(runCtx, roomID, ev); err != nil {
			select {
			case <-runCtx.Done():
			case errorsCh <- fmt.Errorf("failed to process event actions: %w", err):
			}
			return
		}

		// Keep the live session's history consistent for chained steps.
		runCtx.Session.AddEvent(ev)
		if err := r.sessionStore.AppendEvent(roomID, ev); err != nil {
			select {
			case <-runCtx.Done():
			case errorsCh <- fmt.Errorf("failed to append event to session: %w", err):
			}
			return
		}

		select {
		case <-runCtx.Done():
			return
		case eventsCh <- ev:
			r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "room_id", roomID)
		}
	}
}

func (r *Runner) applyEventActions(runCtx *core.RunContext, roomID string, ev core.Event) error {
	if len(ev.Actions.StateDelta) > 0 {
		runCtx.Session.MergeState(ev.Actions.StateDelta)
		if err := r.sessionStore.ApplyDelta(roomID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}
	}

	if ev.Actions.Handoff != nil && *ev.Actions.Handoff != "" {
		r.logger.Debug("runner.event.handoff", "target", *ev.Actions.Handoff, "room_id", roomID)
	}

	return nil
}
