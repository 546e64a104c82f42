package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/hupe1980/agentcity/logging"
)

// RunContext carries execution state and helpers for one agent run. It
// aggregates the ambient cancellation context, identifiers (room, run,
// agent), the input user content, the event emission channel, the session
// snapshot and backing store, plus a shared model-call limiter.
//
// State mutations performed via SetState accumulate in StateDelta until
// CommitStateDelta or EmitEvent applies them.
type RunContext struct {
	Context      context.Context
	RoomID       string
	RunID        string
	Agent        AgentInfo
	UserContent  Content
	Emit         chan<- Event
	SessionStore SessionStore
	Limiter      *ModelLimiter
	Session      *Session
	StateDelta   map[string]any

	*loggerAdapter
}

// NewRunContext constructs a RunContext with an empty state delta.
func NewRunContext(
	ctx context.Context,
	roomID, runID string,
	agent AgentInfo,
	userContent Content,
	maxModelCalls int,
	emit chan<- Event,
	sess *Session,
	sessionStore SessionStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		RoomID:        roomID,
		RunID:         runID,
		Agent:         agent,
		UserContent:   userContent,
		Emit:          emit,
		Session:       sess,
		SessionStore:  sessionStore,
		Limiter:       NewModelLimiter(maxModelCalls),
		StateDelta:    map[string]any{},
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}
	if rc.Session != nil {
		return rc.Session.GetState(k)
	}
	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// CommitStateDelta persists the accumulated StateDelta then clears the buffer.
func (rc *RunContext) CommitStateDelta() error {
	if len(rc.StateDelta) == 0 {
		return nil
	}
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}
	if err := rc.SessionStore.ApplyDelta(rc.RoomID, rc.StateDelta); err != nil {
		return err
	}
	rc.StateDelta = map[string]any{}
	return nil
}

// GetSessionHistory returns all historical events for the session.
func (rc *RunContext) GetSessionHistory() []Event {
	if rc.Session == nil {
		return []Event{}
	}
	return rc.Session.GetEvents()
}

// EmitEvent merges any pending StateDelta into the event and emits it,
// honoring cancellation.
func (rc *RunContext) EmitEvent(ev Event) error {
	if len(rc.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, rc.StateDelta)
	}

	select {
	case <-rc.Context.Done():
		return rc.Context.Err()
	case rc.Emit <- ev:
	}

	rc.StateDelta = map[string]any{}
	return nil
}

// WithAgent clones the context for a delegated agent, keeping the shared
// limiter and session but rebinding the author identity.
func (rc *RunContext) WithAgent(agent AgentInfo) *RunContext {
	c := rc.clone()
	c.Agent = agent
	return c
}

// WithUserContent clones the context replacing the input content. Used when
// a chained step feeds the previous step's output forward.
func (rc *RunContext) WithUserContent(content Content) *RunContext {
	c := rc.clone()
	c.UserContent = content
	return c
}

func (rc *RunContext) clone() *RunContext {
	c := &RunContext{
		Context:       rc.Context,
		RoomID:        rc.RoomID,
		RunID:         rc.RunID,
		Agent:         rc.Agent,
		UserContent:   rc.UserContent,
		Emit:          rc.Emit,
		SessionStore:  rc.SessionStore,
		Limiter:       rc.Limiter,
		Session:       rc.Session,
		StateDelta:    map[string]any{},
		loggerAdapter: rc.loggerAdapter,
	}
	maps.Copy(c.StateDelta, rc.StateDelta)
	return c
}
