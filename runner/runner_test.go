package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agentcity/agent"
	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/model"
	"github.com/hupe1980/agentcity/persona"
	"github.com/hupe1980/agentcity/session"
	"github.com/hupe1980/agentcity/world"
)

func newPersonaAgent(t *testing.T, llm model.Model, id string) *agent.PersonaAgent {
	t.Helper()
	g := persona.BuildGraph()
	p, err := g.ResolveStrict(id)
	if err != nil {
		t.Fatal(err)
	}
	return agent.NewPersonaAgent(p, llm, func(o *agent.PersonaAgentOptions) {
		o.Tools = agent.Toolset(p, world.NewStore(), g)
	})
}

func TestRunSyncReturnsFinalResponse(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("hello there", "Greetings from the city.")

	r := New()
	ag := newPersonaAgent(t, llm, "artist")

	final, events, err := r.RunSync(context.Background(), "room-1", ag, core.NewUserContent("hello there"))
	if err != nil {
		t.Fatal(err)
	}
	if final != "Greetings from the city." {
		t.Errorf("final = %q", final)
	}
	if len(events) != 1 || !events[0].IsFinalResponse() {
		t.Errorf("unexpected events: %+v", events)
	}
	if r.ActiveRuns() != 0 {
		t.Errorf("run still active: %d", r.ActiveRuns())
	}
}

func TestRunPersistsConversation(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	store := session.NewInMemoryStore()
	r := New(func(o *Options) { o.SessionStore = store })
	ag := newPersonaAgent(t, llm, "doctor")

	if _, _, err := r.RunSync(context.Background(), "room-1", ag, core.NewUserContent("I have a cold")); err != nil {
		t.Fatal(err)
	}

	sess, _ := store.Get("room-1")
	history := sess.GetConversationHistory()
	if len(history) != 2 {
		t.Fatalf("expected user + assistant turns, got %d", len(history))
	}
	if history[0].Content.Role != "user" || history[1].Author != "doctor" {
		t.Errorf("unexpected history: %+v", history)
	}
}

func TestRunAppliesStateDelta(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	store := session.NewInMemoryStore()
	r := New(func(o *Options) { o.SessionStore = store })
	ag := newPersonaAgent(t, llm, "merchant")

	if _, _, err := r.RunSync(context.Background(), "room-1", ag, core.NewUserContent("price this")); err != nil {
		t.Fatal(err)
	}

	sess, _ := store.Get("room-1")
	if v, ok := sess.GetState("output:merchant"); !ok || v == "" {
		t.Errorf("output key not persisted: %v %v", v, ok)
	}
}

func TestRunHistoryAccumulatesAcrossRuns(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	store := session.NewInMemoryStore()
	r := New(func(o *Options) { o.SessionStore = store })
	ag := newPersonaAgent(t, llm, "artist")

	for _, msg := range []string{"first", "second"} {
		if _, _, err := r.RunSync(context.Background(), "room-1", ag, core.NewUserContent(msg)); err != nil {
			t.Fatal(err)
		}
	}

	// The second run's request should carry the first exchange as history.
	reqs := llm.Requests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(reqs))
	}
	if len(reqs[1].Contents) != 3 { // user, assistant, user
		t.Errorf("second request history length = %d", len(reqs[1].Contents))
	}
}

func TestRunSyncSurfacesAgentError(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	r := New()
	// One tool round with a scripted tool call and no follow-up text exhausts
	// the round budget.
	g := persona.BuildGraph()
	p, _ := g.ResolveStrict("engineer")
	ag := agent.NewPersonaAgent(p, llm, func(o *agent.PersonaAgentOptions) {
		o.MaxToolRounds = 1
		o.Tools = agent.Toolset(p, world.NewStore(), g)
	})
	llm.EnqueueResponse(model.Response{
		Content: core.Content{Role: "assistant", Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "query_world_state", Arguments: "{}"}},
		}},
	})

	_, _, err := r.RunSync(context.Background(), "room-1", ag, core.NewUserContent("loop forever"))
	if err == nil {
		t.Fatal("expected round exhaustion error")
	}
}

func TestCancelUnknownRun(t *testing.T) {
	r := New()
	if err := r.Cancel("no-such-run"); err == nil {
		t.Error("cancelling an unknown run should error")
	}
}

func TestRunSessionStoreFailure(t *testing.T) {
	r := New(func(o *Options) { o.SessionStore = failingSessions{} })
	ag := newPersonaAgent(t, model.NewMockModel("mock", "mock"), "athlete")

	_, _, _, err := r.Run(context.Background(), "room-1", ag, core.NewUserContent("hi"))
	if err == nil {
		t.Fatal("expected session store failure to surface")
	}
}

type failingSessions struct{}

var errSessions = errors.New("session store down")

func (failingSessions) Create(string) (*core.Session, error)    { return nil, errSessions }
func (failingSessions) Get(string) (*core.Session, error)       { return nil, errSessions }
func (failingSessions) AppendEvent(string, core.Event) error    { return errSessions }
func (failingSessions) ApplyDelta(string, map[string]any) error { return errSessions }
func (failingSessions) Delete(string) error                     { return errSessions }
