package agentcity

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/agentcity/agent"
	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/model"
	"github.com/hupe1980/agentcity/world"
)

func TestSendMessageRouted(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("hello", "The dispatcher greets you.")
	city := New(llm)

	reply, personaID, err := city.SendMessage(context.Background(), "room-1", "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if personaID != "router" {
		t.Errorf("empty target should route to the router, got %q", personaID)
	}
	if reply != "The dispatcher greets you." {
		t.Errorf("reply = %q", reply)
	}
}

func TestSendMessagePinned(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	city := New(llm)

	_, personaID, err := city.SendMessage(context.Background(), "room-1", "solve this", "math expert")
	if err != nil {
		t.Fatal(err)
	}
	if personaID != "mathematician" {
		t.Errorf("fuzzy target not resolved: %q", personaID)
	}
}

func TestCollaborativeTask(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueResponse(model.Response{Content: core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "route surveyed"}}}})
	llm.EnqueueResponse(model.Response{Content: core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "stalls priced"}}}})
	city := New(llm)

	result, err := city.CollaborativeTask(context.Background(), "room-1", "set up the market", []agent.ChainStep{
		{Persona: "engineer", Instruction: "survey the square"},
		{Persona: "merchant", Instruction: "price the stalls"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != agent.ChainDone {
		t.Errorf("status = %s", result.Status)
	}
	if len(result.Results) != 2 || result.Results[0].Output != "route surveyed" {
		t.Errorf("results = %+v", result.Results)
	}
	if !strings.Contains(result.Summary, "Engineer -> Merchant") {
		t.Errorf("summary missing execution order:\n%s", result.Summary)
	}
	if result.FinalWorldState == nil || len(result.FinalWorldState.Agents) != 6 {
		t.Error("final world state missing")
	}
}

func TestCollaborativeTaskUnknownPersona(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	city := New(llm)

	result, err := city.CollaborativeTask(context.Background(), "room-1", "impossible", []agent.ChainStep{
		{Persona: "astronaut", Instruction: "fly"},
	})
	if err == nil {
		t.Fatal("expected an error for an unknown persona")
	}
	if result.Status != agent.ChainAborted {
		t.Errorf("status = %s", result.Status)
	}
}

func TestApplyWorldEventsAndClearRoom(t *testing.T) {
	city := New(model.NewMockModel("mock", "mock"))

	st := city.ApplyWorldEvents("room-1", []world.Event{
		world.AgentMoved{AgentID: "athlete", X: 10, Y: 20},
	})
	if st.Agent("athlete").X != 10 {
		t.Errorf("event not applied: %+v", st.Agent("athlete"))
	}

	if err := city.ClearRoom("room-1"); err != nil {
		t.Fatal(err)
	}
	if city.WorldState("room-1").Agent("athlete").X == 10 {
		t.Error("clear should reset the room to defaults")
	}
}

func TestAnalyzeTaskFallback(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueResponse(model.Response{Content: core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "not json"}}}})
	city := New(llm)

	plan := city.AnalyzeTask(context.Background(), "do a thing")
	if plan.Description != "do a thing" || len(plan.Steps) != 0 {
		t.Errorf("expected fallback plan, got %+v", plan)
	}
}

func TestMetrics(t *testing.T) {
	city := New(model.NewMockModel("mock", "mock"))
	city.ApplyWorldEvents("room-1", []world.Event{
		world.MoodChanged{AgentID: "doctor", Mood: "busy"},
		world.MoodChanged{AgentID: "ghost", Mood: "spooky"},
	})

	m := city.Metrics()
	if m.AppliedEvents != 1 || m.SkippedEvents != 1 {
		t.Errorf("metrics = %+v", m)
	}
}
