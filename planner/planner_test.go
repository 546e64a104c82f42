package planner

import (
	"context"
	"testing"

	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/model"
)

func planResponse(text string) model.Response {
	return model.Response{
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}},
		FinishReason: "stop",
	}
}

func TestPlanParsesSteps(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueResponse(planResponse(`{
		"description": "organize a city race",
		"steps": [
			{"persona": "athlete", "instruction": "plan the course", "reason": "knows training loads"},
			{"persona": "artist", "instruction": "design the poster"}
		]
	}`))

	plan := New(llm).Plan(context.Background(), "organize a city race")
	if plan.Description != "organize a city race" {
		t.Errorf("description = %q", plan.Description)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(plan.Steps))
	}
	if plan.Steps[0].Persona != "athlete" || plan.Steps[0].Reason != "knows training loads" {
		t.Errorf("unexpected first step: %+v", plan.Steps[0])
	}
	if plan.Steps[1].Persona != "artist" || plan.Steps[1].Instruction != "design the poster" {
		t.Errorf("unexpected second step: %+v", plan.Steps[1])
	}
}

func TestPlanStripsCodeFences(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueResponse(planResponse("```json\n{\"description\":\"d\",\"steps\":[{\"persona\":\"doctor\",\"instruction\":\"check\"}]}\n```"))

	plan := New(llm).Plan(context.Background(), "health check")
	if len(plan.Steps) != 1 || plan.Steps[0].Persona != "doctor" {
		t.Errorf("fenced JSON not parsed: %+v", plan)
	}
}

func TestPlanFallsBackOnGarbage(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueResponse(planResponse("I would rather write prose than JSON."))

	plan := New(llm).Plan(context.Background(), "do something")
	if plan.Description != "do something" {
		t.Errorf("fallback description = %q", plan.Description)
	}
	if len(plan.Steps) != 0 {
		t.Errorf("fallback should have no steps: %+v", plan.Steps)
	}
}

func TestPlanFallsBackOnModelError(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // mock returns ctx.Err()

	plan := New(llm).Plan(ctx, "do something")
	if plan == nil || plan.Description != "do something" || len(plan.Steps) != 0 {
		t.Errorf("expected empty fallback plan, got %+v", plan)
	}
}

func TestPlanFillsMissingDescription(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueResponse(planResponse(`{"steps":[{"persona":"engineer","instruction":"wire it"}]}`))

	plan := New(llm).Plan(context.Background(), "wire the house")
	if plan.Description != "wire the house" {
		t.Errorf("description not defaulted: %q", plan.Description)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"{}", "{}"},
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tc := range tests {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
