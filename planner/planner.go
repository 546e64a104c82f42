// Package planner decomposes a free-form task description into an ordered
// list of persona steps suitable for chained execution.
package planner

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hupe1980/agentcity/agent"
	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/logging"
	"github.com/hupe1980/agentcity/model"
)

const plannerInstructions = `You are the task planning expert of a multi-agent system. Break the
user's request into an ordered list of subtasks and assign each to the best
suited agent.

Available agents and their specialties:
1. mathematician: mathematical analysis, logical reasoning, algorithms, calculations
2. artist: visual design, creative expression, color, layout, SVG generation
3. engineer: programming, code architecture, technical solutions, frontend/backend
4. merchant: economic analysis, investment advice, business decisions, cost estimation
5. athlete: sports training, fitness plans, health management, sports knowledge
6. doctor: medical diagnosis, health consultation, disease prevention, medical advice

Analyze the request and return a JSON object with these fields:
- description: a short description of the task
- steps: a list of steps, each containing:
  - persona: the id of the agent executing the step (must be one of the ids above)
  - instruction: the concrete instruction for that agent
  - reason: why this agent was chosen

Return only the JSON object, no other text.`

// Plan is the decomposition result for one task.
type Plan struct {
	Description string            `json:"description"`
	Steps       []agent.ChainStep `json:"steps"`
}

// Options configure a Planner.
type Options struct {
	Logger logging.Logger
}

// Planner asks a language model to decompose tasks. Planning is best effort:
// a failed or malformed response degrades to an empty plan so the caller can
// fall back to single-persona handling.
type Planner struct {
	llm    model.Model
	logger logging.Logger
}

// New constructs a Planner.
func New(llm model.Model, optFns ...func(o *Options)) *Planner {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{llm: llm, logger: opts.Logger}
}

// Plan decomposes the user request. It never returns an error for model or
// parse failures; those yield an empty plan.
func (p *Planner) Plan(ctx context.Context, userRequest string) *Plan {
	fallback := &Plan{Description: userRequest}

	resp, err := p.llm.Generate(ctx, model.Request{
		Instructions: plannerInstructions,
		Contents:     []core.Content{core.NewUserContent(userRequest)},
	})
	if err != nil {
		p.logger.Warn("planner.generate.error", "error", err.Error())
		return fallback
	}

	var plan Plan
	if err := json.Unmarshal([]byte(stripFences(resp.Content.Text())), &plan); err != nil {
		p.logger.Warn("planner.parse.error", "error", err.Error())
		return fallback
	}
	if plan.Description == "" {
		plan.Description = userRequest
	}
	return &plan
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
