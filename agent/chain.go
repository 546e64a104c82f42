package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/persona"
)

// stepContextLimit is the deterministic prefix length (in runes) of a
// completed step's output carried into the next step's context. Bounds
// context growth across long chains.
const stepContextLimit = 200

// StepStatus tracks one chain step through its lifecycle.
type StepStatus string

const (
	StepPending  StepStatus = "PENDING"
	StepRunning  StepStatus = "RUNNING"
	StepComplete StepStatus = "COMPLETE"
	StepFailed   StepStatus = "FAILED"
)

// ChainStatus is the terminal status of a whole chained invocation.
type ChainStatus string

const (
	ChainDone    ChainStatus = "DONE"
	ChainAborted ChainStatus = "ABORTED"
	ChainFailed  ChainStatus = "FAILED"
)

// ChainStep is one planned unit of a collaborative task.
type ChainStep struct {
	Persona     string `json:"persona"`
	Instruction string `json:"instruction"`
	Reason      string `json:"reason,omitempty"`
}

// StepResult captures the outcome of one executed chain step.
type StepResult struct {
	Persona string     `json:"persona"`
	Status  StepStatus `json:"status"`
	Output  string     `json:"output,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// ChainAgent executes a fixed sequence of persona steps for one collaborative
// task. All requested persona ids are validated against the graph before any
// step runs; an unknown id aborts the whole chain with no partial execution.
// Each completed step's output (truncated) is fed into the next step's input
// context. A ChainAgent instance serves a single request.
type ChainAgent struct {
	BaseAgent
	graph   *persona.Graph
	agents  map[string]core.Agent
	steps   []ChainStep
	results []StepResult
	status  ChainStatus
}

// NewChainAgent creates a chain over the given steps. agents maps persona id
// to its PersonaAgent.
func NewChainAgent(graph *persona.Graph, agents map[string]core.Agent, steps []ChainStep) *ChainAgent {
	return &ChainAgent{
		BaseAgent: NewBaseAgent("chain"),
		graph:     graph,
		agents:    agents,
		steps:     steps,
	}
}

// Status returns the terminal chain status after Run.
func (c *ChainAgent) Status() ChainStatus { return c.status }

// Results returns per-step results in execution order. For an aborted chain
// every step is reported pending.
func (c *ChainAgent) Results() []StepResult {
	out := make([]StepResult, len(c.results))
	copy(out, c.results)
	return out
}

// Run implements core.Agent. Steps execute strictly in order; the first
// runtime failure stops the chain.
func (c *ChainAgent) Run(runCtx *core.RunContext) error {
	c.results = make([]StepResult, len(c.steps))
	for i, step := range c.steps {
		c.results[i] = StepResult{Persona: step.Persona, Status: StepPending}
	}

	// Validate the whole plan before executing anything.
	for _, step := range c.steps {
		if _, err := c.graph.ResolveStrict(step.Persona); err != nil {
			c.status = ChainAborted
			runCtx.LogWarn("chain.aborted", "persona", step.Persona, "run", runCtx.RunID)
			return fmt.Errorf("chain aborted: %w", err)
		}
		if _, ok := c.agents[c.graph.Resolve(step.Persona).ID]; !ok {
			c.status = ChainAborted
			return fmt.Errorf("chain aborted: %w: %q", persona.ErrUnknownPersona, step.Persona)
		}
	}

	for i, step := range c.steps {
		p := c.graph.Resolve(step.Persona)
		c.results[i].Persona = p.ID
		c.results[i].Status = StepRunning

		prompt := c.buildStepPrompt(step, c.results[:i])
		stepCtx := runCtx.WithUserContent(core.NewUserContent(prompt))

		if err := c.agents[p.ID].Run(stepCtx); err != nil {
			c.results[i].Status = StepFailed
			c.results[i].Error = err.Error()
			c.status = ChainFailed
			runCtx.LogError("chain.step.error", "persona", p.ID, "step", i, "error", err.Error())
			return fmt.Errorf("chain step %d (%s): %w", i, p.ID, err)
		}

		if out, ok := runCtx.Session.GetState("output:" + p.ID); ok {
			if s, ok := out.(string); ok {
				c.results[i].Output = s
			}
		}
		c.results[i].Status = StepComplete
		runCtx.LogDebug("chain.step.complete", "persona", p.ID, "step", i, "run", runCtx.RunID)
	}

	c.status = ChainDone
	return nil
}

// buildStepPrompt composes the step instruction plus truncated context from
// every previously completed step.
func (c *ChainAgent) buildStepPrompt(step ChainStep, prior []StepResult) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(step.Instruction)
	if step.Reason != "" {
		b.WriteString("\nWhy you: ")
		b.WriteString(step.Reason)
	}
	if len(prior) > 0 {
		b.WriteString("\n\nContext from previous steps:")
		for _, r := range prior {
			if r.Status != StepComplete {
				continue
			}
			b.WriteString("\n- ")
			b.WriteString(r.Persona)
			b.WriteString(": ")
			b.WriteString(truncate(r.Output, stepContextLimit))
		}
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

var _ core.Agent = (*ChainAgent)(nil)
