// Package agentcity provides a high-level façade over the persona graph, the
// world-state store and the runner. Most applications interact with this
// package by:
//  1. Creating a City via New() (optionally overriding stores, model, logger)
//  2. Sending room messages (SendMessage) optionally pinned to a persona
//  3. Executing collaborative multi-persona tasks (CollaborativeTask)
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable session store, a remote world
// backend and a structured logger.
package agentcity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentcity/agent"
	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/logging"
	"github.com/hupe1980/agentcity/model"
	"github.com/hupe1980/agentcity/persona"
	"github.com/hupe1980/agentcity/planner"
	"github.com/hupe1980/agentcity/runner"
	"github.com/hupe1980/agentcity/session"
	"github.com/hupe1980/agentcity/world"
)

// Options configures the City instance.
type Options struct {
	// SessionStore persists per-room conversations. Defaults to in-memory.
	SessionStore core.SessionStore

	// WorldBackend persists world state. Defaults to none (cache only).
	WorldBackend world.Backend

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// MaxModelCalls limits model calls per run.
	MaxModelCalls int

	// RunTimeout bounds one run; zero disables the bound.
	RunTimeout time.Duration
}

// City aggregates the persona graph, world store, runner and planner behind
// a small operational surface.
type City struct {
	graph   *persona.Graph
	store   *world.Store
	runner  *runner.Runner
	planner *planner.Planner
	agents  map[string]core.Agent
	router  *agent.PersonaAgent
	logger  logging.Logger
}

// TaskResult is the outcome of one collaborative task.
type TaskResult struct {
	Description     string             `json:"description"`
	Status          agent.ChainStatus  `json:"status"`
	Results         []agent.StepResult `json:"results"`
	Summary         string             `json:"summary"`
	FinalWorldState *world.State       `json:"final_world_state"`
}

// New creates a City wired to the given language model.
func New(llm model.Model, optFns ...func(o *Options)) *City {
	opts := Options{
		SessionStore:  session.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
		MaxModelCalls: 50,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	graph := persona.BuildGraph()
	store := world.NewStore(func(o *world.Options) {
		o.Backend = opts.WorldBackend
		o.Logger = opts.Logger
	})

	agents := make(map[string]core.Agent, len(graph.Personas)+1)
	var children []core.Agent
	for _, p := range graph.Personas {
		pa := agent.NewPersonaAgent(p, llm, func(o *agent.PersonaAgentOptions) {
			o.Tools = agent.Toolset(p, store, graph)
		})
		agents[p.ID] = pa
		children = append(children, pa)
	}
	router := agent.NewPersonaAgent(graph.Router, llm, func(o *agent.PersonaAgentOptions) {
		o.Tools = agent.Toolset(graph.Router, store, graph)
	})
	agents[graph.Router.ID] = router
	_ = router.SetSubAgents(children...)

	r := runner.New(func(o *runner.Options) {
		o.SessionStore = opts.SessionStore
		o.Logger = opts.Logger
		o.MaxModelCalls = opts.MaxModelCalls
		o.RunTimeout = opts.RunTimeout
	})

	return &City{
		graph:   graph,
		store:   store,
		runner:  r,
		planner: planner.New(llm, func(o *planner.Options) { o.Logger = opts.Logger }),
		agents:  agents,
		router:  router,
		logger:  opts.Logger,
	}
}

// Graph returns the persona graph.
func (c *City) Graph() *persona.Graph { return c.graph }

// World returns the world-state store.
func (c *City) World() *world.Store { return c.store }

// Runner returns the underlying runner.
func (c *City) Runner() *runner.Runner { return c.runner }

// SendMessage routes a user message into the room. An empty target invokes
// the router; otherwise the persona is resolved fuzzily with the router as
// fallback. The reply text plus the responding persona id are returned.
func (c *City) SendMessage(ctx context.Context, roomID, message, target string) (string, string, error) {
	p := c.graph.Resolve(target)
	ag, ok := c.agents[p.ID]
	if !ok {
		return "", "", fmt.Errorf("no agent for persona %q", p.ID)
	}

	reply, _, err := c.runner.RunSync(ctx, roomID, ag, core.NewUserContent(message))
	if err != nil {
		return "", p.ID, err
	}
	return reply, p.ID, nil
}

// AnalyzeTask asks the planner to decompose a task description. Best effort;
// failures yield an empty plan.
func (c *City) AnalyzeTask(ctx context.Context, description string) *planner.Plan {
	return c.planner.Plan(ctx, description)
}

// CollaborativeTask executes the given steps in order on one room. All
// persona ids are validated before any step runs; an unknown id aborts the
// task with no partial execution.
func (c *City) CollaborativeTask(ctx context.Context, roomID, description string, steps []agent.ChainStep) (*TaskResult, error) {
	chain := agent.NewChainAgent(c.graph, c.agents, steps)

	_, _, err := c.runner.RunSync(ctx, roomID, chain, core.NewUserContent(description))
	result := &TaskResult{
		Description:     description,
		Status:          chain.Status(),
		Results:         chain.Results(),
		FinalWorldState: c.store.Get(roomID),
	}
	if err != nil {
		return result, err
	}

	result.Summary = c.buildSummary(description, result.Results)
	return result, nil
}

// buildSummary renders the itemized markdown report for a completed task.
func (c *City) buildSummary(description string, results []agent.StepResult) string {
	if len(results) == 0 {
		return "No personas took part in the task."
	}

	names := make([]string, 0, len(results))
	for _, r := range results {
		if p := c.graph.Lookup(r.Persona); p != nil {
			names = append(names, p.DisplayName)
		} else {
			names = append(names, r.Persona)
		}
	}

	var b strings.Builder
	b.WriteString("## Task Summary\n\n")
	fmt.Fprintf(&b, "**Description**: %s\n\n", description)
	fmt.Fprintf(&b, "**Participants**: %s\n\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "**Execution order**: %s\n\n---\n\n", strings.Join(names, " -> "))
	for i, r := range results {
		fmt.Fprintf(&b, "### %d. %s\n\n%s\n\n---\n\n", i+1, names[i], r.Output)
	}
	b.WriteString("**Final status**: all personas completed their steps in order.")
	return b.String()
}

// WorldState returns the current state snapshot for a room, materializing
// the default layout for unknown rooms.
func (c *City) WorldState(roomID string) *world.State { return c.store.Get(roomID) }

// ApplyWorldEvents applies an ordered event batch to a room and returns the
// resulting state.
func (c *City) ApplyWorldEvents(roomID string, events []world.Event) *world.State {
	c.store.ApplyEvents(roomID, events)
	return c.store.Get(roomID)
}

// ClearRoom resets a room's world state and deletes its session history.
func (c *City) ClearRoom(roomID string) error {
	c.store.Clear(roomID)
	return c.runner.SessionStore().Delete(roomID)
}

// Cancel aborts an in-flight run.
func (c *City) Cancel(runID string) error { return c.runner.Cancel(runID) }

// Metrics returns the world store's diagnostic counters.
func (c *City) Metrics() world.MetricsSnapshot { return c.store.MetricsSnapshot() }
