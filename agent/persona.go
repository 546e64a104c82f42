package agent

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/model"
	"github.com/hupe1980/agentcity/persona"
	"github.com/hupe1980/agentcity/tool"
)

// Session state key tracking hand-off hops within one run.
const handoffHopKey = "handoff_hops"

// PersonaAgentOptions configures a PersonaAgent instance.
//
// Use functional options with NewPersonaAgent to override defaults.
type PersonaAgentOptions struct {
	// Instruction overrides the persona's static system prompt, e.g. with a
	// dynamic provider that injects the room's world state.
	Instruction *Instruction

	// OutputKey is the session state key the final response text is saved
	// under. Defaults to "output:<persona id>"; chains read it back.
	OutputKey string

	// MaxHistoryMessages caps the conversation history fed to the model.
	MaxHistoryMessages int

	// MaxToolRounds bounds generate/execute cycles within one turn.
	MaxToolRounds int

	// MaxHandoffs bounds delegation hops within one run.
	MaxHandoffs int

	Tools map[string]tool.Tool
}

// PersonaAgent binds one persona definition to a language model and its
// capability tools. Each turn it generates with the persona's system prompt
// plus trimmed conversation history, executes any requested tool calls, and
// honors validated hand-off requests by delegating to the target persona's
// agent in the hierarchy.
type PersonaAgent struct {
	BaseAgent
	persona     *persona.Persona
	llm         model.Model
	instruction Instruction
	tools       map[string]tool.Tool
	outputKey   string
	maxHistory  int
	maxRounds   int
	maxHandoffs int
}

// NewPersonaAgent creates an agent for the given persona definition.
func NewPersonaAgent(p *persona.Persona, llm model.Model, optFns ...func(o *PersonaAgentOptions)) *PersonaAgent {
	opts := PersonaAgentOptions{
		OutputKey:          "output:" + p.ID,
		MaxHistoryMessages: 20,
		MaxToolRounds:      8,
		MaxHandoffs:        4,
		Tools:              make(map[string]tool.Tool),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	instruction := NewInstructionFromText(p.SystemPrompt)
	if opts.Instruction != nil {
		instruction = *opts.Instruction
	}

	a := &PersonaAgent{
		BaseAgent:   NewBaseAgent(p.ID),
		persona:     p,
		llm:         llm,
		instruction: instruction,
		tools:       opts.Tools,
		outputKey:   opts.OutputKey,
		maxHistory:  opts.MaxHistoryMessages,
		maxRounds:   opts.MaxToolRounds,
		maxHandoffs: opts.MaxHandoffs,
	}
	a.SetDescription(fmt.Sprintf("Persona %s (%s)", p.DisplayName, p.ID))
	return a
}

// Persona returns the bound persona definition.
func (a *PersonaAgent) Persona() *persona.Persona { return a.persona }

// RegisterTool adds a tool to the agent's capability set.
func (a *PersonaAgent) RegisterTool(t tool.Tool) { a.tools[t.Name()] = t }

// HasTool checks if a tool is registered with the agent.
func (a *PersonaAgent) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// Run implements core.Agent. It drives the generate / tool-execute loop until
// the model produces a plain assistant message, a hand-off transfers control,
// or the round budget is exhausted.
func (a *PersonaAgent) Run(runCtx *core.RunContext) error {
	rc := runCtx.WithAgent(core.AgentInfo{ID: a.persona.ID, Name: a.persona.DisplayName})

	rc.LogDebug("agent.run.start", "persona", a.persona.ID, "run", rc.RunID)

	instructions, err := a.instruction.Resolve(rc)
	if err != nil {
		return fmt.Errorf("resolve instruction for %s: %w", a.persona.ID, err)
	}

	contents := a.buildContents(rc)

	for round := 0; round < a.maxRounds; round++ {
		if err := rc.Limiter.Increment(); err != nil {
			return err
		}

		resp, err := a.llm.Generate(rc.Context, model.Request{
			Instructions: instructions,
			Contents:     contents,
			Tools:        a.toolDefinitions(),
		})
		if err != nil {
			rc.LogError("agent.generate.error", "persona", a.persona.ID, "error", err.Error())
			return fmt.Errorf("generate for %s: %w", a.persona.ID, err)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			text := resp.Content.Text()
			if a.outputKey != "" && rc.Session != nil {
				rc.Session.SetState(a.outputKey, text)
			}
			return rc.EmitEvent(core.NewMessageEvent(rc.RunID, a.persona.ID, text))
		}

		callEv := core.NewEvent(rc.RunID, a.persona.ID)
		callEv.Content = &core.Content{Role: resp.Content.Role, Parts: resp.Content.Parts}
		if err := rc.EmitEvent(callEv); err != nil {
			return err
		}
		contents = append(contents, resp.Content)

		var handoffTarget string
		for _, call := range calls {
			toolCtx := core.NewToolContext(rc, call.ID)
			result, callErr := a.executeTool(toolCtx, call)

			respEv := core.NewFunctionResponseEvent(rc.RunID, a.persona.ID, call.ID, call.Name, result, callErr)
			respEv.Actions = *toolCtx.Actions()
			if err := rc.EmitEvent(respEv); err != nil {
				return err
			}
			contents = append(contents, *respEv.Content)

			if h := toolCtx.Actions().Handoff; h != nil && *h != "" {
				handoffTarget = *h
			}
		}

		if handoffTarget != "" {
			return a.delegate(rc, handoffTarget)
		}
	}

	return fmt.Errorf("persona %s exhausted %d tool rounds without a final response", a.persona.ID, a.maxRounds)
}

// buildContents assembles trimmed conversation history plus the current input.
func (a *PersonaAgent) buildContents(rc *core.RunContext) []core.Content {
	var contents []core.Content
	if rc.Session != nil {
		history := rc.Session.GetConversationHistory()
		if a.maxHistory > 0 && len(history) > a.maxHistory {
			history = history[len(history)-a.maxHistory:]
		}
		for _, ev := range history {
			contents = append(contents, *ev.Content)
		}
	}
	contents = append(contents, rc.UserContent)
	return contents
}

// toolDefinitions exposes the registered tools in deterministic name order.
func (a *PersonaAgent) toolDefinitions() []model.ToolDefinition {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := a.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// executeTool deserializes JSON arguments and invokes the named tool.
func (a *PersonaAgent) executeTool(toolCtx *core.ToolContext, call core.FunctionCall) (interface{}, error) {
	t, exists := a.tools[call.Name]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", call.Name)
	}

	argsMap := make(map[string]interface{})
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &argsMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}

	return t.Call(toolCtx, argsMap)
}

// delegate transfers the run to the target persona's agent. Targets were
// already validated against the adjacency table by the hand-off tool; the
// hierarchy is searched from the root since the graph is not a tree.
func (a *PersonaAgent) delegate(rc *core.RunContext, targetID string) error {
	hops := 0
	if v, ok := rc.GetState(handoffHopKey); ok {
		if n, ok := v.(int); ok {
			hops = n
		}
	}
	if hops >= a.maxHandoffs {
		rc.LogWarn("agent.handoff.limit", "persona", a.persona.ID, "target", targetID, "hops", hops)
		return rc.EmitEvent(core.NewMessageEvent(rc.RunID, a.persona.ID,
			"I have to stop here; too many hand-offs for one request."))
	}
	rc.SetState(handoffHopKey, hops+1)

	var root core.Agent = &agentWrapper{&a.BaseAgent}
	for root.Parent() != nil {
		root = root.Parent()
	}
	target := root.FindAgent(targetID)
	if target == nil {
		return fmt.Errorf("persona %q not found in hierarchy", targetID)
	}

	rc.LogInfo("agent.handoff", "from", a.persona.ID, "to", targetID, "run", rc.RunID)
	return target.Run(rc)
}

var _ core.Agent = (*PersonaAgent)(nil)
