package tool

import (
	"fmt"

	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/persona"
)

// handoffTool requests delegation to another persona. The adjacency table is
// enforced here: a target outside the calling persona's allowed hand-offs is
// rejected, never silently executed.
type handoffTool struct {
	graph *persona.Graph
}

// NewHandoffTool constructs the hand-off tool bound to a persona graph.
func NewHandoffTool(graph *persona.Graph) Tool { return &handoffTool{graph: graph} }

func (t *handoffTool) Name() string { return "handoff_to_persona" }

func (t *handoffTool) Description() string {
	return "Hand the conversation to another persona by id. Use when another resident of the city is better suited."
}

func (t *handoffTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"persona": map[string]any{"type": "string", "description": "Target persona id"},
		},
		"required": []string{"persona"},
	}
}

func (t *handoffTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	raw, ok := args["persona"]
	if !ok {
		return nil, fmt.Errorf("missing required field 'persona'")
	}
	target, ok := raw.(string)
	if !ok || target == "" {
		return nil, fmt.Errorf("field 'persona' must be a non-empty string")
	}

	from := t.graph.Lookup(tc.AgentID())
	if from == nil {
		return nil, NewToolError(t.Name(), fmt.Sprintf("calling persona %q not in graph", tc.AgentID()), "VALIDATION_ERROR")
	}
	if t.graph.Lookup(target) == nil {
		return nil, NewToolError(t.Name(), fmt.Sprintf("unknown persona %q", target), "VALIDATION_ERROR")
	}
	if !from.CanHandoff(target) {
		return nil, NewToolError(t.Name(), fmt.Sprintf("persona %q may not hand off to %q", from.ID, target), "HANDOFF_DENIED")
	}

	tc.RequestHandoff(target)

	return map[string]any{"handoff": true, "persona": target}, nil
}
