package agent

import (
	"github.com/hupe1980/agentcity/persona"
	"github.com/hupe1980/agentcity/tool"
	"github.com/hupe1980/agentcity/world"
)

// Toolset materializes the tool instances a persona is allowed to call. The
// capability set decides the world-state tools; the hand-off tool is added
// whenever the persona has outgoing edges in the graph.
func Toolset(p *persona.Persona, store *world.Store, graph *persona.Graph) map[string]tool.Tool {
	tools := make(map[string]tool.Tool)
	for _, cap := range p.Capabilities {
		switch cap {
		case persona.CapUpdateWorldState:
			t := tool.NewUpdateWorldStateTool(store)
			tools[t.Name()] = t
		case persona.CapQueryWorldState:
			t := tool.NewQueryWorldStateTool(store)
			tools[t.Name()] = t
		case persona.CapRenderIdeaToSVG:
			t := tool.NewRenderIdeaToSVGTool()
			tools[t.Name()] = t
		}
	}
	if len(p.AllowedHandoffs) > 0 {
		t := tool.NewHandoffTool(graph)
		tools[t.Name()] = t
	}
	return tools
}
