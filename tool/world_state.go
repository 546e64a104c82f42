package tool

import (
	"fmt"

	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/world"
)

// The world-state tools are the only bridge between personas and the world
// store. Their schemas are the contract the model runtime negotiates, so
// parameter names and defaults must stay stable.

// roomID extracts the target room: explicit argument first, then the room of
// the current invocation, then the literal default.
func roomID(toolCtx *core.ToolContext, args map[string]any) string {
	if r, ok := args["room_id"].(string); ok && r != "" {
		return r
	}
	if r := toolCtx.RoomID(); r != "" {
		return r
	}
	return "default"
}

// NewUpdateWorldStateTool exposes world mutations as a single tool call.
// It constructs an AgentMoved event when both x and y are present, then
// either a TaskStarted (task present, mood defaulting to "focused" — the
// default lives here in the tool layer, not in the store) or a MoodChanged
// (only mood present).
func NewUpdateWorldStateTool(store *world.Store) Tool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_id": map[string]any{
				"type":        "string",
				"description": "Agent id (mathematician/artist/engineer/merchant/athlete/doctor)",
			},
			"x": map[string]any{"type": "number", "description": "X coordinate (optional)"},
			"y": map[string]any{"type": "number", "description": "Y coordinate (optional)"},
			"mood": map[string]any{
				"type":        "string",
				"description": "Mood tag (calm/creative/focused/excited/thinking etc.)",
			},
			"task": map[string]any{"type": "string", "description": "Current task description (optional)"},
			"room_id": map[string]any{
				"type":        "string",
				"description": "Room id, defaults to \"default\"",
			},
		},
		"required": []string{"agent_id"},
	}

	return NewFunctionTool(
		"update_world_state",
		"Update the game world state (agent position, mood, current task).",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			agentID, ok := args["agent_id"].(string)
			if !ok || agentID == "" {
				return nil, fmt.Errorf("agent_id is required")
			}

			var events []world.Event

			x, hasX := args["x"].(float64)
			y, hasY := args["y"].(float64)
			if hasX && hasY {
				events = append(events, world.AgentMoved{AgentID: agentID, X: x, Y: y})
			}

			mood, _ := args["mood"].(string)
			task, _ := args["task"].(string)
			switch {
			case task != "":
				if mood == "" {
					mood = "focused"
				}
				events = append(events, world.TaskStarted{AgentID: agentID, Task: task, Mood: mood})
			case mood != "":
				events = append(events, world.MoodChanged{AgentID: agentID, Mood: mood})
			}

			if len(events) == 0 {
				return "no update needed", nil
			}

			store.ApplyEvents(roomID(toolCtx, args), events)

			return fmt.Sprintf("updated state of %s", agentID), nil
		},
	)
}

// NewQueryWorldStateTool exposes a read-only snapshot of the room's world
// state (agents plus environment) for the model or frontend to consume.
func NewQueryWorldStateTool(store *world.Store) Tool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"room_id": map[string]any{
				"type":        "string",
				"description": "Room id, defaults to \"default\"",
			},
		},
	}

	return NewFunctionTool(
		"query_world_state",
		"Get the current world state (agents and environment) for rendering.",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			return store.Get(roomID(toolCtx, args)), nil
		},
	)
}

// NewRenderIdeaToSVGTool records a design spec for the frontend to render.
// It never mutates world state; the result is an acknowledgment the model
// can relay.
func NewRenderIdeaToSVGTool() Tool {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"spec": map[string]any{
				"type":        "string",
				"description": "Natural-language description of what to draw",
			},
			"room_id": map[string]any{
				"type":        "string",
				"description": "Room id, defaults to \"default\"",
			},
		},
		"required": []string{"spec"},
	}

	return NewFunctionTool(
		"render_idea_to_svg",
		"Turn a design idea into a simple SVG/Canvas spec for the frontend.",
		params,
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			spec, ok := args["spec"].(string)
			if !ok || spec == "" {
				return nil, fmt.Errorf("spec is required")
			}
			return fmt.Sprintf("recorded design spec: %s. The frontend can render it from this description.", spec), nil
		},
	)
}
