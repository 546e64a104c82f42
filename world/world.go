// Package world implements the shared world-state store backing the virtual
// city: per-room agent positions, moods and tasks plus environment metadata.
// State is event-sourced; mutations happen exclusively through ordered event
// batches applied by the Store. The in-memory cache is authoritative for the
// life of the process, durable persistence is best-effort.
package world

import "time"

// AgentState is one persona's visible footprint in a room.
//
// Relations is reserved for future use; event handlers never touch it but it
// is part of the persisted shape and must round-trip.
type AgentState struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Role        string            `json:"role"`
	X           float64           `json:"x"`
	Y           float64           `json:"y"`
	Mood        string            `json:"mood"`
	CurrentTask *string           `json:"currentTask"`
	Relations   map[string]string `json:"relations"`
}

// Environment holds scene-level metadata shared by all agents in a room.
type Environment struct {
	TimeOfDay string   `json:"timeOfDay"`
	Weather   string   `json:"weather"`
	Rooms     []string `json:"rooms"`
}

// State is the rendered scene for one room. Agents always contains exactly
// the six canonical personas in canonical order; membership never changes
// after first materialization.
type State struct {
	Agents      []AgentState `json:"agents"`
	Environment Environment  `json:"environment"`
	LastUpdated string       `json:"lastUpdated"`
}

// CanonicalAgentIDs lists the six persona ids in canonical order.
var CanonicalAgentIDs = []string{
	"mathematician", "artist", "engineer", "merchant", "athlete", "doctor",
}

type agentDefault struct {
	name string
	x, y float64
	mood string
}

var agentDefaults = map[string]agentDefault{
	"mathematician": {"Mathematician", 150, 250, "calm"},
	"artist":        {"Artist", 350, 250, "creative"},
	"engineer":      {"Engineer", 550, 250, "focused"},
	"merchant":      {"Merchant", 750, 250, "cautious"},
	"athlete":       {"Athlete", 250, 450, "energetic"},
	"doctor":        {"Doctor", 450, 450, "caring"},
}

// DefaultState materializes the hard-coded initial scene for a fresh room.
func DefaultState() *State {
	agents := make([]AgentState, 0, len(CanonicalAgentIDs))
	for _, id := range CanonicalAgentIDs {
		d := agentDefaults[id]
		agents = append(agents, AgentState{
			ID:        id,
			Name:      d.name,
			Role:      id,
			X:         d.x,
			Y:         d.y,
			Mood:      d.mood,
			Relations: map[string]string{},
		})
	}
	return &State{
		Agents: agents,
		Environment: Environment{
			TimeOfDay: "day",
			Weather:   "sunny",
			Rooms:     []string{},
		},
		LastUpdated: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Agent returns a pointer to the agent with the given id, or nil.
func (s *State) Agent(id string) *AgentState {
	for i := range s.Agents {
		if s.Agents[i].ID == id {
			return &s.Agents[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the state safe for independent mutation.
func (s *State) Clone() *State {
	c := &State{
		Agents:      make([]AgentState, len(s.Agents)),
		Environment: s.Environment,
		LastUpdated: s.LastUpdated,
	}
	copy(c.Agents, s.Agents)
	for i := range c.Agents {
		if s.Agents[i].CurrentTask != nil {
			task := *s.Agents[i].CurrentTask
			c.Agents[i].CurrentTask = &task
		}
		rel := make(map[string]string, len(s.Agents[i].Relations))
		for k, v := range s.Agents[i].Relations {
			rel[k] = v
		}
		c.Agents[i].Relations = rel
	}
	c.Environment.Rooms = make([]string, len(s.Environment.Rooms))
	copy(c.Environment.Rooms, s.Environment.Rooms)
	return c
}
