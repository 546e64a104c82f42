// Package persona defines the fixed cast of the virtual city: six themed
// conversational personas plus one router node, the directed hand-off graph
// between them and the tool capabilities each node exposes. Construction is
// pure data wiring; nothing here performs I/O or talks to the world store.
package persona

// Kind enumerates the closed set of graph nodes.
type Kind int

const (
	// KindRouter is the triage node that dispatches user requests.
	KindRouter Kind = iota
	// KindMathematician handles math, logic and algorithm questions.
	KindMathematician
	// KindArtist handles visual design and creative expression.
	KindArtist
	// KindEngineer handles implementation and technical questions.
	KindEngineer
	// KindMerchant handles economics, investment and business questions.
	KindMerchant
	// KindAthlete handles sports, fitness and training questions.
	KindAthlete
	// KindDoctor handles health and medical questions.
	KindDoctor
)

// Capability identifies a tool a persona may invoke.
type Capability string

const (
	// CapUpdateWorldState permits submitting world-state event batches.
	CapUpdateWorldState Capability = "update_world_state"
	// CapQueryWorldState permits reading the room's world state.
	CapQueryWorldState Capability = "query_world_state"
	// CapRenderIdeaToSVG permits recording a visual spec for the frontend.
	CapRenderIdeaToSVG Capability = "render_idea_to_svg"
)

// Persona is one node in the hand-off graph. Instances are stateless value
// objects rebuilt from static definitions on every graph construction; the
// only identity that survives across requests is the ID string.
type Persona struct {
	ID              string
	DisplayName     string
	Kind            Kind
	SystemPrompt    string
	Capabilities    []Capability
	AllowedHandoffs []string // ordered persona ids this node may delegate to
}

// HasCapability reports whether the persona exposes the given tool.
func (p *Persona) HasCapability(c Capability) bool {
	for _, have := range p.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// CanHandoff reports whether delegation to target is permitted by the
// adjacency table. Self hand-off is never permitted.
func (p *Persona) CanHandoff(target string) bool {
	if target == p.ID {
		return false
	}
	for _, id := range p.AllowedHandoffs {
		if id == target {
			return true
		}
	}
	return false
}
