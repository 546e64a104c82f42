package persona

import (
	"fmt"
	"strings"
)

// RouterID is the id of the triage node.
const RouterID = "router"

// The hand-off adjacency is reproduced exactly as the product defines it.
// It is directed, non-symmetric and not strongly connected (doctor cannot
// reach engineer, merchant or athlete in one hop). Whether that is narrative
// design or an oversight is an open product question; do not "fix" it here.
var adjacency = map[string][]string{
	RouterID:        {"mathematician", "artist", "engineer", "merchant", "athlete", "doctor"},
	"mathematician": {"artist", "engineer"},
	"artist":        {"engineer", "merchant"},
	"engineer":      {"artist", "merchant"},
	"merchant":      {"mathematician", "athlete"},
	"athlete":       {"doctor", "merchant"},
	"doctor":        {"mathematician", "artist"},
}

var capabilities = map[string][]Capability{
	RouterID:        {CapQueryWorldState},
	"mathematician": {CapUpdateWorldState, CapQueryWorldState},
	"artist":        {CapUpdateWorldState, CapQueryWorldState, CapRenderIdeaToSVG},
	"engineer":      {CapUpdateWorldState, CapQueryWorldState, CapRenderIdeaToSVG},
	"merchant":      {CapUpdateWorldState, CapQueryWorldState},
	"athlete":       {CapUpdateWorldState, CapQueryWorldState},
	"doctor":        {CapUpdateWorldState, CapQueryWorldState},
}

// resolveKeywords maps fuzzy substrings to canonical persona ids. Includes
// the original Chinese display names so either script resolves.
var resolveKeywords = []struct {
	substr string
	id     string
}{
	{"math", "mathematician"},
	{"数学", "mathematician"},
	{"art", "artist"},
	{"艺术", "artist"},
	{"engineer", "engineer"},
	{"工程", "engineer"},
	{"merchant", "merchant"},
	{"商人", "merchant"},
	{"athlete", "athlete"},
	{"运动", "athlete"},
	{"doctor", "doctor"},
	{"医生", "doctor"},
}

// Graph is the constructed persona graph: the router plus the six personas
// in canonical order.
type Graph struct {
	Router   *Persona
	Personas []*Persona

	byID map[string]*Persona
}

// BuildGraph constructs the router and the six personas deterministically
// from the static definitions. No randomness, no external calls.
func BuildGraph() *Graph {
	order := []struct {
		id   string
		name string
		kind Kind
	}{
		{"mathematician", "Mathematician", KindMathematician},
		{"artist", "Artist", KindArtist},
		{"engineer", "Engineer", KindEngineer},
		{"merchant", "Merchant", KindMerchant},
		{"athlete", "Athlete", KindAthlete},
		{"doctor", "Doctor", KindDoctor},
	}

	g := &Graph{byID: make(map[string]*Persona, len(order)+1)}
	for _, def := range order {
		p := &Persona{
			ID:              def.id,
			DisplayName:     def.name,
			Kind:            def.kind,
			SystemPrompt:    systemPrompts[def.id],
			Capabilities:    capabilities[def.id],
			AllowedHandoffs: adjacency[def.id],
		}
		g.Personas = append(g.Personas, p)
		g.byID[def.id] = p
	}

	g.Router = &Persona{
		ID:              RouterID,
		DisplayName:     "Dispatcher",
		Kind:            KindRouter,
		SystemPrompt:    systemPrompts[RouterID],
		Capabilities:    capabilities[RouterID],
		AllowedHandoffs: adjacency[RouterID],
	}
	g.byID[RouterID] = g.Router

	return g
}

// Lookup returns the node with the given id, or nil.
func (g *Graph) Lookup(id string) *Persona { return g.byID[id] }

// Resolve selects the persona to invoke for an optional explicit target.
// Exact id match wins, then a case-insensitive substring match against the
// fixed keyword set; no target or a failed resolution yields the router.
func (g *Graph) Resolve(target string) *Persona {
	if target == "" {
		return g.Router
	}
	if p, ok := g.byID[target]; ok {
		return p
	}
	lowered := strings.ToLower(target)
	for _, kw := range resolveKeywords {
		if strings.Contains(lowered, kw.substr) {
			return g.byID[kw.id]
		}
	}
	return g.Router
}

// ResolveStrict is Resolve without the router fallback; unknown ids return
// an error naming the missing persona. Used by chained execution where an
// absent persona must abort the whole request.
func (g *Graph) ResolveStrict(target string) (*Persona, error) {
	if p := g.Resolve(target); p != g.Router || target == RouterID {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, target)
}

// ToolSurface returns the tool identifiers the persona exposes.
func (g *Graph) ToolSurface(p *Persona) []Capability {
	out := make([]Capability, len(p.Capabilities))
	copy(out, p.Capabilities)
	return out
}

// ErrUnknownPersona reports a requested persona id absent from the graph.
var ErrUnknownPersona = fmt.Errorf("unknown persona")
