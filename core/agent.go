package core

// Agent defines the interface all agentcity agents implement.
//
// Agents receive input through a RunContext, process it, and emit events to
// communicate results back to the runner. The sub-agent management methods
// support the persona hand-off hierarchy (router at the root, personas as
// children).
//
// Implementations must respect context cancellation and emit events only
// through the provided RunContext.
type Agent interface {
	Name() string
	Description() string
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
}

// AgentInfo carries identifying details about an agent used in contexts and
// events. ID is the stable persona id; Name is the display name.
type AgentInfo struct{ ID, Name string }
