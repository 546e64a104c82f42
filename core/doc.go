// Package core defines the shared primitives of agentcity: the Agent
// interface, conversational events and content parts, room sessions and
// their store contract, plus the run/tool contexts threaded through persona
// invocations. Higher-level packages (agent, tool, runner, server) build on
// these types without depending on each other.
package core
