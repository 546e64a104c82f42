// Package agent contains the concrete agent implementations that drive the
// city: PersonaAgent binds a persona definition to a language model and its
// capability tools, ChainAgent executes multi-persona collaborative tasks in
// sequence, and BaseAgent provides shared lifecycle plus hierarchy plumbing.
package agent
