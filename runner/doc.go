// Package runner implements the orchestration layer: it creates run contexts,
// drives agent execution, applies event side effects (session state deltas),
// persists conversation history and manages run lifecycle / cancellation.
package runner
