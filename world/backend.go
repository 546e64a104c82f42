package world

import "fmt"

var (
	// ErrNotFound is returned by backends when no persisted state exists
	// for the requested room.
	ErrNotFound = fmt.Errorf("world state not found")
)

// Backend persists one JSON world-state document per room. Implementations
// must be safe for concurrent use across distinct rooms; the store serializes
// calls for the same room.
//
// Load returns ErrNotFound for unknown rooms. A malformed persisted document
// is reported as ErrNotFound as well so the store can materialize defaults
// instead of crashing.
type Backend interface {
	Load(roomID string) (*State, error)
	Save(roomID string, st *State) error
	Delete(roomID string) error
}
