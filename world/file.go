package world

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores one pretty-printed JSON document per room in a data
// directory, named <roomID>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the data directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create room data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(roomID string) string {
	return filepath.Join(b.dir, roomID+".json")
}

// Load reads and decodes the room document. Missing or malformed files are
// reported as ErrNotFound.
func (b *FileBackend) Load(roomID string) (*State, error) {
	data, err := os.ReadFile(b.path(roomID))
	if err != nil {
		return nil, ErrNotFound
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, ErrNotFound
	}
	return &st, nil
}

// Save writes the room document atomically via a temp file rename.
func (b *FileBackend) Save(roomID string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode world state: %w", err)
	}
	tmp := b.path(roomID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write world state: %w", err)
	}
	if err := os.Rename(tmp, b.path(roomID)); err != nil {
		return fmt.Errorf("rename world state: %w", err)
	}
	return nil
}

// Delete removes the room document; deleting an absent room is not an error.
func (b *FileBackend) Delete(roomID string) error {
	if err := os.Remove(b.path(roomID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete world state: %w", err)
	}
	return nil
}
