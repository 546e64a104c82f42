package world

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/agentcity/logging"
)

// Metrics exposes diagnostic counters for the silent-skip event semantics so
// tests can observe what would otherwise be invisible no-ops.
type Metrics struct {
	SkippedEvents  atomic.Int64 // events referencing an unknown agent id
	AppliedEvents  atomic.Int64
	PersistErrors  atomic.Int64
	BatchesApplied atomic.Int64
}

// Options configure a Store.
type Options struct {
	// Backend receives best-effort durable copies of every room. Optional;
	// without one the store is purely in-memory.
	Backend Backend
	// Logger defaults to a no-op logger.
	Logger logging.Logger
}

// Store is the event-sourced world-state store. The in-memory cache is the
// source of truth; the durable backend is advisory. All mutation for a given
// room is serialized through a per-room mutex created on demand, so
// concurrent batches for one room never interleave while distinct rooms
// proceed independently.
//
// Construct one Store at the composition root and inject it; it is safe for
// concurrent use.
type Store struct {
	backend Backend
	logger  logging.Logger

	mu    sync.Mutex
	cache map[string]*State
	locks map[string]*sync.Mutex

	metrics Metrics
}

// NewStore constructs a Store with optional overrides.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		backend: opts.Backend,
		logger:  opts.Logger,
		cache:   make(map[string]*State),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Metrics returns the store's diagnostic counters.
func (s *Store) Metrics() *Metrics { return &s.metrics }

// MetricsSnapshot is a point-in-time copy of the store counters, suitable
// for JSON export.
type MetricsSnapshot struct {
	AppliedEvents  int64 `json:"applied_events"`
	SkippedEvents  int64 `json:"skipped_events"`
	PersistErrors  int64 `json:"persist_errors"`
	BatchesApplied int64 `json:"batches_applied"`
}

// MetricsSnapshot copies the current counter values.
func (s *Store) MetricsSnapshot() MetricsSnapshot {
	return MetricsSnapshot{
		AppliedEvents:  s.metrics.AppliedEvents.Load(),
		SkippedEvents:  s.metrics.SkippedEvents.Load(),
		PersistErrors:  s.metrics.PersistErrors.Load(),
		BatchesApplied: s.metrics.BatchesApplied.Load(),
	}
}

// roomLock returns the mutex guarding roomID, creating it on first use.
func (s *Store) roomLock(roomID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[roomID] = l
	}
	return l
}

// Get returns a snapshot of the room's state, materializing defaults on
// first access for an unseen id. Repeated calls with no intervening writes
// return equal snapshots. The returned state is a deep copy; callers cannot
// mutate the cache through it.
func (s *Store) Get(roomID string) *State {
	l := s.roomLock(roomID)
	l.Lock()
	defer l.Unlock()
	return s.loadLocked(roomID).Clone()
}

// loadLocked returns the cached state for roomID, falling back to the
// durable backend, then to default materialization (which persists the
// fresh snapshot best-effort). Caller must hold the room lock.
func (s *Store) loadLocked(roomID string) *State {
	s.mu.Lock()
	st, ok := s.cache[roomID]
	s.mu.Unlock()
	if ok {
		return st
	}

	if s.backend != nil {
		loaded, err := s.backend.Load(roomID)
		if err == nil {
			s.putCache(roomID, loaded)
			return loaded
		}
		if err != ErrNotFound {
			s.logger.Warn("world.load.failed", "room_id", roomID, "error", err.Error())
		}
	}

	st = DefaultState()
	s.putCache(roomID, st)
	s.persist(roomID, st)
	s.logger.Info("world.materialized", "room_id", roomID)
	return st
}

func (s *Store) putCache(roomID string, st *State) {
	s.mu.Lock()
	s.cache[roomID] = st
	s.mu.Unlock()
}

// persist writes st to the durable backend best-effort. Failures are logged
// and swallowed; they must never fail the request and never trigger a
// per-call backend switch.
func (s *Store) persist(roomID string, st *State) {
	if s.backend == nil {
		return
	}
	if err := s.backend.Save(roomID, st); err != nil {
		s.metrics.PersistErrors.Add(1)
		s.logger.Error("world.persist.failed", "room_id", roomID, "error", err.Error())
	}
}

// ApplyEvents applies the batch in order, stamps lastUpdated once, and
// persists the result. Events referencing unknown agent ids are silent
// no-ops (counted in Metrics); unknown event kinds are ignored.
func (s *Store) ApplyEvents(roomID string, events []Event) {
	l := s.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	st := s.loadLocked(roomID)
	for _, ev := range events {
		if apply(st, ev) {
			s.metrics.AppliedEvents.Add(1)
		} else {
			s.metrics.SkippedEvents.Add(1)
			s.logger.Debug("world.event.skipped", "room_id", roomID)
		}
	}
	st.LastUpdated = time.Now().UTC().Format(time.RFC3339Nano)
	s.metrics.BatchesApplied.Add(1)
	s.persist(roomID, st)
}

// Clear removes cached and persisted state for the room; a subsequent Get
// re-materializes defaults.
func (s *Store) Clear(roomID string) {
	l := s.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	delete(s.cache, roomID)
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.Delete(roomID); err != nil {
			s.metrics.PersistErrors.Add(1)
			s.logger.Error("world.clear.failed", "room_id", roomID, "error", err.Error())
		}
	}
}
