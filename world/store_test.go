package world

import (
	"errors"
	"sync"
	"testing"
)

func TestStoreGetMaterializesDefaults(t *testing.T) {
	s := NewStore()

	st := s.Get("fresh-room")
	if len(st.Agents) != 6 {
		t.Fatalf("expected default scene, got %d agents", len(st.Agents))
	}

	// The returned snapshot is a copy; mutating it must not leak back.
	st.Agents[0].Mood = "angry"
	if again := s.Get("fresh-room"); again.Agents[0].Mood == "angry" {
		t.Error("Get must return defensive copies")
	}
}

func TestStoreApplyEvents(t *testing.T) {
	s := NewStore()

	s.ApplyEvents("room", []Event{
		AgentMoved{AgentID: "artist", X: 10, Y: 20},
		TaskStarted{AgentID: "artist", Task: "sketching", Mood: "creative"},
		MoodChanged{AgentID: "doctor", Mood: "thinking"},
	})

	st := s.Get("room")
	artist := st.Agent("artist")
	if artist.X != 10 || artist.Y != 20 {
		t.Errorf("move not applied: %+v", artist)
	}
	if artist.CurrentTask == nil || *artist.CurrentTask != "sketching" {
		t.Error("task not applied")
	}
	if st.Agent("doctor").Mood != "thinking" {
		t.Error("mood not applied")
	}
	if got := s.Metrics().AppliedEvents.Load(); got != 3 {
		t.Errorf("expected 3 applied events, got %d", got)
	}
}

func TestStoreTaskFinishedMoodFallback(t *testing.T) {
	s := NewStore()

	s.ApplyEvents("room", []Event{
		TaskStarted{AgentID: "engineer", Task: "builds", Mood: "focused"},
		TaskFinished{AgentID: "engineer"},
	})

	eng := s.Get("room").Agent("engineer")
	if eng.CurrentTask != nil {
		t.Error("task should be cleared")
	}
	if eng.Mood != "calm" {
		t.Errorf("expected mood fallback to calm, got %q", eng.Mood)
	}
}

func TestStoreUnknownAgentIsSilentNoOp(t *testing.T) {
	s := NewStore()
	before := s.Get("room")

	s.ApplyEvents("room", []Event{
		AgentMoved{AgentID: "ghost", X: 1, Y: 1},
		MoodChanged{AgentID: "phantom", Mood: "spooky"},
	})

	after := s.Get("room")
	for i := range before.Agents {
		if before.Agents[i].X != after.Agents[i].X || before.Agents[i].Mood != after.Agents[i].Mood {
			t.Fatal("unknown-agent events must not touch state")
		}
	}
	if got := s.Metrics().SkippedEvents.Load(); got != 2 {
		t.Errorf("expected 2 skipped events, got %d", got)
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.ApplyEvents("room", []Event{MoodChanged{AgentID: "artist", Mood: "gloomy"}})

	s.Clear("room")

	if s.Get("room").Agent("artist").Mood != "creative" {
		t.Error("clear must re-materialize defaults")
	}
}

// failingBackend always errors; the store must log and continue.
type failingBackend struct{}

func (failingBackend) Load(string) (*State, error) { return nil, errors.New("boom") }
func (failingBackend) Save(string, *State) error   { return errors.New("boom") }
func (failingBackend) Delete(string) error         { return errors.New("boom") }

func TestStorePersistErrorsAreSwallowed(t *testing.T) {
	s := NewStore(func(o *Options) { o.Backend = failingBackend{} })

	s.ApplyEvents("room", []Event{MoodChanged{AgentID: "artist", Mood: "upbeat"}})

	if s.Get("room").Agent("artist").Mood != "upbeat" {
		t.Error("cache must stay authoritative on persistence failure")
	}
	if s.Metrics().PersistErrors.Load() == 0 {
		t.Error("persist errors must be counted")
	}
}

func TestStoreConcurrentApply(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.ApplyEvents("room", []Event{
				AgentMoved{AgentID: "athlete", X: float64(n), Y: float64(n)},
			})
		}(i)
	}
	wg.Wait()

	if got := s.Metrics().AppliedEvents.Load(); got != 50 {
		t.Errorf("expected 50 applied events under contention, got %d", got)
	}
	a := s.Get("room").Agent("athlete")
	if a.X != a.Y {
		t.Errorf("partial write observed: x=%v y=%v", a.X, a.Y)
	}
}
