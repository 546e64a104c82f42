package world

// Event is an immutable, ordered instruction to mutate one room's state.
// Concrete event types implement the unexported isEvent marker forming a
// closed set; the store ignores anything else.
type Event interface{ isEvent() }

// AgentMoved sets the matched agent's position.
type AgentMoved struct {
	AgentID string
	X, Y    float64
}

func (AgentMoved) isEvent() {}

// TaskStarted sets the matched agent's current task. Mood is applied only
// when non-empty; the default "focused" fallback on task start belongs to
// the tool layer, not the store.
type TaskStarted struct {
	AgentID string
	Task    string
	Mood    string
}

func (TaskStarted) isEvent() {}

// TaskFinished clears the current task and sets mood to the provided value,
// or "calm" when empty.
type TaskFinished struct {
	AgentID string
	Mood    string
}

func (TaskFinished) isEvent() {}

// MoodChanged sets the matched agent's mood.
type MoodChanged struct {
	AgentID string
	Mood    string
}

func (MoodChanged) isEvent() {}

// apply mutates st according to ev. Events referencing unknown agent ids are
// silent no-ops; the returned bool reports whether the event took effect so
// the store can keep its diagnostic counters honest.
func apply(st *State, ev Event) bool {
	switch e := ev.(type) {
	case AgentMoved:
		a := st.Agent(e.AgentID)
		if a == nil {
			return false
		}
		a.X, a.Y = e.X, e.Y
	case TaskStarted:
		a := st.Agent(e.AgentID)
		if a == nil {
			return false
		}
		task := e.Task
		a.CurrentTask = &task
		if e.Mood != "" {
			a.Mood = e.Mood
		}
	case TaskFinished:
		a := st.Agent(e.AgentID)
		if a == nil {
			return false
		}
		a.CurrentTask = nil
		if e.Mood != "" {
			a.Mood = e.Mood
		} else {
			a.Mood = "calm"
		}
	case MoodChanged:
		a := st.Agent(e.AgentID)
		if a == nil {
			return false
		}
		a.Mood = e.Mood
	default:
		return false
	}
	return true
}
