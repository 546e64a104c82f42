package world

import (
	"encoding/json"
	"testing"
)

func TestDefaultState(t *testing.T) {
	st := DefaultState()

	if len(st.Agents) != 6 {
		t.Fatalf("expected 6 agents, got %d", len(st.Agents))
	}
	for i, id := range CanonicalAgentIDs {
		if st.Agents[i].ID != id {
			t.Errorf("agent %d: expected id %q, got %q", i, id, st.Agents[i].ID)
		}
	}

	eng := st.Agent("engineer")
	if eng == nil {
		t.Fatal("engineer missing")
	}
	if eng.X != 550 || eng.Y != 250 || eng.Mood != "focused" {
		t.Errorf("unexpected engineer defaults: %+v", eng)
	}
	if eng.CurrentTask != nil {
		t.Error("fresh agent should have no current task")
	}

	if st.Environment.TimeOfDay != "day" || st.Environment.Weather != "sunny" {
		t.Errorf("unexpected environment defaults: %+v", st.Environment)
	}
	if st.Environment.Rooms == nil || len(st.Environment.Rooms) != 0 {
		t.Errorf("rooms should be an empty slice, got %v", st.Environment.Rooms)
	}
	if st.LastUpdated == "" {
		t.Error("lastUpdated must be stamped")
	}
}

func TestStateAgentUnknown(t *testing.T) {
	st := DefaultState()
	if st.Agent("wizard") != nil {
		t.Error("unknown agent id must return nil")
	}
}

func TestStateClone(t *testing.T) {
	st := DefaultState()
	task := "painting"
	st.Agent("artist").CurrentTask = &task
	st.Agent("artist").Relations["engineer"] = "friend"
	st.Environment.Rooms = []string{"plaza"}

	clone := st.Clone()
	*clone.Agent("artist").CurrentTask = "sleeping"
	clone.Agent("artist").Relations["engineer"] = "rival"
	clone.Environment.Rooms[0] = "market"

	if *st.Agent("artist").CurrentTask != "painting" {
		t.Error("clone shares CurrentTask pointer")
	}
	if st.Agent("artist").Relations["engineer"] != "friend" {
		t.Error("clone shares Relations map")
	}
	if st.Environment.Rooms[0] != "plaza" {
		t.Error("clone shares Rooms slice")
	}
}

func TestStateJSONShape(t *testing.T) {
	b, err := json.Marshal(DefaultState())
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"agents", "environment", "lastUpdated"} {
		if _, ok := m[key]; !ok {
			t.Errorf("serialized state missing %q", key)
		}
	}

	var agents []map[string]json.RawMessage
	if err := json.Unmarshal(m["agents"], &agents); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "name", "role", "x", "y", "mood", "currentTask", "relations"} {
		if _, ok := agents[0][key]; !ok {
			t.Errorf("serialized agent missing %q", key)
		}
	}
}
