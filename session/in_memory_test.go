package session

import (
	"testing"

	"github.com/hupe1980/agentcity/core"
)

func TestInMemoryStoreLazyGet(t *testing.T) {
	store := NewInMemoryStore()

	sess, err := store.Get("room-1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID != "room-1" || len(sess.Events) != 0 {
		t.Errorf("unexpected fresh session: %+v", sess)
	}
}

func TestInMemoryStoreReturnsClones(t *testing.T) {
	store := NewInMemoryStore()

	sess, _ := store.Get("room-1")
	sess.SetState("k", "local mutation")
	sess.AddEvent(core.NewUserMessageEvent("run-1", "hi"))

	again, _ := store.Get("room-1")
	if _, ok := again.GetState("k"); ok {
		t.Error("mutating a returned session must not affect the store")
	}
	if len(again.GetEvents()) != 0 {
		t.Error("event added to a clone leaked into the store")
	}
}

func TestInMemoryStoreAppendAndDelta(t *testing.T) {
	store := NewInMemoryStore()

	if err := store.AppendEvent("room-1", core.NewUserMessageEvent("run-1", "hi")); err != nil {
		t.Fatal(err)
	}
	if err := store.ApplyDelta("room-1", map[string]any{"output:artist": "a sketch"}); err != nil {
		t.Fatal(err)
	}

	sess, _ := store.Get("room-1")
	if len(sess.GetEvents()) != 1 {
		t.Error("appended event missing")
	}
	if v, _ := sess.GetState("output:artist"); v != "a sketch" {
		t.Errorf("delta not applied: %v", v)
	}
}

func TestInMemoryStoreCreateOverwrites(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.AppendEvent("room-1", core.NewUserMessageEvent("run-1", "hi"))

	if _, err := store.Create("room-1"); err != nil {
		t.Fatal(err)
	}
	sess, _ := store.Get("room-1")
	if len(sess.GetEvents()) != 0 {
		t.Error("Create should reset the session")
	}
}

func TestInMemoryStoreDelete(t *testing.T) {
	store := NewInMemoryStore()
	_ = store.ApplyDelta("room-1", map[string]any{"k": "v"})

	if err := store.Delete("room-1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("room-1"); err != nil {
		t.Error("deleting an absent session should not error")
	}

	sess, _ := store.Get("room-1")
	if _, ok := sess.GetState("k"); ok {
		t.Error("state survived deletion")
	}
}
