package world

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeTable emulates the PostgREST row endpoint: GET with room_id=eq.X
// filters, POST upserts, DELETE removes.
type fakeTable struct {
	mu   sync.Mutex
	rows map[string]tableRow
}

func newFakeTable() *fakeTable { return &fakeTable{rows: map[string]tableRow{}} }

func (f *fakeTable) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Header.Get("apikey") == "" {
			t.Error("missing apikey header")
		}

		roomID := ""
		if eq := r.URL.Query().Get("room_id"); len(eq) > 3 && eq[:3] == "eq." {
			roomID = eq[3:]
		}

		switch r.Method {
		case http.MethodGet:
			out := []tableRow{}
			if roomID == "" {
				for _, row := range f.rows {
					out = append(out, row)
				}
			} else if row, ok := f.rows[roomID]; ok {
				out = append(out, row)
			}
			_ = json.NewEncoder(w).Encode(out)
		case http.MethodPost:
			var in []tableRow
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			for _, row := range in {
				f.rows[row.RoomID] = row
			}
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			delete(f.rows, roomID)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func TestTableBackendRoundTrip(t *testing.T) {
	ft := newFakeTable()
	srv := httptest.NewServer(ft.handler(t))
	defer srv.Close()

	tb := NewTableBackend(srv.URL, "test-key", "")

	if err := tb.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	st := DefaultState()
	st.Agent("athlete").Mood = "exhausted"
	if err := tb.Save("room-9", st); err != nil {
		t.Fatal(err)
	}

	loaded, err := tb.Load("room-9")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Agent("athlete").Mood != "exhausted" {
		t.Error("state did not round-trip through the table")
	}

	if err := tb.Delete("room-9"); err != nil {
		t.Fatal(err)
	}
	if _, err := tb.Load("room-9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTableBackendMissingRowIsNotFound(t *testing.T) {
	ft := newFakeTable()
	srv := httptest.NewServer(ft.handler(t))
	defer srv.Close()

	tb := NewTableBackend(srv.URL, "test-key", "world_states")
	if _, err := tb.Load("ghost-room"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTableBackendPingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tb := NewTableBackend(srv.URL, "bad-key", "")
	if err := tb.Ping(context.Background()); err == nil {
		t.Error("expected ping to fail on 401")
	}
}
