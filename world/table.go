package world

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TableBackend persists world state in a remote PostgREST-style table
// (one row per room: room_id, state JSON blob, updated_at). It speaks plain
// REST so no database driver is needed; connectivity is probed once at boot
// via Ping and the backend is then fixed for the process lifetime.
type TableBackend struct {
	baseURL string // e.g. https://xyz.supabase.co
	apiKey  string
	table   string
	client  *http.Client
}

type tableRow struct {
	RoomID    string          `json:"room_id"`
	State     json.RawMessage `json:"state"`
	UpdatedAt string          `json:"updated_at"`
}

// NewTableBackend configures a remote table backend. The table defaults to
// "world_states" when name is empty.
func NewTableBackend(baseURL, apiKey, table string) *TableBackend {
	if table == "" {
		table = "world_states"
	}
	return &TableBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		table:   table,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *TableBackend) endpoint() string {
	return b.baseURL + "/rest/v1/" + b.table
}

func (b *TableBackend) newRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Request, error) {
	var rd *bytes.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Ping verifies the table is reachable. Used once at startup to decide
// whether the remote backend is usable at all.
func (b *TableBackend) Ping(ctx context.Context) error {
	req, err := b.newRequest(ctx, http.MethodGet, b.endpoint()+"?select=room_id&limit=1", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote table unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("remote table returned status %d", resp.StatusCode)
	}
	return nil
}

// Load fetches the row for roomID. Missing rows and undecodable blobs are
// reported as ErrNotFound.
func (b *TableBackend) Load(roomID string) (*State, error) {
	q := b.endpoint() + "?room_id=eq." + url.QueryEscape(roomID) + "&select=room_id,state,updated_at"
	req, err := b.newRequest(context.Background(), http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("load room %s: status %d", roomID, resp.StatusCode)
	}
	var rows []tableRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, ErrNotFound
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	var st State
	if err := json.Unmarshal(rows[0].State, &st); err != nil {
		return nil, ErrNotFound
	}
	return &st, nil
}

// Save upserts the row for roomID.
func (b *TableBackend) Save(roomID string, st *State) error {
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode world state: %w", err)
	}
	row := tableRow{
		RoomID:    roomID,
		State:     blob,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	body, err := json.Marshal([]tableRow{row})
	if err != nil {
		return err
	}
	req, err := b.newRequest(context.Background(), http.MethodPost, b.endpoint(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates")
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("save room %s: %w", roomID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("save room %s: status %d", roomID, resp.StatusCode)
	}
	return nil
}

// Delete removes the row for roomID.
func (b *TableBackend) Delete(roomID string) error {
	q := b.endpoint() + "?room_id=eq." + url.QueryEscape(roomID)
	req, err := b.newRequest(context.Background(), http.MethodDelete, q, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("delete room %s: status %d", roomID, resp.StatusCode)
	}
	return nil
}
