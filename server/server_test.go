package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentcity"
	"github.com/hupe1980/agentcity/core"
	"github.com/hupe1980/agentcity/model"
)

func textContent(text string) core.Content {
	return core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}}
}

func newTestServer(t *testing.T) (*httptest.Server, *model.MockModel) {
	t.Helper()
	llm := model.NewMockModel("mock", "mock")
	city := agentcity.New(llm)
	srv := httptest.NewServer(New(city).Handler())
	t.Cleanup(srv.Close)
	return srv, llm
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestMessageEndpoint(t *testing.T) {
	srv, llm := newTestServer(t)
	llm.AddResponse("hello city", "Welcome, traveler.")

	resp := postJSON(t, srv.URL+"/api/rooms/room-1/message", map[string]any{
		"message":      "hello city",
		"target_agent": "artist",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "Welcome, traveler.", body["output"])
	assert.Equal(t, "artist", body["agent_used"])

	ws, ok := body["world_state"].(map[string]any)
	if assert.True(t, ok) {
		agents, _ := ws["agents"].([]any)
		assert.Len(t, agents, 6)
	}
}

func TestMessageEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/rooms/room-1/message", map[string]any{"message": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.NotEmpty(t, body["detail"])
}

func TestStateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/rooms/fresh-room/state")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]map[string]any](t, resp)
	ws := body["world_state"]
	agents, _ := ws["agents"].([]any)
	assert.Len(t, agents, 6)

	env, _ := ws["environment"].(map[string]any)
	assert.Equal(t, "day", env["timeOfDay"])
}

func TestClearRoomEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/rooms/room-1", nil)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "cleared", body["status"])
	assert.Equal(t, "room-1", body["room_id"])
}

func TestCollaborativeTaskEndpoint(t *testing.T) {
	srv, llm := newTestServer(t)
	llm.EnqueueResponse(model.Response{Content: textContent("numbers crunched")})
	llm.EnqueueResponse(model.Response{Content: textContent("sketch finished")})

	resp := postJSON(t, srv.URL+"/api/rooms/room-1/collaborative-task", map[string]any{
		"description":     "prepare the exhibition",
		"selected_agents": []string{"mathematician", "artist"},
		"agent_order":     []string{"mathematician", "artist"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	results, _ := body["results"].([]any)
	assert.Len(t, results, 2)

	summary, _ := body["summary"].(string)
	assert.Contains(t, summary, "## Task Summary")
	assert.Contains(t, summary, "Mathematician, Artist")
	assert.NotNil(t, body["final_world_state"])
}

func TestCollaborativeTaskUnknownPersona(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/rooms/room-1/collaborative-task", map[string]any{
		"description": "impossible",
		"agent_order": []string{"mathematician", "astronaut"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["detail"], "astronaut")
}

func TestCollaborativeTaskValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/rooms/room-1/collaborative-task", map[string]any{
		"description": "no order given",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeTaskEndpoint(t *testing.T) {
	srv, llm := newTestServer(t)
	llm.EnqueueResponse(model.Response{Content: textContent(
		`{"description":"race day","steps":[{"persona":"athlete","instruction":"set the course"}]}`)})

	resp := postJSON(t, srv.URL+"/api/analyze-task", map[string]any{"description": "organize a race"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "race day", body["description"])
	steps, _ := body["steps"].([]any)
	assert.Len(t, steps, 1)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/rooms/room-1/message", nil)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketPushesStateThenEchoes(t *testing.T) {
	srv, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/room-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer conn.Close()

	var initial map[string]any
	assert.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, "world_state", initial["type"])

	data, _ := initial["data"].(map[string]any)
	agents, _ := data["agents"].([]any)
	assert.Len(t, agents, 6)

	assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	var echo map[string]any
	assert.NoError(t, conn.ReadJSON(&echo))
	assert.Equal(t, "echo", echo["type"])
	assert.Equal(t, "ping", echo["data"])
}
