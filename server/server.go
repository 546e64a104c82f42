// Package server exposes the city over HTTP and WebSocket: room messages,
// world-state reads, collaborative tasks and a read-only state push channel.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/agentcity"
	"github.com/hupe1980/agentcity/agent"
	"github.com/hupe1980/agentcity/logging"
	"github.com/hupe1980/agentcity/persona"
	"github.com/hupe1980/agentcity/world"
)

// Options configure the Server.
type Options struct {
	Logger logging.Logger
}

// Server wires the city façade to HTTP handlers.
type Server struct {
	city     *agentcity.City
	logger   logging.Logger
	upgrader websocket.Upgrader
}

// New constructs a Server around the given city.
func New(city *agentcity.City, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Server{
		city:   city,
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Handler returns the full route table wrapped in CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/rooms/{room_id}/message", s.handleMessage)
	mux.HandleFunc("GET /api/rooms/{room_id}/state", s.handleState)
	mux.HandleFunc("DELETE /api/rooms/{room_id}", s.handleClearRoom)
	mux.HandleFunc("POST /api/rooms/{room_id}/collaborative-task", s.handleCollaborativeTask)
	mux.HandleFunc("POST /api/analyze-task", s.handleAnalyzeTask)
	mux.HandleFunc("GET /ws/rooms/{room_id}", s.handleWS)
	return corsMiddleware(mux)
}

// corsMiddleware allows all origins; the front end runs on another port in
// development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type messageRequest struct {
	Message     string `json:"message"`
	TargetAgent string `json:"target_agent,omitempty"`
}

type messageResponse struct {
	Output     string       `json:"output"`
	WorldState *world.State `json:"world_state"`
	AgentUsed  string       `json:"agent_used"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	output, personaID, err := s.city.SendMessage(r.Context(), roomID, req.Message, req.TargetAgent)
	if err != nil {
		s.logger.Error("server.message.error", "room_id", roomID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Output:     output,
		WorldState: s.city.WorldState(roomID),
		AgentUsed:  personaID,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	writeJSON(w, http.StatusOK, map[string]any{"world_state": s.city.WorldState(roomID)})
}

func (s *Server) handleClearRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	if err := s.city.ClearRoom(roomID); err != nil {
		s.logger.Error("server.clear.error", "room_id", roomID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "room_id": roomID})
}

type collaborativeTaskRequest struct {
	Description    string   `json:"description"`
	SelectedAgents []string `json:"selected_agents"`
	AgentOrder     []string `json:"agent_order"`
}

type collaborativeTaskResponse struct {
	Results         []agent.StepResult `json:"results"`
	Summary         string             `json:"summary"`
	FinalWorldState *world.State       `json:"final_world_state"`
}

func (s *Server) handleCollaborativeTask(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")

	var req collaborativeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" || len(req.AgentOrder) == 0 {
		writeError(w, http.StatusBadRequest, "description and agent_order are required")
		return
	}

	steps := make([]agent.ChainStep, len(req.AgentOrder))
	for i, id := range req.AgentOrder {
		steps[i] = agent.ChainStep{Persona: id, Instruction: req.Description}
	}

	result, err := s.city.CollaborativeTask(r.Context(), roomID, req.Description, steps)
	if err != nil {
		if errors.Is(err, persona.ErrUnknownPersona) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("server.task.error", "room_id", roomID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, collaborativeTaskResponse{
		Results:         result.Results,
		Summary:         result.Summary,
		FinalWorldState: result.FinalWorldState,
	})
}

type analyzeTaskRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleAnalyzeTask(w http.ResponseWriter, r *http.Request) {
	var req analyzeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description must not be empty")
		return
	}
	writeJSON(w, http.StatusOK, s.city.AnalyzeTask(r.Context(), req.Description))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"active_runs": s.city.Runner().ActiveRuns(),
		"world":       s.city.Metrics(),
	})
}

// handleWS pushes the current world state once on connect, then echoes text
// frames. No state mutation happens over this channel.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("server.ws.upgrade.error", "room_id", roomID, "error", err.Error())
		return
	}
	defer conn.Close()

	initial := map[string]any{"type": "world_state", "data": s.city.WorldState(roomID)}
	if err := conn.WriteJSON(initial); err != nil {
		return
	}

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		echo := map[string]any{"type": "echo", "data": string(msg)}
		if err := conn.WriteJSON(echo); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
