package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/doge48/game/engine"
	"github.com/wricardo/mcp-training/doge48/game/service"
	"github.com/wricardo/mcp-training/doge48/transport/websocket"
)

// Server exposes a GameService over REST and, when a hub is given, pushes
// every state change to WebSocket watchers.
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates the router. hub may be nil to disable /ws and broadcasts.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router.PathPrefix("/api").Subrouter()

	r.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	// Registered before {id} so "unified" is not taken as a session ID
	r.HandleFunc("/sessions/unified", s.handleUnifiedSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)

	r.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/move", s.handleMove).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/bulk-move", s.handleBulkMove).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods(http.MethodGet)

	r.HandleFunc("/configs", s.handleListConfigs).Methods(http.MethodGet)
	r.HandleFunc("/configs", s.handleCreateConfig).Methods(http.MethodPost)
	r.HandleFunc("/configs/{name}", s.handleGetConfig).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handle mounts an extra handler on the router, e.g. the MCP endpoint
func (s *Server) Handle(path string, handler http.Handler) {
	s.router.Handle(path, handler)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeError responds with the status statusFor picks for err
func writeError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownDirection), errors.Is(err, service.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched when optional is set.
func decodeBody(r *http.Request, v interface{}, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return errors.New("request body required")
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// publish pushes a new state and an optional event to the session's watchers
func (s *Server) publish(sessionID string, state *engine.GameState, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	if state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
	if event != "" {
		s.hub.BroadcastEvent(sessionID, event, data)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
	}
	if err := decodeBody(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.ConfigID)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("[SESSION] created session=%s config=%s", info.ID, info.ConfigName)
	respondJSON(w, http.StatusCreated, info)
}

// sessionLess orders sessions by the "sort" key (created or accessed) and "order"
func sessionLess(sessions []*service.SessionInfo, sortBy, order string) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		if sortBy == "created" {
			a, b = sessions[i].CreatedAt, sessions[j].CreatedAt
		}
		if order == "asc" {
			return a.Before(b)
		}
		return a.After(b)
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	sortBy := q.Get("sort")
	if sortBy != "created" {
		sortBy = "accessed"
	}
	order := q.Get("order")
	if order != "asc" {
		order = "desc"
	}
	sort.Slice(sessions, sessionLess(sessions, sortBy, order))

	total := len(sessions)
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n < total {
		sessions = sessions[:n]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.service.DeleteSession(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", id),
	})
}

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Direction string `json:"direction"`
		Reset     bool   `json:"reset,omitempty"`
	}
	if err := decodeBody(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Move(r.Context(), id, req.Direction, req.Reset)
	if err != nil {
		writeError(w, err)
		return
	}

	if st := result.Step; st != nil {
		s.publish(id, result.GameState, websocket.EventMove, st)
		status := "NOOP"
		if result.Success {
			status = "OK"
		}
		log.Printf("[MOVE] session=%s dir=%s moved=%d merged=%d tiles=%d->%d max=%d status=%s",
			id, st.Dir, st.Moved, st.Merged, st.TilesBefore, st.TilesAfter, engine.RankValue(st.MaxRank), status)
	} else {
		s.publish(id, result.GameState, "", nil)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Moves []string `json:"moves"`
		Reset bool     `json:"reset,omitempty"`
	}
	if err := decodeBody(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Moves) == 0 {
		respondError(w, http.StatusBadRequest, "moves must not be empty")
		return
	}

	result, err := s.service.BulkMove(r.Context(), id, req.Moves, req.Reset)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(id, result.GameState, websocket.EventBulkMove, result.Steps)

	stop := result.StopReasonCode
	if stop == "" {
		stop = "none"
	}
	log.Printf("[BULK] session=%s exec=%d/%d changed=%d merged=%d stop=%s tiles=%d->%d",
		id, result.MovesExecuted, result.RequestedMoves, result.ChangedMoves, result.TotalMerged,
		stop, result.StartTiles, result.EndTiles)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(id, state, websocket.EventReset, nil)
	log.Printf("[RESET] session=%s tiles=%d", id, state.TileCount)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

// historyOptions reads page, limit and order, ignoring values that do not parse
func historyOptions(r *http.Request) service.HistoryOptions {
	q := r.URL.Query()
	opts := service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		opts.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		opts.Limit = l
	}
	if o := q.Get("order"); o == "asc" || o == "desc" {
		opts.Order = o
	}
	return opts
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], historyOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	cfg, err := s.service.LoadConfig(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg engine.GameConfig
	if err := decodeBody(r, &cfg, false); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if cfg.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	if err := s.service.SaveConfig(r.Context(), cfg.Name, &cfg); err != nil {
		respondError(w, statusFor(err), fmt.Sprintf("Failed to save config: %v", err))
		return
	}
	log.Printf("[CONFIG] saved config=%s grid=%d", cfg.Name, cfg.GridSize)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": cfg.Name,
	})
}

// handleUnifiedSessions returns several sessions in one payload for side-by-side views.
// Filter with ?sessionIds=a,b or ?configName=classic; unknown IDs are skipped.
func (s *Server) handleUnifiedSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var sessions []*service.SessionInfo
	if ids := q.Get("sessionIds"); ids != "" {
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id == "" {
				continue
			}
			if info, err := s.service.GetSession(r.Context(), id); err == nil {
				sessions = append(sessions, info)
			}
		}
	} else {
		all, err := s.service.ListSessions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		configName := q.Get("configName")
		for _, info := range all {
			if configName == "" || info.ConfigName == configName {
				sessions = append(sessions, info)
			}
		}
	}

	configName, gridSize, bestValue := "", 0, 0
	if len(sessions) > 0 {
		configName = sessions[0].ConfigName
		if sessions[0].GameConfig != nil {
			gridSize = sessions[0].GameConfig.GridSize
		}
	}

	entries := make([]map[string]interface{}, 0, len(sessions))
	for _, info := range sessions {
		if info.GameState != nil && info.GameState.MaxValue > bestValue {
			bestValue = info.GameState.MaxValue
		}
		entries = append(entries, map[string]interface{}{
			"session_id":    info.ID,
			"config_name":   info.ConfigName,
			"game_state":    info.GameState,
			"created_at":    info.CreatedAt,
			"last_accessed": info.LastAccessedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_name": configName,
		"grid_size":   gridSize,
		"best_value":  bestValue,
		"sessions":    entries,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket not enabled", http.StatusServiceUnavailable)
		return
	}
	if _, err := s.service.GetSession(r.Context(), id); err != nil {
		http.Error(w, "Invalid session", statusFor(err))
		return
	}
	s.hub.ServeWS(w, r, id)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"sessions": len(sessions),
	})
}
