// Package api serves the world graph over HTTP. GET endpoints are public
// read-only observation; POST endpoints form the admin control plane and
// require a bearer token. A websocket stream pushes tick summaries to a
// bounded set of clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/percy-raskova/babylon-sub002/internal/config"
	"github.com/percy-raskova/babylon-sub002/internal/engine"
	"github.com/percy-raskova/babylon-sub002/internal/metrics"
	"github.com/percy-raskova/babylon-sub002/internal/narrative"
	"github.com/percy-raskova/babylon-sub002/internal/persistence"
	"github.com/percy-raskova/babylon-sub002/internal/world"
)

const maxStreamClients = 8

// Server serves one engine's world over HTTP.
type Server struct {
	Eng       *engine.Engine
	Cfg       *config.Config
	Store     *persistence.DB
	Collector *metrics.Collector
	Narrator  *narrative.Narrator
	LLM       *narrative.Client
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST disabled.
	Log       *slog.Logger

	httpSrv *http.Server

	// Cached bulletin, regenerated at most once per tick.
	bulletinMu     sync.Mutex
	cachedBulletin *narrative.Bulletin
	bulletinTick   uint64

	streamMu sync.Mutex
	streams  map[*websocket.Conn]chan []byte
}

// Handler builds the full route table wrapped in CORS.
func (s *Server) Handler() http.Handler {
	bulletinLimiter := NewRateLimiter(30, time.Hour)

	mux := http.NewServeMux()

	// Public observation endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/entities", s.handleEntities)
	mux.HandleFunc("/api/v1/entity/", s.handleEntityDetail)
	mux.HandleFunc("/api/v1/edges", s.handleEdges)
	mux.HandleFunc("/api/v1/economy", s.handleEconomy)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/bulletin", RateLimitMiddleware(bulletinLimiter, s.handleBulletin))
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin control plane.
	mux.HandleFunc("/api/v1/control", s.adminOnly(s.handleControl))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/crisis", s.adminOnly(s.handleCrisis))

	return corsMiddleware(mux)
}

// Start begins serving in a goroutine. Shutdown stops it.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}
	s.log().Info("http api starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("http server error", "error", err)
		}
	}()
}

// Shutdown closes the stream clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeStreams()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// allowedOrigins is the browser-origin allowlist shared by CORS and the
// websocket upgrader. BABYLON_CORS_ORIGINS extends it with a
// comma-separated list; localhost dev servers are always allowed.
var allowedOrigins = buildAllowedOrigins()

func buildAllowedOrigins() map[string]bool {
	origins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("BABYLON_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins[origin] = true
			}
		}
	}
	return origins
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer auth on POST requests. GET passes through for
// endpoints that serve both.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no BABYLON_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func poolRatio(snap world.Snapshot) float64 {
	initial := snap.Economy["initial_rent_pool"]
	if initial <= 0 {
		return 0
	}
	return snap.Economy["rent_pool"] / initial
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, run := s.Eng.Snapshot()

	active := 0
	for _, n := range snap.Nodes {
		if n.Kind != "entity" {
			continue
		}
		if on, ok := n.Attrs["active"].(bool); ok && on {
			active++
		}
	}

	status := map[string]any{
		"name":               "Babylon",
		"run_id":             run.RunID,
		"tick":               snap.Tick,
		"sim_date":           engine.SimDate(snap.Tick, s.Cfg.Simulation.WeeksPerYear),
		"playing":            s.Eng.Playing(),
		"speed":              s.Eng.Speed(),
		"active_entities":    active,
		"pool_ratio":         poolRatio(snap),
		"super_wage_rate":    snap.Economy["super_wage_rate"],
		"repression_level":   snap.Economy["repression_level"],
		"decomposition_done": run.DecompositionDone,
		"terminal_outcome":   run.TerminalOutcome,
	}
	if s.Collector != nil {
		status["event_counts"] = s.Collector.Counts()
	}
	writeJSON(w, status)
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.Eng.Snapshot()
	result := make([]world.NodeRecord, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if n.Kind == "entity" {
			result = append(result, n)
		}
	}
	writeJSON(w, result)
}

func (s *Server) handleEntityDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "missing entity id", http.StatusBadRequest)
		return
	}
	id := parts[4]

	snap, _ := s.Eng.Snapshot()
	var node *world.NodeRecord
	for i := range snap.Nodes {
		if snap.Nodes[i].ID == id && snap.Nodes[i].Kind == "entity" {
			node = &snap.Nodes[i]
			break
		}
	}
	if node == nil {
		http.Error(w, "entity not found", http.StatusNotFound)
		return
	}

	var incident []world.EdgeRecord
	for _, e := range snap.Edges {
		if e.Source == id || e.Target == id {
			incident = append(incident, e)
		}
	}

	writeJSON(w, map[string]any{
		"node":  node,
		"edges": incident,
	})
}

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.Eng.Snapshot()
	writeJSON(w, snap.Edges)
}

func (s *Server) handleEconomy(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.Eng.Snapshot()
	ratio := poolRatio(snap)

	// Band label from the pool thresholds alone. The policy switch also
	// weighs tension, so this is the observer's view, not the verdict.
	band := "steady"
	switch {
	case ratio < s.Cfg.Pool.CriticalRatio:
		band = "crisis"
	case ratio < s.Cfg.Pool.LowRatio:
		band = "austerity"
	case ratio >= s.Cfg.Pool.HighRatio:
		band = "bribery"
	}

	var totalFlow, aggregateTension float64
	for _, e := range snap.Edges {
		if v, ok := e.Attrs["value_flow"].(float64); ok {
			totalFlow += v
		}
		if v, ok := e.Attrs["tension"].(float64); ok {
			aggregateTension += v
		}
	}

	writeJSON(w, map[string]any{
		"rent_pool":         snap.Economy["rent_pool"],
		"initial_rent_pool": snap.Economy["initial_rent_pool"],
		"pool_ratio":        ratio,
		"pool_band":         band,
		"super_wage_rate":   snap.Economy["super_wage_rate"],
		"repression_level":  snap.Economy["repression_level"],
		"total_value_flow":  totalFlow,
		"aggregate_tension": aggregateTension,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := s.Store.RecentEvents(s.Eng.RunID(), limit)
	if err != nil {
		s.log().Error("events query failed", "error", err)
		writeJSON(w, []persistence.StoredEvent{})
		return
	}
	if rows == nil {
		rows = []persistence.StoredEvent{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	rows, err := s.Store.StatsHistory(s.Eng.RunID(), limit)
	if err != nil {
		s.log().Error("stats history query failed", "error", err)
		writeJSON(w, []persistence.StatRow{})
		return
	}
	if rows == nil {
		rows = []persistence.StatRow{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, run := s.Eng.Snapshot()
	writeJSON(w, map[string]any{
		"graph":     snap,
		"run_state": run,
	})
}

func (s *Server) handleBulletin(w http.ResponseWriter, r *http.Request) {
	s.bulletinMu.Lock()
	defer s.bulletinMu.Unlock()

	tick := s.Eng.Tick()
	if s.cachedBulletin != nil && s.bulletinTick == tick {
		writeJSON(w, s.cachedBulletin)
		return
	}

	bulletin, err := narrative.GenerateBulletin(s.LLM, s.buildBulletinData())
	if err != nil {
		s.log().Error("bulletin generation failed", "error", err)
		http.Error(w, "bulletin generation failed", http.StatusInternalServerError)
		return
	}

	s.cachedBulletin = bulletin
	s.bulletinTick = tick
	writeJSON(w, bulletin)
}

func (s *Server) buildBulletinData() *narrative.BulletinData {
	snap, run := s.Eng.Snapshot()

	data := &narrative.BulletinData{
		SimDate:         engine.SimDate(snap.Tick, s.Cfg.Simulation.WeeksPerYear),
		Tick:            snap.Tick,
		PoolRatio:       poolRatio(snap),
		WageRate:        snap.Economy["super_wage_rate"],
		RepressionLevel: snap.Economy["repression_level"],
		Decision:        run.TerminalOutcome,
	}

	for _, n := range snap.Nodes {
		if n.Kind != "entity" {
			continue
		}
		if on, ok := n.Attrs["active"].(bool); !ok || !on {
			continue
		}
		data.ActiveEntities++
		if wealth, ok := n.Attrs["wealth"].(float64); ok {
			data.TotalWealth += wealth
		}
	}
	for _, e := range snap.Edges {
		if v, ok := e.Attrs["tension"].(float64); ok {
			data.AggregateTension += v
		}
	}

	if s.Collector != nil {
		data.EventCounts = s.Collector.Counts()
	}
	if s.Narrator != nil {
		for _, item := range s.Narrator.Recent(8) {
			data.RecentProse = append(data.RecentProse, item.Prose)
		}
	}
	return data
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Intent string `json:"intent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	intent := strings.ToUpper(strings.TrimSpace(req.Intent))
	s.log().Info("control request", "intent", intent)

	switch intent {
	case "STEP":
		if s.Eng.Playing() {
			http.Error(w, "pause before stepping", http.StatusConflict)
			return
		}
		summary, err := s.Eng.StepOnce()
		if err != nil {
			s.log().Error("manual step failed", "error", err)
			http.Error(w, "step failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"intent": intent, "tick": summary.Tick, "events": len(summary.Events)})

	case "PLAY":
		s.Eng.Play()
		writeJSON(w, map[string]any{"intent": intent, "playing": true, "tick": s.Eng.Tick()})

	case "PAUSE":
		s.Eng.Pause()
		writeJSON(w, map[string]any{"intent": intent, "playing": false, "tick": s.Eng.Tick()})

	case "RESET":
		if err := s.Eng.Reset(); err != nil {
			if errors.Is(err, engine.ErrNoRebuild) {
				http.Error(w, "reset unavailable: no scenario rebuild wired", http.StatusConflict)
				return
			}
			s.log().Error("reset failed", "error", err)
			http.Error(w, "reset failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"intent": intent, "tick": s.Eng.Tick(), "run_id": s.Eng.RunID()})

	default:
		http.Error(w, "unknown intent (want STEP, PLAY, PAUSE, or RESET)", http.StatusBadRequest)
	}
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed <= 0 || req.Speed > 1000 {
			http.Error(w, "speed must be in (0, 1000]", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		s.log().Info("speed changed", "speed", req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleCrisis injects an exogenous superwage crisis, arming the
// decomposition clock as if the policy switch had declared one.
func (s *Server) handleCrisis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "external_shock"
	}

	armed := s.Eng.RaiseSuperwageCrisis(reason)
	s.log().Info("crisis intervention", "reason", reason, "armed", armed)

	details := "superwage crisis armed"
	if !armed {
		details = "crisis clock already armed"
	}
	writeJSON(w, map[string]any{
		"armed":   armed,
		"reason":  reason,
		"tick":    s.Eng.Tick(),
		"details": details,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowedOrigins[origin]
	},
}

// handleStream upgrades to a websocket and pushes tick summaries until the
// client disconnects. The client set is bounded.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Debug("stream upgrade failed", "error", err)
		return
	}

	ch := make(chan []byte, 16)
	s.streamMu.Lock()
	if s.streams == nil {
		s.streams = make(map[*websocket.Conn]chan []byte)
	}
	if len(s.streams) >= maxStreamClients {
		s.streamMu.Unlock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "stream capacity reached"))
		conn.Close()
		return
	}
	s.streams[conn] = ch
	s.streamMu.Unlock()

	s.log().Info("stream client connected", "clients", s.streamCount())
	go streamWriter(conn, ch)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.dropStream(conn)
}

func streamWriter(conn *websocket.Conn, ch chan []byte) {
	for msg := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	conn.Close()
}

// BroadcastTick fans a tick summary out to every stream client. A client
// whose buffer is full is dropped rather than allowed to stall the tick.
func (s *Server) BroadcastTick(summary engine.TickSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}

	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for conn, ch := range s.streams {
		select {
		case ch <- payload:
		default:
			s.log().Debug("stream client lagging, dropping")
			delete(s.streams, conn)
			close(ch)
		}
	}
}

func (s *Server) streamCount() int {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return len(s.streams)
}

func (s *Server) dropStream(conn *websocket.Conn) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	if ch, ok := s.streams[conn]; ok {
		delete(s.streams, conn)
		close(ch)
	}
}

func (s *Server) closeStreams() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	for conn, ch := range s.streams {
		delete(s.streams, conn)
		close(ch)
	}
}
