// Package server exposes the bridge's operator HTTP API: health and status
// probes, hardware-free trigger simulation, emotion staging, transaction
// history, and a WebSocket event stream for dashboards.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dayuer/satoshi-bridge/internal/bus"
	"github.com/dayuer/satoshi-bridge/internal/frame"
	"github.com/dayuer/satoshi-bridge/internal/history"
	"github.com/dayuer/satoshi-bridge/internal/orchestrator"
	"github.com/dayuer/satoshi-bridge/internal/serial"
)

// Server is the bridge HTTP API server.
type Server struct {
	host string
	port int

	orch   *orchestrator.Orchestrator
	serial *serial.Manager
	hist   *history.Store
	bus    *bus.Bus

	startTime time.Time
	mux       *http.ServeMux
	srv       *http.Server
	upgrader  websocket.Upgrader
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host    string
	Port    int
	Orch    *orchestrator.Orchestrator
	Serial  *serial.Manager
	History *history.Store
	Bus     *bus.Bus
}

// NewServer creates the HTTP API server.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		host:      cfg.Host,
		port:      cfg.Port,
		orch:      cfg.Orch,
		serial:    cfg.Serial,
		hist:      cfg.History,
		bus:       cfg.Bus,
		startTime: time.Now(),
		mux:       http.NewServeMux(),
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /simulate", s.handleSimulate)
	s.mux.HandleFunc("POST /simulate", s.handleSimulate)
	s.mux.HandleFunc("POST /emotion", s.handleEmotion)
	s.mux.HandleFunc("GET /transactions", s.handleTransactions)
	s.mux.HandleFunc("GET /ws", s.handleWS)

	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.mux,
	}

	log.Printf("[Server] HTTP API on http://%s", s.srv.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleHealth reports process liveness only. Degraded serial state is
// reported via /status and the event stream, never as a health failure.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, corr := s.orch.Status()
	connections := make(map[string]string)
	for role, st := range s.serial.States() {
		connections[role] = string(st)
	}
	writeJSON(w, map[string]any{
		"uptime":        time.Since(s.startTime).Round(time.Second).String(),
		"state":         string(state),
		"inFlight":      corr,
		"connections":   connections,
		"transactions":  s.hist.Len(),
		"busSubscribers": s.bus.SubscriberCount(),
	})
}

// simulateRequest is the JSON body for POST /simulate.
type simulateRequest struct {
	FromAgent string  `json:"fromAgent"`
	ToAgent   string  `json:"toAgent"`
	Amount    float64 `json:"amount"`
	Emotion   string  `json:"emotion"`
}

// handleSimulate synthesizes a trigger event without hardware.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	req := simulateRequest{FromAgent: "simulator", ToAgent: "agent_b", Amount: 1}

	if r.Method == http.MethodPost && r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req) // missing body keeps defaults
	}
	q := r.URL.Query()
	if v := q.Get("fromAgent"); v != "" {
		req.FromAgent = v
	}
	if v := q.Get("toAgent"); v != "" {
		req.ToAgent = v
	}
	if v := q.Get("amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid amount"}`, http.StatusBadRequest)
			return
		}
		req.Amount = amount
	}
	if v := q.Get("emotion"); v != "" {
		req.Emotion = v
	}
	if req.Amount <= 0 {
		http.Error(w, `{"error":"amount must be positive"}`, http.StatusBadRequest)
		return
	}

	ev := frame.NewTriggerEvent(req.FromAgent, req.ToAgent, req.Amount, req.Emotion)
	s.orch.Inject(ev)
	writeJSON(w, map[string]string{"correlationId": ev.CorrelationID})
}

// emotionRequest is the JSON body for POST /emotion.
type emotionRequest struct {
	Emotion string `json:"emotion"`
}

// handleEmotion stages an emotion context for the next trigger.
func (s *Server) handleEmotion(w http.ResponseWriter, r *http.Request) {
	var req emotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Emotion == "" {
		http.Error(w, `{"error":"emotion is required"}`, http.StatusBadRequest)
		return
	}
	s.orch.StageEmotion(req.Emotion)
	writeJSON(w, map[string]string{"staged": req.Emotion})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	records := s.hist.Recent(limit)
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, map[string]any{"transactions": records})
}

// handleWS streams every bus event to the client as JSON. A slow client is
// disconnected rather than back-pressuring the bus.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id, events := s.bus.Subscribe()
	defer s.bus.Unsubscribe(id)

	// Drain client frames so close handshakes are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
