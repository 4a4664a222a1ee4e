package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"indodax_bot/internal/engine"
	"indodax_bot/internal/store"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Server exposes read-only projections of the bot's state: current signal,
// open positions, trade history and realized profit per pair.
type Server struct {
	engine   *engine.Engine
	store    *store.Store
	port     string
	upgrader websocket.Upgrader
}

func NewServer(eng *engine.Engine, st *store.Store, port string) *Server {
	return &Server{
		engine: eng,
		store:  st,
		port:   port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/positions", s.handlePositions)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/profit", s.handleProfit)
	mux.HandleFunc("/ws", s.handleWS)

	log.Infof("🌐 Web dashboard starting on http://localhost:%s", s.port)
	go func() {
		if err := http.ListenAndServe(":"+s.port, mux); err != nil {
			log.WithError(err).Error("Web server error")
		}
	}()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) statusPayload() map[string]interface{} {
	lastCycle, result := s.engine.LastCycle()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	balance, err := s.engine.Balance(ctx)
	if err != nil {
		log.WithError(err).Debug("Balance fetch failed for dashboard")
		balance = -1
	}

	return map[string]interface{}{
		"running":      s.engine.IsRunning(),
		"signal":       s.engine.LastSignal(),
		"last_cycle":   lastCycle.Unix(),
		"cycle_result": result.String(),
		"idr_balance":  balance,
		"positions":    len(s.engine.OpenPositions()),
		"timestamp":    time.Now().Unix(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.statusPayload())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.OpenPositions())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.RecentTrades("", 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, trades)
}

func (s *Server) handleProfit(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ProfitSummaries()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, summaries)
}

// handleWS streams the status payload to the dashboard every few seconds so
// the page updates without polling.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.statusPayload()); err != nil {
			return
		}
		<-ticker.C
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("Failed to encode response")
	}
}
