// Package httpapi is the read-only monitor surface: cycle state, retained
// logs and a websocket stream. The farm itself is driven by config, not by
// this API.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"xstar_farm/internal/config"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
	"xstar_farm/internal/ws"
)

type Options struct {
	Cfg   config.ServerConfig
	Bus   *logbus.Bus
	State func() model.CycleState
}

type Server struct {
	cfg   config.ServerConfig
	bus   *logbus.Bus
	state func() model.CycleState
	ws    *ws.Handler

	httpSrv *http.Server
}

func New(opts Options) *Server {
	return &Server{
		cfg:   opts.Cfg,
		bus:   opts.Bus,
		state: opts.State,
		ws:    ws.NewHandler(opts.Bus, opts.Cfg.Cors.AllowOrigins),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/ws", s.ws)
	mux.HandleFunc("/api/v1/engine/state", s.handleEngineState)
	mux.HandleFunc("/api/v1/logs", s.handleLogs)
	return corsMiddleware(s.cfg.Cors, mux)
}

// Start serves on the configured address until Shutdown.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEngineState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": s.bus.Snapshot()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
