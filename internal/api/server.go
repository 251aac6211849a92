// Package api provides the local HTTP and WebSocket command surface.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"hostbridge/internal/config"
	"hostbridge/internal/metrics"
	"hostbridge/internal/network"
	"hostbridge/internal/osutils"
	"hostbridge/internal/protocol"
	"hostbridge/internal/router"
)

// maxCommandBody bounds POST /api/command bodies.
const maxCommandBody = 1 << 20

// Commands runs requests and reports which methods are available.
// *router.Router implements it.
type Commands interface {
	network.Dispatcher
	Capabilities() []string
}

// Server provides the HTTP API for local control
type Server struct {
	configMgr *config.Manager
	commands  Commands
	journal   *router.Journal
	metrics   *metrics.Registry
	log       zerolog.Logger
	wsMgr     *WSManager

	// Version is reported by /api/status
	Version string

	// LinkState, if set, reports whether the controller link is registered
	LinkState func() bool

	mu     sync.Mutex
	server *http.Server
}

// NewServer creates a new API server. Its WebSocket manager runs until
// Shutdown.
func NewServer(configMgr *config.Manager, commands Commands, journal *router.Journal, m *metrics.Registry, log zerolog.Logger) *Server {
	s := &Server{
		configMgr: configMgr,
		commands:  commands,
		journal:   journal,
		metrics:   m,
		log:       log.With().Str("component", "api").Logger(),
	}
	s.wsMgr = newWSManager(s)
	go s.wsMgr.start()
	return s
}

// Handler returns the routed handler with auth, recovery and metrics applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/ws", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s.metricsMiddleware(s.authMiddleware(s.recoverMiddleware(mux)))
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	cfg := s.configMgr.Get()
	return net.JoinHostPort(cfg.API.Listen, strconv.Itoa(cfg.API.Port))
}

// Start listens on the configured address and serves until Shutdown. It
// blocks.
func (s *Server) Start() error {
	addr := s.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Error().Err(err).Str("addr", addr).Msg("API: failed to listen")
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("API: serving")
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error().Err(err).Msg("API: server stopped")
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes WebSocket clients and waits for
// in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	s.wsMgr.stop()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				s.log.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("API: recovered from panic")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware checks API token if configured
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("API: request")

		// Skip auth for health check
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := s.configMgr.Get().API.Token
		if token != "" && !authorized(r, token) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func authorized(r *http.Request, token string) bool {
	if r.Header.Get("Authorization") == "Bearer "+token {
		return true
	}
	// Browsers cannot set headers on a WebSocket upgrade.
	return r.URL.Path == "/ws" && r.URL.Query().Get("token") == token
}

var routes = map[string]bool{
	"/api/command": true,
	"/api/status":  true,
	"/api/history": true,
	"/ws":          true,
	"/health":      true,
	"/metrics":     true,
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if !routes[path] {
			path = "other"
		}
		s.metrics.RecordAPIRequest(r.Method, path, rec.status, time.Since(start))
	})
}

// handleCommand handles POST /api/command with a {"method","args"} body
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req protocol.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			protocol.Failuref(protocol.CodeInvalidArgs, "malformed request: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, s.commands.HandleFrom("api", req))
}

// Status is the body of GET /api/status
type Status struct {
	DeviceID            string   `json:"device_id"`
	DeviceName          string   `json:"device_name,omitempty"`
	Version             string   `json:"version,omitempty"`
	Platform            string   `json:"platform"`
	Capabilities        []string `json:"capabilities"`
	ControllerConnected bool     `json:"controller_connected"`
	WSClients           int      `json:"ws_clients"`
	Elevated            bool     `json:"elevated"`
	LocalIPs            []string `json:"local_ips,omitempty"`
}

// handleStatus handles GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.configMgr.Get()
	status := Status{
		DeviceID:     cfg.Agent.DeviceID,
		DeviceName:   cfg.Agent.DeviceName,
		Version:      s.Version,
		Platform:     runtime.GOOS,
		Capabilities: s.commands.Capabilities(),
		WSClients:    s.wsMgr.count(),
		Elevated:     osutils.IsElevated(),
	}
	if status.Capabilities == nil {
		status.Capabilities = []string{}
	}
	if s.LinkState != nil {
		status.ControllerConnected = s.LinkState()
	}
	if ips, err := network.GetLocalIPs(); err == nil {
		status.LocalIPs = ips
	}

	writeJSON(w, http.StatusOK, status)
}

// handleHistory handles GET /api/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
				return
			}
			limit = n
		}
		entries := []router.Entry{}
		if s.journal != nil {
			entries = append(entries, s.journal.Recent(limit)...)
		}
		writeJSON(w, http.StatusOK, entries)

	case http.MethodDelete:
		if s.journal != nil {
			s.journal.Clear()
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
