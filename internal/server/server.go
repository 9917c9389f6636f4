// Package server exposes the browser client, its WebSocket endpoint and a
// read-only export of each session's drawings over HTTP.
package server

import (
	"embed"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/OCAP2/mapdraw/internal/config"
	"github.com/OCAP2/mapdraw/internal/session"
	"github.com/OCAP2/mapdraw/internal/surface/websocket"
	"github.com/OCAP2/mapdraw/pkg/streaming"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

//go:embed web/index.html
var webFS embed.FS

// Options configures a Server.
type Options struct {
	Server  config.ServerConfig
	Session session.Options
	Logger  zerolog.Logger
}

// Server hosts drawing sessions.
type Server struct {
	cfg         config.ServerConfig
	sessionOpts session.Options
	logger      zerolog.Logger

	upgrader ws.Upgrader
	sessions *session.Registry

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// New creates a server.
func New(opts Options) *Server {
	s := &Server{
		cfg:         opts.Server,
		sessionOpts: opts.Session,
		logger:      opts.Logger,
		sessions:    session.NewRegistry(),
		conns:       make(map[string]*websocket.Conn),
	}
	s.sessionOpts.Logger = opts.Logger
	if len(opts.Server.AllowedOrigins) > 0 {
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(opts.Server.AllowedOrigins, r.Header.Get("Origin"))
		}
	}
	return s
}

// Sessions returns the live session registry.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Router builds the HTTP routes.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWS)
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Get("/{id}/features", s.handleFeatures)
	})

	return r
}

// CloseAll disconnects every browser. Their sessions tear down as their
// read loops end.
func (s *Server) CloseAll() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		http.Error(w, "client unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.IDs()})
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "session not found"})
		return
	}
	data, err := sess.Features()
	if err != nil {
		s.logger.Error().Err(err).Str("session", sess.ID()).Msg("Failed to export features")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "export failed"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	id := uuid.NewString()
	logger := s.logger.With().Str("session", id).Logger()
	conn := websocket.NewConn(raw, websocket.ConnOptions{
		SendBuffer: s.cfg.SendBuffer,
		WriteWait:  s.cfg.WriteTimeout,
		PongWait:   s.cfg.ReadTimeout,
		ReadLimit:  s.cfg.MaxMessageBytes,
		Logger:     logger,
	})

	sess, err := session.New(id, conn, s.sessionOpts)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create session")
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	s.sessions.Add(sess)
	logger.Info().Str("remote", r.RemoteAddr).Msg("Session started")

	defer func() {
		sess.Close()
		s.sessions.Remove(id)
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		logger.Info().Msg("Session ended")
	}()

	if err := sess.Hello(); err != nil {
		logger.Warn().Err(err).Msg("Failed to greet browser")
		_ = conn.Close()
		return
	}

	if err := conn.ReadLoop(func(env streaming.Envelope) { _ = sess.Handle(env) }); err != nil {
		logger.Warn().Err(err).Msg("Connection lost")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
