// Package server serves the check-in page and binds each browser tab to a page session.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/benmeehan/geo-checkin/internal/constants"
	"github.com/benmeehan/geo-checkin/internal/utils"
	"github.com/benmeehan/geo-checkin/internal/ws"
)

//go:embed web
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

type indexData struct {
	AccessToken string
	Style       string
	Container   string
	Longitude   float64
	Latitude    float64
	Zoom        float64
	RadiusKm    float64
	Protocol    string
	ButtonLabel string
	Status      string
}

type liveSession struct {
	session *Session
	conn    *ws.Conn
}

// Server is the HTTP front of the check-in page.
type Server struct {
	config *utils.Config
	deps   SessionDeps
	logger zerolog.Logger

	router   chi.Router
	upgrader websocket.Upgrader
	sessions cmap.ConcurrentMap[string, liveSession]

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
	stopping   chan struct{}

	// pages tracks websocket handlers; hijacked connections are invisible to Shutdown.
	pages sync.WaitGroup
}

// NewServer builds the router. Sessions share deps; each gets its own map,
// camera and, for browser positions, its own push source.
func NewServer(config *utils.Config, deps SessionDeps, logger zerolog.Logger) *Server {
	s := &Server{
		config:   config,
		deps:     deps,
		logger:   logger,
		sessions: cmap.New[liveSession](),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders(s.config.Server.AllowedOrigin))

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/sessions/{id}", s.handleSessionState)
	r.With(httprate.LimitByIP(s.config.Server.SessionRateLimit, time.Minute)).Get("/ws", s.handleWebsocket)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn().Msg("Server is already running")
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.config.Server.Addr)
	if err != nil {
		s.logger.Error().Err(err).Str("addr", s.config.Server.Addr).Msg("Failed to listen")
		return err
	}

	s.listener = listener
	s.stopping = make(chan struct{})
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.Server.ReadHeaderTimeout,
	}
	s.running = true

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Server stopped unexpectedly")
		}
	}(s.httpServer)

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Server started")
	return nil
}

// Stop shuts the listener down, closes every page session and waits,
// bounded by the shutdown timeout, until each page has been torn down.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("Server is not running")
		return errors.New("server is not running")
	}
	s.running = false
	close(s.stopping)
	srv := s.httpServer
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(ctx)
	if shutdownErr != nil {
		s.logger.Error().Err(shutdownErr).Msg("Failed to shut down server")
	}

	for item := range s.sessions.IterBuffered() {
		item.Val.conn.Close()
	}
	if err := s.waitPages(ctx); err != nil {
		s.logger.Error().Err(err).Int("sessions", s.sessions.Count()).Msg("Pages still open after shutdown timeout")
		return errors.Join(shutdownErr, err)
	}
	if shutdownErr != nil {
		return shutdownErr
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}

// waitPages blocks until every websocket handler has returned or ctx is done.
func (s *Server) waitPages(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pages.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for page sessions: %w", ctx.Err())
	}
}

// Addr returns the bound address while running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SessionCount returns the number of connected pages.
func (s *Server) SessionCount() int {
	return s.sessions.Count()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	zone := s.deps.Page.Zone
	data := indexData{
		AccessToken: s.config.Map.AccessToken,
		Style:       s.config.Map.Style,
		Container:   s.config.Map.Container,
		Longitude:   zone.Center.Lon(),
		Latitude:    zone.Center.Lat(),
		Zoom:        s.deps.Config.Zoom,
		RadiusKm:    zone.RadiusKm,
		Protocol:    ws.ProtocolVersion,
		ButtonLabel: constants.ButtonLabelOutOfRange,
		Status:      constants.StatusOutOfRange,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render page")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	live, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, live.session.Page().State())
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	s.pages.Add(1)
	defer s.pages.Done()

	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to upgrade page connection")
		return
	}

	id := uuid.NewString()
	logger := s.logger.With().Str("session_id", id).Logger()
	c := ws.NewConn(conn, logger)
	session := NewSession(id, c, s.deps, s.logger)

	s.sessions.Set(id, liveSession{session: session, conn: c})
	logger.Info().Str("remote", r.RemoteAddr).Msg("Page connected")

	// A page registered after Stop swept the sessions closes itself.
	select {
	case <-stopping:
		c.Close()
	default:
	}

	c.Run(session.Handle)

	s.sessions.Remove(id)
	session.Close()
	logger.Info().Msg("Page disconnected")
}

// checkOrigin accepts same-host pages and the configured origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if origin == s.config.Server.AllowedOrigin {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
