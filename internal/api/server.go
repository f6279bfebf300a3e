// Package api provides the HTTP API server and handlers for tagview.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tagview/tagview-server/internal/config"
	"github.com/tagview/tagview-server/internal/musicfetch"
	"github.com/tagview/tagview-server/internal/ratelimit"
	"github.com/tagview/tagview-server/internal/sse"
	"github.com/tagview/tagview-server/internal/tags"
	"github.com/tagview/tagview-server/internal/validation"
	"github.com/tagview/tagview-server/internal/viewer"
)

// Viewer is the session workflow behind the session endpoints.
type Viewer interface {
	CreateSession() (string, viewer.State, error)
	Snapshot(sessionID string) (viewer.State, error)
	SubmitFile(ctx context.Context, sessionID string, up tags.Upload) (viewer.State, error)
	SubmitURL(ctx context.Context, sessionID, link string) (viewer.State, error)
	SelectTab(sessionID string, tab viewer.Tab) (viewer.State, error)
	TogglePanel(sessionID, panel string) (viewer.State, error)
}

// Recognizer is the track-recognition service proxied by the gateway endpoints.
type Recognizer interface {
	TrackByISRC(ctx context.Context, isrc string) (json.RawMessage, error)
	TrackByURL(ctx context.Context, link string) (json.RawMessage, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	viewer         Viewer
	recognizer     Recognizer
	events         *sse.Handler
	router         *chi.Mux
	api            huma.API
	validator      *validation.Validator
	submitLimiter  *ratelimit.KeyedRateLimiter
	maxUploadBytes int64
	started        time.Time
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured. A nil
// events handler disables the session event stream.
func NewServer(cfg config.ServerConfig, v Viewer, recognizer Recognizer, events *sse.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := chi.NewRouter()

	s := &Server{
		viewer:         v,
		recognizer:     recognizer,
		events:         events,
		router:         router,
		validator:      validation.New(),
		maxUploadBytes: cfg.MaxUploadBytes,
		started:        time.Now(),
		logger:         logger,
	}
	if cfg.SubmitPerMin > 0 {
		s.submitLimiter = ratelimit.New(ratelimit.PerMinute(cfg.SubmitPerMin), cfg.SubmitPerMin)
	}

	s.setupMiddleware(cfg.AllowedOrigins)

	humaConfig := huma.DefaultConfig("tagview API", "1.0.0")
	humaConfig.Info.Description = "Inspect audio file tags and cross-reference them with music catalogs"
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the underlying huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown releases background resources held by the server.
func (s *Server) Shutdown() error {
	if s.submitLimiter != nil {
		s.submitLimiter.Stop()
	}
	return nil
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerRomanizeRoutes()

	// Event streams are long-lived and not JSON, so they bypass huma.
	s.router.Get("/api/v1/sessions/{id}/events", s.handleSessionEvents)

	// The gateway keeps its own body shapes, so it bypasses the envelope.
	s.router.Route("/api/v1/musicfetch", func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.submitLimiter, s.logger))
		r.Get("/isrc", s.handleMusicfetchISRC)
		r.Get("/url", s.handleMusicfetchURL)
	})
}

var (
	_ Viewer     = (*viewer.Service)(nil)
	_ Recognizer = (*musicfetch.Client)(nil)
)
