// Package server provides the HTTP server and routing for Insight.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/insight/internal/config"
	"github.com/aristath/insight/internal/database"
	"github.com/aristath/insight/internal/events"
	reportshandlers "github.com/aristath/insight/internal/modules/reports/handlers"
)

// Config holds server configuration.
type Config struct {
	Log            zerolog.Logger
	Cfg            *config.Config
	EvaluationsDB  *database.DB
	CacheDB        *database.DB
	EventBus       *events.Bus
	ReportHandlers *reportshandlers.Handler
}

// Server represents the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	evaluationsDB  *database.DB
	cacheDB        *database.DB
	bus            *events.Bus
	reportHandlers *reportshandlers.Handler
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Cfg,
		evaluationsDB:  cfg.EvaluationsDB,
		cacheDB:        cfg.CacheDB,
		bus:            cfg.EventBus,
		reportHandlers: cfg.ReportHandlers,
	}

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Cfg.DataDir, cfg.EvaluationsDB, cfg.CacheDB)

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler: s.router,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	// Health check outside the /api tree so load balancers can reach it
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Live event feeds
		eventsStream := NewEventsStreamHandler(s.bus, s.log)
		r.Get("/events/stream", eventsStream.ServeHTTP)
		eventsWS := NewEventsWebSocketHandler(s.bus, s.log)
		r.Get("/events/ws", eventsWS.ServeHTTP)

		// System monitoring
		r.Get("/system/status", s.systemHandlers.HandleStatus)
		r.Get("/system/databases", s.systemHandlers.HandleDatabaseStats)

		// Evaluations and reports
		r.Post("/evaluations", s.reportHandlers.HandleEvaluate)
		r.Get("/reports", s.reportHandlers.HandleListReports)
		r.Get("/reports/{id}", s.reportHandlers.HandleGetReport)
		r.Get("/entities/{entityID}/reports", s.reportHandlers.HandleEntityReports)
		r.Get("/entities/{entityID}/reports/latest", s.reportHandlers.HandleLatestReport)
		r.Get("/contrast", s.reportHandlers.HandleContrast)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the underlying mux, used by tests to exercise routes
// without binding a listener.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
