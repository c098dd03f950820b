package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/artifacts"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/db"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/intakeapi"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/matters"
	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/notifications"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Routes are the optional feature handlers the server mounts.
type Routes struct {
	Intake  *intakeapi.API
	Metrics http.Handler
}

// Server is the intake HTTP server.
type Server struct {
	cfg        Config
	db         *db.DB
	routes     Routes
	log        *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. database backs the matter, notification and
// artifact APIs and may be nil, in which case they are not mounted.
func New(cfg Config, database *db.DB, routes Routes, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		db:     database,
		routes: routes,
		log:    logger.Named("server"),
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if s.routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.routes.Metrics)
	}
	if s.routes.Intake != nil {
		s.routes.Intake.RegisterWebSocket(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if s.routes.Intake != nil {
			s.routes.Intake.RegisterRoutes(r)
		}
		if s.db != nil {
			matters.RegisterRoutes(r, matters.NewStore(s.db))
			notifications.RegisterRoutes(r, notifications.NewStore(s.db))
			artifacts.RegisterRoutes(r, artifacts.NewStore(s.db))
		}
	})

	return r
}

// requestLogger logs one line per request through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info("intake server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
