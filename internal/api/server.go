// Package api provides the HTTP API server and handlers for the Kidobra application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kidobra/kidobra-server/internal/export"
	"github.com/kidobra/kidobra-server/internal/http/response"
	"github.com/kidobra/kidobra-server/internal/service"
	"github.com/kidobra/kidobra-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store          *store.Store
	authService    *service.AuthService
	ebookService   *service.EbookService
	catalogService *service.CatalogService
	exporter       *export.Exporter
	authLimiter    *RateLimiter
	router         *chi.Mux
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	store *store.Store,
	authService *service.AuthService,
	ebookService *service.EbookService,
	catalogService *service.CatalogService,
	exporter *export.Exporter,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:          store,
		authService:    authService,
		ebookService:   ebookService,
		catalogService: catalogService,
		exporter:       exporter,
		// 20 attempts per minute per IP on credential endpoints
		authLimiter: NewRateLimiter(20, time.Minute, 5),
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.authLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Device-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public, rate limited).
		r.Route("/auth", func(r chi.Router) {
			r.With(RateLimitMiddleware(s.authLimiter, s.logger)).Post("/register", s.handleRegister)
			r.With(RateLimitMiddleware(s.authLimiter, s.logger)).Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.With(s.requireAuth).Post("/logout", s.handleLogout)
		})

		// Protected user endpoints.
		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleGetCurrentUser)
			r.Patch("/me", s.handleUpdateCurrentUser)
		})

		// Catalog browsing and search (require auth).
		r.Route("/catalog", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/categories", s.handleListCategories)
			r.Get("/categories/{id}", s.handleGetCategory)
			r.Get("/categories/{id}/activities", s.handleListCategoryActivities)
			r.Get("/activities/{id}", s.handleGetActivity)
			r.Get("/search", s.handleSearchActivities)
		})

		// Ebooks and the per-device selection (require auth).
		r.Route("/ebooks", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateEbook)
			r.Get("/", s.handleListEbooks)

			// Selection slot for the calling device.
			r.Route("/selection", func(r chi.Router) {
				r.Get("/", s.handleGetSelection)
				r.Put("/", s.handleSetSelection)
				r.Delete("/", s.handleClearSelection)
				r.Post("/activities", s.handleAddActivity)
				r.Put("/activities", s.handleReorderActivities)
				r.Delete("/activities/{activityID}", s.handleRemoveActivity)
			})

			r.Get("/{id}", s.handleGetEbook)
			r.Patch("/{id}", s.handleRenameEbook)
			r.Delete("/{id}", s.handleDeleteEbook)
			r.Post("/{id}/clone", s.handleCloneEbook)
			r.Get("/{id}/export", s.handleExportEbook)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
