// Package web serves the CSV import page, its JSON variant and the
// operational endpoints.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/etl/internal/authz"
	"github.com/JonMunkholm/etl/internal/config"
	"github.com/JonMunkholm/etl/internal/core"
	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/view"
	"github.com/JonMunkholm/etl/internal/web/middleware"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Catalog *host.Catalog
	Authz   *authz.Authorizer
	Limiter *core.Limiter
	Views   *view.Renderer // nil selects the built-in partials
}

// Server is the HTTP server of the import service.
type Server struct {
	cfg     *config.Config
	catalog *host.Catalog
	authz   *authz.Authorizer
	limiter *core.Limiter
	views   *view.Renderer
	csrfKey string

	router *chi.Mux
	server *http.Server
}

// NewServer wires the routes and middleware.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:     cfg,
		catalog: deps.Catalog,
		authz:   deps.Authz,
		limiter: deps.Limiter,
		views:   deps.Views,
		csrfKey: cfg.Security.CSRFKey,
		router:  chi.NewRouter(),
	}
	if s.views == nil {
		s.views = view.Default()
	}
	if s.limiter == nil {
		s.limiter = core.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}
	if s.csrfKey == "" {
		s.csrfKey = uuid.NewString() + uuid.NewString()
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.RateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))
		r.Use(withSession(s.cfg.Host))
		r.Use(s.requirePluginRight)

		r.With(chimw.Timeout(s.cfg.Server.RequestTimeout)).Get("/", s.handleIndex)
		r.With(chimw.Timeout(s.cfg.Server.RequestTimeout)).Get(menuPath, s.handleCSVImport)

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(middleware.RateLimit(s.cfg.Rate.UploadLimit))
			}
			r.Use(chimw.Timeout(s.cfg.Upload.Timeout))
			r.Post(menuPath, s.handleCSVImport)
			r.Post("/api/import/{plan}", s.handleAPIImport)
		})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for running imports and
// in-flight requests, whichever ctx allows.
func (s *Server) Shutdown(ctx context.Context) error {
	if st := s.limiter.Status(); st.Active > 0 {
		slog.Info("waiting for imports to complete", "active", st.Active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		}
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Limiter returns the import limiter.
func (s *Server) Limiter() *core.Limiter {
	return s.limiter
}

// securityHeaders sets the hardening headers on every response.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				// the page shell carries its own inline style
				h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// healthTimeout bounds the store ping of /health.
const healthTimeout = 2 * time.Second
