// Package server assembles the HTTP surface of the library service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"librarydesk/internal/audit"
	"librarydesk/internal/auth"
	"librarydesk/internal/catalog"
	"librarydesk/internal/circulation"
	"librarydesk/internal/httpx"
	"librarydesk/internal/membership"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Tokens      *auth.Tokens
	Catalog     *catalog.Handler
	Membership  *membership.Handler
	Circulation *circulation.Handler
	Logger      *zap.Logger
	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
	// Audit is optional; without it the /audit endpoints are not mounted.
	Audit *audit.Handler
}

// NewRouter wires middleware and mounts every endpoint under /api/v1.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				d.Logger.Warn("readiness check failed", zap.Error(err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", d.Membership.AuthRoutes)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(d.Tokens))

			r.Route("/books", d.Catalog.Routes)
			r.Route("/transactions", d.Circulation.Routes)
			r.Route("/users", func(r chi.Router) {
				r.Get("/me", d.Membership.HandleMe)
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(auth.RoleAdmin))
					d.Membership.AdminRoutes(r)
				})
			})
			if d.Audit != nil {
				r.Route("/audit", func(r chi.Router) {
					r.Use(auth.RequireRole(auth.RoleAdmin))
					r.Get("/", d.Audit.HandleLast)
					r.Post("/", d.Audit.HandleRun)
				})
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Detail(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Detail(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	return r
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
