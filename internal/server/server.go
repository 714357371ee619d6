// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"libranexus/internal/auth"
	"libranexus/internal/catalog"
	"libranexus/internal/category"
	"libranexus/internal/circulation"
	"libranexus/internal/httpx"
	"libranexus/internal/integrity"
	"libranexus/internal/membership"
	"libranexus/internal/telemetry"
)

// Deps are the services mounted by the router.
type Deps struct {
	Log         zerolog.Logger
	Metrics     *telemetry.Metrics
	Auth        auth.Service
	Circulation circulation.Service
	Categories  category.Service
	Catalog     catalog.Service
	Membership  membership.Service
	Auditor     *integrity.Auditor
	// Ping checks the storage backend for /healthz.
	Ping func(context.Context) error
}

// NewRouter builds the HTTP surface under /api/v1.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestContext(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ping(ctx); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := auth.NewHandler(d.Auth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/authentication", authHandler.AuthenticationRoutes)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(d.Auth))

			r.Route("/user", authHandler.UserRoutes)
			r.Route("/borrow", circulation.NewHandler(d.Circulation).Routes)
			r.Route("/category", category.NewHandler(d.Categories).Routes)

			books := catalog.NewHandler(d.Catalog)
			r.Route("/books", books.BookRoutes)
			r.Route("/author", books.AuthorRoutes)
			r.Route("/publisher", books.PublisherRoutes)

			r.Route("/member", membership.NewHandler(d.Membership).Routes)

			if d.Auditor != nil {
				r.With(auth.RequireRole(auth.RoleAdmin)).
					Get("/admin/integrity", integrity.NewHandler(d.Auditor).HandleRun)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{
			Status:    http.StatusNotFound,
			Message:   "no route for " + r.Method + " " + r.URL.Path,
			Timestamp: time.Now().UnixMilli(),
		})
	})
	return r
}
