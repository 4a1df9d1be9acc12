// Package httpapi assembles the serving surface: platform probes, the
// public /v1 API, and the admin subrouter. Handlers stay in their feature
// packages; this is wiring only.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "compass/internal/audit/handler"
	authhandler "compass/internal/auth/handler"
	"compass/internal/platform/metrics"
	"compass/internal/platform/middleware"
	retentionhandler "compass/internal/retention/handler"
	"compass/pkg/platform/httputil"
)

// Check probes one backing dependency for the readiness endpoint.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Deps carries the assembled handlers and platform pieces the router mounts.
// Metrics is optional; everything else is required.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TokenValidator middleware.TokenValidator
	Sessions       middleware.SessionChecker
	AdminToken     string

	Auth      *authhandler.Handler
	Audit     *audithandler.Handler
	Retention *retentionhandler.Handler

	ReadinessChecks []Check
}

// New builds the router. Layout:
//
//	/healthz, /readyz, /metrics        unauthenticated platform probes
//	/v1/auth/*                         public
//	/v1/me/*                           bearer token + live session
//	/v1/admin/*                        admin token
func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(deps.ReadinessChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		deps.Auth.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Sessions, deps.Logger))
			deps.Retention.RegisterSelfService(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(deps.AdminToken, deps.Logger))
			deps.Audit.Register(r)
			deps.Retention.RegisterAdmin(r)
		})
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz runs every check and reports 503 when any backing store is
// unreachable, with the failing check's error visible to operators.
func handleReadyz(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				results[check.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[check.Name] = "ok"
		}

		body := map[string]any{"status": "ready", "checks": results}
		if status != http.StatusOK {
			body["status"] = "unavailable"
		}
		httputil.WriteJSON(w, status, body)
	}
}
