// Package httptransport is the thin HTTP layer. Handlers decode requests,
// delegate to domain services, and translate errors; business logic stays
// out of this package.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leadconnect/internal/enrich"
	"leadconnect/internal/identity/service"
	"leadconnect/internal/platform/metrics"
	"leadconnect/internal/shortlink"
	"leadconnect/internal/workflow"
	"leadconnect/pkg/platform/httputil"
	"leadconnect/pkg/platform/middleware/metadata"
)

// Handler holds the services behind the public endpoints.
type Handler struct {
	logger     *slog.Logger
	identity   *service.Service
	shortlinks *shortlink.Service
	workflows  *workflow.Service
	geo        *enrich.GeoClient
	httpMetric *metrics.HTTP
	health     func(ctx context.Context) error

	// background tracks detached trackpage processing so tests and
	// shutdown can wait for in-flight work.
	background sync.WaitGroup
}

// Option configures optional handler dependencies.
type Option func(*Handler)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithGeo sets the geo lookup client used to enrich tracking events.
func WithGeo(geo *enrich.GeoClient) Option {
	return func(h *Handler) {
		h.geo = geo
	}
}

// WithHTTPMetrics sets the per-route request metrics.
func WithHTTPMetrics(m *metrics.HTTP) Option {
	return func(h *Handler) {
		h.httpMetric = m
	}
}

// WithHealthCheck sets the dependency probe behind /healthz.
func WithHealthCheck(probe func(ctx context.Context) error) Option {
	return func(h *Handler) {
		h.health = probe
	}
}

// NewHandler constructs the HTTP handler set.
func NewHandler(identity *service.Service, shortlinks *shortlink.Service, workflows *workflow.Service, opts ...Option) *Handler {
	h := &Handler{
		logger:     slog.Default(),
		identity:   identity,
		shortlinks: shortlinks,
		workflows:  workflows,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Wait blocks until all detached trackpage processing has finished.
func (h *Handler) Wait() {
	h.background.Wait()
}

// NewRouter wires all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.With(h.measure("/trackpage")).Post("/trackpage", h.handleTrackPage)
	r.With(h.measure("/track")).Post("/track", h.handleTrack)
	r.With(h.measure("/workflow")).Post("/workflow/*", h.handleWorkflow)

	// The shortcode catch-all goes last so fixed routes win.
	r.With(h.measure("/{shortcode}")).Get("/{shortcode}", h.handleRedirect)

	return r
}

// measure is a no-op when metrics are not configured.
func (h *Handler) measure(route string) func(http.Handler) http.Handler {
	if h.httpMetric == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.httpMetric.Middleware(route)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
