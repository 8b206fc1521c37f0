// Package shortlink resolves tracked short codes to their redirect
// targets, with a Redis cache in front of the store.
package shortlink

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	derrors "leadconnect/pkg/domain-errors"
)

// TrackPage is one tracked redirect page.
type TrackPage struct {
	ID         int64  `json:"id"`
	Slug       string `json:"slug"`
	RedirectTo string `json:"redirect_to"`
}

// Store looks up trackpages. Returns nil when the slug is unknown.
type Store interface {
	FindBySlug(ctx context.Context, slug string) (*TrackPage, error)
}

// Cache fronts the store. Get returns nil on a miss; both operations are
// best-effort from the service's point of view.
type Cache interface {
	Get(ctx context.Context, slug string) (*TrackPage, error)
	Set(ctx context.Context, page *TrackPage) error
}

// Metrics counts cache effectiveness.
type Metrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewMetrics creates and registers the shortlink counters.
func NewMetrics() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadconnect_shortlink_cache_hits_total",
			Help: "Total shortcode lookups served from cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "leadconnect_shortlink_cache_misses_total",
			Help: "Total shortcode lookups that fell through to the store",
		}),
	}
}

// Service resolves shortcodes.
type Service struct {
	store   Store
	cache   Cache
	logger  *slog.Logger
	metrics *Metrics

	// group collapses concurrent store lookups for the same slug, so a
	// burst of visits on an uncached shortcode costs one query.
	group singleflight.Group
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithCache sets the cache layer. Without it every lookup hits the store.
func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the cache counters.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a shortlink service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the trackpage for a slug, consulting the cache first.
// Cache failures degrade to store lookups; a miss populates the cache.
func (s *Service) Resolve(ctx context.Context, slug string) (*TrackPage, error) {
	if slug == "" {
		return nil, derrors.New(derrors.CodeValidation, "shortcode is required")
	}

	if s.cache != nil {
		page, err := s.cache.Get(ctx, slug)
		if err != nil {
			s.logger.WarnContext(ctx, "shortlink cache get failed", "slug", slug, "error", err)
		} else if page != nil {
			s.hit()
			return page, nil
		}
	}
	s.miss()

	v, err, _ := s.group.Do(slug, func() (any, error) {
		page, err := s.store.FindBySlug(ctx, slug)
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "find trackpage by slug")
		}
		if page == nil {
			return nil, derrors.Newf(derrors.CodeNotFound, "no trackpage for shortcode %q", slug)
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, page); err != nil {
				s.logger.WarnContext(ctx, "shortlink cache set failed", "slug", slug, "error", err)
			}
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TrackPage), nil
}

func (s *Service) hit() {
	if s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
}

func (s *Service) miss() {
	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}
}
