// Package service orchestrates identity resolution: mapping incoming
// events, resolving the lead they belong to, merging profile data, and
// recording the event.
package service

import (
	"context"
	"log/slog"

	identitymetrics "leadconnect/internal/identity/metrics"
	"leadconnect/internal/identity/mapper"
	"leadconnect/internal/identity/merge"
	"leadconnect/internal/identity/models"
	"leadconnect/internal/identity/resolver"
	"leadconnect/internal/identity/store"
	"leadconnect/internal/schema"
	derrors "leadconnect/pkg/domain-errors"
)

// EventTypeTrackPage tags the device-anchored page view schema.
const EventTypeTrackPage = "trackpage"

// Service is the identity resolution and profile merge engine behind the
// dispatch entry points.
type Service struct {
	leads     store.LeadStore
	fragments store.FragmentStore
	events    store.EventStore
	browsers  store.BrowserStore
	resolver  *resolver.Resolver
	schemas   *schema.Registry
	logger    *slog.Logger
	metrics   *identitymetrics.Metrics
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the identity counters.
func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs the identity service. The registry must already be
// loaded; requests never run against an empty schema cache.
func New(st store.Store, schemas *schema.Registry, opts ...Option) *Service {
	s := &Service{
		leads:     st,
		fragments: st,
		events:    st,
		browsers:  st,
		resolver:  resolver.New(st),
		schemas:   schemas,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrackPage processes a device-anchored page view. Identity is keyed 1:1
// by the stable browser id: first sighting creates lead, fragment, and
// anchor together; later sightings reuse the anchor directly, with no
// conflict resolution.
func (s *Service) TrackPage(ctx context.Context, payload map[string]any) (*models.Event, error) {
	es, err := s.schemas.ByType(EventTypeTrackPage)
	if err != nil {
		return nil, err
	}
	mapped := mapper.MapEvent(es, payload)

	deviceID, _ := mapped.ProfileData["browser_id"].(string)
	if deviceID == "" {
		return nil, derrors.New(derrors.CodeValidation, "trackpage event carries no browser id")
	}

	browser, err := s.browsers.FindByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "look up browser anchor")
	}

	var leadID models.LeadID
	if browser == nil {
		leadID, err = s.createLead(ctx, mapped.ProfileData)
		if err != nil {
			return nil, err
		}
		userAgent, _ := mapped.EventData["user_agent"].(string)
		if _, err := s.browsers.InsertBrowser(ctx, deviceID, leadID, userAgent); err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "insert browser anchor")
		}
		s.logger.InfoContext(ctx, "browser anchored to new lead",
			"browser_id", deviceID, "lead_id", leadID)
	} else {
		leadID = browser.LeadID
	}

	return s.recordEvent(ctx, leadID, es.ID, mapped.EventData)
}

// EnsureBrowser registers a device anchor if the device was never seen,
// creating the backing lead. Used by the bare tracking beacon, which
// carries no mappable event.
func (s *Service) EnsureBrowser(ctx context.Context, deviceID, userAgent string) (*models.Browser, error) {
	if deviceID == "" {
		return nil, derrors.New(derrors.CodeValidation, "browser id is required")
	}
	browser, err := s.browsers.FindByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "look up browser anchor")
	}
	if browser != nil {
		return browser, nil
	}

	leadID, err := s.createLead(ctx, models.Profile{"browser_id": deviceID})
	if err != nil {
		return nil, err
	}
	browser, err = s.browsers.InsertBrowser(ctx, deviceID, leadID, userAgent)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "insert browser anchor")
	}
	s.logger.InfoContext(ctx, "browser registered", "browser_id", deviceID, "lead_id", leadID)
	return browser, nil
}

// ProcessWorkflow processes a claim-based webhook event. Identity is keyed
// by the identifying profile fields the schema maps out of the payload.
func (s *Service) ProcessWorkflow(ctx context.Context, eventSchemaID int64, payload map[string]any) (*models.Event, error) {
	es, err := s.schemas.ByID(eventSchemaID)
	if err != nil {
		return nil, err
	}
	mapped := mapper.MapEvent(es, payload)

	idFields := resolver.IdentifyingFields(mapped.ProfileData, s.schemas.Profile())
	if len(idFields) == 0 {
		return nil, derrors.New(derrors.CodeValidation, "workflow event carries no identifying fields")
	}

	match, err := s.resolver.Resolve(ctx, idFields)
	if err != nil {
		return nil, err
	}

	var leadID models.LeadID
	switch len(match.LeadIDs) {
	case 0:
		leadID, err = s.createLead(ctx, mapped.ProfileData)
	case 1:
		leadID = match.LeadIDs[0]
		_, err = s.mergeProfile(ctx, leadID, match.Fragments, mapped.ProfileData)
	default:
		leadID, err = s.unify(ctx, match, mapped.ProfileData)
	}
	if err != nil {
		return nil, err
	}

	return s.recordEvent(ctx, leadID, es.ID, mapped.EventData)
}

// createLead creates a lead with its initial fragment holding the event's
// full profile data.
func (s *Service) createLead(ctx context.Context, profile models.Profile) (models.LeadID, error) {
	lead, err := s.leads.InsertLead(ctx)
	if err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInternal, "insert lead")
	}
	if _, err := s.fragments.InsertFragment(ctx, lead.ID, profile); err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInternal, "insert initial fragment")
	}
	s.metrics.IncLeadsCreated()
	s.logger.InfoContext(ctx, "lead created", "lead_id", lead.ID)
	return lead.ID, nil
}

// mergeProfile runs the merge engine over a lead's fragments and persists
// whatever changed. Returns the final fragment set, including a newly
// quarantined fragment when identifying conflicts survived the walk.
func (s *Service) mergeProfile(ctx context.Context, leadID models.LeadID, fragments []models.ProfileFragment, incoming models.Profile) ([]models.ProfileFragment, error) {
	res := merge.Apply(fragments, incoming, s.schemas.Profile().IdentifyingSet())

	for _, f := range res.Updated {
		if err := s.fragments.UpdateProfile(ctx, f.ID, f.Profile); err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "update fragment profile")
		}
	}

	final := res.Fragments
	if res.NewProfile != nil {
		created, err := s.fragments.InsertFragment(ctx, leadID, res.NewProfile)
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "insert conflict fragment")
		}
		final = append(final, *created)
		s.metrics.IncConflictsSplit()
		s.logger.InfoContext(ctx, "identifying conflict quarantined",
			"lead_id", leadID, "fragment_id", created.ID)
	}
	return final, nil
}

func (s *Service) recordEvent(ctx context.Context, leadID models.LeadID, eventSchemaID int64, data map[string]any) (*models.Event, error) {
	event, err := s.events.InsertEvent(ctx, leadID, eventSchemaID, data)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "insert event")
	}
	s.metrics.IncEventsRecorded()
	s.logger.InfoContext(ctx, "event recorded",
		"event_id", event.ID, "lead_id", leadID, "event_schema_id", eventSchemaID)
	return event, nil
}
