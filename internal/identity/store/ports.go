// Package store defines the identity persistence ports and their
// implementations. Stores are pure I/O; merge decisions and unification
// ordering live in the service layer.
package store

import (
	"context"

	"leadconnect/internal/identity/models"
)

// Field is one identifying (key, value) pair in its text form, as used by
// the disjunctive fragment match.
type Field struct {
	Key   string
	Value string
}

// LeadStore manages the identity anchors.
type LeadStore interface {
	// InsertLead creates a new empty lead and returns it with its id
	// assigned.
	InsertLead(ctx context.Context) (*models.Lead, error)

	// DeleteLeads removes the given leads. Only unification calls this,
	// after dependents have been repointed.
	DeleteLeads(ctx context.Context, ids []models.LeadID) error
}

// FragmentStore manages profile fragments.
type FragmentStore interface {
	// InsertFragment creates a fragment owned by leadID.
	InsertFragment(ctx context.Context, leadID models.LeadID, profile models.Profile) (*models.ProfileFragment, error)

	// UpdateProfile replaces a fragment's profile.
	UpdateProfile(ctx context.Context, id models.FragmentID, profile models.Profile) error

	// FindByAnyField returns fragments whose profile matches any of the
	// given (key, value) pairs, ordered by fragment id ascending.
	FindByAnyField(ctx context.Context, fields []Field) ([]models.ProfileFragment, error)

	// FindByLeadIDs returns all fragments owned by any of the given leads,
	// ordered by fragment id ascending.
	FindByLeadIDs(ctx context.Context, leadIDs []models.LeadID) ([]models.ProfileFragment, error)

	// DeleteByLeadIDs removes every fragment owned by the given leads.
	DeleteByLeadIDs(ctx context.Context, leadIDs []models.LeadID) error
}

// EventStore records immutable events against leads.
type EventStore interface {
	// InsertEvent persists one event row.
	InsertEvent(ctx context.Context, leadID models.LeadID, eventSchemaID int64, data map[string]any) (*models.Event, error)

	// ReassignEvents repoints events owned by any of from onto to.
	ReassignEvents(ctx context.Context, from []models.LeadID, to models.LeadID) error

	// ListByLead returns a lead's events ordered by id ascending.
	ListByLead(ctx context.Context, leadID models.LeadID) ([]models.Event, error)
}

// BrowserStore manages the per-device anchors.
type BrowserStore interface {
	// FindByDeviceID returns the anchor for a device id, or nil when the
	// device has never been seen.
	FindByDeviceID(ctx context.Context, deviceID string) (*models.Browser, error)

	// InsertBrowser creates the anchor for a first-seen device.
	InsertBrowser(ctx context.Context, deviceID string, leadID models.LeadID, userAgent string) (*models.Browser, error)

	// ReassignBrowsers repoints anchors owned by any of from onto to.
	ReassignBrowsers(ctx context.Context, from []models.LeadID, to models.LeadID) error
}

// Store is the full identity store a single backend provides.
type Store interface {
	LeadStore
	FragmentStore
	EventStore
	BrowserStore
}
