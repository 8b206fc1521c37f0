// Package models holds the identity domain records.
//
// A Lead carries no fields of its own: its effective identity is the union
// of the profile fragments it owns. Fragments are ordered by id, which the
// stores hand out in creation order; the merge engine and unification both
// rely on that ordering.
package models

import "time"

// LeadID orders leads by creation. Unification collapses higher ids into
// the lowest one.
type LeadID int64

// FragmentID orders a lead's fragments oldest to newest.
type FragmentID int64

// EventID identifies a recorded event.
type EventID int64

// Profile maps canonical field names to values as decoded from JSON.
type Profile map[string]any

// Clone returns a shallow copy so callers can mutate without aliasing
// stored state.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Lead is the identity anchor one tracked person resolves to.
type Lead struct {
	ID        LeadID    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileFragment is one slice of identity data owned by a lead. A lead
// accumulates fragments when later identifying values conflict with
// settled ones; the conflicting value is quarantined here instead of
// overwriting history.
type ProfileFragment struct {
	ID        FragmentID `json:"id"`
	LeadID    LeadID     `json:"lead_id"`
	Profile   Profile    `json:"profile"`
	CreatedAt time.Time  `json:"created_at"`
}

// Event is an immutable fact recorded against a lead. LeadID changes only
// when unification repoints it at the canonical lead.
type Event struct {
	ID            EventID        `json:"id"`
	LeadID        LeadID         `json:"lead_id"`
	EventSchemaID int64          `json:"event_schema_id"`
	Data          map[string]any `json:"data"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Browser anchors a device to a lead. One row per device id; the lead side
// is reassignable during unification.
type Browser struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"browser_id"`
	LeadID    LeadID    `json:"lead_id"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}
