// Package merge implements the profile merge engine: classifying an
// incoming field map against a lead's existing fragments and deciding what
// gets written where.
//
// The rule the whole engine serves: the earliest recorded value of an
// identifying field is authoritative. A later identifying value that
// disagrees is never allowed to erase it; the conflict is carried across
// the remaining fragments and, if still unresolved at the end, quarantined
// in a brand-new fragment so both versions survive for a future
// unification to reconcile. Descriptive fields are latest-write-wins.
//
// Everything here is pure: no storage, no clocks. The service layer
// persists whatever Apply reports as changed.
package merge

import (
	"reflect"
	"sort"

	"leadconnect/internal/identity/models"
)

// Classification splits an incoming field map against one fragment.
type Classification struct {
	// Added holds fields the fragment lacks entirely (case 1).
	Added models.Profile
	// Confirmed holds fields already present with the same value (case 2).
	Confirmed models.Profile
	// Unresolved holds identifying fields present with a different value
	// (case 3); they carry forward to the next fragment.
	Unresolved models.Profile
	// Overwritten holds descriptive fields present with a different value
	// (case 4); the incoming value replaces the fragment's.
	Overwritten models.Profile
}

// Changed reports whether the classification touches the fragment at all.
func (c Classification) Changed() bool {
	return len(c.Added) > 0 || len(c.Overwritten) > 0
}

// Classify applies the four-case table to incoming against one fragment's
// profile. identifying is the set of field keys tagged identifying.
func Classify(existing, incoming models.Profile, identifying map[string]bool) Classification {
	c := Classification{
		Added:       models.Profile{},
		Confirmed:   models.Profile{},
		Unresolved:  models.Profile{},
		Overwritten: models.Profile{},
	}
	for key, value := range incoming {
		current, present := existing[key]
		switch {
		case !present:
			c.Added[key] = value
		case valueEqual(current, value):
			c.Confirmed[key] = value
		case identifying[key]:
			c.Unresolved[key] = value
		default:
			c.Overwritten[key] = value
		}
	}
	return c
}

// Result is the outcome of merging an incoming field map into a lead's
// fragment set.
type Result struct {
	// Fragments is the final ordered set with updated profiles. It does
	// not include the quarantine fragment, which has no id until the
	// store assigns one; see NewProfile.
	Fragments []models.ProfileFragment
	// Updated lists the fragments whose profile changed and must be
	// persisted, in walk order.
	Updated []models.ProfileFragment
	// NewProfile holds fields that stayed unresolved against every
	// fragment and belong in a brand-new fragment. Nil when none.
	NewProfile models.Profile
}

// Apply walks the lead's fragments oldest to newest, classifying the
// still-unresolved field set at each step. Input fragments are not
// mutated; updated copies are returned.
func Apply(fragments []models.ProfileFragment, incoming models.Profile, identifying map[string]bool) Result {
	ordered := make([]models.ProfileFragment, len(fragments))
	copy(ordered, fragments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	res := Result{Fragments: ordered}
	pending := withoutNulls(incoming)

	for i := range ordered {
		if len(pending) == 0 {
			break
		}
		c := Classify(ordered[i].Profile, pending, identifying)
		if c.Changed() {
			profile := ordered[i].Profile.Clone()
			if profile == nil {
				profile = models.Profile{}
			}
			for k, v := range c.Added {
				profile[k] = v
			}
			for k, v := range c.Overwritten {
				profile[k] = v
			}
			ordered[i].Profile = profile
			res.Updated = append(res.Updated, ordered[i])
		}
		pending = c.Unresolved
	}

	if len(pending) > 0 {
		res.NewProfile = pending
	}
	return res
}

// withoutNulls drops null-valued fields: an absent or null value is not an
// identity claim and must not overwrite or conflict with anything.
func withoutNulls(p models.Profile) models.Profile {
	out := models.Profile{}
	for k, v := range p {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// valueEqual compares profile values as decoded from JSON. DeepEqual
// covers nested structures that == would panic on.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
