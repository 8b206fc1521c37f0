// Package resolver finds the leads an incoming identity claim refers to.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"leadconnect/internal/identity/models"
	"leadconnect/internal/identity/store"
	"leadconnect/internal/schema"
	derrors "leadconnect/pkg/domain-errors"
)

// Match is the full merge context for a claim: every fragment owned by any
// matched lead (not only the fragments that matched), and the distinct
// owner set sorted ascending.
type Match struct {
	Fragments []models.ProfileFragment
	LeadIDs   []models.LeadID
}

// IdentifyingFields extracts the (key, value) pairs usable for matching:
// identifying per the profile schema, present, and non-null. Values are
// rendered to the text form the fragment filter compares against.
func IdentifyingFields(profile models.Profile, ps *schema.ProfileSchema) []store.Field {
	var fields []store.Field
	for key, value := range profile {
		if value == nil || !ps.Identifying(key) {
			continue
		}
		fields = append(fields, store.Field{Key: key, Value: textValue(value)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	return fields
}

// Resolver queries the identity store for fragments matching a claim.
type Resolver struct {
	fragments store.FragmentStore
}

// New constructs a resolver over the given fragment store.
func New(fragments store.FragmentStore) *Resolver {
	return &Resolver{fragments: fragments}
}

// Resolve runs the disjunctive fragment match for the given identifying
// fields and widens the result to every fragment of every matched lead.
// An empty field list resolves to an empty match; the caller decides
// whether that is a new-lead path or a validation failure.
func (r *Resolver) Resolve(ctx context.Context, fields []store.Field) (Match, error) {
	if len(fields) == 0 {
		return Match{}, nil
	}
	for _, f := range fields {
		if err := validateFieldValue(f); err != nil {
			return Match{}, err
		}
	}

	matched, err := r.fragments.FindByAnyField(ctx, fields)
	if err != nil {
		return Match{}, derrors.Wrap(err, derrors.CodeInternal, "match fragments by identifying fields")
	}
	if len(matched) == 0 {
		return Match{}, nil
	}

	leadIDs := distinctLeadIDs(matched)

	// Merge decisions need each lead's full fragment set, not just the
	// fragments that happened to match.
	all, err := r.fragments.FindByLeadIDs(ctx, leadIDs)
	if err != nil {
		return Match{}, derrors.Wrap(err, derrors.CodeInternal, "fetch fragments for matched leads")
	}
	return Match{Fragments: all, LeadIDs: leadIDs}, nil
}

// validateFieldValue rejects values that would break filter syntax. They
// fail the event rather than being silently stripped.
func validateFieldValue(f store.Field) error {
	if strings.ContainsAny(f.Value, ",()") {
		return derrors.Newf(derrors.CodeValidation,
			"identifying field %q contains filter-breaking characters", f.Key)
	}
	return nil
}

func distinctLeadIDs(fragments []models.ProfileFragment) []models.LeadID {
	seen := make(map[models.LeadID]bool)
	var ids []models.LeadID
	for _, f := range fragments {
		if !seen[f.LeadID] {
			seen[f.LeadID] = true
			ids = append(ids, f.LeadID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func textValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
