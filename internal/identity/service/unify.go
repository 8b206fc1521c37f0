package service

import (
	"context"

	"leadconnect/internal/identity/models"
	"leadconnect/internal/identity/resolver"
	derrors "leadconnect/pkg/domain-errors"
)

// unify collapses several matched leads into the one with the lowest id.
//
// The sequence is deliberately ordered: loser fragments are replayed into
// the canonical lead first, then the triggering event's own profile, then
// dependent events and browser anchors are repointed, and only then are
// the loser fragments and leads deleted. The steps are independent store
// calls, not a transaction; reassignment before deletion means a crash
// mid-sequence leaves orphaned-but-intact rows that a re-run can pick up,
// never dangling references.
func (s *Service) unify(ctx context.Context, match resolver.Match, incoming models.Profile) (models.LeadID, error) {
	canonical := match.LeadIDs[0]
	losers := match.LeadIDs[1:]

	byLead := make(map[models.LeadID][]models.ProfileFragment, len(match.LeadIDs))
	for _, f := range match.Fragments {
		byLead[f.LeadID] = append(byLead[f.LeadID], f)
	}

	// Absorb each loser lead ascending by id, fragment by fragment; every
	// replay updates the canonical set the next replay merges against.
	canonicalSet := byLead[canonical]
	for _, loser := range losers {
		for _, fragment := range byLead[loser] {
			merged, err := s.mergeProfile(ctx, canonical, canonicalSet, fragment.Profile)
			if err != nil {
				return 0, err
			}
			canonicalSet = merged
		}
	}

	// Second pass: the triggering event's own profile data. This may
	// still quarantine a leftover conflict into one more fragment; the
	// engine path is the same as any other merge.
	if _, err := s.mergeProfile(ctx, canonical, canonicalSet, incoming); err != nil {
		return 0, err
	}

	// Repoint dependents before any deletion.
	if err := s.events.ReassignEvents(ctx, losers, canonical); err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInternal, "reassign events to canonical lead")
	}
	if err := s.browsers.ReassignBrowsers(ctx, losers, canonical); err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInternal, "reassign browsers to canonical lead")
	}

	if err := s.fragments.DeleteByLeadIDs(ctx, losers); err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInternal, "delete merged-away fragments")
	}
	if err := s.leads.DeleteLeads(ctx, losers); err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInternal, "delete merged-away leads")
	}

	s.metrics.IncLeadsUnified(len(losers))
	s.logger.InfoContext(ctx, "leads unified",
		"canonical_lead_id", canonical, "merged_lead_ids", losers)
	return canonical, nil
}
