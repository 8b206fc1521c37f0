//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"leadconnect/internal/identity/models"
	"leadconnect/internal/identity/store"
	"leadconnect/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"events", "browsers", "profile_fragments", "leads")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestLeadAndFragmentLifecycle() {
	ctx := context.Background()

	lead, err := s.store.InsertLead(ctx)
	s.Require().NoError(err)
	s.Require().NotZero(lead.ID)

	f1, err := s.store.InsertFragment(ctx, lead.ID, models.Profile{"email": "a@x.com"})
	s.Require().NoError(err)
	f2, err := s.store.InsertFragment(ctx, lead.ID, models.Profile{"email": "b@x.com", "city": "Lisbon"})
	s.Require().NoError(err)
	s.Less(f1.ID, f2.ID, "bigserial preserves creation order")

	fragments, err := s.store.FindByLeadIDs(ctx, []models.LeadID{lead.ID})
	s.Require().NoError(err)
	s.Require().Len(fragments, 2)
	s.Equal(f1.ID, fragments[0].ID)
	s.Equal("a@x.com", fragments[0].Profile["email"])

	err = s.store.UpdateProfile(ctx, f1.ID, models.Profile{"email": "a@x.com", "phone": "555"})
	s.Require().NoError(err)

	fragments, err = s.store.FindByLeadIDs(ctx, []models.LeadID{lead.ID})
	s.Require().NoError(err)
	s.Equal("555", fragments[0].Profile["phone"])
}

func (s *PostgresStoreSuite) TestFindByAnyFieldDisjunction() {
	ctx := context.Background()

	l1, err := s.store.InsertLead(ctx)
	s.Require().NoError(err)
	l2, err := s.store.InsertLead(ctx)
	s.Require().NoError(err)

	_, err = s.store.InsertFragment(ctx, l1.ID, models.Profile{"email": "a@x.com"})
	s.Require().NoError(err)
	_, err = s.store.InsertFragment(ctx, l2.ID, models.Profile{"phone": "555"})
	s.Require().NoError(err)
	_, err = s.store.InsertFragment(ctx, l2.ID, models.Profile{"email": "other@x.com"})
	s.Require().NoError(err)

	matched, err := s.store.FindByAnyField(ctx, []store.Field{
		{Key: "email", Value: "a@x.com"},
		{Key: "phone", Value: "555"},
	})
	s.Require().NoError(err)
	s.Require().Len(matched, 2)
	s.Equal(l1.ID, matched[0].LeadID)
	s.Equal(l2.ID, matched[1].LeadID)

	none, err := s.store.FindByAnyField(ctx, []store.Field{{Key: "email", Value: "missing@x.com"}})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *PostgresStoreSuite) TestUpdateMissingFragmentFails() {
	err := s.store.UpdateProfile(context.Background(), 424242, models.Profile{})
	s.Error(err)
}

func (s *PostgresStoreSuite) TestReassignBeforeDeleteLeavesNoDanglers() {
	ctx := context.Background()

	canonical, err := s.store.InsertLead(ctx)
	s.Require().NoError(err)
	loser, err := s.store.InsertLead(ctx)
	s.Require().NoError(err)

	_, err = s.store.InsertFragment(ctx, loser.ID, models.Profile{"phone": "555"})
	s.Require().NoError(err)
	_, err = s.store.InsertEvent(ctx, loser.ID, 1, map[string]any{"slug": "promo"})
	s.Require().NoError(err)
	_, err = s.store.InsertBrowser(ctx, "dev-1", loser.ID, "UA")
	s.Require().NoError(err)

	losers := []models.LeadID{loser.ID}
	s.Require().NoError(s.store.ReassignEvents(ctx, losers, canonical.ID))
	s.Require().NoError(s.store.ReassignBrowsers(ctx, losers, canonical.ID))
	s.Require().NoError(s.store.DeleteByLeadIDs(ctx, losers))
	s.Require().NoError(s.store.DeleteLeads(ctx, losers))

	events, err := s.store.ListByLead(ctx, canonical.ID)
	s.Require().NoError(err)
	s.Len(events, 1)

	browser, err := s.store.FindByDeviceID(ctx, "dev-1")
	s.Require().NoError(err)
	s.Require().NotNil(browser)
	s.Equal(canonical.ID, browser.LeadID)

	orphans, err := s.store.FindByLeadIDs(ctx, losers)
	s.Require().NoError(err)
	s.Empty(orphans)
}

func (s *PostgresStoreSuite) TestBrowserAnchorUniqueness() {
	ctx := context.Background()
	lead, err := s.store.InsertLead(ctx)
	s.Require().NoError(err)

	_, err = s.store.InsertBrowser(ctx, "dev-unique", lead.ID, "UA")
	s.Require().NoError(err)
	_, err = s.store.InsertBrowser(ctx, "dev-unique", lead.ID, "UA")
	s.Error(err, "browser anchors are 1:1 per device")

	missing, err := s.store.FindByDeviceID(ctx, "never-seen")
	s.Require().NoError(err)
	s.Nil(missing)
}
