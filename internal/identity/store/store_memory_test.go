package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadconnect/internal/identity/models"
)

func TestMemoryIDsAscendInCreationOrder(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	l1, err := mem.InsertLead(ctx)
	require.NoError(t, err)
	l2, err := mem.InsertLead(ctx)
	require.NoError(t, err)
	assert.Less(t, l1.ID, l2.ID)

	f1, err := mem.InsertFragment(ctx, l1.ID, models.Profile{"email": "a@x.com"})
	require.NoError(t, err)
	f2, err := mem.InsertFragment(ctx, l1.ID, models.Profile{"email": "b@x.com"})
	require.NoError(t, err)
	assert.Less(t, f1.ID, f2.ID)
}

func TestMemoryFragmentIsolation(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	lead, _ := mem.InsertLead(ctx)

	profile := models.Profile{"email": "a@x.com"}
	f, err := mem.InsertFragment(ctx, lead.ID, profile)
	require.NoError(t, err)

	// Mutating either the input or the returned copy must not leak into
	// stored state.
	profile["email"] = "changed"
	f.Profile["email"] = "also changed"

	stored, err := mem.FindByLeadIDs(ctx, []models.LeadID{lead.ID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "a@x.com", stored[0].Profile["email"])
}

func TestMemoryFindByAnyFieldTextComparison(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	lead, _ := mem.InsertLead(ctx)
	_, err := mem.InsertFragment(ctx, lead.ID, models.Profile{"phone": float64(555), "nickname": nil})
	require.NoError(t, err)

	found, err := mem.FindByAnyField(ctx, []Field{{Key: "phone", Value: "555"}})
	require.NoError(t, err)
	assert.Len(t, found, 1, "numeric values match their text form")

	found, err = mem.FindByAnyField(ctx, []Field{{Key: "nickname", Value: "<nil>"}})
	require.NoError(t, err)
	assert.Empty(t, found, "null values never match")
}

func TestMemoryReassignAndDelete(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	l1, _ := mem.InsertLead(ctx)
	l2, _ := mem.InsertLead(ctx)
	_, err := mem.InsertFragment(ctx, l2.ID, models.Profile{"email": "b@x.com"})
	require.NoError(t, err)
	_, err = mem.InsertEvent(ctx, l2.ID, 1, map[string]any{"k": "v"})
	require.NoError(t, err)
	_, err = mem.InsertBrowser(ctx, "dev-1", l2.ID, "UA")
	require.NoError(t, err)

	require.NoError(t, mem.ReassignEvents(ctx, []models.LeadID{l2.ID}, l1.ID))
	require.NoError(t, mem.ReassignBrowsers(ctx, []models.LeadID{l2.ID}, l1.ID))
	require.NoError(t, mem.DeleteByLeadIDs(ctx, []models.LeadID{l2.ID}))
	require.NoError(t, mem.DeleteLeads(ctx, []models.LeadID{l2.ID}))

	events, err := mem.ListByLead(ctx, l1.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	browser, err := mem.FindByDeviceID(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, browser)
	assert.Equal(t, l1.ID, browser.LeadID)

	assert.False(t, mem.LeadExists(l2.ID))
	fragments, err := mem.FindByLeadIDs(ctx, []models.LeadID{l2.ID})
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestMemoryDuplicateBrowserRejected(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	lead, _ := mem.InsertLead(ctx)

	_, err := mem.InsertBrowser(ctx, "dev-1", lead.ID, "UA")
	require.NoError(t, err)
	_, err = mem.InsertBrowser(ctx, "dev-1", lead.ID, "UA")
	assert.Error(t, err)
}

func TestMemoryConcurrentLeadCreation(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, err := mem.InsertLead(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, mem.LeadCount())
}
