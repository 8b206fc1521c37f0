package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"leadconnect/internal/identity/models"
)

// Memory implements every identity port in process. Ids are handed out in
// ascending creation order, matching the bigserial semantics the merge walk
// and unification depend on.
type Memory struct {
	mu sync.RWMutex

	nextLeadID     models.LeadID
	nextFragmentID models.FragmentID
	nextEventID    models.EventID
	nextBrowserID  int64

	leads     map[models.LeadID]*models.Lead
	fragments map[models.FragmentID]*models.ProfileFragment
	events    map[models.EventID]*models.Event
	browsers  map[string]*models.Browser
}

// NewMemory creates an empty in-memory identity store.
func NewMemory() *Memory {
	return &Memory{
		leads:     make(map[models.LeadID]*models.Lead),
		fragments: make(map[models.FragmentID]*models.ProfileFragment),
		events:    make(map[models.EventID]*models.Event),
		browsers:  make(map[string]*models.Browser),
	}
}

func (m *Memory) InsertLead(_ context.Context) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextLeadID++
	lead := &models.Lead{ID: m.nextLeadID, CreatedAt: time.Now()}
	m.leads[lead.ID] = lead
	copied := *lead
	return &copied, nil
}

func (m *Memory) DeleteLeads(_ context.Context, ids []models.LeadID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.leads, id)
	}
	return nil
}

// LeadCount reports live leads, for tests.
func (m *Memory) LeadCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.leads)
}

// LeadExists reports whether a lead row is still present, for tests.
func (m *Memory) LeadExists(id models.LeadID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.leads[id]
	return ok
}

func (m *Memory) InsertFragment(_ context.Context, leadID models.LeadID, profile models.Profile) (*models.ProfileFragment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[leadID]; !ok {
		return nil, fmt.Errorf("insert fragment: lead %d not found", leadID)
	}
	m.nextFragmentID++
	f := &models.ProfileFragment{
		ID:        m.nextFragmentID,
		LeadID:    leadID,
		Profile:   profile.Clone(),
		CreatedAt: time.Now(),
	}
	m.fragments[f.ID] = f
	return copyFragment(f), nil
}

func (m *Memory) UpdateProfile(_ context.Context, id models.FragmentID, profile models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.fragments[id]
	if !ok {
		return fmt.Errorf("update fragment: fragment %d not found", id)
	}
	f.Profile = profile.Clone()
	return nil
}

func (m *Memory) FindByAnyField(_ context.Context, fields []Field) ([]models.ProfileFragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ProfileFragment
	for _, f := range m.fragments {
		if matchesAny(f.Profile, fields) {
			out = append(out, *copyFragment(f))
		}
	}
	sortFragments(out)
	return out, nil
}

func (m *Memory) FindByLeadIDs(_ context.Context, leadIDs []models.LeadID) ([]models.ProfileFragment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[models.LeadID]bool, len(leadIDs))
	for _, id := range leadIDs {
		wanted[id] = true
	}
	var out []models.ProfileFragment
	for _, f := range m.fragments {
		if wanted[f.LeadID] {
			out = append(out, *copyFragment(f))
		}
	}
	sortFragments(out)
	return out, nil
}

func (m *Memory) DeleteByLeadIDs(_ context.Context, leadIDs []models.LeadID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[models.LeadID]bool, len(leadIDs))
	for _, id := range leadIDs {
		wanted[id] = true
	}
	for id, f := range m.fragments {
		if wanted[f.LeadID] {
			delete(m.fragments, id)
		}
	}
	return nil
}

func (m *Memory) InsertEvent(_ context.Context, leadID models.LeadID, eventSchemaID int64, data map[string]any) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.leads[leadID]; !ok {
		return nil, fmt.Errorf("insert event: lead %d not found", leadID)
	}
	m.nextEventID++
	e := &models.Event{
		ID:            m.nextEventID,
		LeadID:        leadID,
		EventSchemaID: eventSchemaID,
		Data:          data,
		CreatedAt:     time.Now(),
	}
	m.events[e.ID] = e
	copied := *e
	return &copied, nil
}

func (m *Memory) ReassignEvents(_ context.Context, from []models.LeadID, to models.LeadID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[models.LeadID]bool, len(from))
	for _, id := range from {
		wanted[id] = true
	}
	for _, e := range m.events {
		if wanted[e.LeadID] {
			e.LeadID = to
		}
	}
	return nil
}

func (m *Memory) ListByLead(_ context.Context, leadID models.LeadID) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Event
	for _, e := range m.events {
		if e.LeadID == leadID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) FindByDeviceID(_ context.Context, deviceID string) (*models.Browser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.browsers[deviceID]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (m *Memory) InsertBrowser(_ context.Context, deviceID string, leadID models.LeadID, userAgent string) (*models.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.browsers[deviceID]; exists {
		return nil, fmt.Errorf("insert browser: device %q already anchored", deviceID)
	}
	m.nextBrowserID++
	b := &models.Browser{
		ID:        m.nextBrowserID,
		DeviceID:  deviceID,
		LeadID:    leadID,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}
	m.browsers[deviceID] = b
	copied := *b
	return &copied, nil
}

func (m *Memory) ReassignBrowsers(_ context.Context, from []models.LeadID, to models.LeadID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[models.LeadID]bool, len(from))
	for _, id := range from {
		wanted[id] = true
	}
	for _, b := range m.browsers {
		if wanted[b.LeadID] {
			b.LeadID = to
		}
	}
	return nil
}

// matchesAny mirrors the text comparison the Postgres store's
// profile->>key filter performs.
func matchesAny(profile models.Profile, fields []Field) bool {
	for _, f := range fields {
		if v, ok := profile[f.Key]; ok && v != nil && textValue(v) == f.Value {
			return true
		}
	}
	return false
}

func textValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func copyFragment(f *models.ProfileFragment) *models.ProfileFragment {
	copied := *f
	copied.Profile = f.Profile.Clone()
	return &copied
}

func sortFragments(fs []models.ProfileFragment) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].ID < fs[j].ID })
}
