package shortlink

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory trackpage store for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	bySlug map[string]TrackPage
	nextID int64
}

// NewMemoryStore creates an empty in-memory trackpage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySlug: make(map[string]TrackPage)}
}

// Add registers a trackpage and returns it with an assigned id.
func (s *MemoryStore) Add(slug, redirectTo string) TrackPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	page := TrackPage{ID: s.nextID, Slug: slug, RedirectTo: redirectTo}
	s.bySlug[slug] = page
	return page
}

// FindBySlug returns the trackpage for a slug, or nil when none exists.
func (s *MemoryStore) FindBySlug(_ context.Context, slug string) (*TrackPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.bySlug[slug]
	if !ok {
		return nil, nil
	}
	return &page, nil
}
