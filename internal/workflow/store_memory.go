package workflow

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory workflow store for tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	byPath map[string]Workflow
	nextID int64
}

// NewMemoryStore creates an empty in-memory workflow store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byPath: make(map[string]Workflow)}
}

// Add registers a workflow and returns it with an assigned id.
func (s *MemoryStore) Add(name, webhookPath string, eventSchemaID int64) Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	wf := Workflow{ID: s.nextID, Name: name, WebhookPath: webhookPath, EventSchemaID: eventSchemaID}
	s.byPath[webhookPath] = wf
	return wf
}

// FindByWebhookPath returns the workflow for a webhook path, or nil when
// none is registered.
func (s *MemoryStore) FindByWebhookPath(_ context.Context, path string) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.byPath[path]
	if !ok {
		return nil, nil
	}
	return &wf, nil
}
