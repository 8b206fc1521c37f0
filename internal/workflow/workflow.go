// Package workflow maps inbound webhook paths to the event schema that
// decodes their payloads.
package workflow

import (
	"context"

	derrors "leadconnect/pkg/domain-errors"
)

// Workflow binds a webhook path to an event schema.
type Workflow struct {
	ID            int64
	Name          string
	WebhookPath   string
	EventSchemaID int64
}

// Store looks up workflows. Returns nil when the path is unknown.
type Store interface {
	FindByWebhookPath(ctx context.Context, path string) (*Workflow, error)
}

// Service resolves webhook paths to workflows.
type Service struct {
	store Store
}

// New constructs a workflow service.
func New(store Store) *Service {
	return &Service{store: store}
}

// ByWebhookPath returns the workflow registered for a webhook path.
func (s *Service) ByWebhookPath(ctx context.Context, path string) (*Workflow, error) {
	if path == "" {
		return nil, derrors.New(derrors.CodeValidation, "webhook path is required")
	}
	wf, err := s.store.FindByWebhookPath(ctx, path)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "find workflow by webhook path")
	}
	if wf == nil {
		return nil, derrors.Newf(derrors.CodeNotFound, "no workflow for webhook path %q", path)
	}
	return wf, nil
}
