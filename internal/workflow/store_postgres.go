package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore reads workflows from Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a workflow store over an open connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindByWebhookPath returns the workflow for a webhook path, or nil when
// none is registered.
func (s *PostgresStore) FindByWebhookPath(ctx context.Context, path string) (*Workflow, error) {
	var wf Workflow
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, webhook_path, event_schema_id FROM workflows WHERE webhook_path = $1`, path,
	).Scan(&wf.ID, &wf.Name, &wf.WebhookPath, &wf.EventSchemaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query workflow: %w", err)
	}
	return &wf, nil
}
