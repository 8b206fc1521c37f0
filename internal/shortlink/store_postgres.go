package shortlink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore reads trackpages from Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a trackpage store over an open connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindBySlug returns the trackpage for a slug, or nil when none exists.
func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*TrackPage, error) {
	var page TrackPage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, redirect_to FROM trackpages WHERE slug = $1`, slug,
	).Scan(&page.ID, &page.Slug, &page.RedirectTo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query trackpage: %w", err)
	}
	return &page, nil
}
