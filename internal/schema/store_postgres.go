package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore reads schema rows. Pure I/O; decoding errors surface so a
// malformed schema fails startup instead of individual requests.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed schema store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListEventSchemas(ctx context.Context) ([]EventSchema, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, mapping FROM event_schemas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list event schemas: %w", err)
	}
	defer rows.Close()

	var schemas []EventSchema
	for rows.Next() {
		var (
			es      EventSchema
			typ     sql.NullString
			mapping []byte
		)
		if err := rows.Scan(&es.ID, &typ, &mapping); err != nil {
			return nil, fmt.Errorf("scan event schema: %w", err)
		}
		es.Type = typ.String
		if es.Mapping, err = DecodeGroup(mapping); err != nil {
			return nil, fmt.Errorf("event schema %d: %w", es.ID, err)
		}
		schemas = append(schemas, es)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list event schemas: %w", err)
	}
	return schemas, nil
}

func (s *PostgresStore) GetProfileSchema(ctx context.Context) (*ProfileSchema, error) {
	var fields []byte
	err := s.db.QueryRowContext(ctx, `SELECT fields FROM profile_schema LIMIT 1`).Scan(&fields)
	if err != nil {
		return nil, fmt.Errorf("get profile schema: %w", err)
	}

	var classes map[string]FieldClass
	if err := json.Unmarshal(fields, &classes); err != nil {
		return nil, fmt.Errorf("decode profile schema: %w", err)
	}
	for key, class := range classes {
		if class != FieldIdentifying && class != FieldDescriptive {
			return nil, fmt.Errorf("profile schema field %q: unknown class %q", key, class)
		}
	}
	return NewProfileSchema(classes), nil
}
