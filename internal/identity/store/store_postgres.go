package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"leadconnect/internal/identity/models"
)

// Postgres persists identity records. Profiles and event data are jsonb;
// ids are bigserial, so creation order and id order coincide.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) InsertLead(ctx context.Context) (*models.Lead, error) {
	var lead models.Lead
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO leads DEFAULT VALUES RETURNING id, created_at`,
	).Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	return &lead, nil
}

func (s *Postgres) DeleteLeads(ctx context.Context, ids []models.LeadID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM leads WHERE id = ANY($1)`, pq.Array(leadIDs64(ids)))
	if err != nil {
		return fmt.Errorf("delete leads: %w", err)
	}
	return nil
}

func (s *Postgres) InsertFragment(ctx context.Context, leadID models.LeadID, profile models.Profile) (*models.ProfileFragment, error) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("insert fragment: marshal profile: %w", err)
	}
	f := models.ProfileFragment{LeadID: leadID, Profile: profile.Clone()}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO profile_fragments (lead_id, profile) VALUES ($1, $2) RETURNING id, created_at`,
		int64(leadID), payload,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert fragment: %w", err)
	}
	return &f, nil
}

func (s *Postgres) UpdateProfile(ctx context.Context, id models.FragmentID, profile models.Profile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("update fragment: marshal profile: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE profile_fragments SET profile = $2 WHERE id = $1`, int64(id), payload)
	if err != nil {
		return fmt.Errorf("update fragment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update fragment rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update fragment: fragment %d not found", id)
	}
	return nil
}

func (s *Postgres) FindByAnyField(ctx context.Context, fields []Field) ([]models.ProfileFragment, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	// Disjunctive match over the jsonb text projection of each key.
	conditions := make([]string, len(fields))
	args := make([]any, 0, len(fields)*2)
	for i, f := range fields {
		conditions[i] = fmt.Sprintf("profile->>$%d = $%d", len(args)+1, len(args)+2)
		args = append(args, f.Key, f.Value)
	}
	query := `SELECT id, lead_id, profile, created_at FROM profile_fragments WHERE ` +
		strings.Join(conditions, " OR ") + ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find fragments by field: %w", err)
	}
	defer rows.Close()
	return scanFragments(rows, "find fragments by field")
}

func (s *Postgres) FindByLeadIDs(ctx context.Context, leadIDs []models.LeadID) ([]models.ProfileFragment, error) {
	if len(leadIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, profile, created_at FROM profile_fragments WHERE lead_id = ANY($1) ORDER BY id`,
		pq.Array(leadIDs64(leadIDs)))
	if err != nil {
		return nil, fmt.Errorf("find fragments by lead: %w", err)
	}
	defer rows.Close()
	return scanFragments(rows, "find fragments by lead")
}

func (s *Postgres) DeleteByLeadIDs(ctx context.Context, leadIDs []models.LeadID) error {
	if len(leadIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM profile_fragments WHERE lead_id = ANY($1)`, pq.Array(leadIDs64(leadIDs)))
	if err != nil {
		return fmt.Errorf("delete fragments by lead: %w", err)
	}
	return nil
}

func (s *Postgres) InsertEvent(ctx context.Context, leadID models.LeadID, eventSchemaID int64, data map[string]any) (*models.Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("insert event: marshal data: %w", err)
	}
	e := models.Event{LeadID: leadID, EventSchemaID: eventSchemaID, Data: data}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO events (lead_id, event_schema_id, data) VALUES ($1, $2, $3) RETURNING id, created_at`,
		int64(leadID), eventSchemaID, payload,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &e, nil
}

func (s *Postgres) ReassignEvents(ctx context.Context, from []models.LeadID, to models.LeadID) error {
	if len(from) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET lead_id = $1 WHERE lead_id = ANY($2)`,
		int64(to), pq.Array(leadIDs64(from)))
	if err != nil {
		return fmt.Errorf("reassign events: %w", err)
	}
	return nil
}

func (s *Postgres) ListByLead(ctx context.Context, leadID models.LeadID) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, event_schema_id, data, created_at FROM events WHERE lead_id = $1 ORDER BY id`,
		int64(leadID))
	if err != nil {
		return nil, fmt.Errorf("list events by lead: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			e    models.Event
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.LeadID, &e.EventSchemaID, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal(data, &e.Data); err != nil {
			return nil, fmt.Errorf("decode event data: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events by lead: %w", err)
	}
	return out, nil
}

func (s *Postgres) FindByDeviceID(ctx context.Context, deviceID string) (*models.Browser, error) {
	var b models.Browser
	err := s.db.QueryRowContext(ctx,
		`SELECT id, browser_id, lead_id, user_agent, created_at FROM browsers WHERE browser_id = $1`,
		deviceID,
	).Scan(&b.ID, &b.DeviceID, &b.LeadID, &b.UserAgent, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find browser: %w", err)
	}
	return &b, nil
}

func (s *Postgres) InsertBrowser(ctx context.Context, deviceID string, leadID models.LeadID, userAgent string) (*models.Browser, error) {
	b := models.Browser{DeviceID: deviceID, LeadID: leadID, UserAgent: userAgent}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO browsers (browser_id, lead_id, user_agent) VALUES ($1, $2, $3) RETURNING id, created_at`,
		deviceID, int64(leadID), userAgent,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert browser: %w", err)
	}
	return &b, nil
}

func (s *Postgres) ReassignBrowsers(ctx context.Context, from []models.LeadID, to models.LeadID) error {
	if len(from) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE browsers SET lead_id = $1 WHERE lead_id = ANY($2)`,
		int64(to), pq.Array(leadIDs64(from)))
	if err != nil {
		return fmt.Errorf("reassign browsers: %w", err)
	}
	return nil
}

func scanFragments(rows *sql.Rows, op string) ([]models.ProfileFragment, error) {
	var out []models.ProfileFragment
	for rows.Next() {
		var (
			f       models.ProfileFragment
			profile []byte
		)
		if err := rows.Scan(&f.ID, &f.LeadID, &profile, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		if err := json.Unmarshal(profile, &f.Profile); err != nil {
			return nil, fmt.Errorf("%s: decode profile: %w", op, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func leadIDs64(ids []models.LeadID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
