package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kwritelab/kwrite/internal/policy"
)

// PolicyStore loads and saves per-organization policy tables. The table body
// is stored as a single JSONB document keyed by organization.
type PolicyStore struct {
	db *DB
}

// Policies returns the policy table store backed by this database.
func (db *DB) Policies() *PolicyStore {
	return &PolicyStore{db: db}
}

// Load retrieves the policy table for an organization. An organization with no
// stored table gets the default table; that is not an error.
func (s *PolicyStore) Load(ctx context.Context, orgID string) (policy.Table, error) {
	var body []byte
	err := s.db.pool.QueryRow(ctx,
		`SELECT body FROM policy_tables WHERE org_id = $1`,
		orgID,
	).Scan(&body)
	if err != nil {
		if err == pgx.ErrNoRows {
			return policy.DefaultTable(), nil
		}
		return policy.Table{}, fmt.Errorf("failed to load policy table: %w", err)
	}

	var table policy.Table
	if err := json.Unmarshal(body, &table); err != nil {
		return policy.Table{}, fmt.Errorf("stored policy table is malformed: %w", err)
	}
	return table, nil
}

// Save creates or replaces the policy table for an organization.
func (s *PolicyStore) Save(ctx context.Context, orgID string, table policy.Table) error {
	body, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal policy table: %w", err)
	}

	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO policy_tables (org_id, body)
		 VALUES ($1, $2)
		 ON CONFLICT (org_id) DO UPDATE SET body = $2, updated_at = NOW()`,
		orgID, body,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy table: %w", err)
	}
	return nil
}
