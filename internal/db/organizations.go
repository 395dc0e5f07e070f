package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kwritelab/kwrite/internal/types"
)

// -----------------------------------------------------------------------------
// Organization Profile Methods
// -----------------------------------------------------------------------------

// GetOrganizationProfile retrieves the profile for an organization.
// A missing profile is (nil, nil), not an error.
func (db *DB) GetOrganizationProfile(ctx context.Context, orgID string) (*types.OrganizationProfile, error) {
	var p types.OrganizationProfile
	var channelsJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT org_id, name, communication_style, declared_channels
		 FROM organization_profiles WHERE org_id = $1`,
		orgID,
	).Scan(&p.OrganizationID, &p.Name, &p.CommunicationStyle, &channelsJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization profile: %w", err)
	}

	if len(channelsJSON) > 0 {
		_ = json.Unmarshal(channelsJSON, &p.DeclaredChannels)
	}

	return &p, nil
}

// UpsertOrganizationProfile creates or replaces an organization profile.
func (db *DB) UpsertOrganizationProfile(ctx context.Context, p *types.OrganizationProfile) error {
	channelsJSON, err := json.Marshal(p.DeclaredChannels)
	if err != nil {
		return fmt.Errorf("failed to marshal declared channels: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO organization_profiles (org_id, name, communication_style, declared_channels)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (org_id) DO UPDATE SET
		     name = $2,
		     communication_style = $3,
		     declared_channels = $4,
		     updated_at = NOW()`,
		p.OrganizationID, nullIfEmpty(p.Name), string(p.CommunicationStyle), channelsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert organization profile: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Guideline Methods
// -----------------------------------------------------------------------------

// GetGuidelines retrieves the guideline documents for an organization,
// most recent first.
func (db *DB) GetGuidelines(ctx context.Context, orgID string) ([]types.GuidelineDoc, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, org_id, title, content, created_at
		 FROM guideline_docs WHERE org_id = $1
		 ORDER BY created_at DESC`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get guidelines: %w", err)
	}
	defer rows.Close()

	var docs []types.GuidelineDoc
	for rows.Next() {
		var doc types.GuidelineDoc
		if err := rows.Scan(&doc.ID, &doc.OrgID, &doc.Title, &doc.Content, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guideline: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// AddGuideline stores a guideline document and fills in its generated fields.
func (db *DB) AddGuideline(ctx context.Context, doc *types.GuidelineDoc) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO guideline_docs (org_id, title, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		doc.OrgID, doc.Title, doc.Content,
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add guideline: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// User Preference Methods
// -----------------------------------------------------------------------------

// GetPreferences retrieves a user's style preferences within an organization.
// Missing preferences are (nil, nil).
func (db *DB) GetPreferences(ctx context.Context, userID, orgID string) (*types.UserPreferences, error) {
	var prefs types.UserPreferences
	var ending, verbosity, subjectHint *string
	err := db.pool.QueryRow(ctx,
		`SELECT user_id, preferred_ending, verbosity, subject_hint
		 FROM user_preferences WHERE user_id = $1 AND org_id = $2`,
		userID, orgID,
	).Scan(&prefs.UserID, &ending, &verbosity, &subjectHint)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	if ending != nil {
		prefs.PreferredEnding = *ending
	}
	if verbosity != nil {
		prefs.Verbosity = *verbosity
	}
	if subjectHint != nil {
		prefs.SubjectHint = *subjectHint
	}
	return &prefs, nil
}

// SavePreferences creates or replaces a user's preferences.
func (db *DB) SavePreferences(ctx context.Context, orgID string, prefs *types.UserPreferences) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO user_preferences (user_id, org_id, preferred_ending, verbosity, subject_hint)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, org_id) DO UPDATE SET
		     preferred_ending = $3,
		     verbosity = $4,
		     subject_hint = $5,
		     updated_at = NOW()`,
		prefs.UserID, orgID,
		nullIfEmpty(prefs.PreferredEnding), nullIfEmpty(prefs.Verbosity), nullIfEmpty(prefs.SubjectHint),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
