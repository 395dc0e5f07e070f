package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kwritelab/kwrite/internal/types"
)

// AnalysisRecord is one stored analysis run.
type AnalysisRecord struct {
	ID        uuid.UUID            `json:"id"`
	OrgID     string               `json:"org_id"`
	UserID    string               `json:"user_id"`
	Text      string               `json:"text"`
	Result    types.AnalysisResult `json:"result"`
	CreatedAt time.Time            `json:"created_at"`
}

// AnalysisSummary is a lightweight view of an analysis for listing.
type AnalysisSummary struct {
	ID              uuid.UUID            `json:"id"`
	OrgID           string               `json:"org_id"`
	UserID          string               `json:"user_id"`
	ComplianceScore float64              `json:"compliance_score"`
	Method          types.AnalysisMethod `json:"method"`
	CreatedAt       time.Time            `json:"created_at"`
}

// SaveAnalysis stores one analysis run and returns its ID. The full result is
// stored as a JSONB document; the compliance score and method are lifted into
// columns for listing.
func (db *DB) SaveAnalysis(ctx context.Context, orgID, userID, text string, result *types.AnalysisResult) (uuid.UUID, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO analyses (org_id, user_id, text, result, compliance_score, method)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		orgID, userID, text, body, result.ComplianceScore, string(result.Metadata.Method),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save analysis: %w", err)
	}
	return id, nil
}

// AnalysisFilters holds optional filters for listing analyses.
type AnalysisFilters struct {
	OrgID  string
	UserID string
	Limit  int
}

// ListAnalyses retrieves recent analyses with optional filters.
func (db *DB) ListAnalyses(ctx context.Context, filters AnalysisFilters) ([]AnalysisSummary, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, org_id, user_id, compliance_score, method, created_at
		FROM analyses WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.OrgID != "" {
		query += fmt.Sprintf(" AND org_id = $%d", argNum)
		args = append(args, filters.OrgID)
		argNum++
	}
	if filters.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, filters.UserID)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var summaries []AnalysisSummary
	for rows.Next() {
		var s AnalysisSummary
		if err := rows.Scan(&s.ID, &s.OrgID, &s.UserID, &s.ComplianceScore, &s.Method, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
