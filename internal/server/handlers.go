package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/kwritelab/kwrite/internal/db"
	"github.com/kwritelab/kwrite/internal/ingestion"
	"github.com/kwritelab/kwrite/internal/policy"
	"github.com/kwritelab/kwrite/internal/rewriting"
	"github.com/kwritelab/kwrite/internal/server/middleware"
	"github.com/kwritelab/kwrite/internal/types"
)

// QualityAnalyzer runs the analysis pipeline for one request.
type QualityAnalyzer interface {
	AnalyzeQuality(ctx context.Context, req types.AnalysisRequest) *types.AnalysisResult
}

// OrgStore is the subset of database operations the organization handlers need.
type OrgStore interface {
	GetOrganizationProfile(ctx context.Context, orgID string) (*types.OrganizationProfile, error)
	UpsertOrganizationProfile(ctx context.Context, p *types.OrganizationProfile) error
	AddGuideline(ctx context.Context, doc *types.GuidelineDoc) error
}

// AnalysisStore persists and lists analysis history.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, orgID, userID, text string, result *types.AnalysisResult) (uuid.UUID, error)
	ListAnalyses(ctx context.Context, filters db.AnalysisFilters) ([]db.AnalysisSummary, error)
}

// PolicyStore loads and saves per-organization policy tables.
type PolicyStore interface {
	Load(ctx context.Context, orgID string) (policy.Table, error)
	Save(ctx context.Context, orgID string, table policy.Table) error
}

// analyzeRequest is the request body for POST /analyze.
type analyzeRequest struct {
	Text             string `json:"text"`
	TargetAudience   string `json:"target_audience"`
	SituationContext string `json:"situation_context"`
}

// analyzeResponse wraps an analysis result with its stored ID.
type analyzeResponse struct {
	AnalysisID string                `json:"analysis_id,omitempty"`
	Result     *types.AnalysisResult `json:"result"`
}

// handleAnalyze runs the quality-analysis pipeline for the authenticated user.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orgID, err := middleware.GetOrgID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := types.AnalysisRequest{
		Text:             body.Text,
		TargetAudience:   body.TargetAudience,
		SituationContext: body.SituationContext,
		OrganizationID:   orgID,
		UserID:           userID.String(),
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.analyzer.AnalyzeQuality(r.Context(), req)

	response := analyzeResponse{Result: result}
	if s.analyses != nil {
		id, err := s.analyses.SaveAnalysis(r.Context(), orgID, req.UserID, req.Text, result)
		if err != nil {
			log.Printf("Warning: failed to save analysis: %v", err)
		} else {
			response.AnalysisID = id.String()
		}
	}

	s.jsonResponse(w, http.StatusOK, response)
}

// rewriteRequest is the request body for POST /rewrite.
type rewriteRequest struct {
	Text             string                 `json:"text"`
	TargetAudience   string                 `json:"target_audience"`
	SituationContext string                 `json:"situation_context"`
	Feedback         []types.FeedbackItem   `json:"feedback,omitempty"`
	Terms            []types.TermSuggestion `json:"terms,omitempty"`
	StrictPolicy     bool                   `json:"strict_policy,omitempty"`
	AnalysisOnly     bool                   `json:"analysis_only,omitempty"`
	SubjectHint      string                 `json:"subject_hint,omitempty"`
}

// handleRewrite runs the deterministic rewriter for the authenticated user.
func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	orgID, err := middleware.GetOrgID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body rewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Text == "" {
		s.errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	table := policy.DefaultTable()
	if s.policies != nil {
		loaded, err := s.policies.Load(r.Context(), orgID)
		if err != nil {
			log.Printf("Warning: failed to load policy table for %s: %v; using default policy", orgID, err)
		} else {
			table = loaded
		}
	}

	rctx := types.NewRewriteContext(body.TargetAudience, body.SituationContext)
	result := rewriting.Rewrite(body.Text, body.Feedback, body.Terms, rctx, table, rewriting.Options{
		StrictPolicy: body.StrictPolicy,
		AnalysisOnly: body.AnalysisOnly,
		SubjectHint:  body.SubjectHint,
	})

	s.jsonResponse(w, http.StatusOK, result)
}

// handleGetOrganization returns an organization profile.
func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("id")

	profile, err := s.orgs.GetOrganizationProfile(r.Context(), orgID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if profile == nil {
		err := &ErrOrganizationNotFound{OrgID: orgID}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, profile)
}

// handlePutOrganization creates or replaces an organization profile.
func (s *Server) handlePutOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("id")

	var profile types.OrganizationProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile.OrganizationID = orgID

	if err := s.orgs.UpsertOrganizationProfile(r.Context(), &profile); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, profile)
}

// handleGetPolicy returns the organization's policy table.
func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("id")

	table, err := s.policies.Load(r.Context(), orgID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, table)
}

// handlePutPolicy creates or replaces the organization's policy table.
func (s *Server) handlePutPolicy(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("id")

	var table policy.Table
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.policies.Save(r.Context(), orgID, table); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, table)
}

// guidelineRequest is the request body for POST /organizations/{id}/guidelines.
// Either a URL to ingest or an inline title+content must be provided.
type guidelineRequest struct {
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// handleAddGuideline imports a guideline document, from a URL or inline.
func (s *Server) handleAddGuideline(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("id")

	var body guidelineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var doc *types.GuidelineDoc
	switch {
	case body.URL != "":
		fetched, err := ingestion.FromURL(r.Context(), orgID, body.URL, nil)
		if err != nil {
			s.errorResponse(w, http.StatusBadGateway, err.Error())
			return
		}
		doc = fetched
	case body.Title != "" && body.Content != "":
		doc = &types.GuidelineDoc{OrgID: orgID, Title: body.Title, Content: body.Content}
	default:
		s.errorResponse(w, http.StatusBadRequest, "either url or title+content is required")
		return
	}

	if err := s.orgs.AddGuideline(r.Context(), doc); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, doc)
}

// handleListAnalyses lists recent analyses for the authenticated organization.
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	orgID, err := middleware.GetOrgID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filters := db.AnalysisFilters{
		OrgID:  orgID,
		UserID: r.URL.Query().Get("user_id"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	summaries, err := s.analyses.ListAnalyses(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []db.AnalysisSummary{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"analyses": summaries})
}
