package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwritelab/kwrite/internal/llm"
	"github.com/kwritelab/kwrite/internal/policy"
	"github.com/kwritelab/kwrite/internal/types"
)

// fakeClient scripts one response per call, in order.
type fakeClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", fmt.Errorf("unscripted call %d", idx)
}

func (f *fakeClient) GetModel(tier llm.ModelTier) string { return "fake" }
func (f *fakeClient) Close() error                       { return nil }

type fakeOrgStore struct {
	profile *types.OrganizationProfile
	err     error
}

func (f *fakeOrgStore) GetOrganizationProfile(ctx context.Context, orgID string) (*types.OrganizationProfile, error) {
	return f.profile, f.err
}

type fakeGuidelineStore struct {
	docs []types.GuidelineDoc
	err  error
}

func (f *fakeGuidelineStore) GetGuidelines(ctx context.Context, orgID string) ([]types.GuidelineDoc, error) {
	return f.docs, f.err
}

type fakePrefStore struct {
	prefs *types.UserPreferences
	err   error
}

func (f *fakePrefStore) GetPreferences(ctx context.Context, userID, orgID string) (*types.UserPreferences, error) {
	return f.prefs, f.err
}

type fakePolicyLoader struct {
	table policy.Table
	err   error
}

func (f *fakePolicyLoader) Load(ctx context.Context, orgID string) (policy.Table, error) {
	return f.table, f.err
}

func primaryDoc() string {
	return `{
		"grammar_score": 82,
		"formality_score": 76,
		"readability_score": 88,
		"protocol_score": 70,
		"overall_assessment": 79,
		"grammar_suggestions": [{"issue": "어미 혼용", "suggestion": "습니다체로 통일", "severity": "medium"}],
		"protocol_suggestions": []
	}`
}

func suggestionDoc() string {
	return `{"grammar_suggestions": [{"issue": "톤", "suggestion": "격식체 사용"}],
		"protocol_suggestions": [{"issue": "제목", "suggestion": "Subject 추가"}]}`
}

func sampleRequest() types.AnalysisRequest {
	return types.AnalysisRequest{
		Text:             "보고서를 검토해 주시기 바랍니다.",
		TargetAudience:   "직속상사",
		SituationContext: "보고서",
		OrganizationID:   "org-1",
		UserID:           "user-1",
	}
}

func newTestAnalyzer(client llm.Client) *Analyzer {
	return NewAnalyzer(client,
		&fakeOrgStore{profile: &types.OrganizationProfile{
			OrganizationID:     "org-1",
			CommunicationStyle: types.StyleStrict,
		}},
		&fakeGuidelineStore{},
		&fakePrefStore{},
		&fakePolicyLoader{table: policy.DefaultTable()},
		Options{})
}

func TestAnalyzeQuality_PrimaryPath(t *testing.T) {
	client := &fakeClient{responses: []string{primaryDoc()}}
	analyzer := newTestAnalyzer(client)

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	require.NotNil(t, result)
	assert.Equal(t, types.MethodPrimary, result.Metadata.Method)
	assert.Equal(t, types.ConfidenceHigh, result.Metadata.Confidence)
	assert.InDelta(t, 82, result.GrammarScore, 1e-9)
	// Primary path lifts the model's own overall assessment.
	assert.InDelta(t, 79, result.ComplianceScore, 1e-9)
	require.Len(t, result.GrammarSuggestions, 1)
	assert.Equal(t, 1, client.calls, "primary path makes exactly one model call")
}

func TestAnalyzeQuality_FallbackRuleWithModelSuggestions(t *testing.T) {
	// Primary call fails; the secondary suggestion call succeeds.
	client := &fakeClient{
		errs:      []error{fmt.Errorf("model unavailable")},
		responses: []string{"", suggestionDoc()},
	}
	analyzer := newTestAnalyzer(client)

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	assert.Equal(t, types.MethodFallbackRule, result.Metadata.Method)
	assert.Equal(t, types.ConfidenceMedium, result.Metadata.Confidence)
	assert.Contains(t, result.Metadata.FallbackReason, "model unavailable")
	assert.NotEmpty(t, result.GrammarSuggestions)
}

func TestAnalyzeQuality_FallbackRuleWithDeterministicSuggestions(t *testing.T) {
	// Primary fails and both suggestion attempts fail: confidence drops to low.
	client := &fakeClient{
		errs: []error{
			fmt.Errorf("model unavailable"),
			fmt.Errorf("model unavailable"),
			fmt.Errorf("model unavailable"),
		},
	}
	analyzer := newTestAnalyzer(client)

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	assert.Equal(t, types.MethodFallbackRule, result.Metadata.Method)
	assert.Equal(t, types.ConfidenceLow, result.Metadata.Confidence)
}

func TestAnalyzeQuality_FallbackComplianceAveragedLocally(t *testing.T) {
	client := &fakeClient{
		errs:      []error{fmt.Errorf("down")},
		responses: []string{"", suggestionDoc()},
	}
	analyzer := newTestAnalyzer(client)

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	// Deliberate asymmetry with the primary path: the fallback averages
	// grammar and protocol locally instead of lifting a model assessment.
	expected := (result.GrammarScore + result.ProtocolScore) / 2
	assert.InDelta(t, expected, result.ComplianceScore, 1e-9)
}

func TestAnalyzeQuality_ScoresAlwaysInRange(t *testing.T) {
	client := &fakeClient{
		errs:      []error{fmt.Errorf("down")},
		responses: []string{"", suggestionDoc()},
	}
	analyzer := newTestAnalyzer(client)

	req := sampleRequest()
	req.Text = "대박 😀"
	result := analyzer.AnalyzeQuality(context.Background(), req)

	for name, score := range map[string]float64{
		"grammar":     result.GrammarScore,
		"formality":   result.FormalityScore,
		"readability": result.ReadabilityScore,
		"protocol":    result.ProtocolScore,
		"compliance":  result.ComplianceScore,
	} {
		assert.GreaterOrEqual(t, score, 0.0, name)
		assert.LessOrEqual(t, score, 100.0, name)
	}
}

func TestAnalyzeQuality_SchemaViolationTriggersFallback(t *testing.T) {
	// Parseable JSON that violates the schema (score out of range) must be
	// treated like malformed output.
	bad := `{"grammar_score": 500, "formality_score": 70, "readability_score": 70, "protocol_score": 70}`
	client := &fakeClient{responses: []string{bad, suggestionDoc()}}
	analyzer := newTestAnalyzer(client)

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	assert.Equal(t, types.MethodFallbackRule, result.Metadata.Method)
	assert.Contains(t, result.Metadata.FallbackReason, "schema")
}

func TestAnalyzeQuality_FencedPrimaryResponseAccepted(t *testing.T) {
	client := &fakeClient{responses: []string{"```json\n" + primaryDoc() + "\n```"}}
	analyzer := newTestAnalyzer(client)

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	assert.Equal(t, types.MethodPrimary, result.Metadata.Method)
}

func TestAnalyzeQuality_OrgContextFailureAloneStillAnalyzes(t *testing.T) {
	client := &fakeClient{responses: []string{primaryDoc()}}
	analyzer := NewAnalyzer(client,
		&fakeOrgStore{err: fmt.Errorf("store down")},
		&fakeGuidelineStore{err: fmt.Errorf("store down")},
		&fakePrefStore{err: fmt.Errorf("store down")},
		&fakePolicyLoader{err: fmt.Errorf("store down")},
		Options{})

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	assert.Equal(t, types.MethodPrimary, result.Metadata.Method)
	assert.Equal(t, types.ConfidenceHigh, result.Metadata.Confidence)
}

func TestAnalyzeQuality_EmergencyWhenContextAndAnalysisFail(t *testing.T) {
	client := &fakeClient{
		errs: []error{fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down")},
	}
	analyzer := NewAnalyzer(client,
		&fakeOrgStore{err: fmt.Errorf("store down")},
		&fakeGuidelineStore{},
		&fakePrefStore{},
		&fakePolicyLoader{table: policy.DefaultTable()},
		Options{})

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	assert.Equal(t, types.MethodFallbackEmergency, result.Metadata.Method)
	assert.Equal(t, types.ConfidenceLow, result.Metadata.Confidence)
	assert.Zero(t, result.GrammarScore)
	assert.Zero(t, result.ComplianceScore)
	require.Len(t, result.ProtocolSuggestions, 1)
	assert.Contains(t, result.Metadata.FallbackReason, "store down")
}

func TestAnalyzeQuality_CancelledContextReturnsEmergencyResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{responses: []string{primaryDoc()}}
	analyzer := newTestAnalyzer(client)

	result := analyzer.AnalyzeQuality(ctx, sampleRequest())

	require.NotNil(t, result, "cancellation must not propagate as a fault")
	assert.Equal(t, types.MethodFallbackEmergency, result.Metadata.Method)
	assert.Equal(t, types.ConfidenceLow, result.Metadata.Confidence)
}

func TestAnalyzeQuality_NilCollaboratorsDegradeGracefully(t *testing.T) {
	analyzer := NewAnalyzer(nil, nil, nil, nil, nil, Options{})

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	require.NotNil(t, result)
	assert.Equal(t, types.MethodFallbackRule, result.Metadata.Method)
	assert.Equal(t, types.ConfidenceLow, result.Metadata.Confidence)
}

func TestAnalyzeQuality_RecordsStats(t *testing.T) {
	client := &fakeClient{responses: []string{primaryDoc(), primaryDoc()}}
	analyzer := newTestAnalyzer(client)

	analyzer.AnalyzeQuality(context.Background(), sampleRequest())
	analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	snapshot := analyzer.Stats().Snapshot()
	entry, ok := snapshot["quality_analysis"]
	require.True(t, ok)
	assert.EqualValues(t, 2, entry.Count)
	assert.EqualValues(t, 0, entry.Errors)
}

func TestAnalyzeQuality_SuggestionListsTruncated(t *testing.T) {
	doc := `{
		"grammar_score": 80, "formality_score": 80, "readability_score": 80, "protocol_score": 80,
		"grammar_suggestions": [
			{"issue": "1", "suggestion": "1"}, {"issue": "2", "suggestion": "2"},
			{"issue": "3", "suggestion": "3"}, {"issue": "4", "suggestion": "4"},
			{"issue": "5", "suggestion": "5"}, {"issue": "6", "suggestion": "6"},
			{"issue": "7", "suggestion": "7"}],
		"protocol_suggestions": []
	}`
	client := &fakeClient{responses: []string{doc}}
	analyzer := newTestAnalyzer(client)

	result := analyzer.AnalyzeQuality(context.Background(), sampleRequest())

	assert.LessOrEqual(t, len(result.GrammarSuggestions), 5)
}
