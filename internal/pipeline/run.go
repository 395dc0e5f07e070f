// Package pipeline provides the quality-analysis orchestrator: a five-state
// pipeline that sequences organization-context loading, a primary model-based
// structured analysis, the deterministic fallback composite, result
// normalization, and finalization. Every path reaches the terminal state and
// returns a structurally valid result; failures degrade, they never propagate.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kwritelab/kwrite/internal/llm"
	"github.com/kwritelab/kwrite/internal/policy"
	"github.com/kwritelab/kwrite/internal/prompts"
	"github.com/kwritelab/kwrite/internal/rewriting"
	"github.com/kwritelab/kwrite/internal/schemas"
	"github.com/kwritelab/kwrite/internal/scoring"
	"github.com/kwritelab/kwrite/internal/suggestion"
	"github.com/kwritelab/kwrite/internal/types"
)

// pipelineName keys the execution-statistics counter.
const pipelineName = "quality_analysis"

// DefaultTimeout is the recommended overall pipeline deadline, enforced by the
// caller cancelling the context, not by the pipeline itself.
const DefaultTimeout = 40 * time.Second

// defaultPrimaryTimeout bounds the primary structured-analysis call.
const defaultPrimaryTimeout = 25 * time.Second

// maxGuidelinePromptChars caps how much guideline text goes into the prompt.
const maxGuidelinePromptChars = 2000

// Fallback scoring constants for the rule-based path.
const (
	conformantFormalityScore = 90.0
	divergentFormalityScore  = 60.0
	readabilityLengthFactor  = 2.0
	readabilityThreshold     = 50.0
)

// state is one orchestrator state. Execution is strictly sequential with no
// branching back.
type state int

const (
	stateInitialize state = iota
	stateLoadOrgContext
	stateComprehensiveAnalysis
	stateProcessResults
	stateFinalize
	stateEnd
)

// OrgProfileStore supplies organization profiles. Absence is (nil, nil).
type OrgProfileStore interface {
	GetOrganizationProfile(ctx context.Context, orgID string) (*types.OrganizationProfile, error)
}

// GuidelineStore supplies organization guideline documents.
type GuidelineStore interface {
	GetGuidelines(ctx context.Context, orgID string) ([]types.GuidelineDoc, error)
}

// PreferenceStore supplies per-user style preferences. Absence is (nil, nil).
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID, orgID string) (*types.UserPreferences, error)
}

// Options configures an Analyzer.
type Options struct {
	MaxGrammarSuggestions  int
	MaxProtocolSuggestions int
	PrimaryTimeout         time.Duration
	Verbose                bool
}

// Analyzer orchestrates quality analysis. All collaborators are injected; any
// of them may be nil and the pipeline degrades accordingly.
type Analyzer struct {
	client      llm.Client
	orgs        OrgProfileStore
	guidelines  GuidelineStore
	preferences PreferenceStore
	policies    policy.TableLoader
	suggestions *suggestion.Generator
	opts        Options
	stats       *Stats
}

// NewAnalyzer creates an analyzer with the given collaborators.
func NewAnalyzer(client llm.Client, orgs OrgProfileStore, guidelines GuidelineStore,
	preferences PreferenceStore, policies policy.TableLoader, opts Options) *Analyzer {

	if opts.MaxGrammarSuggestions <= 0 {
		opts.MaxGrammarSuggestions = suggestion.DefaultMaxGrammar
	}
	if opts.MaxProtocolSuggestions <= 0 {
		opts.MaxProtocolSuggestions = suggestion.DefaultMaxProtocol
	}
	if opts.PrimaryTimeout <= 0 {
		opts.PrimaryTimeout = defaultPrimaryTimeout
	}

	return &Analyzer{
		client:      client,
		orgs:        orgs,
		guidelines:  guidelines,
		preferences: preferences,
		policies:    policies,
		suggestions: suggestion.NewGenerator(client,
			suggestion.WithLimits(opts.MaxGrammarSuggestions, opts.MaxProtocolSuggestions)),
		opts:  opts,
		stats: NewStats(),
	}
}

// Stats returns the analyzer's execution counters.
func (a *Analyzer) Stats() *Stats {
	return a.stats
}

// run carries the mutable state of one pipeline execution.
type run struct {
	req    types.AnalysisRequest
	rctx   types.RewriteContext
	result *types.AnalysisResult

	org         types.OrganizationProfile
	guidelines  []types.GuidelineDoc
	preferences types.UserPreferences
	table       policy.Table

	orgCtxErr  error // catastrophic context-load failure (not mere absence)
	primaryErr error
	doc        *analysisDoc
	rewrite    *rewriting.Result
	sugs       *suggestion.Set
}

// analysisDoc is the structured document the primary model call returns.
type analysisDoc struct {
	GrammarScore        float64                    `json:"grammar_score"`
	FormalityScore      float64                    `json:"formality_score"`
	ReadabilityScore    float64                    `json:"readability_score"`
	ProtocolScore       float64                    `json:"protocol_score"`
	OverallAssessment   *float64                   `json:"overall_assessment"`
	GrammarSuggestions  []types.GrammarSuggestion  `json:"grammar_suggestions"`
	ProtocolSuggestions []types.ProtocolSuggestion `json:"protocol_suggestions"`
}

// AnalyzeQuality runs the five-state pipeline for one request. It never
// returns an error: every failure mode degrades into a structurally valid
// result whose metadata records what happened. Input validation is the
// boundary's responsibility, not this method's.
func (a *Analyzer) AnalyzeQuality(ctx context.Context, req types.AnalysisRequest) *types.AnalysisResult {
	r := &run{req: req}

	for current := stateInitialize; current != stateEnd; {
		switch current {
		case stateInitialize:
			a.initialize(r)
			current = stateLoadOrgContext
		case stateLoadOrgContext:
			a.loadOrgContext(ctx, r)
			current = stateComprehensiveAnalysis
		case stateComprehensiveAnalysis:
			a.comprehensiveAnalysis(ctx, r)
			current = stateProcessResults
		case stateProcessResults:
			a.processResults(r)
			current = stateFinalize
		case stateFinalize:
			a.finalize(r)
			current = stateEnd
		}
	}

	return r.result
}

// initialize seeds per-request metadata.
func (a *Analyzer) initialize(r *run) {
	r.rctx = types.NewRewriteContext(r.req.TargetAudience, r.req.SituationContext)
	r.org = types.OrganizationProfile{
		OrganizationID:     r.req.OrganizationID,
		CommunicationStyle: types.StyleFormal,
	}
	r.table = policy.DefaultTable()
	r.result = &types.AnalysisResult{
		GrammarSuggestions:  []types.GrammarSuggestion{},
		ProtocolSuggestions: []types.ProtocolSuggestion{},
		Metadata: types.AnalysisMetadata{
			StartedAt: time.Now(),
		},
	}
}

// loadOrgContext fetches the organization profile, guideline documents, user
// preferences, and the policy table. Failures here are logged and swallowed:
// analysis proceeds with empty context rather than aborting.
func (a *Analyzer) loadOrgContext(ctx context.Context, r *run) {
	if a.orgs != nil {
		profile, err := a.orgs.GetOrganizationProfile(ctx, r.req.OrganizationID)
		if err != nil {
			log.Printf("Warning: failed to load organization profile for %s: %v; continuing with defaults", r.req.OrganizationID, err)
			r.orgCtxErr = err
		} else if profile != nil {
			r.org = *profile
		}
	}

	if a.guidelines != nil {
		docs, err := a.guidelines.GetGuidelines(ctx, r.req.OrganizationID)
		if err != nil {
			log.Printf("Warning: failed to load guidelines for %s: %v; continuing without guidelines", r.req.OrganizationID, err)
		} else {
			r.guidelines = docs
		}
	}

	if a.preferences != nil {
		prefs, err := a.preferences.GetPreferences(ctx, r.req.UserID, r.req.OrganizationID)
		if err != nil {
			log.Printf("Warning: failed to load preferences for %s: %v; continuing without preferences", r.req.UserID, err)
		} else if prefs != nil {
			r.preferences = *prefs
		}
	}

	if a.policies != nil {
		table, err := a.policies.Load(ctx, r.req.OrganizationID)
		if err != nil {
			log.Printf("Warning: failed to load policy table for %s: %v; using default policy", r.req.OrganizationID, err)
		} else {
			r.table = table
		}
	}
}

// comprehensiveAnalysis attempts the primary model path and, on any failure,
// runs the deterministic fallback composite: analysis-only rewrite, then
// expectation-gap adjustment, then suggestion generation.
func (a *Analyzer) comprehensiveAnalysis(ctx context.Context, r *run) {
	r.doc, r.primaryErr = a.primaryAnalysis(ctx, r)
	if r.primaryErr == nil {
		r.result.Metadata.Method = types.MethodPrimary
		return
	}

	r.result.Metadata.Method = types.MethodFallbackRule
	r.result.Metadata.FallbackReason = r.primaryErr.Error()

	if ctx.Err() != nil && r.orgCtxErr == nil {
		// Cancelled mid-flight: skip further model calls but still produce the
		// deterministic assessment so the caller gets a valid result.
		r.orgCtxErr = ctx.Err()
	}

	r.rewrite = rewriting.Rewrite(r.req.Text, nil, nil, r.rctx, r.table,
		rewriting.Options{AnalysisOnly: true})

	set, err := a.suggestions.Generate(ctx, suggestion.Input{
		Text:     r.req.Text,
		Grammar:  r.rewrite.Grammar,
		Protocol: r.rewrite.Protocol,
		Context:  r.rctx,
		Org:      r.org,
	})
	if err != nil {
		log.Printf("Warning: suggestion generation fell back to deterministic synthesis: %v", err)
	}
	r.sugs = set
}

// primaryAnalysis makes the single externally-routed structured-analysis call.
func (a *Analyzer) primaryAnalysis(ctx context.Context, r *run) (*analysisDoc, error) {
	if a.client == nil {
		return nil, fmt.Errorf("no model client configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := a.buildAnalysisPrompt(r)

	callCtx, cancel := context.WithTimeout(ctx, a.opts.PrimaryTimeout)
	defer cancel()

	response, err := a.client.GenerateJSON(callCtx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, fmt.Errorf("primary analysis call failed: %w", err)
	}

	jsonText, _, err := llm.ExtractJSONString(response)
	if err != nil {
		return nil, fmt.Errorf("primary analysis returned no parseable JSON: %w", err)
	}

	if err := schemas.ValidateAnalysisDocument(jsonText); err != nil {
		return nil, fmt.Errorf("primary analysis document failed schema validation: %w", err)
	}

	var doc analysisDoc
	if _, err := llm.ExtractJSON(jsonText, &doc); err != nil {
		return nil, fmt.Errorf("primary analysis document unmarshal failed: %w", err)
	}

	return &doc, nil
}

// buildAnalysisPrompt assembles the comprehensive-analysis prompt.
func (a *Analyzer) buildAnalysisPrompt(r *run) string {
	audiences := make([]string, 0, len(r.rctx.Audience))
	for _, audience := range r.rctx.Audience {
		audiences = append(audiences, string(audience))
	}

	var guidelineText strings.Builder
	for _, doc := range r.guidelines {
		if guidelineText.Len() >= maxGuidelinePromptChars {
			break
		}
		guidelineText.WriteString("- ")
		guidelineText.WriteString(doc.Title)
		guidelineText.WriteString(": ")
		guidelineText.WriteString(doc.Content)
		guidelineText.WriteString("\n")
	}
	guidelines := guidelineText.String()
	if len(guidelines) > maxGuidelinePromptChars {
		guidelines = guidelines[:maxGuidelinePromptChars]
	}
	if guidelines == "" {
		guidelines = "(없음)"
	}

	template := prompts.MustGet("analysis.json", "comprehensive-quality")
	return prompts.Format(template, map[string]string{
		"Text":       r.req.Text,
		"Audience":   strings.Join(audiences, ", "),
		"Channel":    string(r.rctx.Channel),
		"Style":      string(r.org.CommunicationStyle),
		"Guidelines": guidelines,
	})
}

// processResults normalizes whichever analysis produced a result into the four
// absolute scores plus the compliance score, and truncates suggestion lists.
//
// The compliance score is deliberately asymmetric: the primary path lifts the
// model's own overall assessment when present, while the fallback path
// averages grammar and protocol locally.
func (a *Analyzer) processResults(r *run) {
	res := r.result

	switch res.Metadata.Method {
	case types.MethodPrimary:
		res.GrammarScore = types.ClampScore(r.doc.GrammarScore)
		res.FormalityScore = types.ClampScore(r.doc.FormalityScore)
		res.ReadabilityScore = types.ClampScore(r.doc.ReadabilityScore)
		res.ProtocolScore = types.ClampScore(r.doc.ProtocolScore)
		if r.doc.OverallAssessment != nil {
			res.ComplianceScore = types.ClampScore(*r.doc.OverallAssessment)
		} else {
			res.ComplianceScore = types.ClampScore((res.GrammarScore + res.ProtocolScore) / 2)
		}
		res.GrammarSuggestions = truncateGrammar(r.doc.GrammarSuggestions, a.opts.MaxGrammarSuggestions)
		res.ProtocolSuggestions = truncateProtocol(r.doc.ProtocolSuggestions, a.opts.MaxProtocolSuggestions)

	case types.MethodFallbackRule:
		grammar := r.rewrite.Grammar
		protocol := r.rewrite.Protocol

		rawFormality := divergentFormalityScore
		if grammar.EndingConformance {
			rawFormality = conformantFormalityScore
		}
		rawProtocol := protocol.PolicyScore * 100

		adjusted := scoring.Adjust(scoring.RawScores{
			Formality: rawFormality,
			Protocol:  rawProtocol,
		}, r.org.CommunicationStyle)

		res.GrammarScore = types.ClampScore(grammar.GrammarScore)
		res.FormalityScore = adjusted.Formality
		res.ProtocolScore = adjusted.Protocol

		overlength := grammar.AvgSentenceLength - readabilityThreshold
		if overlength < 0 {
			overlength = 0
		}
		res.ReadabilityScore = types.ClampScore(100 - overlength*readabilityLengthFactor)

		res.ComplianceScore = types.ClampScore((res.GrammarScore + res.ProtocolScore) / 2)

		if r.sugs != nil {
			res.GrammarSuggestions = truncateGrammar(r.sugs.Grammar, a.opts.MaxGrammarSuggestions)
			res.ProtocolSuggestions = truncateProtocol(r.sugs.Protocol, a.opts.MaxProtocolSuggestions)
		}
	}
}

// finalize computes the confidence level, handles the emergency path, and
// records execution statistics.
func (a *Analyzer) finalize(r *run) {
	res := r.result

	// Emergency: both the organization context and the primary analysis failed
	// catastrophically. Zero scores, one generic suggestion, error preserved.
	if r.orgCtxErr != nil && r.primaryErr != nil {
		res.GrammarScore = 0
		res.FormalityScore = 0
		res.ReadabilityScore = 0
		res.ProtocolScore = 0
		res.ComplianceScore = 0
		res.GrammarSuggestions = []types.GrammarSuggestion{}
		res.ProtocolSuggestions = []types.ProtocolSuggestion{{
			Issue:      "분석을 완료하지 못했습니다",
			Suggestion: "잠시 후 다시 시도해 주시기 바랍니다",
			Severity:   "low",
		}}
		res.Metadata.Method = types.MethodFallbackEmergency
		res.Metadata.Confidence = types.ConfidenceLow
		res.Metadata.FallbackReason = fmt.Sprintf("context: %v; analysis: %v", r.orgCtxErr, r.primaryErr)
	} else {
		switch res.Metadata.Method {
		case types.MethodPrimary:
			res.Metadata.Confidence = types.ConfidenceHigh
		case types.MethodFallbackRule:
			if r.sugs != nil && !r.sugs.UsedFallback {
				res.Metadata.Confidence = types.ConfidenceMedium
			} else {
				res.Metadata.Confidence = types.ConfidenceLow
			}
		}
	}

	duration := time.Since(res.Metadata.StartedAt)
	res.Metadata.DurationMillis = duration.Milliseconds()
	a.stats.Record(pipelineName, duration, res.Metadata.Method != types.MethodPrimary)
}

func truncateGrammar(list []types.GrammarSuggestion, max int) []types.GrammarSuggestion {
	if list == nil {
		return []types.GrammarSuggestion{}
	}
	if len(list) > max {
		return list[:max]
	}
	return list
}

func truncateProtocol(list []types.ProtocolSuggestion, max int) []types.ProtocolSuggestion {
	if list == nil {
		return []types.ProtocolSuggestion{}
	}
	if len(list) > max {
		return list[:max]
	}
	return list
}
