package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterClass is one of the closed set of Korean sentence-ending registers.
type RegisterClass string

// RegisterClass constants define the recognized formality registers.
const (
	RegisterFormal        RegisterClass = "formal"
	RegisterPolite        RegisterClass = "polite"
	RegisterPlain         RegisterClass = "plain"
	RegisterInterrogative RegisterClass = "interrogative"
	RegisterOther         RegisterClass = "other"
)

// SentenceEndingRecord is the classification of one sentence ending.
// Records are never mutated after creation.
type SentenceEndingRecord struct {
	Index        int           `json:"index"`
	EndingSuffix string        `json:"ending_suffix"`
	Register     RegisterClass `json:"register"`
	Conformant   bool          `json:"conformant"`
}

// GrammarMetrics summarizes the deterministic grammar assessment of a text.
type GrammarMetrics struct {
	GrammarScore      float64       `json:"grammar_score"`
	AvgSentenceLength float64       `json:"avg_sentence_length"`
	DominantRegister  RegisterClass `json:"dominant_register"`
	EndingConformance bool          `json:"ending_conformance"`
}

// ProtocolMetrics summarizes policy compliance of a text.
type ProtocolMetrics struct {
	PolicyScore     float64        `json:"policy_score"`
	BannedTermHits  []string       `json:"banned_term_hits"`
	MissingSections []string       `json:"missing_sections"`
	ToneMismatch    bool           `json:"tone_mismatch"`
	Details         map[string]any `json:"details,omitempty"`
}

// AnalysisMethod identifies which path produced an analysis result.
type AnalysisMethod string

// AnalysisMethod constants define the possible analysis paths.
const (
	MethodPrimary           AnalysisMethod = "primary"
	MethodFallbackRule      AnalysisMethod = "fallback_rule"
	MethodFallbackEmergency AnalysisMethod = "fallback_emergency"
)

// ConfidenceLevel is a coarse indicator of how much of a result came from the
// primary model path versus deterministic fallback.
type ConfidenceLevel string

// ConfidenceLevel constants.
const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// GrammarSuggestion is one grammar/style correction proposal.
type GrammarSuggestion struct {
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
	Severity   string `json:"severity,omitempty"`
	Example    string `json:"example,omitempty"`
}

// ProtocolSuggestion is one protocol-compliance correction proposal.
type ProtocolSuggestion struct {
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
	Severity   string `json:"severity,omitempty"`
}

// AnalysisMetadata records how a result was produced.
type AnalysisMetadata struct {
	Method         AnalysisMethod  `json:"method"`
	Confidence     ConfidenceLevel `json:"confidence_level"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	DurationMillis int64           `json:"duration_ms"`
}

// AnalysisResult is the aggregate output of one quality analysis.
// It is created once per request and immutable after the pipeline finalizes it.
type AnalysisResult struct {
	GrammarScore        float64              `json:"grammar_score"`
	FormalityScore      float64              `json:"formality_score"`
	ReadabilityScore    float64              `json:"readability_score"`
	ProtocolScore       float64              `json:"protocol_score"`
	ComplianceScore     float64              `json:"compliance_score"`
	GrammarSuggestions  []GrammarSuggestion  `json:"grammar_suggestions"`
	ProtocolSuggestions []ProtocolSuggestion `json:"protocol_suggestions"`
	Metadata            AnalysisMetadata     `json:"metadata"`
}

// AnalysisRequest is the immutable input to one quality analysis.
// Validation happens at the boundary before the pipeline is invoked.
type AnalysisRequest struct {
	Text             string `json:"text" validate:"required,min=1"`
	TargetAudience   string `json:"target_audience"`
	SituationContext string `json:"situation_context"`
	OrganizationID   string `json:"organization_id" validate:"required"`
	UserID           string `json:"user_id" validate:"required"`
}

// Validate validates the AnalysisRequest using the validator.
func (r *AnalysisRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ClampScore clamps a score into the [0,100] range.
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
