// Package scoring converts text-absolute scores into organization-relative
// scores via the expectation-gap model.
package scoring

import "github.com/kwritelab/kwrite/internal/types"

// Penalty factors. Protocol shortfalls are penalized more aggressively (0.3 vs
// 0.2) because protocol non-compliance is a harder organizational requirement
// than stylistic formality.
const (
	formalityPenaltyFactor = 0.2
	protocolPenaltyFactor  = 0.3
)

// expectation is the baseline an organization style expects.
type expectation struct {
	formality float64
	protocol  float64
}

// expectations is the fixed per-style baseline table.
var expectations = map[types.CommunicationStyle]expectation{
	types.StyleStrict:   {formality: 90, protocol: 85},
	types.StyleFormal:   {formality: 80, protocol: 75},
	types.StyleFriendly: {formality: 70, protocol: 65},
}

// RawScores are the measured, audience-independent scores for a text.
type RawScores struct {
	Formality float64
	Protocol  float64
}

// AdjustedScores are the organization-adjusted scores.
type AdjustedScores struct {
	Formality float64
	Protocol  float64
}

// Expected returns the baseline for a style. Unknown styles default to the
// formal row.
func Expected(style types.CommunicationStyle) (formality, protocol float64) {
	exp, ok := expectations[style]
	if !ok {
		exp = expectations[types.StyleFormal]
	}
	return exp.formality, exp.protocol
}

// Adjust applies the expectation-gap model: each score is reduced by a fraction
// of its shortfall against the style's baseline, then clamped to [0,100].
// Scores at or above the baseline pass through unchanged.
func Adjust(raw RawScores, style types.CommunicationStyle) AdjustedScores {
	expFormality, expProtocol := Expected(style)

	formalityGap := expFormality - raw.Formality
	if formalityGap < 0 {
		formalityGap = 0
	}
	protocolGap := expProtocol - raw.Protocol
	if protocolGap < 0 {
		protocolGap = 0
	}

	return AdjustedScores{
		Formality: types.ClampScore(raw.Formality - formalityGap*formalityPenaltyFactor),
		Protocol:  types.ClampScore(raw.Protocol - protocolGap*protocolPenaltyFactor),
	}
}
