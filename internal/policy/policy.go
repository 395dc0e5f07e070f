// Package policy detects banned terms, missing structural sections, and tone
// mismatches for a given channel and audience.
package policy

import (
	"context"
	"strings"

	"github.com/kwritelab/kwrite/internal/types"
)

// Score penalties. Banned-term violations dominate the score by design: a
// single hit costs more than a missing section and a tone mismatch combined.
const (
	bannedTermPenalty     = 0.5
	missingSectionPenalty = 0.2
	toneMismatchPenalty   = 0.2
)

// defaultVersion tags results produced from the built-in policy table.
const defaultVersion = "builtin-v1"

// SectionRule names a required section and the literal markers that satisfy it.
// A section is present when any one of its markers appears in the text.
type SectionRule struct {
	Name    string   `json:"name"`
	Markers []string `json:"markers"`
}

// Table is the policy configuration for one organization. A zero-value table
// behaves like DefaultTable with no banned terms.
type Table struct {
	Version            string                         `json:"version"`
	BannedTerms        []string                       `json:"banned_terms"`
	RequiredSections   map[types.Channel][]SectionRule `json:"required_sections"`
	NoEmojiAudiences   []types.Audience               `json:"no_emoji_audiences"`
}

// TableLoader supplies the policy table for an organization. Implementations
// live at the storage boundary; absence of a loader degrades to DefaultTable.
type TableLoader interface {
	Load(ctx context.Context, orgID string) (Table, error)
}

// DefaultTable returns the built-in policy: no banned terms, the fixed
// channel section requirements, and no emoji in front of executives or
// clients/vendors.
func DefaultTable() Table {
	return Table{
		Version: defaultVersion,
		RequiredSections: map[types.Channel][]SectionRule{
			types.ChannelEmail: {
				{Name: "subject", Markers: []string{"Subject:"}},
				{Name: "cta", Markers: []string{"CTA:", "요청:"}},
			},
			types.ChannelReport: {
				{Name: "summary", Markers: []string{"Executive Summary", "요약"}},
			},
		},
		NoEmojiAudiences: []types.Audience{
			types.AudienceExecutives,
			types.AudienceClientsVendors,
		},
	}
}

// normalized fills in table defaults so partially configured tables (for
// example, banned terms only) keep the built-in structure rules.
func (t Table) normalized() Table {
	def := DefaultTable()
	if t.Version == "" {
		t.Version = def.Version
	}
	if t.RequiredSections == nil {
		t.RequiredSections = def.RequiredSections
	}
	if t.NoEmojiAudiences == nil {
		t.NoEmojiAudiences = def.NoEmojiAudiences
	}
	return t
}

// Check evaluates text against the policy for the given context and returns
// protocol metrics. It is pure and cannot fail.
func Check(text string, rctx types.RewriteContext, table Table) types.ProtocolMetrics {
	table = table.normalized()

	metrics := types.ProtocolMetrics{
		PolicyScore:     1.0,
		BannedTermHits:  []string{},
		MissingSections: []string{},
	}

	// Banned terms: literal, case-sensitive substring search, deduplicated.
	seen := make(map[string]bool)
	for _, term := range table.BannedTerms {
		if term == "" || seen[term] {
			continue
		}
		if strings.Contains(text, term) {
			metrics.BannedTermHits = append(metrics.BannedTermHits, term)
			seen[term] = true
		}
	}

	// Required sections for the channel.
	for _, rule := range table.RequiredSections[rctx.Channel] {
		if !sectionPresent(text, rule) {
			metrics.MissingSections = appendUnique(metrics.MissingSections, rule.Name)
		}
	}

	// Tone: emoji in front of a no-emoji audience is a mismatch.
	for _, audience := range table.NoEmojiAudiences {
		if rctx.HasAudience(audience) && CountEmoji(text) > 0 {
			metrics.ToneMismatch = true
			break
		}
	}

	if len(metrics.BannedTermHits) > 0 {
		metrics.PolicyScore -= bannedTermPenalty
	}
	if len(metrics.MissingSections) > 0 {
		metrics.PolicyScore -= missingSectionPenalty
	}
	if metrics.ToneMismatch {
		metrics.PolicyScore -= toneMismatchPenalty
	}
	if metrics.PolicyScore < 0 {
		metrics.PolicyScore = 0
	}

	metrics.Details = map[string]any{
		"policy_version":   table.Version,
		"channel":          string(rctx.Channel),
		"missing_sections": metrics.MissingSections,
	}

	return metrics
}

// sectionPresent reports whether any marker of the rule appears in the text.
func sectionPresent(text string, rule SectionRule) bool {
	for _, marker := range rule.Markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// appendUnique appends value if not already present.
func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
