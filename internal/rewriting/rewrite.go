// Package rewriting produces a policy-and-feedback-compliant revision of a text
// without invoking any external model, and reports everything it changed.
package rewriting

import (
	"fmt"
	"strings"

	"github.com/kwritelab/kwrite/internal/policy"
	"github.com/kwritelab/kwrite/internal/register"
	"github.com/kwritelab/kwrite/internal/types"
)

// Grammar heuristic constants.
const (
	longSentenceThreshold = 50
	longSentencePenalty   = 10
	perfectScore          = 100.0
)

// defaultSubject is inserted when an email has no Subject line and the caller
// supplied no subject hint.
const defaultSubject = "업무 관련 안내"

// defaultCTALine closes an email that has no call-to-action marker.
const defaultCTALine = "요청: 검토 후 회신 주시기 바랍니다."

// formalRequestEnding is the normalization target for informal request endings.
const formalRequestEnding = "주시기 바랍니다"

// requestNormalizations maps informal request endings to their formal
// replacements. Replacements never contain any search string, which keeps the
// pass idempotent.
var requestNormalizations = []struct {
	before string
	after  string
}{
	{"해 주세요", "해 " + formalRequestEnding},
	{"해주세요", "해 " + formalRequestEnding},
	{"부탁드립니다", formalRequestEnding},
}

// Options controls a rewrite run.
type Options struct {
	// StrictPolicy forces the formal expected register regardless of channel
	// and audience.
	StrictPolicy bool
	// AnalysisOnly skips every mutation pass; the text is only assessed.
	AnalysisOnly bool
	// SubjectHint seeds the inserted Subject line for emails missing one.
	SubjectHint string
}

// Result is the output of one rewrite run.
type Result struct {
	RevisedText string                `json:"revised_text"`
	Grammar     types.GrammarMetrics  `json:"grammar"`
	Protocol    types.ProtocolMetrics `json:"protocol"`
	ChangeLog   types.ChangeLog       `json:"change_log"`
	Summary     string                `json:"summary"`
}

// ExpectedRegister returns the register level a text in this context is held
// to: formal for executives or formal document channels, polite otherwise.
func ExpectedRegister(rctx types.RewriteContext) register.Level {
	if rctx.HasAudience(types.AudienceExecutives) ||
		rctx.Channel == types.ChannelEmail || rctx.Channel == types.ChannelReport {
		return register.LevelFormal
	}
	return register.LevelPolite
}

// Rewrite applies accepted feedback, glossary substitutions, and channel
// conventions to text in a fixed order, then assesses the result. It is pure
// string logic and cannot fail; with AnalysisOnly set the text is never
// mutated.
func Rewrite(text string, feedback []types.FeedbackItem, terms []types.TermSuggestion,
	rctx types.RewriteContext, table policy.Table, opts Options) *Result {

	result := &Result{RevisedText: text}

	if !opts.AnalysisOnly {
		result.RevisedText = applyEdits(result, feedback, terms, rctx, opts)
	}

	expected := ExpectedRegister(rctx)
	if opts.StrictPolicy {
		expected = register.LevelFormal
	}

	report := register.Classify(result.RevisedText, expected)
	result.Grammar = grammarMetrics(result.RevisedText, report)
	result.Protocol = policy.Check(result.RevisedText, rctx, table)
	result.Summary = summarize(result)

	return result
}

// applyEdits runs the mutation passes in their fixed order and returns the
// revised text. Every change is recorded on the result's change log.
func applyEdits(result *Result, feedback []types.FeedbackItem, terms []types.TermSuggestion,
	rctx types.RewriteContext, opts Options) string {

	text := result.RevisedText

	// Pass 1: accepted feedback, applied unconditionally while the before
	// substring is still present.
	for _, item := range feedback {
		if !item.Applicable() || !strings.Contains(text, item.Before) {
			continue
		}
		count := strings.Count(text, item.Before)
		text = strings.ReplaceAll(text, item.Before, item.After)
		result.ChangeLog.Append(types.ChangeStep{
			Kind:   "feedback",
			Before: item.Before,
			After:  item.After,
			Count:  count,
			Source: item.ID,
		})
	}

	// Pass 2: glossary term suggestions above the confidence threshold.
	for _, term := range terms {
		if !term.Applicable() || !strings.Contains(text, term.Before) {
			continue
		}
		count := strings.Count(text, term.Before)
		text = strings.ReplaceAll(text, term.Before, term.After)
		result.ChangeLog.Append(types.ChangeStep{
			Kind:   "term",
			Before: term.Before,
			After:  term.After,
			Count:  count,
			Source: "glossary",
			Detail: fmt.Sprintf("confidence=%.2f", term.Confidence),
		})
	}

	// Pass 3: strip emoji for formal document channels in front of audiences
	// that do not tolerate them.
	if rctx.FormalDocumentChannel() &&
		(rctx.HasAudience(types.AudienceExecutives) || rctx.HasAudience(types.AudienceClientsVendors)) {
		if cleaned, removed := policy.StripEmoji(text); removed > 0 {
			text = cleaned
			result.ChangeLog.Append(types.ChangeStep{
				Kind:  "strip_emoji",
				Count: removed,
			})
		}
	}

	// Pass 4: email structure. Ensure a Subject line and a closing CTA.
	if rctx.Channel == types.ChannelEmail {
		if !strings.Contains(text, "Subject:") {
			subject := opts.SubjectHint
			if subject == "" {
				subject = defaultSubject
			}
			text = "Subject: " + subject + "\n" + text
			result.ChangeLog.Append(types.ChangeStep{
				Kind:   "insert_subject",
				After:  subject,
				Source: "channel_policy",
			})
		}
		if !strings.Contains(text, "CTA:") && !strings.Contains(text, "요청:") {
			text = strings.TrimRight(text, "\n") + "\n" + defaultCTALine
			result.ChangeLog.Append(types.ChangeStep{
				Kind:   "insert_cta",
				After:  defaultCTALine,
				Source: "channel_policy",
			})
		}
	}

	// Pass 5: normalize informal request endings for executives and formal
	// written channels.
	if rctx.HasAudience(types.AudienceExecutives) ||
		rctx.Channel == types.ChannelEmail || rctx.Channel == types.ChannelReport {
		for _, norm := range requestNormalizations {
			if !strings.Contains(text, norm.before) {
				continue
			}
			count := strings.Count(text, norm.before)
			text = strings.ReplaceAll(text, norm.before, norm.after)
			result.ChangeLog.Append(types.ChangeStep{
				Kind:   "normalize_request",
				Before: norm.before,
				After:  norm.after,
				Count:  count,
			})
		}
	}

	return text
}

// grammarMetrics derives grammar metrics from the register report and the
// shared sentence split. The score is the conformant-sentence ratio with a
// fixed penalty when sentences run long.
func grammarMetrics(text string, report register.Report) types.GrammarMetrics {
	metrics := types.GrammarMetrics{
		GrammarScore:      perfectScore,
		DominantRegister:  report.Dominant,
		EndingConformance: report.AllConformant,
	}

	segments := register.SplitSentences(text)
	if len(segments) == 0 {
		return metrics
	}

	totalRunes := 0
	for _, segment := range segments {
		totalRunes += len([]rune(segment))
	}
	metrics.AvgSentenceLength = float64(totalRunes) / float64(len(segments))

	conformant := 0
	for _, record := range report.Sentences {
		if record.Conformant {
			conformant++
		}
	}
	score := perfectScore * float64(conformant) / float64(len(report.Sentences))
	if metrics.AvgSentenceLength > longSentenceThreshold {
		score -= longSentencePenalty
	}
	metrics.GrammarScore = types.ClampScore(score)

	return metrics
}

// summarize assembles the human-readable edit summary. PII detection is a
// reserved policy extension and currently always reports zero.
func summarize(result *Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d개 항목 수정", len(result.ChangeLog.Steps))
	if len(result.Protocol.BannedTermHits) > 0 {
		fmt.Fprintf(&sb, "; 금칙어 %d건이 남아 있어 수동 검토가 필요합니다", len(result.Protocol.BannedTermHits))
	}
	sb.WriteString("; PII 관련 제한 없음")
	return sb.String()
}
