// Package suggestion turns detected quality issues into structured correction
// proposals, via a secondary model call with retry, or a deterministic fallback.
package suggestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kwritelab/kwrite/internal/llm"
	"github.com/kwritelab/kwrite/internal/policy"
	"github.com/kwritelab/kwrite/internal/prompts"
	"github.com/kwritelab/kwrite/internal/types"
)

// Defaults for the generator. The model call gets one retry with a fixed
// short backoff before the deterministic fallback takes over.
const (
	DefaultMaxGrammar  = 5
	DefaultMaxProtocol = 5
	defaultCallTimeout = 15 * time.Second
	defaultBackoff     = 500 * time.Millisecond
	maxIssueCategories = 6
)

// Issue summary thresholds.
const (
	lowGrammarThreshold   = 70.0
	longSentenceThreshold = 50.0
	maxBannedInSummary    = 3
	maxSectionsInSummary  = 2
)

// Input carries everything the generator needs for one text.
type Input struct {
	Text     string
	Grammar  types.GrammarMetrics
	Protocol types.ProtocolMetrics
	Context  types.RewriteContext
	Org      types.OrganizationProfile
}

// Set is the generated suggestion bundle. UsedFallback reports whether the
// deterministic synthesizer produced it instead of the model.
type Set struct {
	Grammar      []types.GrammarSuggestion
	Protocol     []types.ProtocolSuggestion
	UsedFallback bool
}

// Generator produces correction proposals. A nil client always falls back.
type Generator struct {
	client      llm.Client
	maxGrammar  int
	maxProtocol int
	callTimeout time.Duration
	backoff     time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithLimits overrides the suggestion caps.
func WithLimits(maxGrammar, maxProtocol int) Option {
	return func(g *Generator) {
		g.maxGrammar = maxGrammar
		g.maxProtocol = maxProtocol
	}
}

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Generator) { g.callTimeout = d }
}

// WithBackoff overrides the retry backoff.
func WithBackoff(d time.Duration) Option {
	return func(g *Generator) { g.backoff = d }
}

// NewGenerator creates a suggestion generator backed by the given client.
func NewGenerator(client llm.Client, opts ...Option) *Generator {
	g := &Generator{
		client:      client,
		maxGrammar:  DefaultMaxGrammar,
		maxProtocol: DefaultMaxProtocol,
		callTimeout: defaultCallTimeout,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// suggestionDoc is the structured model response.
type suggestionDoc struct {
	GrammarSuggestions  []types.GrammarSuggestion  `json:"grammar_suggestions"`
	ProtocolSuggestions []types.ProtocolSuggestion `json:"protocol_suggestions"`
}

// Generate builds the issue summary, asks the model for proposals (one retry,
// per-call timeout), and falls back to deterministic synthesis when the model
// path fails. The returned set is always usable; the error only reports why
// the model path was abandoned.
func (g *Generator) Generate(ctx context.Context, input Input) (*Set, error) {
	set, err := g.generateWithModel(ctx, input)
	if err == nil {
		return set, nil
	}

	fallback := Fallback(input.Protocol)
	fallback.Grammar = truncateGrammar(fallback.Grammar, g.maxGrammar)
	fallback.Protocol = truncateProtocol(fallback.Protocol, g.maxProtocol)
	return fallback, err
}

// generateWithModel runs the primary path: one call, one retry.
func (g *Generator) generateWithModel(ctx context.Context, input Input) (*Set, error) {
	if g.client == nil {
		return nil, fmt.Errorf("no model client configured")
	}

	prompt := buildPrompt(input)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		response, err := g.client.GenerateJSON(callCtx, prompt, llm.TierStandard)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		var doc suggestionDoc
		if _, err := llm.ExtractJSON(response, &doc); err != nil {
			lastErr = err
			continue
		}

		return &Set{
			Grammar:  truncateGrammar(doc.GrammarSuggestions, g.maxGrammar),
			Protocol: truncateProtocol(doc.ProtocolSuggestions, g.maxProtocol),
		}, nil
	}

	return nil, lastErr
}

// buildPrompt assembles the suggestion prompt from the issue summary.
func buildPrompt(input Input) string {
	template := prompts.MustGet("suggestion.json", "correction-proposals")
	return prompts.Format(template, map[string]string{
		"Issues": strings.Join(IssueSummary(input), "\n"),
		"Text":   input.Text,
	})
}

// IssueSummary builds the bullet list of detected issue categories, capped at
// six entries.
func IssueSummary(input Input) []string {
	var issues []string
	add := func(issue string) {
		if len(issues) < maxIssueCategories {
			issues = append(issues, "- "+issue)
		}
	}

	if input.Grammar.GrammarScore < lowGrammarThreshold {
		add(fmt.Sprintf("문법 점수가 낮음 (%.0f점)", input.Grammar.GrammarScore))
	}
	if !input.Grammar.EndingConformance {
		add("문장 종결 어미가 기대 격식에 맞지 않음")
	}
	if len(input.Protocol.BannedTermHits) > 0 {
		shown := input.Protocol.BannedTermHits
		if len(shown) > maxBannedInSummary {
			shown = shown[:maxBannedInSummary]
		}
		add("금칙어 사용: " + strings.Join(shown, ", "))
	}
	if len(input.Protocol.MissingSections) > 0 {
		shown := input.Protocol.MissingSections
		if len(shown) > maxSectionsInSummary {
			shown = shown[:maxSectionsInSummary]
		}
		add("필수 섹션 누락: " + strings.Join(shown, ", "))
	}
	if input.Grammar.AvgSentenceLength > longSentenceThreshold {
		add(fmt.Sprintf("문장이 너무 김 (평균 %.0f자)", input.Grammar.AvgSentenceLength))
	}
	if policy.CountEmoji(input.Text) > 0 {
		add("이모지 사용됨")
	}

	return issues
}

// Fallback synthesizes suggestions purely from protocol metrics. It never
// fails and never calls external services.
func Fallback(metrics types.ProtocolMetrics) *Set {
	set := &Set{
		Grammar:      []types.GrammarSuggestion{},
		Protocol:     []types.ProtocolSuggestion{},
		UsedFallback: true,
	}

	for _, term := range metrics.BannedTermHits {
		set.Protocol = append(set.Protocol, types.ProtocolSuggestion{
			Issue:      fmt.Sprintf("금칙어 %q 사용", term),
			Suggestion: fmt.Sprintf("%q 표현을 조직 용어집에 맞는 표현으로 교체하십시오", term),
			Severity:   "high",
		})
	}

	for _, section := range metrics.MissingSections {
		set.Protocol = append(set.Protocol, types.ProtocolSuggestion{
			Issue:      fmt.Sprintf("필수 섹션 %q 누락", section),
			Suggestion: fmt.Sprintf("%q 섹션을 추가하십시오", section),
			Severity:   "medium",
		})
	}

	if metrics.ToneMismatch {
		set.Grammar = append(set.Grammar, types.GrammarSuggestion{
			Issue:      "격식 있는 독자에게 부적절한 톤 요소가 포함됨",
			Suggestion: "이모지 등 비격식 요소를 제거하고 일관된 격식체를 사용하십시오",
			Severity:   "medium",
		})
	}

	return set
}

func truncateGrammar(list []types.GrammarSuggestion, max int) []types.GrammarSuggestion {
	if len(list) > max {
		return list[:max]
	}
	return list
}

func truncateProtocol(list []types.ProtocolSuggestion, max int) []types.ProtocolSuggestion {
	if len(list) > max {
		return list[:max]
	}
	return list
}
