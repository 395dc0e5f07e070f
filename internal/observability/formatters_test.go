package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kwritelab/kwrite/internal/rewriting"
	"github.com/kwritelab/kwrite/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintAnalysisResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.AnalysisResult{
		GrammarScore:     82,
		FormalityScore:   90,
		ReadabilityScore: 75,
		ProtocolScore:    88,
		ComplianceScore:  85,
		GrammarSuggestions: []types.GrammarSuggestion{
			{Issue: "문장이 너무 깁니다", Suggestion: "문장을 나누어 주시기 바랍니다"},
		},
		ProtocolSuggestions: []types.ProtocolSuggestion{
			{Issue: "결론이 누락되었습니다", Suggestion: "결론 단락을 추가해 주시기 바랍니다"},
		},
		Metadata: types.AnalysisMetadata{
			Method:     types.MethodPrimary,
			Confidence: types.ConfidenceHigh,
		},
	}

	p.PrintAnalysisResult(result)
	output := buf.String()

	assert.Contains(t, output, "QUALITY ANALYSIS")
	assert.Contains(t, output, "primary")
	assert.Contains(t, output, "high")
	assert.Contains(t, output, "85.0")
	assert.Contains(t, output, "문장이 너무 깁니다")
	assert.Contains(t, output, "결론이 누락되었습니다")
}

func TestPrintAnalysisResult_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysisResult(nil)

	assert.Empty(t, buf.String())
}

func TestPrintAnalysisResult_FallbackReason(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.AnalysisResult{
		Metadata: types.AnalysisMetadata{
			Method:         types.MethodFallbackRule,
			Confidence:     types.ConfidenceMedium,
			FallbackReason: "primary analysis call failed: timeout",
		},
	}

	p.PrintAnalysisResult(result)
	output := buf.String()

	assert.Contains(t, output, "fallback_rule")
	assert.Contains(t, output, "primary analysis call failed")
}

func TestPrintRewriteResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &rewriting.Result{
		RevisedText: "Subject: 자료 요청\n자료 보내주시기 바랍니다.",
		Grammar: types.GrammarMetrics{
			GrammarScore:     88,
			DominantRegister: types.RegisterFormal,
		},
		Protocol: types.ProtocolMetrics{PolicyScore: 0.9},
	}
	result.ChangeLog.Append(types.ChangeStep{Kind: "emoji_strip", Count: 1})
	result.ChangeLog.Append(types.ChangeStep{Kind: "subject_insert", Detail: "Subject: 자료 요청"})

	p.PrintRewriteResult(result)
	output := buf.String()

	assert.Contains(t, output, "REWRITE RESULT")
	assert.Contains(t, output, "emoji_strip")
	assert.Contains(t, output, "subject_insert")
	assert.Contains(t, output, "formal")
}

func TestPrintOrganizationProfile(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	profile := &types.OrganizationProfile{
		OrganizationID:     "org-1",
		Name:               "한빛상사",
		CommunicationStyle: types.StyleStrict,
		DeclaredChannels:   []string{"이메일", "보고서"},
	}

	p.PrintOrganizationProfile(profile)
	output := buf.String()

	assert.Contains(t, output, "ORGANIZATION PROFILE")
	assert.Contains(t, output, "org-1")
	assert.Contains(t, output, "strict")
	assert.Contains(t, output, "이메일")
}

func TestPrintProtocolFindings_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	metrics := &types.ProtocolMetrics{
		PolicyScore:     0.6,
		BannedTermHits:  []string{"대박"},
		MissingSections: []string{"결론"},
		ToneMismatch:    true,
	}

	p.PrintProtocolFindings(metrics)
	output := buf.String()

	assert.Contains(t, output, "PROTOCOL FINDINGS")
	assert.Contains(t, output, "대박")
	assert.Contains(t, output, "결론")
	assert.Contains(t, output, "tone mismatch")
}

func TestPrintProtocolFindings_Clean(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintProtocolFindings(&types.ProtocolMetrics{PolicyScore: 1.0})
	output := buf.String()

	assert.Contains(t, output, "NO PROTOCOL FINDINGS")
}

func TestPrintBox_LongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.AnalysisResult{
		Metadata: types.AnalysisMetadata{
			Method:         types.MethodFallbackRule,
			Confidence:     types.ConfidenceLow,
			FallbackReason: strings.Repeat("a very long reason ", 10),
		},
	}

	p.PrintAnalysisResult(result)
	output := buf.String()

	// Should contain box characters
	assert.True(t, strings.Contains(output, "┌"))
	assert.True(t, strings.Contains(output, "└"))
	assert.True(t, strings.Contains(output, "│"))
}
