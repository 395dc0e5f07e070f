package rewriting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwritelab/kwrite/internal/policy"
	"github.com/kwritelab/kwrite/internal/types"
)

func chatContext() types.RewriteContext {
	return types.RewriteContext{
		Audience: []types.Audience{types.AudienceColleagues},
		Channel:  types.ChannelChat,
	}
}

func execEmailContext() types.RewriteContext {
	return types.RewriteContext{
		Audience: []types.Audience{types.AudienceExecutives},
		Channel:  types.ChannelEmail,
	}
}

func TestRewrite_AnalysisOnlyNeverMutates(t *testing.T) {
	text := "대박 성과입니다 😀 확인해주세요."
	feedback := []types.FeedbackItem{{ID: "f1", Before: "대박", After: "훌륭한"}}

	result := Rewrite(text, feedback, nil, execEmailContext(), policy.DefaultTable(),
		Options{AnalysisOnly: true})

	assert.Equal(t, text, result.RevisedText)
	assert.Empty(t, result.ChangeLog.Steps)
}

func TestRewrite_FeedbackAppliedWithReplaceAll(t *testing.T) {
	text := "결과는 대박. 정말 대박."
	feedback := []types.FeedbackItem{{ID: "f1", Before: "대박", After: "성공적"}}

	result := Rewrite(text, feedback, nil, chatContext(), policy.DefaultTable(), Options{})

	assert.NotContains(t, result.RevisedText, "대박")
	require.Len(t, result.ChangeLog.Steps, 1)
	assert.Equal(t, "feedback", result.ChangeLog.Steps[0].Kind)
	assert.Equal(t, 2, result.ChangeLog.Steps[0].Count)
	assert.Equal(t, 1, result.ChangeLog.Steps[0].StepNum)
}

func TestRewrite_FeedbackWithoutBothFieldsIgnored(t *testing.T) {
	text := "결과 공유합니다."
	feedback := []types.FeedbackItem{{ID: "f1", Before: "결과"}}

	result := Rewrite(text, feedback, nil, chatContext(), policy.DefaultTable(), Options{})

	assert.Equal(t, text, result.RevisedText)
	assert.Empty(t, result.ChangeLog.Steps)
}

func TestRewrite_TermSuggestionConfidenceThreshold(t *testing.T) {
	text := "이번 스프린트 회고입니다."

	below := []types.TermSuggestion{{ID: "t1", Before: "스프린트", After: "반복 주기", Confidence: 0.74}}
	result := Rewrite(text, nil, below, chatContext(), policy.DefaultTable(), Options{})
	assert.Equal(t, text, result.RevisedText, "below-threshold suggestion must not alter text")

	// The threshold is inclusive at exactly 0.75.
	atThreshold := []types.TermSuggestion{{ID: "t1", Before: "스프린트", After: "반복 주기", Confidence: 0.75}}
	result = Rewrite(text, nil, atThreshold, chatContext(), policy.DefaultTable(), Options{})
	assert.Contains(t, result.RevisedText, "반복 주기")
	require.Len(t, result.ChangeLog.Steps, 1)
	assert.Equal(t, "glossary", result.ChangeLog.Steps[0].Source)
}

func TestRewrite_StripsEmojiForExecutiveEmail(t *testing.T) {
	text := "Subject: 보고\n진행 상황 공유드립니다 😀🚀\n요청: 검토 바랍니다."

	result := Rewrite(text, nil, nil, execEmailContext(), policy.DefaultTable(), Options{})

	assert.Equal(t, 0, policy.CountEmoji(result.RevisedText))
	var found bool
	for _, step := range result.ChangeLog.Steps {
		if step.Kind == "strip_emoji" {
			found = true
			assert.Equal(t, 2, step.Count)
		}
	}
	assert.True(t, found)
}

func TestRewrite_KeepsEmojiForChat(t *testing.T) {
	text := "수고하셨습니다 😀"

	result := Rewrite(text, nil, nil, chatContext(), policy.DefaultTable(), Options{})

	assert.Equal(t, 1, policy.CountEmoji(result.RevisedText))
}

func TestRewrite_EmailGetsSubjectAndCTA(t *testing.T) {
	text := "내일 회의 자료를 공유드립니다."

	result := Rewrite(text, nil, nil, execEmailContext(), policy.DefaultTable(),
		Options{SubjectHint: "회의 자료 공유"})

	assert.True(t, strings.HasPrefix(result.RevisedText, "Subject: 회의 자료 공유\n"))
	assert.Contains(t, result.RevisedText, "요청:")
	assert.Empty(t, result.Protocol.MissingSections)
}

func TestRewrite_NormalizesInformalRequestEndings(t *testing.T) {
	text := "Subject: 검토 요청\n자료 확인해주세요.\n요청: 회신 부탁드립니다."

	result := Rewrite(text, nil, nil, execEmailContext(), policy.DefaultTable(), Options{})

	assert.NotContains(t, result.RevisedText, "해주세요")
	assert.NotContains(t, result.RevisedText, "부탁드립니다")
	assert.Contains(t, result.RevisedText, "주시기 바랍니다")
}

func TestRewrite_Idempotent(t *testing.T) {
	text := "자료 확인해주세요 😀 대박 결과입니다."
	feedback := []types.FeedbackItem{{ID: "f1", Before: "대박", After: "인상적인"}}
	terms := []types.TermSuggestion{{ID: "t1", Before: "자료", After: "문서", Confidence: 0.9}}

	first := Rewrite(text, feedback, terms, execEmailContext(), policy.DefaultTable(), Options{})
	second := Rewrite(first.RevisedText, feedback, terms, execEmailContext(), policy.DefaultTable(), Options{})

	assert.Equal(t, first.RevisedText, second.RevisedText)
	assert.Empty(t, second.ChangeLog.Steps, "second run must apply no further edits")
}

func TestRewrite_ExpectedRegister(t *testing.T) {
	assert.Equal(t, "formal", string(ExpectedRegister(execEmailContext())))
	assert.Equal(t, "polite", string(ExpectedRegister(chatContext())))

	reportCtx := types.RewriteContext{
		Audience: []types.Audience{types.AudienceColleagues},
		Channel:  types.ChannelReport,
	}
	assert.Equal(t, "formal", string(ExpectedRegister(reportCtx)))
}

func TestRewrite_GrammarMetricsFromRevisedText(t *testing.T) {
	// StrictPolicy forces the formal register even for chat.
	text := "검토했습니다. 결과를 보고드립니다."

	result := Rewrite(text, nil, nil, chatContext(), policy.DefaultTable(),
		Options{StrictPolicy: true})

	assert.True(t, result.Grammar.EndingConformance)
	assert.Equal(t, types.RegisterFormal, result.Grammar.DominantRegister)
	assert.InDelta(t, 100.0, result.Grammar.GrammarScore, 1e-9)
	assert.Greater(t, result.Grammar.AvgSentenceLength, 0.0)
}

func TestRewrite_SummaryMentionsRemainingBannedTerms(t *testing.T) {
	table := policy.DefaultTable()
	table.BannedTerms = []string{"대박"}

	result := Rewrite("대박 사건", nil, nil, chatContext(), table, Options{})

	assert.Contains(t, result.Summary, "금칙어")
	assert.Contains(t, result.Summary, "PII")
}
