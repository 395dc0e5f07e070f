package suggestion

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwritelab/kwrite/internal/llm"
	"github.com/kwritelab/kwrite/internal/types"
)

// fakeClient scripts responses for each call in order.
type fakeClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
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

func validDoc() string {
	return `{"grammar_suggestions": [{"issue": "어미 불일치", "suggestion": "습니다체 통일", "severity": "medium"}],
		"protocol_suggestions": [{"issue": "제목 누락", "suggestion": "Subject 추가", "severity": "medium"}]}`
}

func sampleInput() Input {
	return Input{
		Text: "검토 부탁드립니다.",
		Grammar: types.GrammarMetrics{
			GrammarScore:      60,
			EndingConformance: false,
			AvgSentenceLength: 20,
		},
		Protocol: types.ProtocolMetrics{
			PolicyScore:     0.6,
			BannedTermHits:  []string{"대박"},
			MissingSections: []string{"subject"},
			ToneMismatch:    true,
		},
	}
}

func TestGenerate_PrimaryPath(t *testing.T) {
	client := &fakeClient{responses: []string{validDoc()}}
	gen := NewGenerator(client)

	set, err := gen.Generate(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.False(t, set.UsedFallback)
	require.Len(t, set.Grammar, 1)
	assert.Equal(t, 1, client.calls)
}

func TestGenerate_RetriesOnceThenSucceeds(t *testing.T) {
	client := &fakeClient{
		errs:      []error{fmt.Errorf("transient")},
		responses: []string{"", validDoc()},
	}
	gen := NewGenerator(client, WithBackoff(time.Millisecond))

	set, err := gen.Generate(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.False(t, set.UsedFallback)
	assert.Equal(t, 2, client.calls)
}

func TestGenerate_FallsBackAfterTwoFailures(t *testing.T) {
	client := &fakeClient{errs: []error{fmt.Errorf("down"), fmt.Errorf("down")}}
	gen := NewGenerator(client, WithBackoff(time.Millisecond))

	set, err := gen.Generate(context.Background(), sampleInput())

	assert.Error(t, err, "the error reports why the model path was abandoned")
	require.NotNil(t, set)
	assert.True(t, set.UsedFallback)
	assert.Equal(t, 2, client.calls, "at most one retry")
}

func TestGenerate_UnparseableResponseFallsBack(t *testing.T) {
	client := &fakeClient{responses: []string{"not json", "still not json"}}
	gen := NewGenerator(client, WithBackoff(time.Millisecond))

	set, err := gen.Generate(context.Background(), sampleInput())

	assert.Error(t, err)
	assert.True(t, set.UsedFallback)
}

func TestGenerate_FencedResponseAccepted(t *testing.T) {
	client := &fakeClient{responses: []string{"```json\n" + validDoc() + "\n```"}}
	gen := NewGenerator(client)

	set, err := gen.Generate(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.False(t, set.UsedFallback)
}

func TestGenerate_NilClientFallsBack(t *testing.T) {
	gen := NewGenerator(nil)

	set, err := gen.Generate(context.Background(), sampleInput())

	assert.Error(t, err)
	assert.True(t, set.UsedFallback)
}

func TestGenerate_TruncatesToConfiguredMaxima(t *testing.T) {
	doc := `{"grammar_suggestions": [
		{"issue": "a", "suggestion": "1"}, {"issue": "b", "suggestion": "2"}, {"issue": "c", "suggestion": "3"}],
		"protocol_suggestions": []}`
	client := &fakeClient{responses: []string{doc}}
	gen := NewGenerator(client, WithLimits(2, 2))

	set, err := gen.Generate(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.Len(t, set.Grammar, 2)
}

func TestFallback_SynthesizesFromProtocolMetrics(t *testing.T) {
	set := Fallback(types.ProtocolMetrics{
		BannedTermHits:  []string{"대박", "헐"},
		MissingSections: []string{"subject"},
		ToneMismatch:    true,
	})

	assert.True(t, set.UsedFallback)
	require.Len(t, set.Protocol, 3)
	assert.Equal(t, "high", set.Protocol[0].Severity)
	assert.Equal(t, "medium", set.Protocol[2].Severity)
	require.Len(t, set.Grammar, 1)
}

func TestIssueSummary_CappedAtSixCategories(t *testing.T) {
	input := sampleInput()
	input.Text = "검토 부탁드립니다 😀"
	input.Grammar.AvgSentenceLength = 80

	issues := IssueSummary(input)

	assert.LessOrEqual(t, len(issues), 6)
	assert.NotEmpty(t, issues)
}
