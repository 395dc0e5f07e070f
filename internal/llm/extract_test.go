package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

func TestExtractJSON_DirectParse(t *testing.T) {
	var out sample
	tier, err := ExtractJSON(`{"score": 85, "note": "ok"}`, &out)

	require.NoError(t, err)
	assert.Equal(t, 1, tier)
	assert.Equal(t, 85, out.Score)
}

func TestExtractJSON_FencedBlockFallback(t *testing.T) {
	response := "Here is the analysis:\n```json\n{\"score\": 70, \"note\": \"fenced\"}\n```\nDone."

	var out sample
	tier, err := ExtractJSON(response, &out)

	require.NoError(t, err)
	assert.Equal(t, 2, tier, "tier (a) fails on the prose prefix; tier (b) must succeed")
	assert.Equal(t, "fenced", out.Note)
}

func TestExtractJSON_BracketMatchingFallback(t *testing.T) {
	response := `The result is {"score": 60, "note": "brace {nested} in string"} as requested.`

	var out sample
	tier, err := ExtractJSON(response, &out)

	require.NoError(t, err)
	assert.Equal(t, 3, tier)
	assert.Equal(t, 60, out.Score)
	assert.Equal(t, "brace {nested} in string", out.Note)
}

func TestExtractJSON_AllTiersFail(t *testing.T) {
	var out sample
	_, err := ExtractJSON("I could not produce a structured answer.", &out)

	assert.Error(t, err)
}

func TestExtractJSON_UnbalancedBraces(t *testing.T) {
	var out sample
	_, err := ExtractJSON(`{"score": 10, "note": "truncated`, &out)

	assert.Error(t, err)
}

func TestCleanJSONBlock(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"language id", "```yaml\nkey: val\n```", "key: val"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanJSONBlock(tc.input))
		})
	}
}
