package llmjson_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/rfp-manager/internal/domain/ai"
	"github.com/bryanwahyu/rfp-manager/internal/infra/ai/llmjson"
)

func TestParseIsIdempotentOnCleanJSON(t *testing.T) {
	inputs := []string{
		`{"totalPrice":1200.5,"warranty":"2 years","priceBreakdown":[{"item":"Desk","qty":4}]}`,
		`{"score":70,"reason":"ok"}`,
		`{}`,
	}
	for _, in := range inputs {
		var want any
		require.NoError(t, json.Unmarshal([]byte(in), &want))

		got, err := llmjson.Parse(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestParseStripsFences(t *testing.T) {
	got, err := llmjson.Parse("```json\n{\"score\": 91, \"reason\": \"fits\"}\n```")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"score": 91.0, "reason": "fits"}, got)

	got, err = llmjson.Parse("```\n{\"title\": \"Chairs\"}\n```\n")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"title": "Chairs"}, got)
}

func TestParseUnwrapsArrays(t *testing.T) {
	got, err := llmjson.Parse(`[{"score":1,"reason":"a"}]`)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"score": 1.0, "reason": "a"}, got)

	got, err = llmjson.Parse(`[{"n":1},{"n":2},{"n":3}]`)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"n": 1.0}, got)
}

func TestParseEmptyArray(t *testing.T) {
	_, err := llmjson.Parse("```json\n[]\n```")
	require.True(t, errors.Is(err, ai.ErrEmptyResponse))
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{"", "   ", "I could not find any pricing in this email."} {
		_, err := llmjson.Parse(in)
		require.Truef(t, errors.Is(err, ai.ErrMalformedResponse), "input %q: %v", in, err)
	}
}

func TestParseRecoversSurroundingProse(t *testing.T) {
	got, err := llmjson.Parse(`Here is the extraction: {"totalPrice": 4500} Let me know if you need more.`)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"totalPrice": 4500.0}, got)
}

func TestParseRecoversTrailingComma(t *testing.T) {
	got, err := llmjson.Parse(`{"score": 55, "reason": "late delivery",}`)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"score": 55.0, "reason": "late delivery"}, got)
}

func TestParseRejectsTruncatedCompletion(t *testing.T) {
	for _, in := range []string{
		`{"totalPrice": 12`,
		`[{"score": 5`,
		`{"vendor": {"name": "Acme"}`,
		"```json\n{\"items\": [{\"name\": \"laptop\"}, {\"name\": \"mon",
		`{"reason": "missing }"`,
	} {
		_, err := llmjson.Parse(in)
		require.Truef(t, errors.Is(err, ai.ErrMalformedResponse), "input %q: %v", in, err)
	}
}

func TestParseKeepsBracesInsideStrings(t *testing.T) {
	got, err := llmjson.Parse(`Result: {"reason": "uses {braces} and ]", "score": 70,}`)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"reason": "uses {braces} and ]", "score": 70.0}, got)
}
