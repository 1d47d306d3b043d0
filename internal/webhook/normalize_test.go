package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var raw any
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestNormalizeCandidateShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"direct response", `{"response":"hi"}`, "hi"},
		{"direct text", `{"text":"hi"}`, "hi"},
		{"direct answer", `{"answer":"hi"}`, "hi"},
		{"direct output", `{"output":"hi"}`, "hi"},
		{"direct result", `{"result":"hi"}`, "hi"},
		{"direct content", `{"content":"hi"}`, "hi"},
		{"data wrapped", `{"data":{"response":"hi"}}`, "hi"},
		{"data text", `{"data":{"text":"hi"}}`, "hi"},
		{"openai choices", `{"choices":[{"message":{"content":"hi"}}]}`, "hi"},
		{"openai legacy text", `{"choices":[{"text":"hi"}]}`, "hi"},
		{"body wrapped", `{"body":{"answer":"hi"}}`, "hi"},
		{"body data wrapped", `{"body":{"data":{"output":"hi"}}}`, "hi"},
		{"array wrapped object", `[{"response":"hi"},{"response":"ignored"}]`, "hi"},
		{"bare string", `"hi"`, "hi"},
		{"array wrapped string", `["hi"]`, "hi"},
		{"whitespace skipped", `{"response":"  ","text":"hi"}`, "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(decode(t, tt.raw))
			assert.True(t, got.Success)
			assert.Equal(t, tt.want, got.Response)
		})
	}
}

func TestNormalizePriorityOrder(t *testing.T) {
	// Direct fields beat data-wrapped, which beat choices, which beat body.
	raw := decode(t, `{
		"response": "direct",
		"data": {"response": "data"},
		"choices": [{"message": {"content": "choice"}}],
		"body": {"response": "body"}
	}`)
	assert.Equal(t, "direct", Normalize(raw).Response)

	raw = decode(t, `{
		"data": {"response": "data"},
		"choices": [{"message": {"content": "choice"}}],
		"body": {"response": "body"}
	}`)
	assert.Equal(t, "data", Normalize(raw).Response)

	raw = decode(t, `{
		"choices": [{"message": {"content": "choice"}}],
		"body": {"response": "body"}
	}`)
	assert.Equal(t, "choice", Normalize(raw).Response)

	raw = decode(t, `{
		"body": {"response": "body"},
		"bodyless": true
	}`)
	assert.Equal(t, "body", Normalize(raw).Response)

	// Within a level, "response" beats "text".
	raw = decode(t, `{"text": "second", "response": "first"}`)
	assert.Equal(t, "first", Normalize(raw).Response)
}

func TestNormalizeFailurePayloads(t *testing.T) {
	got := Normalize(decode(t, `{"success":false,"error":"X"}`))
	assert.False(t, got.Success)
	assert.Equal(t, "X", got.Response)

	got = Normalize(decode(t, `{"success":false,"message":"nope"}`))
	assert.Equal(t, "nope", got.Response)

	got = Normalize(decode(t, `{"success":false,"data":{"error":"nested"}}`))
	assert.Equal(t, "nested", got.Response)

	got = Normalize(decode(t, `{"success":false}`))
	assert.False(t, got.Success)
	assert.Equal(t, "Chat request failed", got.Response)

	// error beats message at the same level.
	got = Normalize(decode(t, `{"success":false,"message":"m","error":"e"}`))
	assert.Equal(t, "e", got.Response)
}

func TestNormalizeFallback(t *testing.T) {
	got := Normalize(decode(t, `{}`))
	assert.True(t, got.Success)
	assert.Equal(t, FallbackResponse, got.Response)

	// success is carried through even when no reply field matches.
	got = Normalize(decode(t, `{"success":true,"unrelated":1}`))
	assert.True(t, got.Success)
	assert.Equal(t, FallbackResponse, got.Response)
}

func TestNormalizeNeverPanics(t *testing.T) {
	inputs := []any{
		nil,
		float64(42),
		true,
		[]any{},
		[]any{nil},
		[]any{float64(1)},
		map[string]any{"response": float64(7)},
		map[string]any{"data": "not an object"},
		map[string]any{"choices": []any{"not an object"}},
		map[string]any{"choices": []any{}},
		map[string]any{"success": "false"}, // string, not the literal false
		"   ",
	}
	for _, raw := range inputs {
		got := Normalize(raw)
		assert.NotEmpty(t, got.Response)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, raw := range []string{
		`{"response":"hi","timestamp":"2026-08-01T10:00:00Z"}`,
		`{"success":false,"error":"X"}`,
		`{}`,
	} {
		first := Normalize(decode(t, raw))

		data, err := json.Marshal(first)
		require.NoError(t, err)
		second := Normalize(decode(t, string(data)))

		assert.Equal(t, first.Success, second.Success, raw)
		assert.Equal(t, first.Response, second.Response, raw)
	}
}

func TestNormalizeTimestampCarried(t *testing.T) {
	got := Normalize(decode(t, `{"response":"hi","timestamp":"2026-08-01T10:00:00Z"}`))
	assert.Equal(t, "2026-08-01T10:00:00Z", got.Timestamp)
}
