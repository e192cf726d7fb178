package counterspeech

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

func init() { logger.Discard() }

var evidence = []model.EvidenceItem{
	{Rank: 1, Title: "Bridge passed inspection", SourceDomain: "reuters.com", URL: "https://reuters.com/a", Snippet: "Inspectors certified the bridge in May."},
	{Rank: 2, Title: "City publishes reports", SourceDomain: "apnews.com", URL: "https://apnews.com/b", Snippet: "The city released all inspection reports."},
	{Rank: 3, Title: "Engineers comment", SourceDomain: "bbc.com", URL: "https://bbc.com/c", Snippet: "Engineers said the structure is sound."},
}

func raws(t *testing.T, items ...any) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	for _, it := range items {
		b, err := json.Marshal(it)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func urls(items []model.EvidenceItem) []string {
	out := []string{}
	for _, it := range items {
		out = append(out, it.URL)
	}
	return out
}

func TestTemplate(t *testing.T) {
	text := Template(evidence)
	assert.Contains(t, text, `Reporting from reuters.com states: "Inspectors certified the bridge in May" [1].`)
	assert.Contains(t, text, `Further coverage from apnews.com adds: "The city released all inspection reports" [2].`)
	assert.True(t, strings.HasSuffix(text, ClosingSentence))

	one := Template(evidence[:1])
	assert.Contains(t, one, hedgeSentence)

	none := Template(nil)
	assert.NotEmpty(t, none)
	assert.Contains(t, none, noEvidenceSentence)
	assert.Contains(t, none, "verify it against reliable sources")
}

func TestGenerateEmptyEvidenceFallsBack(t *testing.T) {
	down := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("unavailable")
	})
	res := New(down).Generate(context.Background(), "the bridge was never inspected", nil)
	assert.Equal(t, model.StatusFallback, res.Status)
	assert.NotEmpty(t, res.Value.Text)
	assert.NotNil(t, res.Value.Citations)
	assert.Empty(t, res.Value.Citations)
}

func TestGenerateGrounded(t *testing.T) {
	var prompt string
	gen := llm.GeneratorFunc(func(_ context.Context, req llm.Request) (string, error) {
		prompt = req.Prompt
		return `{"counterspeech":"P1 [1]\n\nP2 [3]\n\nP3","citations":[{"rank":1,"title":"Bridge passed inspection","url":"https://reuters.com/a"},{"rank":3,"title":"Engineers comment","url":"https://bbc.com/c"}]}`, nil
	})
	res := New(gen).Generate(context.Background(), "the bridge was never inspected", evidence)
	require.Equal(t, model.StatusOK, res.Status)
	assert.Contains(t, prompt, "[2] City publishes reports (apnews.com)")
	assert.Contains(t, prompt, `"the bridge was never inspected"`)
	assert.Equal(t, "P1 [1]\n\nP2 [3]\n\nP3", res.Value.Text)
	assert.Equal(t, []string{"https://reuters.com/a", "https://bbc.com/c"}, urls(res.Value.Citations))
}

func TestGenerateMalformedFallsBack(t *testing.T) {
	for name, reply := range map[string]string{
		"prose":         "Here is my answer: the bridge was inspected.",
		"missing key":   `{"counterspeech":"text"}`,
		"empty text":    `{"counterspeech":"  ","citations":[]}`,
		"unknown field": `{"counterspeech":"t","citations":[],"notes":"x"}`,
	} {
		t.Run(name, func(t *testing.T) {
			gen := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) { return reply, nil })
			res := New(gen).Generate(context.Background(), "s", evidence)
			assert.Equal(t, model.StatusFallback, res.Status)
			assert.Equal(t, reply, res.Raw)
			assert.Equal(t, Template(evidence), res.Value.Text)
			assert.Len(t, res.Value.Citations, 3)
		})
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name  string
		cited []json.RawMessage
		want  []string
	}{
		{"none cited returns local list", nil, urls(evidence)},
		{"missing title uses position", raws(t, map[string]any{"rank": 0}, map[string]any{"title": ""}),
			[]string{"https://reuters.com/a", "https://apnews.com/b"}},
		{"missing title prefers rank", raws(t, map[string]any{"rank": 2, "url": "https://b"}), []string{"https://apnews.com/b"}},
		{"missing title falls back to url", raws(t, map[string]any{"url": "https://bbc.com/c"}), []string{"https://bbc.com/c"}},
		{"by rank", raws(t, map[string]any{"rank": 2, "title": "x"}), []string{"https://apnews.com/b"}},
		{"by url", raws(t, map[string]any{"rank": 9, "title": "x", "url": "https://bbc.com/c"}), []string{"https://bbc.com/c"}},
		{"bare numbers", raws(t, 3, 1, 3), []string{"https://bbc.com/c", "https://reuters.com/a"}},
		{"unknown dropped", raws(t, map[string]any{"rank": 9, "title": "x", "url": "https://fake.example"}), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, urls(Reconcile(tt.cited, evidence)))
		})
	}
	assert.Empty(t, Reconcile(raws(t, 1), nil))
}
