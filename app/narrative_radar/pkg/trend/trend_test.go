package trend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

var buckets = []model.PeriodBucket{
	{PeriodLabel: "2025-03-08", NarrativeSummary: "later", AverageSentiment: -0.2, CorpusText: strings.Repeat("b", 100)},
	{PeriodLabel: "2025-03-01", NarrativeSummary: "earlier", AverageSentiment: 0.333, CorpusText: "corpus one"},
}

const validReport = "```json\n" + `{
  "executive_summary": "Coverage turned negative.",
  "trend_analysis": "Early optimism gave way to criticism.",
  "mitigation_strategies": [{"name": "Publish data", "description": "Release inspection logs", "justification": "Addresses distrust"}]
}` + "\n```"

func TestBriefingChronological(t *testing.T) {
	b := Briefing(buckets, 10)
	first := strings.Index(b, "Period Starting 2025-03-01")
	second := strings.Index(b, "Period Starting 2025-03-08")
	require.True(t, first >= 0 && second > first)
	assert.Contains(t, b, "Overall Sentiment Score: 0.333")
	assert.Contains(t, b, "Supporting Raw Text for this period:\nbbbbbbbbbb\n")
	assert.NotContains(t, b, strings.Repeat("b", 11))
	assert.Equal(t, "2025-03-08", buckets[0].PeriodLabel)
}

func TestParseReport(t *testing.T) {
	r, err := ParseReport(validReport)
	require.NoError(t, err)
	assert.Equal(t, "Coverage turned negative.", r.ExecutiveSummary)
	assert.Equal(t, "Early optimism gave way to criticism.", r.TrendAnalysis)
	require.Len(t, r.MitigationStrategies, 1)
	assert.Equal(t, "Publish data", r.MitigationStrategies[0].Name)
}

func TestParseReportAlias(t *testing.T) {
	r, err := ParseReport(`{"executive_summary":"s","analysis_of_trend":"a","mitigation_strategies":[]}`)
	require.NoError(t, err)
	assert.Equal(t, "a", r.TrendAnalysis)
	assert.NotNil(t, r.MitigationStrategies)
}

func TestParseReportRejects(t *testing.T) {
	tests := map[string]string{
		"not json":      "The report is: good",
		"missing key":   `{"executive_summary":"s","trend_analysis":"a"}`,
		"both aliases":  `{"executive_summary":"s","trend_analysis":"a","analysis_of_trend":"b","mitigation_strategies":[]}`,
		"no trend":      `{"executive_summary":"s","mitigation_strategies":[]}`,
		"extra key":     `{"executive_summary":"s","trend_analysis":"a","mitigation_strategies":[],"sentiment_context":"x"}`,
		"wrong shape":   `{"executive_summary":"s","trend_analysis":"a","mitigation_strategies":"none"}`,
		"unnamed entry": `{"executive_summary":"s","trend_analysis":"a","mitigation_strategies":[{"description":"d"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseReport(raw)
			var me *llm.MalformedError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, raw, me.Raw)
			assert.ErrorIs(t, err, model.ErrMalformed)
		})
	}
}

func TestSynthesize(t *testing.T) {
	var got llm.Request
	gen := llm.GeneratorFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return validReport, nil
	})
	res := New(gen, 5000).Synthesize(context.Background(), "river cleanup", buckets)
	require.Equal(t, model.StatusOK, res.Status)
	assert.True(t, got.JSON)
	assert.Contains(t, got.Prompt, `"river cleanup"`)
	assert.Equal(t, "river cleanup", res.Value.Keyword)
	assert.Equal(t, []string{"2025-03-01", "2025-03-08"}, res.Value.Periods)
}

func TestSynthesizeFailures(t *testing.T) {
	malformed := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) {
		return "Sorry, I cannot help with that.", nil
	})
	res := New(malformed, 5000).Synthesize(context.Background(), "k", buckets)
	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Equal(t, "Sorry, I cannot help with that.", res.Raw)
	assert.ErrorIs(t, res.Err, model.ErrMalformed)

	down := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) {
		return "", errors.New("unavailable")
	})
	res = New(down, 5000).Synthesize(context.Background(), "k", buckets)
	assert.Equal(t, model.StatusFailed, res.Status)
	assert.Error(t, res.Err)

	res = New(down, 5000).Synthesize(context.Background(), "k", nil)
	assert.ErrorIs(t, res.Err, model.ErrNoData)
}
