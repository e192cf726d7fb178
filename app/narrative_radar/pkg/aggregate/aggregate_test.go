package aggregate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

func TestMain(m *testing.M) {
	logger.Discard()
	goleak.VerifyTestMain(m)
}

func art(url, label string, score float64) model.Article {
	return model.Article{URL: url, Title: "T " + url, BodyText: "body " + url, PeriodLabel: label, SentimentScore: score}
}

func TestGroupIsPartitionInLabelOrder(t *testing.T) {
	in := []model.Article{
		art("a", "2025-03-08", 0),
		art("b", "2025-03-01", 0),
		art("c", "2025-03-08", 0),
		art("d", "2025-02-22", 0),
		art("e", "2025-03-01", 0),
	}
	buckets := Group(in)
	require.Len(t, buckets, 3)
	assert.Equal(t, "2025-02-22", buckets[0].PeriodLabel)
	assert.Equal(t, "2025-03-01", buckets[1].PeriodLabel)
	assert.Equal(t, "2025-03-08", buckets[2].PeriodLabel)

	seen := map[string]int{}
	for _, b := range buckets {
		for _, a := range b.Articles {
			seen[a.URL]++
			assert.Equal(t, b.PeriodLabel, a.PeriodLabel)
		}
	}
	assert.Len(t, seen, len(in))
	for url, n := range seen {
		assert.Equal(t, 1, n, url)
	}
	assert.Equal(t, "a", buckets[2].Articles[0].URL)
	assert.Equal(t, "c", buckets[2].Articles[1].URL)
}

func TestGroupEmpty(t *testing.T) {
	assert.Empty(t, Group(nil))
}

func TestAverageSentiment(t *testing.T) {
	avg, ok := AverageSentiment([]model.Article{{SentimentScore: 0.5}, {SentimentScore: -0.5}, {SentimentScore: 1.0}})
	require.True(t, ok)
	assert.Equal(t, 0.333, avg)

	_, ok = AverageSentiment(nil)
	assert.False(t, ok)
}

func TestBuildCorpus(t *testing.T) {
	arts := []model.Article{{Title: "A", BodyText: "one"}, {Title: "B", BodyText: "two"}}
	assert.Equal(t, "Title: A\none\n\n---\n\nTitle: B\ntwo", BuildCorpus(arts, 0))
	assert.Equal(t, "Title: A", BuildCorpus(arts, 8))
}

func TestAggregateDegradesPerPeriod(t *testing.T) {
	var calls int32
	gen := llm.GeneratorFunc(func(_ context.Context, req llm.Request) (string, error) {
		atomic.AddInt32(&calls, 1)
		assert.Contains(t, req.Prompt, "2-3 dominant, distinct narratives")
		if strings.Contains(req.Prompt, "body bad") {
			return "", errors.New("timeout")
		}
		return "Narrative A; Narrative B", nil
	})
	g := New(gen, 15000, 4)

	buckets := g.Aggregate(context.Background(), []model.Article{
		art("ok1", "2025-03-08", 0.5),
		art("bad", "2025-03-01", -0.2),
		art("ok2", "2025-03-08", -0.5),
		art("ok3", "2025-03-08", 1.0),
	})
	require.Len(t, buckets, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	failed := buckets[0]
	assert.Equal(t, "2025-03-01", failed.PeriodLabel)
	assert.Equal(t, NarrativePlaceholder, failed.NarrativeSummary)
	assert.Equal(t, model.StatusFallback, failed.NarrativeStatus)

	ok := buckets[1]
	assert.Equal(t, "Narrative A; Narrative B", ok.NarrativeSummary)
	assert.Equal(t, model.StatusOK, ok.NarrativeStatus)
	assert.Equal(t, 0.333, ok.AverageSentiment)
	assert.Equal(t, 3, ok.ArticleCount())
	assert.True(t, strings.HasPrefix(ok.CorpusText, "Title: T ok1\nbody ok1"))
}

func TestAggregateCapsCorpus(t *testing.T) {
	var prompt string
	gen := llm.GeneratorFunc(func(_ context.Context, req llm.Request) (string, error) {
		prompt = req.Prompt
		return "n", nil
	})
	long := model.Article{URL: "x", Title: "T", BodyText: strings.Repeat("w", 200), PeriodLabel: "p"}
	buckets := New(gen, 50, 1).Aggregate(context.Background(), []model.Article{long})
	require.Len(t, buckets, 1)
	assert.Len(t, buckets[0].CorpusText, 50)
	assert.True(t, strings.HasSuffix(prompt, buckets[0].CorpusText))
}

func TestNarrateWithoutGenerator(t *testing.T) {
	res := New(nil, 0, 1).Narrate(context.Background(), "c")
	assert.Equal(t, model.StatusFallback, res.Status)
	assert.Equal(t, NarrativePlaceholder, res.Value)
}
