package evidence

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

var now = time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

func selector() *Selector {
	return NewSelector(30, 250).WithClock(func() time.Time { return now })
}

func TestExtractKeywords(t *testing.T) {
	assert.Equal(t,
		[]string{"bridge", "never", "inspected"},
		ExtractKeywords("The bridge was never inspected"))
	assert.Equal(t,
		[]string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"},
		ExtractKeywords("alpha beta alpha gamma delta epsilon zeta eta theta"))
	assert.Equal(t, []string{"it is ok"}, ExtractKeywords("it is ok"))
	assert.Nil(t, ExtractKeywords("   "))

	got := ExtractKeywords(strings.Repeat("x1 ", 40))
	require.Len(t, got, 1)
	assert.LessOrEqual(t, len(got[0]), 80)
}

func TestQueryTokensKeepsDuplicatesAndStopwords(t *testing.T) {
	assert.Equal(t, []string{"the", "bridge", "the", "bridge"}, QueryTokens("The bridge, the BRIDGE! is ok"))
}

func TestRawScoreSubstringCounting(t *testing.T) {
	a := model.Article{Title: "Bridge inspections", BodyText: "The bridge inspector inspected the bridge."}
	assert.Equal(t, 3.0, RawScore(a, []string{"bridge"}))
	assert.Equal(t, 3.0, RawScore(a, []string{"inspect"}))
	assert.Equal(t, 0.0, RawScore(a, []string{"river"}))
}

func TestRecency(t *testing.T) {
	s := selector()
	assert.Equal(t, 1.0, s.Recency(model.Article{PublishedHint: "today"}))
	assert.InDelta(t, 0.5, s.Recency(model.Article{PublishedHint: "30 days ago"}), 1e-9)
	assert.Equal(t, 1.0, s.Recency(model.Article{PeriodLabel: "2025-03-01"}))
	assert.Equal(t, 1.0, s.Recency(model.Article{}))
	assert.Equal(t, 1.0, s.Recency(model.Article{PublishedHint: "2025-04-10"}))
}

func TestSelectUndatedNotDecayedByPeriod(t *testing.T) {
	arts := []model.Article{
		{URL: "dated", Title: "bridge", BodyText: "closed", PublishedHint: "today"},
		{URL: "undated", Title: "bridge", BodyText: "bridge", PeriodLabel: "2025-03-01"},
	}
	sel := selector().Select(arts, "bridge", 1)
	require.Len(t, sel.Items, 1)
	assert.Equal(t, "undated", sel.Items[0].URL)
	assert.False(t, sel.ByRecency)
}

func TestSelectOnlyPositive(t *testing.T) {
	arts := []model.Article{
		{URL: "1", Title: "weather", BodyText: "sunny"},
		{URL: "2", Title: "bridge", BodyText: "bridge bridge", PublishedHint: "today"},
		{URL: "3", Title: "sports", BodyText: "goal"},
		{URL: "4", Title: "bridge", BodyText: "closed", PublishedHint: "today"},
		{URL: "5", Title: "markets", BodyText: "stocks"},
	}
	sel := selector().Select(arts, "bridge", 3)
	require.Len(t, sel.Items, 2)
	assert.False(t, sel.ByRecency)
	assert.Equal(t, "2", sel.Items[0].URL)
	assert.Equal(t, 1, sel.Items[0].Rank)
	assert.Equal(t, "4", sel.Items[1].URL)
	assert.Equal(t, 2, sel.Items[1].Rank)
}

func TestSelectStableTies(t *testing.T) {
	arts := []model.Article{
		{URL: "a", Title: "bridge"},
		{URL: "b", Title: "bridge"},
		{URL: "c", Title: "bridge"},
	}
	sel := selector().Select(arts, "bridge", 2)
	require.Len(t, sel.Items, 2)
	assert.Equal(t, "a", sel.Items[0].URL)
	assert.Equal(t, "b", sel.Items[1].URL)
}

func TestSelectRecencyOutweighsCount(t *testing.T) {
	arts := []model.Article{
		{URL: "old", Title: "bridge", BodyText: "bridge", PublishedHint: "90 days ago"},
		{URL: "new", Title: "bridge", PublishedHint: "today"},
	}
	sel := selector().Select(arts, "bridge", 2)
	require.Len(t, sel.Items, 2)
	assert.Equal(t, "new", sel.Items[0].URL)
}

func TestSelectFallsBackToMostRecent(t *testing.T) {
	arts := []model.Article{
		{URL: "undated", Title: "a"},
		{URL: "mid", Title: "b", PublishedHint: "2025-03-10"},
		{URL: "newest", Title: "c", PublishedHint: "2 days ago"},
		{URL: "oldest", Title: "d", PeriodLabel: "2025-01-01"},
	}
	sel := selector().Select(arts, "volcano eruption", 3)
	assert.True(t, sel.ByRecency)
	require.Len(t, sel.Items, 3)
	assert.Equal(t, "newest", sel.Items[0].URL)
	assert.Equal(t, "mid", sel.Items[1].URL)
	assert.Equal(t, "oldest", sel.Items[2].URL)
}

func TestSelectRanksContiguous(t *testing.T) {
	var arts []model.Article
	for i := 0; i < 10; i++ {
		arts = append(arts, model.Article{URL: string(rune('a' + i)), Title: "bridge"})
	}
	for k := 1; k <= 12; k++ {
		sel := selector().Select(arts, "bridge", k)
		want := k
		if want > len(arts) {
			want = len(arts)
		}
		require.Len(t, sel.Items, want)
		for i, it := range sel.Items {
			assert.Equal(t, i+1, it.Rank)
		}
	}
}

func TestSelectSnippetCapped(t *testing.T) {
	arts := []model.Article{{URL: "x", Title: "bridge", BodyText: strings.Repeat("b", 400)}}
	sel := NewSelector(30, 100).Select(arts, "bridge", 1)
	require.Len(t, sel.Items, 1)
	assert.Len(t, sel.Items[0].Snippet, 100)
}

func TestSelectEmpty(t *testing.T) {
	sel := selector().Select(nil, "bridge", 3)
	assert.NotNil(t, sel.Items)
	assert.Empty(t, sel.Items)
	assert.Empty(t, selector().Select([]model.Article{{URL: "a"}}, "q", 0).Items)
}
