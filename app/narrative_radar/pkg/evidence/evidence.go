package evidence

import (
	"sort"
	"strings"
	"time"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// Selector 相关性打分与证据挑选
type Selector struct {
	halfLifeDays  float64
	snippetLength int
	now           func() time.Time
}

// NewSelector 创建挑选器；halfLifeDays 为时间衰减常数，默认 30
func NewSelector(halfLifeDays float64, snippetLength int) *Selector {
	if halfLifeDays <= 0 {
		halfLifeDays = 30
	}
	if snippetLength <= 0 {
		snippetLength = 250
	}
	return &Selector{halfLifeDays: halfLifeDays, snippetLength: snippetLength, now: time.Now}
}

// WithClock 替换时钟，测试用
func (s *Selector) WithClock(now func() time.Time) *Selector {
	s.now = now
	return s
}

// Selection 证据挑选结果
type Selection struct {
	Items []model.EvidenceItem
	// ByRecency 没有任何文章得分为正，按时间回退挑选
	ByRecency bool
}

// RawScore 查询词在 "标题 正文" 中出现次数之和（小写子串计数）
func RawScore(a model.Article, tokens []string) float64 {
	hay := strings.ToLower(a.Title + " " + a.BodyText)
	var n int
	for _, tok := range tokens {
		n += strings.Count(hay, tok)
	}
	return float64(n)
}

// Recency 时间衰减系数 1/(1+days_old/halfLife)；只看发布日期，没有可用日期时为 1
func (s *Selector) Recency(a model.Article) float64 {
	now := s.now()
	d, ok := model.ParseDateHint(a.PublishedHint, now)
	if !ok {
		return 1.0
	}
	days := now.Sub(d).Hours() / 24
	if days < 0 {
		days = 0
	}
	return 1 / (1 + days/s.halfLifeDays)
}

// Score 最终得分 = 原始得分 × 时间衰减
func (s *Selector) Score(a model.Article, tokens []string) float64 {
	raw := RawScore(a, tokens)
	if raw == 0 {
		return 0
	}
	return raw * s.Recency(a)
}

// Select 取得分为正的前 k 篇；全部为 0 时回退到最近的 k 篇
func (s *Selector) Select(articles []model.Article, query string, k int) Selection {
	if k <= 0 || len(articles) == 0 {
		return Selection{Items: []model.EvidenceItem{}}
	}
	tokens := QueryTokens(query)

	type scored struct {
		idx   int
		score float64
	}
	var positive []scored
	for i, a := range articles {
		if sc := s.Score(a, tokens); sc > 0 {
			positive = append(positive, scored{idx: i, score: sc})
		}
	}

	var picked []int
	byRecency := false
	if len(positive) > 0 {
		sort.SliceStable(positive, func(i, j int) bool { return positive[i].score > positive[j].score })
		for _, p := range positive {
			picked = append(picked, p.idx)
		}
	} else {
		byRecency = true
		picked = s.mostRecent(articles)
	}
	if len(picked) > k {
		picked = picked[:k]
	}

	items := make([]model.EvidenceItem, 0, len(picked))
	for rank, idx := range picked {
		items = append(items, s.toItem(articles[idx], rank+1))
	}
	return Selection{Items: items, ByRecency: byRecency}
}

// mostRecent 按最佳日期降序，无日期的排在最后并保持输入顺序
func (s *Selector) mostRecent(articles []model.Article) []int {
	now := s.now()
	type dated struct {
		idx int
		t   time.Time
		ok  bool
	}
	ds := make([]dated, len(articles))
	for i, a := range articles {
		t, ok := a.BestDate(now)
		ds[i] = dated{idx: i, t: t, ok: ok}
	}
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].ok != ds[j].ok {
			return ds[i].ok
		}
		return ds[i].t.After(ds[j].t)
	})
	out := make([]int, len(ds))
	for i, d := range ds {
		out[i] = d.idx
	}
	return out
}

func (s *Selector) toItem(a model.Article, rank int) model.EvidenceItem {
	body := a.BodyText
	if body == "" {
		body = a.Snippet
	}
	return model.EvidenceItem{
		Rank:           rank,
		Title:          a.Title,
		SourceDomain:   a.SourceDomain,
		PublishedHint:  a.PublishedHint,
		URL:            a.URL,
		Snippet:        model.Truncate(strings.TrimSpace(body), s.snippetLength),
		SentimentScore: a.SentimentScore,
		EmotionLabel:   a.EmotionLabel,
	}
}
