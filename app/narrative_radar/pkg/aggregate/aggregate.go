package aggregate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// NarrativePlaceholder 叙事生成失败时的占位文本
const NarrativePlaceholder = "Could not determine narratives for this period."

// CorpusSeparator 语料中文章之间的分隔符
const CorpusSeparator = "\n\n---\n\n"

const narrativePrompt = `Analyze the following news articles from a single time period. Identify and summarize the 2-3 dominant, distinct narratives or sub-plots. Be specific.

ARTICLES:
%s`

// Aggregator 按时间段聚合文章并生成叙事摘要
type Aggregator struct {
	gen          llm.Generator
	corpusBudget int
	concurrency  int
}

// New 创建聚合器
func New(gen llm.Generator, corpusBudget, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Aggregator{gen: gen, corpusBudget: corpusBudget, concurrency: concurrency}
}

// Group 按 period_label 稳定分组，返回的时间段按标签升序排列，组内保持输入顺序
func Group(articles []model.Article) []model.PeriodBucket {
	index := make(map[string]int)
	var buckets []model.PeriodBucket
	for _, a := range articles {
		i, ok := index[a.PeriodLabel]
		if !ok {
			i = len(buckets)
			index[a.PeriodLabel] = i
			buckets = append(buckets, model.PeriodBucket{PeriodLabel: a.PeriodLabel})
		}
		buckets[i].Articles = append(buckets[i].Articles, a)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].PeriodLabel < buckets[j].PeriodLabel
	})
	return buckets
}

// BuildCorpus 拼接 "Title: ...\n正文"，按字符预算截断
func BuildCorpus(articles []model.Article, budget int) string {
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		parts = append(parts, fmt.Sprintf("Title: %s\n%s", a.Title, a.BodyText))
	}
	corpus := strings.Join(parts, CorpusSeparator)
	if budget > 0 {
		corpus = model.Truncate(corpus, budget)
	}
	return corpus
}

// AverageSentiment 情感均值，保留三位小数；空集合无定义
func AverageSentiment(articles []model.Article) (float64, bool) {
	if len(articles) == 0 {
		return 0, false
	}
	var sum float64
	for _, a := range articles {
		sum += a.SentimentScore
	}
	avg := sum / float64(len(articles))
	return math.Round(avg*1000) / 1000, true
}

// Narrate 为单个时间段生成叙事摘要
func (g *Aggregator) Narrate(ctx context.Context, corpus string) model.Result[string] {
	if g.gen == nil {
		return model.Fallback(NarrativePlaceholder, fmt.Errorf("%w: generator not configured", model.ErrUpstream))
	}
	out, err := g.gen.Generate(ctx, llm.Request{Prompt: fmt.Sprintf(narrativePrompt, corpus)})
	if err != nil {
		return model.Fallback(NarrativePlaceholder, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return model.Fallback(NarrativePlaceholder, fmt.Errorf("%w: empty narrative", model.ErrMalformed))
	}
	return model.OK(out)
}

// Aggregate 分组并并发生成各时间段叙事，单个时间段失败只降级该时间段
func (g *Aggregator) Aggregate(ctx context.Context, articles []model.Article) []model.PeriodBucket {
	buckets := Group(articles)

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i := range buckets {
		b := &buckets[i]
		b.CorpusText = BuildCorpus(b.Articles, g.corpusBudget)
		b.AverageSentiment, _ = AverageSentiment(b.Articles)

		eg.Go(func() error {
			res := g.Narrate(egctx, b.CorpusText)
			if !res.Grounded() {
				logger.Log.Warnf("时间段 [%s] 叙事生成失败，使用占位文本: %v", b.PeriodLabel, res.Err)
			}
			b.NarrativeSummary = res.Value
			b.NarrativeStatus = res.Status
			return nil
		})
	}
	_ = eg.Wait()
	return buckets
}
