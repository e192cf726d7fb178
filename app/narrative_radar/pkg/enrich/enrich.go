package enrich

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// Engine 情感与情绪分析，两个模型在进程内共享，调用之间无状态
type Engine struct {
	scorer      SentimentScorer
	classifier  EmotionClassifier
	prefix      int
	concurrency int
}

// New 创建分析引擎，scorer 或 classifier 为 nil 时对应字段保持默认值
func New(scorer SentimentScorer, classifier EmotionClassifier, prefix, concurrency int) *Engine {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Engine{scorer: scorer, classifier: classifier, prefix: prefix, concurrency: concurrency}
}

// Enrich 返回补充了情感字段的副本，任何失败都只降级字段，不丢弃文章
func (e *Engine) Enrich(ctx context.Context, a model.Article) model.Article {
	a.EnsureBody()
	a.SentimentScore = 0
	a.EmotionLabel = model.UnknownEmotion
	a.Enrichment = model.StatusOK

	text := a.Title + ". " + a.BodyText

	if s, err := e.score(ctx, text); err != nil {
		logger.Log.Warnf("情感打分失败 [%s]: %v", a.URL, err)
		a.Enrichment = model.StatusFallback
	} else {
		a.SentimentScore = s
	}

	if l, err := e.classify(ctx, model.Truncate(text, e.prefix)); err != nil {
		logger.Log.Warnf("情绪分类失败 [%s]: %v", a.URL, err)
		a.Enrichment = model.StatusFallback
	} else {
		a.EmotionLabel = l
	}
	return a
}

func (e *Engine) score(ctx context.Context, text string) (s float64, err error) {
	if e.scorer == nil {
		return 0, fmt.Errorf("%w: sentiment model not configured", model.ErrUpstream)
	}
	defer func() {
		if r := recover(); r != nil {
			s, err = 0, fmt.Errorf("sentiment panic: %v", r)
		}
	}()
	s, err = e.scorer.Score(ctx, text)
	if err != nil {
		return 0, err
	}
	if s < -1 || s > 1 {
		return 0, fmt.Errorf("%w: sentiment %f out of range", model.ErrMalformed, s)
	}
	return s, nil
}

func (e *Engine) classify(ctx context.Context, text string) (l string, err error) {
	if e.classifier == nil {
		return model.UnknownEmotion, fmt.Errorf("%w: emotion model not configured", model.ErrUpstream)
	}
	defer func() {
		if r := recover(); r != nil {
			l, err = model.UnknownEmotion, fmt.Errorf("emotion panic: %v", r)
		}
	}()
	l, err = e.classifier.Classify(ctx, text)
	if err != nil || l == "" {
		if err == nil {
			err = fmt.Errorf("%w: empty label", model.ErrMalformed)
		}
		return model.UnknownEmotion, err
	}
	return l, nil
}

// EnrichAll 并发分析，输出顺序与输入一致
func (e *Engine) EnrichAll(ctx context.Context, articles []model.Article) []model.Article {
	out := make([]model.Article, len(articles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range articles {
		g.Go(func() error {
			out[i] = e.Enrich(gctx, articles[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}
