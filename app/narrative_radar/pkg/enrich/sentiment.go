package enrich

import (
	"context"
	"math"

	"github.com/jonreiter/govader"
)

// SentimentScorer 情感极性打分，结果位于 [-1, 1]
type SentimentScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// VaderScorer 基于 VADER 词典规则的情感打分，相同文本结果确定
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer 创建 VADER 打分器
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score 返回 compound 分数
func (v *VaderScorer) Score(_ context.Context, text string) (float64, error) {
	s := v.analyzer.PolarityScores(text).Compound
	return math.Max(-1, math.Min(1, s)), nil
}
