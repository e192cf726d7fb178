package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/storage"
)

// ErrNotFound 分析记录不存在
var ErrNotFound = errors.New("analysis not found")

// AnalysisRepo 已保存分析的读取
type AnalysisRepo interface {
	Load(ctx context.Context, id string) (*storage.Document, error)
}

// Annotator 单篇文章的实体抽取
type Annotator interface {
	Annotate(ctx context.Context, text string) (*model.ArticleAnalysis, error)
}

// ArticleInsight 一篇已保存文章的实体分析，抽取失败时 status 为 fallback 且列表为空
type ArticleInsight struct {
	URL    string       `json:"url"`
	Title  string       `json:"title"`
	Status model.Status `json:"status"`
	model.ArticleAnalysis
}

// SourceCount 单个来源的文章数
type SourceCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// SavedAnalysis 对外返回的已保存分析
type SavedAnalysis struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Query     string          `json:"query"`
	CreatedAt time.Time       `json:"created_at"`
	Result    json.RawMessage `json:"result,omitempty"`
	Articles  []model.Article `json:"articles"`
	Sources   []SourceCount   `json:"sources"`
	// AverageSentiment 没有文章时为空
	AverageSentiment *float64 `json:"average_sentiment,omitempty"`
	// Insights 仅在配置了实体抽取时返回
	Insights []ArticleInsight `json:"insights,omitempty"`
}

// AnalysisUseCase 已保存分析的业务逻辑
type AnalysisUseCase struct {
	repo      AnalysisRepo
	annotator Annotator
	log       *log.Helper
}

// NewAnalysisUseCase 创建实例，repo 为 nil 表示未启用持久化
func NewAnalysisUseCase(repo AnalysisRepo, logger log.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{repo: repo, log: log.NewHelper(logger)}
}

// WithAnnotator 启用逐篇实体分析
func (uc *AnalysisUseCase) WithAnnotator(a Annotator) *AnalysisUseCase {
	uc.annotator = a
	return uc
}

// Get 读取分析并补充来源分布、平均情感与逐篇实体分析
func (uc *AnalysisUseCase) Get(ctx context.Context, id string) (*SavedAnalysis, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.InvalidInput("analysis id is empty")
	}
	if uc.repo == nil {
		return nil, ErrNotFound
	}
	doc, err := uc.repo.Load(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		uc.log.Errorf("读取分析失败 %s: %v", id, err)
		return nil, err
	}

	out := &SavedAnalysis{
		ID:        doc.ID,
		Kind:      doc.Kind,
		Query:     doc.Query,
		CreatedAt: doc.CreatedAt,
		Result:    doc.Body,
		Articles:  doc.Articles,
		Sources:   countSources(doc.Articles),
	}
	if out.Articles == nil {
		out.Articles = []model.Article{}
	}
	if len(doc.Articles) > 0 {
		var sum float64
		for _, a := range doc.Articles {
			sum += a.SentimentScore
		}
		avg := math.Round(sum/float64(len(doc.Articles))*1000) / 1000
		out.AverageSentiment = &avg
	}
	if uc.annotator != nil {
		out.Insights = uc.annotate(ctx, doc.Articles)
	}
	return out, nil
}

func (uc *AnalysisUseCase) annotate(ctx context.Context, articles []model.Article) []ArticleInsight {
	out := make([]ArticleInsight, 0, len(articles))
	for _, a := range articles {
		in := ArticleInsight{URL: a.URL, Title: a.Title, Status: model.StatusOK}
		res, err := uc.annotator.Annotate(ctx, a.BodyText)
		if err != nil {
			uc.log.Warnf("实体分析失败 %s: %v", a.URL, err)
			in.Status = model.StatusFallback
			in.ArticleAnalysis = model.ArticleAnalysis{
				People: []string{}, Locations: []string{}, Organizations: []string{},
				Topics: []string{}, RelevantSentences: []string{},
			}
		} else {
			in.ArticleAnalysis = *res
		}
		out = append(out, in)
	}
	return out
}

// countSources 按文章数降序，数量相同按域名
func countSources(articles []model.Article) []SourceCount {
	counts := make(map[string]int)
	for _, a := range articles {
		counts[a.SourceDomain]++
	}
	out := make([]SourceCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, SourceCount{Domain: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}
