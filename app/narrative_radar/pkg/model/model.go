package model

import (
	"errors"
	"strings"
)

// UnknownEmotion 情绪分类失败或未分类时的哨兵标签
const UnknownEmotion = "unknown"

// Article 一篇经过检索、过滤并（可选）完成情感分析的文章
type Article struct {
	SourceDomain   string  `json:"source_domain"`
	URL            string  `json:"url"`
	SourceURL      string  `json:"source_url,omitempty"`
	Title          string  `json:"title"`
	BodyText       string  `json:"body_text"`
	Snippet        string  `json:"snippet,omitempty"`
	PublishedHint  string  `json:"published_hint,omitempty"`
	PeriodLabel    string  `json:"period_label"`
	SentimentScore float64 `json:"sentiment_score"`
	EmotionLabel   string  `json:"emotion_label"`
	Enrichment     Status  `json:"enrichment_status,omitempty"`
}

// ArticleAnalysis 单篇文章的实体与相关句
type ArticleAnalysis struct {
	People            []string `json:"people"`
	Locations         []string `json:"locations"`
	Organizations     []string `json:"organizations"`
	Topics            []string `json:"topics"`
	RelevantSentences []string `json:"relevant_sentences"`
}

// NewArticle 由一条检索结果构造文章，情感字段取默认值
func NewArticle(url, title, snippet, publishedHint, periodLabel string) Article {
	return Article{
		URL:           strings.TrimSpace(url),
		Title:         strings.TrimSpace(title),
		Snippet:       strings.TrimSpace(snippet),
		PublishedHint: strings.TrimSpace(publishedHint),
		PeriodLabel:   periodLabel,
		EmotionLabel:  UnknownEmotion,
	}
}

// EnsureBody 正文为空时依次回退到摘要和标题
func (a *Article) EnsureBody() {
	if strings.TrimSpace(a.BodyText) != "" {
		return
	}
	if a.Snippet != "" {
		a.BodyText = a.Snippet
		return
	}
	a.BodyText = a.Title
}

// Validate 进入情感分析前的校验
func (a Article) Validate() error {
	if a.URL == "" {
		return errors.New("article url is empty")
	}
	if strings.TrimSpace(a.BodyText) == "" {
		return errors.New("article body is empty")
	}
	return nil
}

// PeriodBucket 一个时间段的聚合结果
type PeriodBucket struct {
	PeriodLabel      string    `json:"period_label"`
	Articles         []Article `json:"articles"`
	CorpusText       string    `json:"corpus_text"`
	AverageSentiment float64   `json:"average_sentiment"`
	NarrativeSummary string    `json:"narrative_summary"`
	NarrativeStatus  Status    `json:"narrative_status"`
}

// ArticleCount 时间段内的文章数
func (b *PeriodBucket) ArticleCount() int {
	return len(b.Articles)
}

// PeriodSummary 对外返回的时间段摘要
type PeriodSummary struct {
	ArticleCount     int     `json:"article_count"`
	Narrative        string  `json:"narrative"`
	AverageSentiment float64 `json:"average_sentiment"`
	Degraded         bool    `json:"degraded"`
}

// Summary 生成对外摘要
func (b *PeriodBucket) Summary() PeriodSummary {
	return PeriodSummary{
		ArticleCount:     b.ArticleCount(),
		Narrative:        b.NarrativeSummary,
		AverageSentiment: b.AverageSentiment,
		Degraded:         b.NarrativeStatus != StatusOK,
	}
}

// EvidenceItem 作为反驳论据展示的文章裁剪视图
type EvidenceItem struct {
	Rank           int     `json:"rank"`
	Title          string  `json:"title"`
	SourceDomain   string  `json:"source_domain"`
	PublishedHint  string  `json:"published_hint,omitempty"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	SentimentScore float64 `json:"sentiment_score"`
	EmotionLabel   string  `json:"emotion_label"`
}

// MitigationStrategy 报告中的应对策略
type MitigationStrategy struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Justification string `json:"justification"`
}

// TrendReport 跨时间段的趋势报告
type TrendReport struct {
	Keyword              string               `json:"keyword"`
	ExecutiveSummary     string               `json:"executive_summary"`
	TrendAnalysis        string               `json:"trend_analysis"`
	MitigationStrategies []MitigationStrategy `json:"mitigation_strategies"`
	Periods              []string             `json:"periods"`
}

// Truncate 按字符（rune）截断文本
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
