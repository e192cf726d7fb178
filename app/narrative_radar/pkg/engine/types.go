package engine

import (
	"time"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// ReportUnavailable 趋势报告生成失败时的执行摘要占位
const ReportUnavailable = "The cross-period report could not be generated; see the per-period narratives."

// TrendRequest 趋势分析请求，total_days/chunk_days 为 0 时取 30/7
type TrendRequest struct {
	Keywords  string `json:"keywords"`
	TotalDays int    `json:"total_days"`
	ChunkDays int    `json:"chunk_days"`
}

// ChunkReport 一个检索时间段的执行情况
type ChunkReport struct {
	PeriodLabel string    `json:"period_label"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Fetched     int       `json:"fetched"`
	Error       string    `json:"error,omitempty"`
}

// TrendResponse 趋势分析结果
type TrendResponse struct {
	Report       model.TrendReport              `json:"report"`
	ReportStatus model.Status                   `json:"report_status"`
	RawOutput    string                         `json:"raw_output,omitempty"`
	Periods      map[string]model.PeriodSummary `json:"periods"`
	Chunks       []ChunkReport                  `json:"chunks"`
	Degraded     bool                           `json:"degraded"`
	DatabaseID   string                         `json:"database_id,omitempty"`
}

// CounterRequest 反驳文本请求
type CounterRequest struct {
	Statement string `json:"statement"`
	DaysBack  int    `json:"days_back"`
	TopK      int    `json:"top_k"`
	Keywords  string `json:"keywords,omitempty"`
}

// CounterMeta 反驳文本的检索元信息
type CounterMeta struct {
	SearchQuery       string `json:"search_query"`
	FoundArticles     int    `json:"found_articles"`
	ReturnedEvidences int    `json:"returned_evidences"`
	EvidenceByRecency bool   `json:"evidence_by_recency"`
}

// CounterResponse 反驳文本结果
type CounterResponse struct {
	Counterspeech string               `json:"counterspeech"`
	Status        model.Status         `json:"status"`
	RawOutput     string               `json:"raw_output,omitempty"`
	Evidences     []model.EvidenceItem `json:"evidences"`
	Citations     []model.EvidenceItem `json:"citations"`
	Meta          CounterMeta          `json:"meta"`
	DatabaseID    string               `json:"database_id,omitempty"`
}

// SearchHit 检索接口返回的精简文章
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// SearchResponse 检索结果
type SearchResponse struct {
	Query            string      `json:"user_query"`
	ExtractedKeyword string      `json:"extracted_keyword"`
	Articles         []SearchHit `json:"articles"`
}

// AnalysisResponse 带持久化的检索分析结果
type AnalysisResponse struct {
	Query            string          `json:"user_query"`
	ExtractedKeyword string          `json:"extracted_keyword"`
	CredibleFound    int             `json:"credible_articles_found"`
	Articles         []model.Article `json:"parsed_articles"`
	FactsIngested    int             `json:"facts_ingested"`
	DatabaseID       string          `json:"database_id,omitempty"`
}

// Comparison 意图信息与媒体叙事的差距分析
type Comparison struct {
	NarrativeGap         string   `json:"narrative_gap"`
	MisinterpretedPoints []string `json:"misinterpreted_points"`
	CounterSpeechPoints  []string `json:"counter_speech_points"`
}
