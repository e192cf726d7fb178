package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/aggregate"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/counterspeech"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/credibility"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/enrich"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/events"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/evidence"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/extract"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/factgraph"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/fetcher"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/storage"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/trend"
)

// DefaultTopK 未指定 top_k 时返回的证据条数
const DefaultTopK = 3

// 趋势分析未指定时间范围时的默认值
const (
	DefaultTotalDays = 30
	DefaultChunkDays = 7
)

// DocumentStore 分析文档的持久化
type DocumentStore interface {
	Save(ctx context.Context, doc storage.Document) (string, error)
	Load(ctx context.Context, id string) (*storage.Document, error)
}

// Archiver 文章归档
type Archiver interface {
	Archive(ctx context.Context, query string, articles []model.Article) (int, error)
}

// Options 引擎依赖，Store / Archive / Graph / Events 可为空
type Options struct {
	Fetcher    *fetcher.Fetcher
	Filter     *credibility.Filter
	Extractor  extract.Extractor
	Enricher   *enrich.Engine
	Aggregator *aggregate.Aggregator
	Trend      *trend.Synthesizer
	Selector   *evidence.Selector
	Counter    *counterspeech.Generator
	Generator  llm.Generator

	Graph   *factgraph.Graph
	Store   DocumentStore
	Archive Archiver
	Events  events.Publisher
	// Probes 就绪检查用的依赖探测
	Probes  map[string]func(context.Context) error

	ExtractConcurrency int
	ExtractMinLength   int
	SnippetLength      int
	IngestTimeout      time.Duration
}

// Engine 串联检索、过滤、抽取、情感分析、聚合与生成的分析流水线
type Engine struct {
	opts Options
	now  func() time.Time
	bg   sync.WaitGroup
}

// New 创建引擎
func New(opts Options) *Engine {
	if opts.ExtractConcurrency <= 0 {
		opts.ExtractConcurrency = 4
	}
	if opts.SnippetLength <= 0 {
		opts.SnippetLength = 250
	}
	if opts.IngestTimeout <= 0 {
		opts.IngestTimeout = 2 * time.Minute
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	return &Engine{opts: opts, now: time.Now}
}

// Wait 等待后台任务（事实图谱写入）结束
func (e *Engine) Wait() {
	e.bg.Wait()
}

// prepare 抽取正文并补齐回退正文，保持输入顺序；单篇抽取失败只保留摘要
func (e *Engine) prepare(ctx context.Context, articles []model.Article) ([]model.Article, error) {
	out := make([]model.Article, len(articles))
	copy(out, articles)

	if e.opts.Extractor != nil {
		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(e.opts.ExtractConcurrency)
		for i := range out {
			a := &out[i]
			eg.Go(func() error {
				c, err := e.opts.Extractor.Extract(egctx, a.URL)
				if err != nil {
					logger.Log.Warnf("正文抽取失败，使用摘要 [%s]: %v", a.URL, err)
					return nil
				}
				if len([]rune(c.BodyText)) < e.opts.ExtractMinLength {
					logger.Log.Debugf("正文过短，使用摘要 [%s]", a.URL)
					return nil
				}
				a.BodyText = c.BodyText
				if a.Title == "" {
					a.Title = c.Title
				}
				return nil
			})
		}
		_ = eg.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	kept := out[:0]
	for _, a := range out {
		a.EnsureBody()
		if err := a.Validate(); err != nil {
			logger.Log.Warnf("跳过无正文文章 [%s]: %v", a.URL, err)
			continue
		}
		kept = append(kept, a)
	}
	return kept, nil
}

// Trend 分段检索并生成跨时间段的趋势报告
func (e *Engine) Trend(ctx context.Context, req TrendRequest) (*TrendResponse, error) {
	keyword := strings.TrimSpace(req.Keywords)
	if req.TotalDays == 0 {
		req.TotalDays = DefaultTotalDays
	}
	if req.ChunkDays == 0 {
		req.ChunkDays = DefaultChunkDays
	}
	articles, chunks, err := e.opts.Fetcher.FetchWindowed(ctx, keyword, req.TotalDays, req.ChunkDays)
	if err != nil {
		return nil, err
	}
	logger.Log.Infof("趋势分析 [%s] 共检索 %d 段，%d 篇文章", keyword, len(chunks), len(articles))

	credible := e.opts.Filter.FilterCredible(articles)
	if len(credible) == 0 {
		return nil, &model.NoResultsError{Query: keyword, WindowDays: req.TotalDays, Stage: "filter"}
	}
	prepared, err := e.prepare(ctx, credible)
	if err != nil {
		return nil, err
	}
	enriched := e.opts.Enricher.EnrichAll(ctx, prepared)

	buckets := e.opts.Aggregator.Aggregate(ctx, enriched)
	if len(buckets) == 0 {
		return nil, &model.NoResultsError{Query: keyword, WindowDays: req.TotalDays, Stage: "aggregate"}
	}

	resp := &TrendResponse{Periods: make(map[string]model.PeriodSummary, len(buckets))}
	for _, c := range chunks {
		cr := ChunkReport{PeriodLabel: c.Label, Start: c.Window.Start, End: c.Window.End, Fetched: c.Count}
		if c.Err != nil {
			cr.Error = c.Err.Error()
			resp.Degraded = true
		}
		resp.Chunks = append(resp.Chunks, cr)
	}
	for i := range buckets {
		s := buckets[i].Summary()
		resp.Periods[buckets[i].PeriodLabel] = s
		resp.Degraded = resp.Degraded || s.Degraded
	}

	res := e.opts.Trend.Synthesize(ctx, keyword, buckets)
	resp.ReportStatus = res.Status
	resp.RawOutput = res.Raw
	if res.Grounded() {
		resp.Report = res.Value
	} else {
		logger.Log.Warnf("趋势报告生成失败 [%s]: %v", keyword, res.Err)
		resp.Report = fallbackReport(keyword, buckets)
		resp.Degraded = true
	}

	resp.DatabaseID = e.persist(ctx, "trend", keyword, resp, enriched)
	e.archive(ctx, keyword, enriched)
	e.publish(ctx, events.Event{
		Type: events.TypeTrendCompleted, ID: resp.DatabaseID, Query: keyword,
		Count: len(enriched), Degraded: resp.Degraded,
	})
	return resp, nil
}

func fallbackReport(keyword string, buckets []model.PeriodBucket) model.TrendReport {
	r := model.TrendReport{
		Keyword:              keyword,
		ExecutiveSummary:     ReportUnavailable,
		MitigationStrategies: []model.MitigationStrategy{},
	}
	for _, b := range buckets {
		r.Periods = append(r.Periods, b.PeriodLabel)
	}
	return r
}

// Counterspeech 检索证据并生成反驳文本
func (e *Engine) Counterspeech(ctx context.Context, req CounterRequest) (*CounterResponse, error) {
	statement := strings.TrimSpace(req.Statement)
	if statement == "" {
		return nil, model.InvalidInput("statement is empty")
	}
	k := req.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	query := strings.TrimSpace(req.Keywords)
	if query == "" {
		query = strings.Join(evidence.ExtractKeywords(statement), " ")
	}

	articles, err := e.opts.Fetcher.FetchRecent(ctx, query, req.DaysBack)
	if err != nil {
		return nil, err
	}
	credible := e.opts.Filter.FilterCredible(articles)
	prepared, err := e.prepare(ctx, credible)
	if err != nil {
		return nil, err
	}
	enriched := e.opts.Enricher.EnrichAll(ctx, prepared)

	sel := e.opts.Selector.Select(enriched, query, k)
	if sel.Items == nil {
		sel.Items = []model.EvidenceItem{}
	}
	res := e.opts.Counter.Generate(ctx, statement, sel.Items)

	resp := &CounterResponse{
		Counterspeech: res.Value.Text,
		Status:        res.Status,
		RawOutput:     res.Raw,
		Evidences:     sel.Items,
		Citations:     res.Value.Citations,
		Meta: CounterMeta{
			SearchQuery:       query,
			FoundArticles:     len(enriched),
			ReturnedEvidences: len(sel.Items),
			EvidenceByRecency: sel.ByRecency,
		},
	}
	if resp.Citations == nil {
		resp.Citations = []model.EvidenceItem{}
	}
	if !res.Grounded() {
		logger.Log.Warnf("反驳文本使用模板 [%s]: %v", query, res.Err)
	}

	resp.DatabaseID = e.persist(ctx, "counterspeech", statement, resp, enriched)
	e.publish(ctx, events.Event{
		Type: events.TypeCounterSpeech, ID: resp.DatabaseID, Query: query,
		Count: len(sel.Items), Degraded: !res.Grounded() || sel.ByRecency,
	})
	return resp, nil
}

// persist 存储未配置或失败时返回空 ID，不影响结果
func (e *Engine) persist(ctx context.Context, kind, query string, body any, articles []model.Article) string {
	if e.opts.Store == nil {
		return ""
	}
	raw, err := json.Marshal(body)
	if err != nil {
		logger.Log.Warnf("序列化分析结果失败: %v", err)
		return ""
	}
	id, err := e.opts.Store.Save(ctx, storage.Document{Kind: kind, Query: query, Body: raw, Articles: articles})
	if err != nil {
		logger.Log.Warnf("保存分析结果失败 [%s]: %v", query, err)
		return ""
	}
	logger.Log.Infof("分析结果已保存: %s", id)
	return id
}

func (e *Engine) archive(ctx context.Context, query string, articles []model.Article) {
	if e.opts.Archive == nil || len(articles) == 0 {
		return
	}
	n, err := e.opts.Archive.Archive(ctx, query, articles)
	if err != nil {
		logger.Log.Warnf("文章归档失败 [%s]: %v", query, err)
	}
	if n > 0 {
		e.publish(ctx, events.Event{Type: events.TypeArticlesIndexed, Query: query, Count: n})
	}
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if ev.At.IsZero() {
		ev.At = e.now().UTC()
	}
	if err := e.opts.Events.Publish(ctx, ev); err != nil {
		logger.Log.Warnf("事件发布失败: %v", err)
	}
}

// requireGenerator 辅助接口依赖模型时的检查
func (e *Engine) requireGenerator() error {
	if e.opts.Generator == nil {
		return fmt.Errorf("%w: generator not configured", model.ErrUpstream)
	}
	return nil
}

// Store 返回文档存储，未启用持久化时为 nil
func (e *Engine) Store() DocumentStore {
	return e.opts.Store
}

// Graph 事实图谱，未配置时为 nil
func (e *Engine) Graph() *factgraph.Graph {
	return e.opts.Graph
}

// Probes 返回依赖探测
func (e *Engine) Probes() map[string]func(context.Context) error {
	return e.opts.Probes
}
