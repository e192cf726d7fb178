package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/events"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/factgraph"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/storage"
)

const keywordPrompt = `You are an expert search query analyst. Analyze the following user query and extract the core, neutral topic or keyword phrase. The output should be a clean search term only, with no extra explanation.
QUERY: '%s'`

const comparePrompt = `You are a strategic communications analyst. Your task is to analyze the gap between an intended message and the actual media narrative.

1. INTENDED MESSAGE (The "Ground Truth"):
"%s"

2. PERCEIVED MEDIA NARRATIVE (Text from a news article or opinion piece):
"%s"

YOUR ANALYSIS:
- Narrative Gap Analysis: In a single paragraph, describe the key differences in facts, tone, and focus.
- Key Misinterpreted Points: A list of specific points from the intended message that are being lost, ignored, or twisted in the media narrative.
- Counter Speech Talking Points: 3-4 clear, concise talking points that can be used to counter the misinformation and realign the narrative with the ground truth.

OUTPUT FORMAT:
Return a JSON object with exactly the keys "narrative_gap" (string), "misinterpreted_points" (array of strings) and "counter_speech_points" (array of strings).`

// DistillKeyword 让模型把自然语言问题提炼为检索词，失败时使用原始问题
func (e *Engine) DistillKeyword(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if e.opts.Generator == nil {
		return query
	}
	out, err := e.opts.Generator.Generate(ctx, llm.Request{Prompt: fmt.Sprintf(keywordPrompt, query)})
	if err != nil {
		logger.Log.Warnf("检索词提炼失败，使用原始问题: %v", err)
		return query
	}
	kw := strings.Trim(strings.TrimSpace(out), `"'`+"`")
	if kw == "" || strings.Contains(kw, "\n") {
		logger.Log.Warnf("检索词提炼结果不可用，使用原始问题: %q", out)
		return query
	}
	logger.Log.Infof("提炼检索词: %s -> %s", query, kw)
	return kw
}

// credibleFor 提炼检索词后检索、过滤并抽取正文
func (e *Engine) credibleFor(ctx context.Context, query string) (string, []model.Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil, model.InvalidInput("query is empty")
	}
	kw := e.DistillKeyword(ctx, query)
	articles, err := e.opts.Fetcher.FetchRecent(ctx, kw, 0)
	if err != nil {
		return kw, nil, err
	}
	if len(articles) == 0 {
		return kw, nil, &model.NoResultsError{Query: kw, Stage: "search"}
	}
	credible := e.opts.Filter.FilterCredible(articles)
	if len(credible) == 0 {
		return kw, nil, &model.NoResultsError{Query: kw, Stage: "filter"}
	}
	prepared, err := e.prepare(ctx, credible)
	if err != nil {
		return kw, nil, err
	}
	return kw, prepared, nil
}

// Search 检索可信文章并在后台写入事实图谱
func (e *Engine) Search(ctx context.Context, query string) (*SearchResponse, error) {
	kw, articles, err := e.credibleFor(ctx, query)
	if err != nil {
		return nil, err
	}
	resp := &SearchResponse{Query: strings.TrimSpace(query), ExtractedKeyword: kw, Articles: make([]SearchHit, 0, len(articles))}
	for _, a := range articles {
		resp.Articles = append(resp.Articles, SearchHit{
			Title:   a.Title,
			URL:     a.URL,
			Source:  a.SourceDomain,
			Snippet: model.Truncate(a.BodyText, e.opts.SnippetLength) + "...",
		})
	}
	e.ingestAsync(ctx, articles)
	return resp, nil
}

// ingestAsync 请求返回后继续写入事实图谱，不受请求取消影响
func (e *Engine) ingestAsync(ctx context.Context, articles []model.Article) {
	if e.opts.Graph == nil || len(articles) == 0 {
		return
	}
	bgctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.IngestTimeout)
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		defer cancel()
		e.ingest(bgctx, articles)
	}()
}

func (e *Engine) ingest(ctx context.Context, articles []model.Article) int {
	if e.opts.Graph == nil {
		return 0
	}
	total := 0
	for _, a := range articles {
		n, err := e.opts.Graph.Ingest(ctx, a.URL, a.BodyText)
		if err != nil {
			logger.Log.Warnf("事实图谱写入失败 [%s]: %v", a.URL, err)
			continue
		}
		total += n
	}
	return total
}

// AnalyzeQuery 检索可信文章、写入事实图谱并持久化完整结果
func (e *Engine) AnalyzeQuery(ctx context.Context, query string) (*AnalysisResponse, error) {
	kw, articles, err := e.credibleFor(ctx, query)
	if err != nil {
		return nil, err
	}
	resp := &AnalysisResponse{
		Query:            strings.TrimSpace(query),
		ExtractedKeyword: kw,
		CredibleFound:    len(articles),
		Articles:         articles,
	}
	resp.FactsIngested = e.ingest(ctx, articles)
	resp.DatabaseID = e.persist(ctx, "analysis", resp.Query, resp, articles)
	e.archive(ctx, kw, articles)
	e.publish(ctx, events.Event{Type: events.TypeAnalysisSaved, ID: resp.DatabaseID, Query: kw, Count: len(articles)})
	return resp, nil
}

// LoadAnalysis 读取已保存的分析，不存在时返回 storage.ErrNotFound
func (e *Engine) LoadAnalysis(ctx context.Context, id string) (*storage.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.InvalidInput("analysis id is empty")
	}
	if e.opts.Store == nil {
		return nil, fmt.Errorf("%w: storage not configured", model.ErrUpstream)
	}
	return e.opts.Store.Load(ctx, id)
}

// CompareNarratives 分析意图信息与媒体叙事之间的差距；模型输出不合规时返回带原文的错误
func (e *Engine) CompareNarratives(ctx context.Context, intended, media string) (*Comparison, error) {
	intended, media = strings.TrimSpace(intended), strings.TrimSpace(media)
	if intended == "" || media == "" {
		return nil, model.InvalidInput("intended_truth and media_text are required")
	}
	if err := e.requireGenerator(); err != nil {
		return nil, err
	}
	raw, err := e.opts.Generator.Generate(ctx, llm.Request{Prompt: fmt.Sprintf(comparePrompt, intended, media), JSON: true})
	if err != nil {
		return nil, err
	}
	var out Comparison
	if err := llm.DecodeStrict(raw, &out, "narrative_gap", "misinterpreted_points", "counter_speech_points"); err != nil {
		logger.Log.Warnf("叙事差距分析输出不合规: %v", err)
		return nil, err
	}
	return &out, nil
}

// GroundTruth 基于事实图谱回答问题
func (e *Engine) GroundTruth(ctx context.Context, query string) (*factgraph.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.InvalidInput("query is empty")
	}
	if e.opts.Graph == nil {
		return nil, fmt.Errorf("%w: fact graph not configured", model.ErrUpstream)
	}
	return e.opts.Graph.GroundTruth(ctx, query)
}
