package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search"
)

// Chunk 一次分段检索的记录
type Chunk struct {
	Window search.Window
	Label  string
	Count  int
	Err    error
}

// Fetcher 按时间窗口分段检索
type Fetcher struct {
	searcher   search.Searcher
	maxResults int
	now        func() time.Time
}

// New 创建分段检索器
func New(searcher search.Searcher, maxResults int) *Fetcher {
	return &Fetcher{searcher: searcher, maxResults: maxResults, now: time.Now}
}

// WithClock 替换时钟，测试用
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// Plan 从 now 向过去切分窗口，共 ceil(totalDays/chunkDays) 段，最后一段可能更短
func Plan(now time.Time, totalDays, chunkDays int) []search.Window {
	if totalDays <= 0 || chunkDays <= 0 {
		return nil
	}
	oldest := now.AddDate(0, 0, -totalDays)
	windows := make([]search.Window, 0, (totalDays+chunkDays-1)/chunkDays)
	end := now
	for i := 0; i < totalDays; i += chunkDays {
		start := end.AddDate(0, 0, -chunkDays)
		if start.Before(oldest) {
			start = oldest
		}
		windows = append(windows, search.Window{Start: start, End: end})
		end = start
	}
	return windows
}

// FetchWindowed 逐段检索并给文章打上时间段标签（窗口较早一端的日期）
func (f *Fetcher) FetchWindowed(ctx context.Context, keywords string, totalDays, chunkDays int) ([]model.Article, []Chunk, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, nil, model.InvalidInput("keywords is empty")
	}
	if totalDays <= 0 {
		return nil, nil, model.InvalidInput("total_days must be positive, got %d", totalDays)
	}
	if chunkDays <= 0 {
		return nil, nil, model.InvalidInput("chunk_days must be positive, got %d", chunkDays)
	}

	windows := Plan(f.now(), totalDays, chunkDays)
	seen := make(map[string]struct{})
	var articles []model.Article
	chunks := make([]Chunk, 0, len(windows))

	for _, w := range windows {
		label := w.Start.Format(model.PeriodLayout)
		chunk := Chunk{Window: w, Label: label}

		resp, err := f.searcher.Search(ctx, &search.Request{
			Query:      keywords,
			Topic:      "news",
			MaxResults: f.maxResults,
			Window:     &w,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.Log.Warnf("时间段 [%s] 检索失败: %v", label, err)
			chunk.Err = err
			chunks = append(chunks, chunk)
			continue
		}

		for _, r := range resp.Results {
			a, ok := toArticle(r, label, seen)
			if !ok {
				continue
			}
			articles = append(articles, a)
			chunk.Count++
		}
		logger.Log.Debugf("时间段 [%s] 检索到 %d 条结果", label, chunk.Count)
		chunks = append(chunks, chunk)
	}
	return articles, chunks, nil
}

// FetchRecent 针对最近 daysBack 天做单次检索；daysBack <= 0 时不限时间
func (f *Fetcher) FetchRecent(ctx context.Context, query string, daysBack int) ([]model.Article, error) {
	if daysBack > 0 {
		articles, _, err := f.FetchWindowed(ctx, query, daysBack, daysBack)
		return articles, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.InvalidInput("query is empty")
	}
	resp, err := f.searcher.Search(ctx, &search.Request{Query: query, Topic: "news", MaxResults: f.maxResults})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Log.Warnf("检索失败 [%s]: %v", query, err)
		return nil, nil
	}
	seen := make(map[string]struct{})
	var articles []model.Article
	for _, r := range resp.Results {
		if a, ok := toArticle(r, "", seen); ok {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

// toArticle 同一次运行中按 URL 去重，先到者保留
func toArticle(r search.Result, label string, seen map[string]struct{}) (model.Article, bool) {
	u := strings.TrimSpace(r.URL)
	if u == "" {
		return model.Article{}, false
	}
	if _, dup := seen[u]; dup {
		return model.Article{}, false
	}
	seen[u] = struct{}{}
	a := model.NewArticle(u, r.Title, r.Content, r.PublishedDate, label)
	a.SourceURL = r.SourceURL
	return a, true
}
