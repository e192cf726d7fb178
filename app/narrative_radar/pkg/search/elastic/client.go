package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search"
)

// Document 归档到 Elasticsearch 的文章
type Document struct {
	ID             string    `json:"id"`
	Query          string    `json:"query,omitempty"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Text           string    `json:"text"`
	Snippet        string    `json:"snippet,omitempty"`
	SourceDomain   string    `json:"source_domain"`
	PublishedHint  string    `json:"published_hint,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
	PeriodLabel    string    `json:"period_label,omitempty"`
	SentimentScore float64   `json:"sentiment_score"`
	EmotionLabel   string    `json:"emotion_label,omitempty"`
}

// DocumentID 以 URL 生成稳定的文档 ID，重复归档覆盖旧文档
func DocumentID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// NewDocument 将文章转换为归档文档
func NewDocument(query string, a model.Article, now time.Time) Document {
	published, ok := a.BestDate(now)
	if !ok {
		published = now
	}
	return Document{
		ID:             DocumentID(a.URL),
		Query:          query,
		URL:            a.URL,
		Title:          a.Title,
		Text:           a.BodyText,
		Snippet:        a.Snippet,
		SourceDomain:   a.SourceDomain,
		PublishedHint:  a.PublishedHint,
		PublishedAt:    published.UTC(),
		PeriodLabel:    a.PeriodLabel,
		SentimentScore: a.SentimentScore,
		EmotionLabel:   a.EmotionLabel,
	}
}

// Client 文章归档客户端，同时可作为检索来源
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New 创建 Elasticsearch 客户端
func New(addr, index string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es, index: index}, nil
}

var _ search.Searcher = (*Client)(nil)

// Ping 检查 Elasticsearch 是否可用
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Index 写入一篇归档文档
func (c *Client) Index(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index doc: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index doc failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

// Archive 归档一批文章，返回成功条数
func (c *Client) Archive(ctx context.Context, query string, articles []model.Article) (int, error) {
	now := time.Now()
	n := 0
	for _, a := range articles {
		if err := c.Index(ctx, NewDocument(query, a, now)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func buildQuery(req *search.Request) map[string]any {
	size := req.MaxResults
	if size <= 0 {
		size = 20
	}
	boolQuery := map[string]any{
		"must": []map[string]any{{
			"multi_match": map[string]any{
				"query":  req.Query,
				"fields": []string{"title^2", "text"},
			},
		}},
	}
	if req.Window != nil {
		boolQuery["filter"] = []map[string]any{{
			"range": map[string]any{
				"published_at": map[string]any{
					"gte": req.Window.Start.UTC().Format(time.RFC3339),
					"lt":  req.Window.End.UTC().Format(time.RFC3339),
				},
			},
		}}
	}
	return map[string]any{
		"size":  size,
		"query": map[string]any{"bool": boolQuery},
		"sort":  []map[string]any{{"published_at": map[string]any{"order": "desc"}}},
	}
}

// Search 在归档中按关键词与时间窗口检索
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	payload, err := json.Marshal(buildQuery(req))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]search.Result, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		d := hit.Source
		snippet := d.Snippet
		if snippet == "" {
			snippet = model.Truncate(d.Text, 250)
		}
		results = append(results, search.Result{
			Title:         d.Title,
			URL:           d.URL,
			Content:       snippet,
			Score:         hit.Score,
			PublishedDate: d.PublishedAt.Format(time.RFC3339),
		})
	}
	return &search.Response{Results: results}, nil
}
