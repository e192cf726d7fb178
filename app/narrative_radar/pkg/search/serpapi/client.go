package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search"
)

// DefaultBaseURL SerpApi 接口地址
const DefaultBaseURL = "https://serpapi.com/search.json"

// Client SerpApi Google News 客户端
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewClient 创建 SerpApi 客户端
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

var _ search.Searcher = (*Client)(nil)

type newsResult struct {
	Title   string          `json:"title"`
	Link    string          `json:"link"`
	Snippet string          `json:"snippet"`
	Date    string          `json:"date"`
	Source  json.RawMessage `json:"source"`
}

type searchResponse struct {
	NewsResults []newsResult `json:"news_results"`
	Error       string       `json:"error"`
}

// noResults SerpApi 在没有结果时也会返回 error 字段
const noResults = "hasn't returned any results"

// sourceName source 字段可能是字符串，也可能是 {"name": ...}
func sourceName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

// Search implements search.Searcher
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("engine", "google")
	q.Set("q", req.Query)
	q.Set("tbm", "nws")
	q.Set("api_key", c.apiKey)
	if req.MaxResults > 0 {
		q.Set("num", strconv.Itoa(req.MaxResults))
	}
	if req.Window != nil {
		q.Set("tbs", fmt.Sprintf("cdr:1,cd_min:%s,cd_max:%s",
			req.Window.Start.Format("01/02/2006"), req.Window.End.Format("01/02/2006")))
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi error (status %d): %s", res.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	if sr.Error != "" && !strings.Contains(sr.Error, noResults) {
		return nil, fmt.Errorf("serpapi error: %s", sr.Error)
	}

	results := make([]search.Result, 0, len(sr.NewsResults))
	for _, r := range sr.NewsResults {
		results = append(results, search.Result{
			Title:         r.Title,
			URL:           r.Link,
			Content:       r.Snippet,
			Source:        sourceName(r.Source),
			PublishedDate: r.Date,
		})
	}
	// cd_min/cd_max 按天闭区间，边界当天的结果会同时出现在相邻两个窗口
	results = search.FilterWindow(results, req.Window, c.now())
	return &search.Response{Results: results}, nil
}
