package gnews

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search"
)

// DefaultBaseURL Google News RSS 检索地址
const DefaultBaseURL = "https://news.google.com/rss/search"

// Client Google News RSS 客户端
type Client struct {
	baseURL string
	hl      string
	gl      string
	ceid    string
	client  *http.Client
	now     func() time.Time
}

// NewClient 创建 Google News RSS 客户端
func NewClient(baseURL, hl, gl, ceid string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hl == "" {
		hl = "en-US"
	}
	if gl == "" {
		gl = "US"
	}
	if ceid == "" {
		ceid = "US:en"
	}
	return &Client{
		baseURL: baseURL,
		hl:      hl,
		gl:      gl,
		ceid:    ceid,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

var _ search.Searcher = (*Client)(nil)

func buildQuery(query string, w *search.Window) string {
	if w == nil {
		return query
	}
	return fmt.Sprintf("%s after:%s before:%s", query,
		w.Start.Format(time.DateOnly), w.End.AddDate(0, 0, 1).Format(time.DateOnly))
}

// Search implements search.Searcher
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("q", buildQuery(req.Query, req.Window))
	q.Set("hl", c.hl)
	q.Set("gl", c.gl)
	q.Set("ceid", c.ceid)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("User-Agent", "narrative_radar/1.0")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("google news error (status %d): %s", res.StatusCode, string(body))
	}

	parser := &rss.Parser{}
	feed, err := parser.Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	results := make([]search.Result, 0, len(feed.Items))
	for _, item := range feed.Items {
		r := search.Result{
			Title:         stripSourceSuffix(item.Title, item.Source),
			URL:           item.Link,
			Content:       htmlText(item.Description),
			PublishedDate: item.PubDate,
		}
		if item.Source != nil {
			r.Source = item.Source.Title
			r.SourceURL = item.Source.URL
		}
		results = append(results, r)
	}

	results = search.FilterWindow(results, req.Window, c.now())
	if req.MaxResults > 0 && len(results) > req.MaxResults {
		results = results[:req.MaxResults]
	}
	return &search.Response{Results: results}, nil
}

// stripSourceSuffix Google News 标题形如 "Headline - Publisher"
func stripSourceSuffix(title string, src *rss.Source) string {
	if src == nil || src.Title == "" {
		return title
	}
	return strings.TrimSpace(strings.TrimSuffix(title, " - "+src.Title))
}

// htmlText 提取 HTML 片段中的纯文本
func htmlText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(html.UnescapeString(fragment))
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(sb.String()), " ")
}
