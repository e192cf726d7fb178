package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/cache"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// Content 正文抽取结果
type Content struct {
	Title    string
	BodyText string
}

// Extractor 正文抽取接口
type Extractor interface {
	Extract(ctx context.Context, url string) (*Content, error)
}

// Readability 基于 go-readability 的正文抽取
type Readability struct {
	client    *http.Client
	maxLength int
	cache     *cache.Cache[Content]
}

// NewReadability 创建抽取器，cache 为 nil 时不缓存
func NewReadability(timeout time.Duration, maxLength int, c *cache.Cache[Content]) *Readability {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Readability{
		client:    &http.Client{Timeout: timeout},
		maxLength: maxLength,
		cache:     c,
	}
}

var _ Extractor = (*Readability)(nil)

// Extract 下载页面并抽取正文
func (r *Readability) Extract(ctx context.Context, rawURL string) (*Content, error) {
	if r.cache != nil {
		if c, ok := r.cache.Get(rawURL); ok {
			return &c, nil
		}
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", model.ErrUpstream, res.StatusCode)
	}

	article, err := readability.FromReader(res.Body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}
	body := strings.TrimSpace(article.TextContent)
	if body == "" {
		return nil, fmt.Errorf("%w: empty body", model.ErrNoData)
	}
	if r.maxLength > 0 {
		body = model.Truncate(body, r.maxLength)
	}

	c := Content{Title: strings.TrimSpace(article.Title), BodyText: body}
	if r.cache != nil {
		r.cache.Set(rawURL, c)
	}
	return &c, nil
}
