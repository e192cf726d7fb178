package credibility

import (
	"net/url"
	"strings"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// Filter 可信来源过滤器
type Filter struct {
	allowed map[string]struct{}
}

// New 由白名单构造过滤器，白名单条目不区分大小写并去掉 "www." 前缀
func New(allowList []string) *Filter {
	allowed := make(map[string]struct{}, len(allowList))
	for _, d := range allowList {
		d = normalize(d)
		if d != "" {
			allowed[d] = struct{}{}
		}
	}
	return &Filter{allowed: allowed}
}

func normalize(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}

// Domain 解析链接的域名，失败返回空串
func Domain(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return normalize(u.Hostname())
}

// articleDomain 聚合站跳转链接以发布方地址为准
func articleDomain(a model.Article) string {
	if a.SourceURL != "" {
		return Domain(a.SourceURL)
	}
	return Domain(a.URL)
}

// Allowed 域名是否在白名单内（精确匹配）
func (f *Filter) Allowed(domain string) bool {
	_, ok := f.allowed[normalize(domain)]
	return ok && domain != ""
}

// FilterCredible 丢弃来源不在白名单内或链接无法解析的文章，并填充 SourceDomain
func (f *Filter) FilterCredible(articles []model.Article) []model.Article {
	kept := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		d := articleDomain(a)
		if !f.Allowed(d) {
			continue
		}
		a.SourceDomain = d
		kept = append(kept, a)
	}
	return kept
}
