package factory

import (
	"fmt"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/config"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search/elastic"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search/gnews"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search/searxng"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search/serpapi"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search/tavily"
)

// NewSearcher 根据配置创建搜索实例
func NewSearcher(cfg *config.Config) (search.Searcher, error) {
	sc := cfg.Search
	provider := sc.Provider
	if provider == "" {
		// 未指定时按已配置的密钥推断
		switch {
		case sc.SerpAPI.APIKey != "":
			provider = "serpapi"
		case sc.Tavily.APIKey != "":
			provider = "tavily"
		default:
			provider = "gnews"
		}
	}

	switch provider {
	case "serpapi":
		if sc.SerpAPI.APIKey == "" {
			return nil, fmt.Errorf("serpapi api key is missing")
		}
		return serpapi.NewClient(sc.SerpAPI.APIKey, "", sc.Timeout), nil

	case "tavily":
		if sc.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(sc.Tavily.APIKey, "", sc.Timeout), nil

	case "searxng":
		if sc.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(sc.SearXNG.BaseURL, sc.SearXNG.Timeout), nil

	case "gnews":
		return gnews.NewClient("", sc.GNews.HL, sc.GNews.GL, sc.GNews.CEID, sc.Timeout), nil

	case "elastic":
		if cfg.Elasticsearch.Addr == "" {
			return nil, fmt.Errorf("elasticsearch addr is missing")
		}
		return elastic.New(cfg.Elasticsearch.Addr, cfg.Elasticsearch.Index)

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}
