package engine

import (
	"context"
	"fmt"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/aggregate"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/cache"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/config"
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
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search/elastic"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/search/factory"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/storage"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/trend"
)

// Build 按配置初始化全部依赖，返回的 cleanup 关闭数据库与消息队列连接
func Build(ctx context.Context, cfg *config.Config) (*Engine, func(), error) {
	gen, err := llm.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	searcher, err := factory.NewSearcher(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create searcher: %w", err)
	}

	p := cfg.Pipeline
	var classifier enrich.EmotionClassifier
	if cfg.Enrich.EmotionEndpoint != "" {
		classifier = enrich.NewHTTPClassifier(cfg.Enrich.EmotionEndpoint, cfg.Enrich.EmotionToken, cfg.Enrich.Labels, cfg.Enrich.Timeout)
	} else {
		logger.Log.Warn("未配置情绪分类模型，情绪标签将为 unknown")
	}

	opts := Options{
		Fetcher:    fetcher.New(searcher, cfg.Search.MaxResults),
		Filter:     credibility.New(cfg.Credibility.AllowList),
		Extractor:  extract.NewReadability(p.ExtractTimeout, p.ExtractMaxLength, cache.New[extract.Content](p.CacheCapacity, p.CacheTTL)),
		Enricher:   enrich.New(enrich.NewVaderScorer(), classifier, cfg.Enrich.EmotionPrefix, p.ExtractConcurrency),
		Aggregator: aggregate.New(gen, p.CorpusBudget, p.NarrativeConcurrency),
		Trend:      trend.New(gen, p.ReportExcerpt),
		Selector:   evidence.NewSelector(p.RecencyHalfLifeDays, p.SnippetLength),
		Counter:    counterspeech.New(gen),
		Generator:  gen,

		ExtractConcurrency: p.ExtractConcurrency,
		ExtractMinLength:   p.ExtractMinLength,
		SnippetLength:      p.SnippetLength,
		Probes:             map[string]func(context.Context) error{},
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Log.Warnf("资源关闭失败: %v", err)
			}
		}
	}

	if cfg.DB.Enabled() {
		db, dialect, err := storage.Open(cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		closers = append(closers, db.Close)
		store, err := storage.New(db, dialect)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		facts, err := factgraph.NewSQLStore(db, dialect)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts.Store = store
		opts.Probes["db"] = db.PingContext
		opts.Graph = factgraph.New(gen, facts)
		logger.Log.Infof("已启用持久化 (%s)", cfg.DB.Driver)
	}

	if cfg.Elasticsearch.Addr != "" && cfg.Search.Provider != "elastic" {
		es, err := elastic.New(cfg.Elasticsearch.Addr, cfg.Elasticsearch.Index)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := es.Ping(ctx); err != nil {
			logger.Log.Warnf("Elasticsearch 不可用，跳过归档: %v", err)
		} else {
			opts.Archive = es
			opts.Probes["elasticsearch"] = es.Ping
		}
	}

	pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	closers = append(closers, pub.Close)
	opts.Events = pub

	return New(opts), cleanup, nil
}
