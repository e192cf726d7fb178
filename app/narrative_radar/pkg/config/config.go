package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Search        SearchConfig        `yaml:"search"`
	Enrich        EnrichConfig        `yaml:"enrich"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Credibility   CredibilityConfig   `yaml:"credibility"`
	Log           LogConfig           `yaml:"log"`
	Concurrency   ConcurrencyConfig   `yaml:"concurrency"`
	Server        ServerConfig        `yaml:"server"`
	DB            DBConfig            `yaml:"db"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Kafka         KafkaConfig         `yaml:"kafka"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	Provider   string        `yaml:"provider"` // openai or gemini
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider   string        `yaml:"provider"`
	MaxResults int           `yaml:"max_results"`
	Timeout    time.Duration `yaml:"timeout"`
	Tavily     TavilyConfig  `yaml:"tavily"`
	SearXNG    SearXNGConfig `yaml:"searxng"`
	SerpAPI    SerpAPIConfig `yaml:"serpapi"`
	GNews      GNewsConfig   `yaml:"gnews"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// SerpAPIConfig SerpApi 配置
type SerpAPIConfig struct {
	APIKey string `yaml:"api_key"`
}

// GNewsConfig Google News RSS 配置
type GNewsConfig struct {
	HL   string `yaml:"hl"`
	GL   string `yaml:"gl"`
	CEID string `yaml:"ceid"`
}

// EnrichConfig 情感/情绪模型配置
type EnrichConfig struct {
	EmotionEndpoint string        `yaml:"emotion_endpoint"`
	EmotionToken    string        `yaml:"emotion_token"`
	EmotionPrefix   int           `yaml:"emotion_prefix"`
	Labels          []string      `yaml:"labels"`
	Timeout         time.Duration `yaml:"timeout"`
}

// PipelineConfig 分析流水线的策略参数
type PipelineConfig struct {
	CorpusBudget         int           `yaml:"corpus_budget"`
	ReportExcerpt        int           `yaml:"report_excerpt"`
	SnippetLength        int           `yaml:"snippet_length"`
	RecencyHalfLifeDays  float64       `yaml:"recency_half_life_days"`
	ExtractMinLength     int           `yaml:"extract_min_length"`
	ExtractMaxLength     int           `yaml:"extract_max_length"`
	ExtractTimeout       time.Duration `yaml:"extract_timeout"`
	ExtractConcurrency   int           `yaml:"extract_concurrency"`
	NarrativeConcurrency int           `yaml:"narrative_concurrency"`
	CacheCapacity        int           `yaml:"cache_capacity"`
	CacheTTL             time.Duration `yaml:"cache_ttl"`
}

// CredibilityConfig 可信来源白名单
type CredibilityConfig struct {
	AllowList []string `yaml:"allow_list"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Driver   string `yaml:"driver"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"` // sqlite 文件路径
}

// Enabled 是否配置了数据库
func (c DBConfig) Enabled() bool {
	if c.Driver == "sqlite" {
		return c.Path != ""
	}
	return c.Host != ""
}

// ElasticsearchConfig 文章归档索引配置
type ElasticsearchConfig struct {
	Addr  string `yaml:"addr"`
	Index string `yaml:"index"`
}

// KafkaConfig 事件输出配置
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// DefaultAllowList 默认可信新闻来源
var DefaultAllowList = []string{
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"nytimes.com",
	"wsj.com",
	"washingtonpost.com",
	"theguardian.com",
	"npr.org",
	"aljazeera.com",
	"cnbc.com",
	"bloomberg.com",
	"forbes.com",
	"thehindu.com",
	"timesofindia.indiatimes.com",
}

// DefaultEmotionLabels 情绪分类模型的固定标签集
var DefaultEmotionLabels = []string{"anger", "joy", "optimism", "sadness"}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NR_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("NR_SEARCH_API_KEY"); v != "" {
		switch c.Search.Provider {
		case "serpapi":
			c.Search.SerpAPI.APIKey = v
		default:
			c.Search.Tavily.APIKey = v
		}
	}
}

// ApplyDefaults 填充未配置项的默认值
func (c *Config) ApplyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 20
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 30 * time.Second
	}
	if c.Enrich.EmotionPrefix == 0 {
		c.Enrich.EmotionPrefix = 512
	}
	if len(c.Enrich.Labels) == 0 {
		c.Enrich.Labels = DefaultEmotionLabels
	}
	if c.Enrich.Timeout == 0 {
		c.Enrich.Timeout = 15 * time.Second
	}

	p := &c.Pipeline
	if p.CorpusBudget == 0 {
		p.CorpusBudget = 15000
	}
	if p.ReportExcerpt == 0 {
		p.ReportExcerpt = 5000
	}
	if p.SnippetLength == 0 {
		p.SnippetLength = 250
	}
	if p.RecencyHalfLifeDays == 0 {
		p.RecencyHalfLifeDays = 30
	}
	if p.ExtractMinLength == 0 {
		p.ExtractMinLength = 500
	}
	if p.ExtractMaxLength == 0 {
		p.ExtractMaxLength = 20000
	}
	if p.ExtractTimeout == 0 {
		p.ExtractTimeout = 30 * time.Second
	}
	if p.ExtractConcurrency == 0 {
		p.ExtractConcurrency = 4
	}
	if p.NarrativeConcurrency == 0 {
		p.NarrativeConcurrency = 4
	}
	if p.CacheCapacity == 0 {
		p.CacheCapacity = 2000
	}
	if p.CacheTTL == 0 {
		p.CacheTTL = 6 * time.Hour
	}

	if len(c.Credibility.AllowList) == 0 {
		c.Credibility.AllowList = DefaultAllowList
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.RPM == 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.QPS == 0 {
		c.Concurrency.QPS = 2
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "0.0.0.0:8000"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 5 * time.Minute
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "postgres"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.Elasticsearch.Index == "" {
		c.Elasticsearch.Index = "narrative_articles"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "narrative_runs"
	}
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLM.Provider)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries cannot be negative")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results cannot be negative")
	}
	p := c.Pipeline
	if p.CorpusBudget < 0 || p.ReportExcerpt < 0 || p.SnippetLength < 0 {
		return fmt.Errorf("pipeline truncation lengths cannot be negative")
	}
	if p.RecencyHalfLifeDays <= 0 {
		return fmt.Errorf("pipeline.recency_half_life_days must be positive")
	}
	if p.ExtractConcurrency < 0 || p.NarrativeConcurrency < 0 {
		return fmt.Errorf("pipeline concurrency cannot be negative")
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown db driver: %s", c.DB.Driver)
	}
	return nil
}
