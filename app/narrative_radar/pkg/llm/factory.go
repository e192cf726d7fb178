package llm

import (
	"context"
	"fmt"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/config"
)

// New 根据配置创建生成器
func New(ctx context.Context, cfg *config.Config) (Generator, error) {
	limiter := NewLimiter(cfg.Concurrency.RPM, cfg.Concurrency.QPS)
	switch cfg.LLM.Provider {
	case "gemini":
		return NewGenAIGenerator(ctx, cfg.LLM.APIKey, cfg.LLM.Model, limiter, cfg.LLM.Timeout, cfg.LLM.MaxRetries)
	case "openai", "":
		cm, err := NewEinoGenerator(ctx, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
		if err != nil {
			return nil, err
		}
		return WrapChatModel(cm, limiter, cfg.LLM.Timeout, cfg.LLM.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}
