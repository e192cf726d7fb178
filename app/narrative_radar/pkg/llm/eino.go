package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"
)

const jsonSystemPrompt = "You are a JSON generator. Output only a JSON object, no markdown."

// NewEinoGenerator 基于 eino 的 OpenAI 兼容模型创建生成器
func NewEinoGenerator(ctx context.Context, baseURL, apiKey, modelName string, timeout time.Duration) (einomodel.BaseChatModel, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return cm, nil
}

// WrapChatModel 将 eino 聊天模型包装为带限流的 Generator
func WrapChatModel(cm einomodel.BaseChatModel, limiter *rate.Limiter, timeout time.Duration, maxRetries int) Generator {
	return &limitedGenerator{
		name:       "openai",
		call:       chatModelBackend(cm),
		limiter:    limiter,
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  2 * time.Second,
	}
}

func chatModelBackend(cm einomodel.BaseChatModel) backend {
	return func(ctx context.Context, req Request) (string, error) {
		system := req.System
		if system == "" && req.JSON {
			system = jsonSystemPrompt
		}
		var messages []*schema.Message
		if system != "" {
			messages = append(messages, schema.SystemMessage(system))
		}
		messages = append(messages, schema.UserMessage(req.Prompt))

		resp, err := cm.Generate(ctx, messages)
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}
}
