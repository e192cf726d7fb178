package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// NewGenAIGenerator 基于 Gemini API 创建生成器
func NewGenAIGenerator(ctx context.Context, apiKey, modelName string, limiter *rate.Limiter, timeout time.Duration, maxRetries int) (Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	call := func(ctx context.Context, req Request) (string, error) {
		cfg := &genai.GenerateContentConfig{}
		if req.JSON {
			cfg.ResponseMIMEType = "application/json"
		}
		if req.System != "" {
			cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
		}
		resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(req.Prompt), cfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}

	return &limitedGenerator{
		name:       "gemini",
		call:       call,
		limiter:    limiter,
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  2 * time.Second,
	}, nil
}
