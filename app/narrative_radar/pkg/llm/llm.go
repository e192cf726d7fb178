package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// Request 一次生成请求
type Request struct {
	System string
	Prompt string
	// JSON 要求模型只输出 JSON
	JSON bool
}

// Generator 文本生成能力的抽象
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc 以函数实现 Generator，便于测试替身
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate 实现 Generator
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// backend 具体模型的单次调用
type backend func(ctx context.Context, req Request) (string, error)

// limitedGenerator 为具体后端加上限流、超时和 429 退避重试
type limitedGenerator struct {
	name       string
	call       backend
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

func (g *limitedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for i := 0; i <= g.maxRetries; i++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("%w: %v", model.ErrUpstream, err)
			}
		}

		out, err := g.once(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isRateLimited(err) || i == g.maxRetries {
			break
		}
		delay := g.baseDelay * time.Duration(1<<i)
		logger.Log.Warnf("%s 被限流，%v 后重试: %v", g.name, delay, err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", model.ErrUpstream, ctx.Err())
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("%w: %s: %v", model.ErrUpstream, g.name, lastErr)
}

func (g *limitedGenerator) once(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	out, err := g.call(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("empty completion")
	}
	return out, nil
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource_exhausted")
}

// NewLimiter 按 RPM/QPS 构造限流器
func NewLimiter(rpm, qps int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	burst := qps
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}
