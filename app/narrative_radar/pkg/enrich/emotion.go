package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// EmotionClassifier 短文本情绪分类
type EmotionClassifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// HTTPClassifier 调用 HuggingFace 推理接口格式的情绪分类服务
type HTTPClassifier struct {
	endpoint string
	token    string
	labels   map[string]struct{}
	client   *http.Client
}

// NewHTTPClassifier 创建情绪分类客户端
func NewHTTPClassifier(endpoint, token string, labels []string, timeout time.Duration) *HTTPClassifier {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[strings.ToLower(l)] = struct{}{}
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		token:    token,
		labels:   set,
		client:   &http.Client{Timeout: timeout},
	}
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// decodeScores 兼容 [[{...}]] 与 [{...}] 两种返回
func decodeScores(body []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, err
	}
	return flat, nil
}

// Classify 返回置信度最高的标签，不在固定标签集内时返回 unknown
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return model.UnknownEmotion, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.UnknownEmotion, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return model.UnknownEmotion, fmt.Errorf("%w: %v", model.ErrUpstream, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return model.UnknownEmotion, fmt.Errorf("%w: %v", model.ErrUpstream, err)
	}
	if res.StatusCode != http.StatusOK {
		return model.UnknownEmotion, fmt.Errorf("%w: emotion model status %d: %s", model.ErrUpstream, res.StatusCode, string(body))
	}

	scores, err := decodeScores(body)
	if err != nil {
		return model.UnknownEmotion, fmt.Errorf("%w: %v", model.ErrMalformed, err)
	}
	if len(scores) == 0 {
		return model.UnknownEmotion, errors.New("emotion model returned no labels")
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	label := strings.ToLower(best.Label)
	if _, ok := c.labels[label]; !ok {
		return model.UnknownEmotion, fmt.Errorf("%w: label %q outside label set", model.ErrMalformed, best.Label)
	}
	return label, nil
}
