package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
)

// 事件类型
const (
	TypeTrendCompleted  = "trend.completed"
	TypeAnalysisSaved   = "analysis.saved"
	TypeCounterSpeech   = "counterspeech.completed"
	TypeArticlesIndexed = "articles.indexed"
)

// Event 一次运行结束后发出的通知
type Event struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	Query    string          `json:"query"`
	Count    int             `json:"count"`
	Degraded bool            `json:"degraded"`
	At       time.Time       `json:"at"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop 未配置消息队列时使用
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 把事件写入 Kafka topic，key 为查询词
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher 创建 Kafka 发布者，brokers 为空时返回 Nop
func NewKafkaPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 || topic == "" {
		return Nop{}
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}}
}

// Publish 序列化并写入一条事件
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Query),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	logger.Log.Debugf("已发布事件 %s: %s", ev.Type, ev.Query)
	return nil
}

// Close 关闭底层 writer
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
