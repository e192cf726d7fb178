package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/logger"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

func init() { logger.Discard() }

type fakeChatModel struct {
	got   []*schema.Message
	reply string
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.got = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestWrapChatModelBuildsMessages(t *testing.T) {
	cm := &fakeChatModel{reply: `{"a":1}`}
	gen := WrapChatModel(cm, nil, time.Second, 0)

	out, err := gen.Generate(context.Background(), Request{Prompt: "hello", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
	require.Len(t, cm.got, 2)
	assert.Equal(t, schema.System, cm.got[0].Role)
	assert.Equal(t, "hello", cm.got[1].Content)

	_, err = gen.Generate(context.Background(), Request{Prompt: "plain"})
	require.NoError(t, err)
	assert.Len(t, cm.got, 1)
}

func TestLimitedGeneratorRetriesOnRateLimit(t *testing.T) {
	calls := 0
	g := &limitedGenerator{
		name:       "fake",
		maxRetries: 2,
		baseDelay:  time.Millisecond,
		call: func(context.Context, Request) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("status 429: too many requests")
			}
			return "done", nil
		},
	}
	out, err := g.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, calls)
}

func TestLimitedGeneratorNoRetryOnOtherErrors(t *testing.T) {
	calls := 0
	g := &limitedGenerator{
		name:       "fake",
		maxRetries: 3,
		baseDelay:  time.Millisecond,
		call: func(context.Context, Request) (string, error) {
			calls++
			return "", errors.New("connection refused")
		},
	}
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUpstream)
	assert.Equal(t, 1, calls)
}

func TestLimitedGeneratorEmptyCompletion(t *testing.T) {
	g := &limitedGenerator{
		name: "fake",
		call: func(context.Context, Request) (string, error) { return "   ", nil },
	}
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, model.ErrUpstream)
}

func TestLimitedGeneratorTimeout(t *testing.T) {
	g := &limitedGenerator{
		name:    "fake",
		timeout: 10 * time.Millisecond,
		call: func(ctx context.Context, _ Request) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, model.ErrUpstream)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 2))
	l := NewLimiter(60, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}

func TestCleanJSON(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```":      `{"a":1}`,
		"Sure! {\"a\":1} hope it helps": `{"a":1}`,
		"  {\"a\":1}  ":                 `{"a":1}`,
		"no json here":                  "no json here",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanJSON(in), in)
	}
}

func TestDecodeStrict(t *testing.T) {
	type payload struct {
		A string `json:"a"`
		B int    `json:"b"`
	}

	var p payload
	require.NoError(t, DecodeStrict("```json\n{\"a\":\"x\",\"b\":2}\n```", &p, "a", "b"))
	assert.Equal(t, payload{A: "x", B: 2}, p)

	err := DecodeStrict(`{"a":"x"}`, &p, "a", "b")
	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, `{"a":"x"}`, me.Raw)
	assert.ErrorIs(t, err, model.ErrMalformed)

	assert.Error(t, DecodeStrict(`{"a":"x","b":1,"c":true}`, &p, "a"))
	assert.Error(t, DecodeStrict(`not json`, &p))
}

func TestDecodeLoose(t *testing.T) {
	var m map[string]any
	require.NoError(t, DecodeLoose(`{"a":1,"extra":2}`, &m))
	assert.Len(t, m, 2)
	assert.ErrorIs(t, DecodeLoose(`[broken`, &m), model.ErrMalformed)
}
