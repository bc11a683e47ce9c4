package calllog

import (
	"context"
	"time"

	"github.com/kbukum/meetscribe/llm"
	"github.com/kbukum/meetscribe/provider"
	"github.com/kbukum/meetscribe/util"
)

// WithCallLog records every completion made through the wrapped provider
// as an entry of callType.
func WithCallLog(sink Sink, callType CallType, endpoint string) provider.Middleware[llm.CompletionRequest, llm.CompletionResponse] {
	return func(inner llm.Client) llm.Client {
		return &loggedClient{inner: inner, sink: sink, callType: callType, endpoint: endpoint}
	}
}

type loggedClient struct {
	inner    llm.Client
	sink     Sink
	callType CallType
	endpoint string
}

func (c *loggedClient) Name() string                         { return c.inner.Name() }
func (c *loggedClient) IsAvailable(ctx context.Context) bool { return c.inner.IsAvailable(ctx) }

func (c *loggedClient) Execute(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := c.inner.Execute(ctx, req)

	e := Entry{
		CallType:     c.callType,
		Provider:     c.inner.Name(),
		Endpoint:     c.endpoint,
		StartedAt:    start.UTC(),
		DurationMs:   time.Since(start).Milliseconds(),
		Success:      err == nil,
		InputBytes:   requestBytes(req),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		CostCents:    resp.CostCents,
	}
	e.Model = util.Coalesce(resp.Model, req.Model)
	if m, ok := c.inner.(interface{ Model() string }); ok {
		e.Model = util.Coalesce(e.Model, m.Model())
	}
	if err != nil {
		e.Error = err.Error()
	}
	c.sink.Record(ctx, e)
	return resp, err
}

func requestBytes(req llm.CompletionRequest) int64 {
	n := len(req.SystemPrompt)
	for _, m := range req.Messages {
		n += len(m.Content)
	}
	return int64(n)
}
