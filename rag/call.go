package rag

import (
	"context"
	"time"

	"github.com/BaSui01/cricketflow/internal/ctxkeys"
	"github.com/BaSui01/cricketflow/llm"
	"go.uber.org/zap"
)

// CallOptions 单个 LLM 组件的调用参数
type CallOptions struct {
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"` // 单次调用超时，超时按失败处理
}

// VerdictRecorder 记录判定结果（yes / no / error），由 metrics 实现
type VerdictRecorder interface {
	RecordVerdict(component, outcome string)
}

// Option 组件可选项
type Option func(*caller)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *caller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder 设置判定记录器
func WithRecorder(r VerdictRecorder) Option {
	return func(c *caller) { c.recorder = r }
}

// caller 封装各组件共享的 LLM 调用逻辑
type caller struct {
	component string
	provider  llm.Provider
	opts      CallOptions
	logger    *zap.Logger
	recorder  VerdictRecorder
}

func newCaller(component string, provider llm.Provider, opts CallOptions, options ...Option) caller {
	c := caller{
		component: component,
		provider:  provider,
		opts:      opts,
		logger:    zap.NewNop(),
	}
	for _, o := range options {
		o(&c)
	}
	c.logger = c.logger.With(zap.String("component", component))
	return c
}

// complete 在超时内发起一次补全
func (c *caller) complete(ctx context.Context, jsonMode bool, msgs ...llm.Message) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req := &llm.ChatRequest{
		Model:       c.opts.Model,
		Messages:    msgs,
		Temperature: c.opts.Temperature,
		JSONMode:    jsonMode,
	}
	if id, ok := ctxkeys.EpisodeID(ctx); ok {
		req.TraceID = id
	}
	return llm.CompleteText(ctx, c.provider, req)
}

// verdict 发起判定调用并严格解析；任何失败返回 IsRelevant=false 与错误
func (c *caller) verdict(ctx context.Context, system, input string) (RelevanceVerdict, error) {
	raw, err := c.complete(ctx, true, llm.SystemMessage(system), llm.UserMessage(input))
	if err != nil {
		c.record("error")
		return RelevanceVerdict{}, err
	}
	v, err := ParseVerdict(raw)
	if err != nil {
		c.record("error")
		return RelevanceVerdict{}, err
	}
	c.record(yesNo(v.IsRelevant))
	return v, nil
}

func (c *caller) record(outcome string) {
	if c.recorder != nil {
		c.recorder.RecordVerdict(c.component, outcome)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
