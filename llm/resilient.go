package llm

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Recorder 接收每次调用的结果，internal/metrics.Collector 实现了该接口
type Recorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, tokens int)
}

// ResilientConfig 弹性包装配置
type ResilientConfig struct {
	// 单次尝试超时，0 表示沿用调用方 ctx
	Timeout time.Duration
	// 最大重试次数（不含首次）
	MaxRetries int
	// 指数退避起始间隔
	InitialBackoff time.Duration
	// 单次退避上限
	MaxBackoff time.Duration
}

// DefaultResilientConfig 返回默认配置
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:        2 * time.Minute,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// ResilientProvider 具有超时与重试能力的 Provider 包装器
// 遵循装饰器模式：增强原有 Provider 而不修改其代码
type ResilientProvider struct {
	provider Provider
	cfg      ResilientConfig
	recorder Recorder
	logger   *zap.Logger
}

// NewResilientProvider 创建具有弹性能力的 Provider
func NewResilientProvider(provider Provider, cfg ResilientConfig, recorder Recorder, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultResilientConfig().InitialBackoff
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &ResilientProvider{
		provider: provider,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "llm_resilient"), zap.String("provider", provider.Name())),
	}
}

// Completion 实现 Provider.Completion
func (rp *ResilientProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	backoff := retry.NewExponential(rp.cfg.InitialBackoff)
	if rp.cfg.MaxBackoff > 0 {
		backoff = retry.WithCappedDuration(rp.cfg.MaxBackoff, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(rp.cfg.MaxRetries), backoff)

	var resp *ChatResponse
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		callCtx, cancel := rp.attemptContext(ctx, req)
		defer cancel()

		start := time.Now()
		r, err := rp.provider.Completion(callCtx, req)
		rp.record(req.Model, r, err, time.Since(start))
		if err != nil {
			if isRetryable(err) {
				rp.logger.Warn("llm call failed, retrying",
					zap.Int("attempt", attempt),
					zap.String("model", req.Model),
					zap.String("trace_id", req.TraceID),
					zap.Error(err))
				return retry.RetryableError(err)
			}
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (rp *ResilientProvider) attemptContext(ctx context.Context, req *ChatRequest) (context.Context, context.CancelFunc) {
	timeout := rp.cfg.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (rp *ResilientProvider) record(model string, resp *ChatResponse, err error, d time.Duration) {
	if rp.recorder == nil {
		return
	}
	status := "success"
	tokens := 0
	if err != nil {
		status = "error"
	} else if resp != nil {
		tokens = resp.Usage.TotalTokens
	}
	rp.recorder.RecordLLMRequest(rp.provider.Name(), model, status, d, tokens)
}

// HealthCheck 直接委托底层 Provider，不重试
func (rp *ResilientProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return rp.provider.HealthCheck(ctx)
}

// Name 实现 Provider.Name
func (rp *ResilientProvider) Name() string {
	return rp.provider.Name()
}

// isRetryable 仅对限流、超时、5xx 与网络错误重试
func isRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
