package openai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/BaSui01/cricketflow/llm"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config OpenAI Provider 配置
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
}

// Provider 实现 OpenAI LLM 提供者.
type Provider struct {
	client *goopenai.Client
	cfg    Config
	logger *zap.Logger
}

// New 创建新的 OpenAI 提供者实例.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = goopenai.GPT4oMini
	}
	return &Provider{
		client: goopenai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger.With(zap.String("component", "openai_provider")),
	}
}

func (p *Provider) Name() string { return "openai" }

// Completion 调用 Chat Completions 接口
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	body := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
	}
	if req.JSONMode {
		body.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, body)
	if err != nil {
		return nil, p.mapError(err)
	}

	out := &llm.ChatResponse{
		ID:        resp.ID,
		Provider:  p.Name(),
		Model:     resp.Model,
		CreatedAt: time.Unix(resp.Created, 0),
		Usage: llm.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: string(c.FinishReason),
			Message:      llm.Message{Role: llm.Role(c.Message.Role), Content: c.Message.Content},
		})
	}
	return out, nil
}

// HealthCheck 通过列出模型探活
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	_, err := p.client.ListModels(ctx)
	status := &llm.HealthStatus{Healthy: err == nil, Latency: time.Since(start)}
	if err != nil {
		return status, p.mapError(err)
	}
	return status, nil
}

func convertMessages(msgs []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// wireTemperature 零值会被 omitempty 丢弃，服务端随即按默认值 1 采样
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// mapError 将 go-openai 错误映射为 llm.Error
func (p *Provider) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &llm.Error{Code: llm.ErrUpstreamTimeout, Message: "request cancelled or timed out", Retryable: errors.Is(err, context.DeadlineExceeded), Provider: p.Name(), Cause: err}
	}

	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	e := &llm.Error{Message: err.Error(), HTTPStatus: status, Provider: p.Name(), Cause: err}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = llm.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = llm.ErrRateLimited, true
	case status == http.StatusBadRequest || status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		e.Code = llm.ErrInvalidRequest
	case status >= 500 || status == 0:
		e.Code, e.Retryable = llm.ErrUpstreamError, true
	default:
		e.Code = llm.ErrUpstreamError
	}
	p.logger.Debug("openai call failed", zap.Int("status", status), zap.String("code", string(e.Code)))
	return e
}
