// MockProvider 的 LLM 提供商测试模拟实现。
//
// 按提示词片段或模型名匹配规则，依次返回脚本化的回复或错误。
package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/cricketflow/llm"
)

// --- MockProvider 结构 ---

// Reply 单次脚本化回复，Err 非空时返回错误
type Reply struct {
	Content string
	Err     error
}

type rule struct {
	match   func(req *llm.ChatRequest) bool
	replies []Reply
	next    int
}

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.Mutex

	rules    []*rule
	response string
	err      error
	delay    time.Duration

	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
	calls          []MockProviderCall
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request *llm.ChatRequest
	Content string
	Error   error
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{response: "Mock response"}
}

// WithResponse 设置未命中规则时的默认回复
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置未命中规则时的默认错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay 设置响应延迟，延迟期间遵循 ctx 取消
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithCompletionFunc 设置自定义 Completion 函数，优先于所有规则
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// On 注册匹配规则；回复按顺序消费，耗尽后重复最后一条。先注册的规则优先。
func (m *MockProvider) On(match func(req *llm.ChatRequest) bool, replies ...Reply) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, &rule{match: match, replies: replies})
	return m
}

// OnPrompt 任一消息包含 fragment 时命中
func (m *MockProvider) OnPrompt(fragment string, contents ...string) *MockProvider {
	return m.On(PromptContains(fragment), toReplies(contents)...)
}

// OnPromptError 任一消息包含 fragment 时返回 err
func (m *MockProvider) OnPromptError(fragment string, err error) *MockProvider {
	return m.On(PromptContains(fragment), Reply{Err: err})
}

// OnModel 请求模型为 model 时命中
func (m *MockProvider) OnModel(model string, contents ...string) *MockProvider {
	return m.On(func(req *llm.ChatRequest) bool { return req.Model == model }, toReplies(contents)...)
}

// PromptContains 返回匹配任一消息内容片段的谓词
func PromptContains(fragment string) func(req *llm.ChatRequest) bool {
	return func(req *llm.ChatRequest) bool {
		for _, msg := range req.Messages {
			if strings.Contains(msg.Content, fragment) {
				return true
			}
		}
		return false
	}
}

func toReplies(contents []string) []Reply {
	replies := make([]Reply, 0, len(contents))
	for _, c := range contents {
		replies = append(replies, Reply{Content: c})
	}
	return replies
}

// --- Provider 接口实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	return "mock"
}

// HealthCheck 执行健康检查
func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true, Latency: time.Millisecond}, nil
}

// Completion 返回脚本化响应
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	delay := m.delay
	fn := m.completionFunc
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.record(req, "", ctx.Err())
			return nil, ctx.Err()
		}
	}

	if fn != nil {
		resp, err := fn(ctx, req)
		content := ""
		if resp != nil && len(resp.Choices) > 0 {
			content = resp.Choices[0].Message.Content
		}
		m.record(req, content, err)
		return resp, err
	}

	reply := m.pick(req)
	m.record(req, reply.Content, reply.Err)
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &llm.ChatResponse{
		ID:       "mock-response",
		Provider: m.Name(),
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			FinishReason: "stop",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: reply.Content},
		}},
		Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockProvider) pick(req *llm.ChatRequest) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rules {
		if len(r.replies) == 0 || !r.match(req) {
			continue
		}
		reply := r.replies[r.next]
		if r.next < len(r.replies)-1 {
			r.next++
		}
		return reply
	}
	return Reply{Content: m.response, Err: m.err}
}

func (m *MockProvider) record(req *llm.ChatRequest, content string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockProviderCall{Request: req, Content: content, Error: err})
}

// --- 调用记录 ---

// Calls 返回调用记录副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用总次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsMatching 返回任一消息包含 fragment 的调用次数
func (m *MockProvider) CallsMatching(fragment string) int {
	match := PromptContains(fragment)
	n := 0
	for _, c := range m.Calls() {
		if match(c.Request) {
			n++
		}
	}
	return n
}

// Reset 清空调用记录与规则游标
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	for _, r := range m.rules {
		r.next = 0
	}
}

var _ llm.Provider = (*MockProvider)(nil)
