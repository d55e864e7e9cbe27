package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer 统一的 token 计数接口.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// Name 返回分词器的名称.
	Name() string
}

// TiktokenTokenizer 为 OpenAI 系列模型适配 tiktoken.
type TiktokenTokenizer struct {
	model    string
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// modelEncodings 将模型名前缀映射到其 tiktoken 编码。
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4.1":       "o200k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// NewTiktokenTokenizer 为给定模型创建 tiktoken 分词器，未知模型使用 cl100k_base.
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	encoding := "cl100k_base"
	best := 0
	for prefix, enc := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > best {
			encoding, best = enc, len(prefix)
		}
	}
	return &TiktokenTokenizer{model: model, encoding: encoding}
}

// init 懒加载编码表（首次使用时可能需要下载 BPE 数据）.
func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// CountTokens 首次调用时加载编码表
func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Encoding 返回编码名称，如 cl100k_base
func (t *TiktokenTokenizer) Encoding() string { return t.encoding }

// Name 实现 Tokenizer.Name
func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// EstimatorTokenizer 基于字符数的估算器，约 4 个字符一个 token.
type EstimatorTokenizer struct{}

// CountTokens 每 4 个字符计 1 个 token，非空文本至少为 1
func (EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	n := len([]rune(text)) / 4
	if n == 0 {
		n = 1
	}
	return n, nil
}

// Name 实现 Tokenizer.Name
func (EstimatorTokenizer) Name() string { return "estimator" }

// FallbackTokenizer 优先使用 primary，出错时退化为估算
type FallbackTokenizer struct {
	primary  Tokenizer
	fallback Tokenizer
}

// ForModel 返回模型对应的 tiktoken 分词器，编码表不可用时自动估算
func ForModel(model string) *FallbackTokenizer {
	return &FallbackTokenizer{primary: NewTiktokenTokenizer(model), fallback: EstimatorTokenizer{}}
}

// NewFallbackTokenizer 组合任意两个分词器
func NewFallbackTokenizer(primary, fallback Tokenizer) *FallbackTokenizer {
	return &FallbackTokenizer{primary: primary, fallback: fallback}
}

// CountTokens 主分词器失败时改用 fallback
func (f *FallbackTokenizer) CountTokens(text string) (int, error) {
	if n, err := f.primary.CountTokens(text); err == nil {
		return n, nil
	}
	return f.fallback.CountTokens(text)
}

// Name 返回主分词器名称
func (f *FallbackTokenizer) Name() string { return f.primary.Name() }
