package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/cricketflow/llm"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Classifier 问题级二元分类器。返回错误时调用方必须按"不相关"处理。
type Classifier interface {
	Classify(ctx context.Context, question string) (RelevanceVerdict, error)
	Name() string
}

// ClassifierConfig 分类器配置
type ClassifierConfig struct {
	Name         string      `json:"name"`
	SystemPrompt string      `json:"-"`
	Options      CallOptions `json:"options"`
	CacheSize    int         `json:"cache_size"` // <=0 关闭缓存
	// PlainYesNo 为 true 时期望模型仅回复 yes/no 文本，而非 JSON
	PlainYesNo bool `json:"plain_yes_no"`
}

// LLMClassifier 基于 LLM 的分类器，成功的判定按问题缓存
type LLMClassifier struct {
	caller
	cfg   ClassifierConfig
	cache *lru.Cache[string, RelevanceVerdict]
}

// NewLLMClassifier 创建分类器
func NewLLMClassifier(provider llm.Provider, cfg ClassifierConfig, options ...Option) *LLMClassifier {
	c := &LLMClassifier{
		caller: newCaller(cfg.Name, provider, cfg.Options, options...),
		cfg:    cfg,
	}
	if cfg.CacheSize > 0 {
		// 仅在 size<=0 时返回错误
		c.cache, _ = lru.New[string, RelevanceVerdict](cfg.CacheSize)
	}
	return c
}

// NewStructuredRelevanceClassifier 判断结构化数据库是否有助于回答问题
func NewStructuredRelevanceClassifier(provider llm.Provider, opts CallOptions, cacheSize int, options ...Option) *LLMClassifier {
	return NewLLMClassifier(provider, ClassifierConfig{
		Name:         "structured_relevance",
		SystemPrompt: PromptStructuredRelevance,
		Options:      opts,
		CacheSize:    cacheSize,
	}, options...)
}

// NewLiveRelevanceClassifier 判断实时比赛数据是否有助于回答问题
func NewLiveRelevanceClassifier(provider llm.Provider, opts CallOptions, cacheSize int, options ...Option) *LLMClassifier {
	return NewLLMClassifier(provider, ClassifierConfig{
		Name:         "live_relevance",
		SystemPrompt: PromptLiveRelevance,
		Options:      opts,
		CacheSize:    cacheSize,
	}, options...)
}

// NewLiveQuickCheck 快速判断问题是否明显针对进行中的比赛
func NewLiveQuickCheck(provider llm.Provider, opts CallOptions, cacheSize int, options ...Option) *LLMClassifier {
	return NewLLMClassifier(provider, ClassifierConfig{
		Name:         "live_quick_check",
		SystemPrompt: PromptLiveQuickCheck,
		Options:      opts,
		CacheSize:    cacheSize,
		PlainYesNo:   true,
	}, options...)
}

// Name 分类器名称
func (c *LLMClassifier) Name() string { return c.cfg.Name }

// Classify 执行分类。失败（含超时、输出格式错误）时返回 IsRelevant=false 与错误。
func (c *LLMClassifier) Classify(ctx context.Context, question string) (RelevanceVerdict, error) {
	key := NormalizeQuestion(question)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
	}

	var (
		v   RelevanceVerdict
		err error
	)
	if c.cfg.PlainYesNo {
		v, err = c.classifyPlain(ctx, question)
	} else {
		v, err = c.verdict(ctx, c.cfg.SystemPrompt, QuestionInput(question))
	}
	if err != nil {
		c.logger.Warn("classification failed, treating as not relevant", zap.Error(err))
		return RelevanceVerdict{}, err
	}

	if c.cache != nil {
		c.cache.Add(key, v)
	}
	return v, nil
}

func (c *LLMClassifier) classifyPlain(ctx context.Context, question string) (RelevanceVerdict, error) {
	raw, err := c.complete(ctx, false, llm.SystemMessage(c.cfg.SystemPrompt), llm.UserMessage(liveQuickCheckInput(question)))
	if err != nil {
		c.record("error")
		return RelevanceVerdict{}, err
	}
	v, err := ParseYesNo(raw)
	if err != nil {
		c.record("error")
		return RelevanceVerdict{}, err
	}
	c.record(yesNo(v.IsRelevant))
	return v, nil
}

// ParseYesNo 解析纯文本 yes/no 回复，忽略大小写、首尾空白、引号和句号
func ParseYesNo(raw string) (RelevanceVerdict, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, `."'`)
	switch s {
	case "yes":
		return RelevanceVerdict{IsRelevant: true}, nil
	case "no":
		return RelevanceVerdict{IsRelevant: false}, nil
	default:
		return RelevanceVerdict{}, fmt.Errorf("%w: expected yes or no, got %q", ErrMalformedVerdict, raw)
	}
}

var _ Classifier = (*LLMClassifier)(nil)
