package rag

import (
	"context"
	"strings"

	"github.com/BaSui01/cricketflow/llm"
	"github.com/BaSui01/cricketflow/llm/tokenizer"
	"go.uber.org/zap"
)

// 生成阶段的失败标记。以这些前缀开头的答案视为生成失败。
const (
	MsgNoUsableContext     = "Could not process the retrieved information to generate an answer."
	prefixGenerationError  = "Error during generation: "
	prefixUngroundedError  = "Error generating answer without documents: "
	failureMarkerError     = "Error"
	failureMarkerNoContext = "Could not process"
)

// IsFailureAnswer 答案为空或带失败标记
func IsFailureAnswer(answer string) bool {
	a := strings.TrimSpace(answer)
	return a == "" ||
		strings.HasPrefix(a, failureMarkerError) ||
		strings.HasPrefix(a, failureMarkerNoContext)
}

// Generator 基于证据生成简洁答案
type Generator struct {
	caller
	budget    int
	tokenizer tokenizer.Tokenizer
}

// NewGenerator 创建生成器。budget<=0 时不限制上下文 token 数。
func NewGenerator(provider llm.Provider, opts CallOptions, budget int, options ...Option) *Generator {
	return &Generator{
		caller:    newCaller("generator", provider, opts, options...),
		budget:    budget,
		tokenizer: tokenizer.ForModel(opts.Model),
	}
}

// Generate 生成答案，失败时返回带失败标记的文本而不是错误。
//
// 证据为空时进入降级模式：仅将原问题发送给模型。
func (g *Generator) Generate(ctx context.Context, question string, evidence []Evidence) string {
	if len(evidence) == 0 {
		answer, err := g.complete(ctx, false, llm.UserMessage(question))
		if err != nil {
			g.logger.Warn("degraded generation failed", zap.Error(err))
			return prefixUngroundedError + err.Error()
		}
		return answer
	}

	docs := g.buildContext(evidence)
	if docs == "" {
		return MsgNoUsableContext
	}

	answer, err := g.complete(ctx, false, llm.UserMessage(generateInput(question, docs)))
	if err != nil {
		g.logger.Warn("generation failed", zap.Error(err))
		return prefixGenerationError + err.Error()
	}
	return answer
}

// buildContext 拼接非空证据，超出 token 预算时丢弃尾部条目，首条始终保留
func (g *Generator) buildContext(evidence []Evidence) string {
	parts := make([]string, 0, len(evidence))
	used := 0
	for _, it := range evidence {
		if strings.TrimSpace(it.Content) == "" {
			continue
		}
		n, err := g.tokenizer.CountTokens(it.Content)
		if err != nil {
			n = len(it.Content) / 4
		}
		if g.budget > 0 && len(parts) > 0 && used+n > g.budget {
			g.logger.Debug("context token budget reached",
				zap.Int("budget", g.budget),
				zap.Int("kept", len(parts)),
				zap.Int("total", len(evidence)))
			break
		}
		parts = append(parts, it.Content)
		used += n
	}
	return strings.Join(parts, "\n\n")
}

// Rewriter 将问题改写为更利于检索的形式
type Rewriter struct {
	caller
}

// NewRewriter 创建改写器
func NewRewriter(provider llm.Provider, opts CallOptions, options ...Option) *Rewriter {
	return &Rewriter{caller: newCaller("rewriter", provider, opts, options...)}
}

// Rewrite 返回改写后的问题；失败或空输出时返回原问题
func (r *Rewriter) Rewrite(ctx context.Context, question string) string {
	out, err := r.complete(ctx, false, llm.SystemMessage(PromptRewriter), llm.UserMessage(rewriterInput(question)))
	if err != nil {
		r.logger.Warn("rewrite failed, keeping original question", zap.Error(err))
		return question
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return question
	}
	return out
}
