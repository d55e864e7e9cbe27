package rag

import (
	"context"
	"strings"

	"github.com/BaSui01/cricketflow/llm"
	"go.uber.org/zap"
)

// DocumentGrader 逐条评估证据与问题的相关性
type DocumentGrader struct {
	caller
}

// NewDocumentGrader 创建文档评分器
func NewDocumentGrader(provider llm.Provider, opts CallOptions, options ...Option) *DocumentGrader {
	return &DocumentGrader{caller: newCaller("document_grader", provider, opts, options...)}
}

// Grade 过滤证据，保持原有顺序。
//
// 特权来源直接保留，不发起任何调用；空输入返回空结果。
// 单条评分失败时丢弃该条。
func (g *DocumentGrader) Grade(ctx context.Context, question string, items []Evidence) []Evidence {
	kept := make([]Evidence, 0, len(items))
	for i, it := range items {
		if it.Privileged() {
			kept = append(kept, it)
			continue
		}
		v, err := g.verdict(ctx, PromptDocumentGrader, documentGraderInput(it.Content, question))
		if err != nil {
			g.logger.Warn("document grading failed, dropping item",
				zap.Int("index", i),
				zap.String("source", string(it.Source)),
				zap.Error(err))
			continue
		}
		if v.IsRelevant {
			kept = append(kept, it)
		}
	}
	g.logger.Debug("documents graded", zap.Int("input", len(items)), zap.Int("kept", len(kept)))
	return kept
}

// QualityGrader 判定答案是否有据、是否切题
type QualityGrader struct {
	grounded caller
	answer   caller
}

// NewQualityGrader 创建答案质量评分器
func NewQualityGrader(provider llm.Provider, opts CallOptions, options ...Option) *QualityGrader {
	return &QualityGrader{
		grounded: newCaller("groundedness_grader", provider, opts, options...),
		answer:   newCaller("answer_grader", provider, opts, options...),
	}
}

// Grounded 答案是否由证据支撑。证据内容全为空时直接判否，不发起调用。
func (g *QualityGrader) Grounded(ctx context.Context, evidence []Evidence, answer string) (bool, error) {
	facts := JoinContents(evidence)
	if strings.TrimSpace(facts) == "" {
		return false, nil
	}
	v, err := g.grounded.verdict(ctx, PromptGroundednessGrader, groundednessInput(facts, answer))
	if err != nil {
		g.grounded.logger.Warn("groundedness check failed, treating as not grounded", zap.Error(err))
		return false, err
	}
	return v.IsRelevant, nil
}

// AddressesQuestion 答案是否回答了问题
func (g *QualityGrader) AddressesQuestion(ctx context.Context, question, answer string) (bool, error) {
	v, err := g.answer.verdict(ctx, PromptAnswerGrader, answerGraderInput(question, answer))
	if err != nil {
		g.answer.logger.Warn("answer check failed, treating as not addressing question", zap.Error(err))
		return false, err
	}
	return v.IsRelevant, nil
}
