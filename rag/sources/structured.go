package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/cricketflow/internal/ctxkeys"
	"github.com/BaSui01/cricketflow/internal/database"
	"github.com/BaSui01/cricketflow/llm"
	"github.com/BaSui01/cricketflow/rag"
	"go.uber.org/zap"
)

// QueryExecutor 只读 SQL 执行器，由 database.PoolManager 实现
type QueryExecutor interface {
	ReadOnlyQuery(ctx context.Context, query string, maxRows int) (*database.QueryResult, error)
}

// StructuredConfig 结构化查询配置
type StructuredConfig struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxRows     int     `json:"max_rows"`
}

// StructuredProvider 将问题翻译为 SQL 并在统计库上执行
type StructuredProvider struct {
	provider llm.Provider
	executor QueryExecutor
	cfg      StructuredConfig
	logger   *zap.Logger
}

// NewStructuredProvider 创建结构化查询提供者
func NewStructuredProvider(provider llm.Provider, executor QueryExecutor, cfg StructuredConfig, logger *zap.Logger) *StructuredProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructuredProvider{
		provider: provider,
		executor: executor,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "structured_provider")),
	}
}

// Name 提供者名称
func (p *StructuredProvider) Name() string { return string(rag.SourceStructuredQuery) }

// GenerateSQL 由 LLM 生成 SQL 文本（未校验）
func (p *StructuredProvider) GenerateSQL(ctx context.Context, question string) (string, error) {
	req := &llm.ChatRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		Messages: []llm.Message{
			llm.SystemMessage(rag.PromptSQLGenerator),
			llm.UserMessage(rag.QuestionInput(question)),
		},
	}
	if id, ok := ctxkeys.EpisodeID(ctx); ok {
		req.TraceID = id
	}
	return llm.CompleteText(ctx, p.provider, req)
}

// Retrieve 生成、校验并执行 SQL，返回至多一条证据。
// 生成失败、校验失败或执行失败都返回错误，调用方按"无证据"处理。
func (p *StructuredProvider) Retrieve(ctx context.Context, question string) ([]rag.Evidence, error) {
	raw, err := p.GenerateSQL(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}

	query, err := GuardSQL(raw)
	if err != nil {
		p.logger.Warn("generated sql rejected", zap.String("sql", raw), zap.Error(err))
		return nil, err
	}
	p.logger.Debug("executing generated sql", zap.String("sql", query))

	result, err := p.executor.ReadOnlyQuery(ctx, query, p.cfg.MaxRows)
	if err != nil {
		p.logger.Warn("sql execution failed", zap.String("sql", query), zap.Error(err))
		return nil, fmt.Errorf("execute sql: %w", err)
	}

	meta := map[string]any{"query": query}
	if result.Truncated {
		meta["truncated"] = true
	}
	return []rag.Evidence{{
		Content:  FormatQueryResult(question, query, result),
		Source:   rag.SourceStructuredQuery,
		Metadata: meta,
	}}, nil
}

// FormatQueryResult 将列名与行格式化为证据文本
func FormatQueryResult(question, query string, result *database.QueryResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer to your question %s:\n", question)
	b.WriteString("SQL Query Results:\n")
	fmt.Fprintf(&b, "Query: %s\n\n", query)

	b.WriteString(strings.Join(result.Columns, " | "))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 50))
	b.WriteString("\n")

	cells := make([]string, 0, len(result.Columns))
	for _, row := range result.Rows {
		cells = cells[:0]
		for _, v := range row {
			cells = append(cells, formatCell(v))
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return b.String()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case []byte:
		return string(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}
