package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/cricketflow/api/handlers"
	"github.com/BaSui01/cricketflow/config"
	"github.com/BaSui01/cricketflow/internal/cache"
	"github.com/BaSui01/cricketflow/internal/database"
	"github.com/BaSui01/cricketflow/internal/metrics"
	"github.com/BaSui01/cricketflow/llm"
	"github.com/BaSui01/cricketflow/llm/providers/openai"
	"github.com/BaSui01/cricketflow/rag"
	"github.com/BaSui01/cricketflow/rag/sources"
	"github.com/BaSui01/cricketflow/workflow"
	"go.uber.org/zap"
)

// =============================================================================
// 🧩 组件装配
// =============================================================================

// App 持有一次进程生命周期内的全部组件。缺失的外部依赖只会让对应数据源缺席，
// 不会阻止服务启动
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	collector    *metrics.Collector
	orchestrator *workflow.Orchestrator

	db    *database.PoolManager
	cache *cache.Manager
	live  *sources.LiveStore

	closers []func() error
}

// NewApp 按配置装配编排器。collector 可为 nil（ask/batch 命令不暴露指标）
func NewApp(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, collector: collector}

	provider := a.newProvider()
	components, err := a.components(ctx, provider)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	opts := []workflow.Option{workflow.WithLogger(logger)}
	if collector != nil {
		opts = append(opts, workflow.WithRecorder(collector))
	}
	a.orchestrator, err = workflow.NewOrchestrator(components, workflow.ConfigFrom(cfg.Agent), opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Orchestrator 返回装配好的编排器
func (a *App) Orchestrator() *workflow.Orchestrator { return a.orchestrator }

// newProvider OpenAI 兼容客户端外包一层超时与重试
func (a *App) newProvider() llm.Provider {
	base := openai.New(openai.Config{
		APIKey:       a.cfg.LLM.APIKey,
		BaseURL:      a.cfg.LLM.BaseURL,
		DefaultModel: a.cfg.LLM.GenerationModel,
		Timeout:      a.cfg.LLM.Timeout,
	}, a.logger)

	rc := llm.DefaultResilientConfig()
	rc.Timeout = a.cfg.LLM.Timeout
	rc.MaxRetries = a.cfg.LLM.MaxRetries
	if a.cfg.LLM.RetryBackoff > 0 {
		rc.InitialBackoff = a.cfg.LLM.RetryBackoff
	}
	var recorder llm.Recorder
	if a.collector != nil {
		recorder = a.collector
	}
	return llm.NewResilientProvider(base, rc, recorder, a.logger)
}

func (a *App) callOptions(model string) rag.CallOptions {
	return rag.CallOptions{
		Model:       model,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     a.cfg.Agent.CallTimeout,
	}
}

func (a *App) ragOptions() []rag.Option {
	opts := []rag.Option{rag.WithLogger(a.logger)}
	if a.collector != nil {
		opts = append(opts, rag.WithRecorder(a.collector))
	}
	return opts
}

func (a *App) components(ctx context.Context, provider llm.Provider) (workflow.Components, error) {
	cfg := a.cfg
	grader := a.callOptions(cfg.LLM.GraderModel)
	cacheSize := cfg.Agent.VerdictCacheSize
	ropts := a.ragOptions()

	c := workflow.Components{
		DocumentGrader: rag.NewDocumentGrader(provider, grader, ropts...),
		QualityGrader:  rag.NewQualityGrader(provider, grader, ropts...),
		Generator:      rag.NewGenerator(provider, a.callOptions(cfg.LLM.GenerationModel), cfg.Agent.ContextTokenBudget, ropts...),
		Rewriter:       rag.NewRewriter(provider, a.callOptions(cfg.LLM.RewriteModel), ropts...),
	}

	// 结构化查询
	if cfg.Database.Driver != "" {
		db, err := database.Open(cfg.Database, a.logger)
		if err != nil {
			a.logger.Warn("structured store unavailable, structured queries disabled", zap.Error(err))
		} else {
			a.db = db
			a.closers = append(a.closers, db.Close)
			if a.collector != nil {
				if err := a.collector.RegisterDBStats(db.SQLDB(), "deliveries"); err != nil {
					a.logger.Warn("failed to register db stats", zap.Error(err))
				}
			}
			c.Structured = sources.NewStructuredProvider(provider, db, sources.StructuredConfig{
				Model:       cfg.LLM.SQLModel,
				Temperature: cfg.LLM.Temperature,
				MaxRows:     cfg.Database.MaxRows,
			}, a.logger)
			c.StructuredClassifier = rag.NewStructuredRelevanceClassifier(provider, grader, cacheSize, ropts...)
		}
	}

	// 实时比赛
	if cfg.Live.DataFile != "" {
		live := sources.NewLiveStore(sources.LiveConfig{
			DataFile:        cfg.Live.DataFile,
			MatchID:         cfg.Live.MatchID,
			Watch:           cfg.Live.Watch,
			CommentaryOvers: cfg.Live.CommentaryOvers,
		}, a.logger)
		if err := live.Start(ctx); err != nil {
			a.logger.Warn("live snapshot unavailable", zap.String("file", cfg.Live.DataFile), zap.Error(err))
		}
		a.live = live
		a.closers = append(a.closers, live.Close)
		c.Live = live
		c.LiveQuickCheck = rag.NewLiveQuickCheck(provider, grader, cacheSize, ropts...)
		c.LiveClassifier = rag.NewLiveRelevanceClassifier(provider, grader, cacheSize, ropts...)
	}

	// 语义检索
	switch cfg.Semantic.Backend {
	case "pathway":
		c.Semantic = sources.NewPathwaySearcher(sources.PathwayConfig{
			BaseURL: cfg.Semantic.BaseURL(),
			TopK:    cfg.Semantic.TopK,
			Timeout: cfg.Semantic.Timeout,
		}, a.logger)
	case "weaviate":
		ws, err := sources.NewWeaviateSearcher(sources.WeaviateConfig{
			Host:      fmt.Sprintf("%s:%d", cfg.Semantic.Host, cfg.Semantic.Port),
			Scheme:    cfg.Semantic.Scheme,
			APIKey:    cfg.Semantic.APIKey,
			ClassName: cfg.Semantic.ClassName,
			TopK:      cfg.Semantic.TopK,
			Timeout:   cfg.Semantic.Timeout,
		}, a.logger)
		if err != nil {
			return c, fmt.Errorf("semantic search: %w", err)
		}
		c.Semantic = ws
	}

	// 联网搜索
	if cfg.WebSearch.APIKey != "" {
		var resultCache sources.ResultCache
		if cfg.Redis.Addr != "" {
			cm, err := cache.NewManager(cache.ConfigFrom(cfg.Redis, cfg.WebSearch.CacheTTL), a.logger)
			if err != nil {
				a.logger.Warn("redis unavailable, web search results are not cached", zap.Error(err))
			} else {
				a.cache = cm
				a.closers = append(a.closers, cm.Close)
				resultCache = cm
			}
		}
		c.Web = sources.NewTavilySearcher(sources.TavilyConfig{
			APIKey:      cfg.WebSearch.APIKey,
			BaseURL:     cfg.WebSearch.BaseURL,
			MaxResults:  cfg.WebSearch.MaxResults,
			SearchDepth: cfg.WebSearch.SearchDepth,
			Timeout:     cfg.WebSearch.Timeout,
			RateLimit:   cfg.WebSearch.RateLimit,
			CacheTTL:    cfg.WebSearch.CacheTTL,
		}, resultCache, a.logger)
	}

	a.logger.Info("components wired",
		zap.Bool("structured", c.Structured != nil),
		zap.Bool("live", c.Live != nil),
		zap.String("semantic", cfg.Semantic.Backend),
		zap.Bool("web_search", c.Web != nil),
		zap.Bool("web_cache", a.cache != nil),
	)
	return c, nil
}

// HealthChecks 就绪探针。统计库为关键依赖，Redis 与实时快照缺失只会降级
func (a *App) HealthChecks() []handlers.HealthCheck {
	var checks []handlers.HealthCheck
	if a.db != nil {
		checks = append(checks, handlers.NewFuncCheck("database", true, a.db.Ping))
	}
	if a.cache != nil {
		checks = append(checks, handlers.NewFuncCheck("redis", false, a.cache.Ping))
	}
	if a.live != nil {
		live := a.live
		checks = append(checks, handlers.NewFuncCheck("live_data", false, func(context.Context) error {
			if !live.Available() {
				return sources.ErrNoLiveData
			}
			return nil
		}))
	}
	return checks
}

// Close 逆序释放资源
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
