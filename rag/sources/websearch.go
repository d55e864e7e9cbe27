package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/cricketflow/internal/cache"
	"github.com/BaSui01/cricketflow/rag"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ResultCache 搜索结果缓存，由 cache.Manager 实现
type ResultCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TavilyConfig Tavily 搜索配置
type TavilyConfig struct {
	APIKey      string        `json:"-"`
	BaseURL     string        `json:"base_url"`
	MaxResults  int           `json:"max_results"`
	SearchDepth string        `json:"search_depth"` // basic | advanced
	Timeout     time.Duration `json:"timeout"`
	RateLimit   float64       `json:"rate_limit"` // 每秒请求数，<=0 不限制
	CacheTTL    time.Duration `json:"cache_ttl"`
	Retries     int           `json:"retries"`
}

// TavilyResult 单条搜索结果
type TavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// TavilyResponse Tavily /search 响应
type TavilyResponse struct {
	Query        string         `json:"query"`
	Answer       string         `json:"answer"`
	Results      []TavilyResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

type tavilyRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
	IncludeAnswer bool   `json:"include_answer"`
}

// TavilySearcher Web 搜索提供者，仅在升级路径上使用
type TavilySearcher struct {
	client  *resty.Client
	cfg     TavilyConfig
	limiter *rate.Limiter
	cache   ResultCache
	logger  *zap.Logger
}

// NewTavilySearcher 创建搜索客户端；resultCache 可为 nil
func NewTavilySearcher(cfg TavilyConfig, resultCache ResultCache, logger *zap.Logger) *TavilySearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	client := newRESTClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout, cfg.Retries)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &TavilySearcher{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		cache:   resultCache,
		logger:  logger.With(zap.String("component", "web_search")),
	}
}

// Search 执行一次搜索，优先读取缓存
func (s *TavilySearcher) Search(ctx context.Context, question string) (*TavilyResponse, error) {
	key := cacheKey(question)
	if s.cache != nil {
		var cached TavilyResponse
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			s.logger.Debug("web search cache hit", zap.String("key", key))
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Debug("web search cache read failed", zap.Error(err))
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("web search rate limit: %w", err)
	}

	var out TavilyResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(tavilyRequest{
			Query:         question,
			SearchDepth:   s.cfg.SearchDepth,
			MaxResults:    s.cfg.MaxResults,
			IncludeAnswer: true,
		}).
		SetResult(&out).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, &out, s.cfg.CacheTTL); err != nil {
			s.logger.Debug("web search cache write failed", zap.Error(err))
		}
	}
	return &out, nil
}

// WebSearch 搜索并转换为证据：综合答案在前，随后是至多 MaxResults 条结果
func (s *TavilySearcher) WebSearch(ctx context.Context, question string) (*rag.WebSearchResults, error) {
	resp, err := s.Search(ctx, question)
	if err != nil {
		return nil, err
	}

	res := &rag.WebSearchResults{Query: question, Answer: resp.Answer, Raw: resp}
	if strings.TrimSpace(resp.Answer) != "" {
		res.Evidence = append(res.Evidence, rag.Evidence{
			Content:  resp.Answer,
			Source:   rag.SourceWebSearch,
			Metadata: map[string]any{"type": "answer"},
		})
	}
	for i, r := range resp.Results {
		if i >= s.cfg.MaxResults {
			break
		}
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		res.Evidence = append(res.Evidence, rag.Evidence{
			Content: r.Content,
			Source:  rag.SourceWebSearch,
			Metadata: map[string]any{
				"type":  "result",
				"url":   r.URL,
				"title": r.Title,
				"score": r.Score,
			},
		})
	}
	s.logger.Debug("web search done", zap.Int("evidence", len(res.Evidence)))
	return res, nil
}

// cacheKey 归一化问题后取哈希
func cacheKey(question string) string {
	sum := sha256.Sum256([]byte(rag.NormalizeQuestion(question)))
	return "cricketflow:websearch:" + hex.EncodeToString(sum[:16])
}
