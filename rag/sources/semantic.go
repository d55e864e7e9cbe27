package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/cricketflow/internal/tlsutil"
	"github.com/BaSui01/cricketflow/rag"
	"github.com/go-resty/resty/v2"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"
)

// =============================================================================
// Pathway 向量检索服务
// =============================================================================

// PathwayConfig Pathway 检索服务配置
type PathwayConfig struct {
	BaseURL string        `json:"base_url"`
	TopK    int           `json:"top_k"`
	Timeout time.Duration `json:"timeout"`
	Retries int           `json:"retries"`
}

// PathwaySearcher 通过 Pathway VectorStoreServer 的 REST 接口检索段落
type PathwaySearcher struct {
	client *resty.Client
	cfg    PathwayConfig
	logger *zap.Logger
}

type pathwayRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type pathwayHit struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Dist     float64        `json:"dist"`
}

// NewPathwaySearcher 创建 Pathway 检索客户端
func NewPathwaySearcher(cfg PathwayConfig, logger *zap.Logger) *PathwaySearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PathwaySearcher{
		client: newRESTClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout, cfg.Retries),
		cfg:    cfg,
		logger: logger.With(zap.String("component", "pathway_searcher")),
	}
}

// Retrieve 返回按相似度排序的段落
func (s *PathwaySearcher) Retrieve(ctx context.Context, question string) ([]rag.Evidence, error) {
	var hits []pathwayHit
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(pathwayRequest{Query: question, K: s.cfg.TopK}).
		SetResult(&hits).
		Post("/v1/retrieve")
	if err != nil {
		return nil, fmt.Errorf("pathway retrieve: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("pathway retrieve: %w", err)
	}

	out := make([]rag.Evidence, 0, len(hits))
	for _, h := range hits {
		meta := map[string]any{"score": h.Dist}
		for k, v := range h.Metadata {
			meta[k] = v
		}
		if p, ok := h.Metadata["path"]; ok {
			meta["source"] = p
		}
		out = append(out, rag.Evidence{Content: h.Text, Source: rag.SourceSemanticSearch, Metadata: meta})
	}
	s.logger.Debug("pathway retrieval done", zap.Int("hits", len(out)))
	return out, nil
}

// =============================================================================
// Weaviate nearText 检索
// =============================================================================

// WeaviateConfig Weaviate 检索配置
type WeaviateConfig struct {
	Host      string        `json:"host"` // host:port
	Scheme    string        `json:"scheme"`
	APIKey    string        `json:"api_key,omitempty"`
	ClassName string        `json:"class_name"`
	TopK      int           `json:"top_k"`
	Timeout   time.Duration `json:"timeout"`
}

// WeaviateSearcher 通过 GraphQL nearText 检索段落
type WeaviateSearcher struct {
	client *weaviate.Client
	cfg    WeaviateConfig
	logger *zap.Logger
}

// NewWeaviateSearcher 创建 Weaviate 检索客户端
func NewWeaviateSearcher(cfg WeaviateConfig, logger *zap.Logger) (*WeaviateSearcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.ClassName == "" {
		return nil, fmt.Errorf("weaviate class name is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	wc := weaviate.Config{
		Host:             cfg.Host,
		Scheme:           cfg.Scheme,
		ConnectionClient: tlsutil.SecureHTTPClient(cfg.Timeout),
	}
	if cfg.APIKey != "" {
		wc.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wc)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &WeaviateSearcher{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "weaviate_searcher")),
	}, nil
}

// Retrieve 返回按距离排序的段落
func (s *WeaviateSearcher) Retrieve(ctx context.Context, question string) ([]rag.Evidence, error) {
	nearText := s.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{question})

	result, err := s.client.GraphQL().Get().
		WithClassName(s.cfg.ClassName).
		WithFields(
			graphql.Field{Name: "content"},
			graphql.Field{Name: "source"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearText(nearText).
		WithLimit(s.cfg.TopK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate nearText: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate nearText: %s", result.Errors[0].Message)
	}

	out := parseWeaviateHits(result, s.cfg.ClassName)
	s.logger.Debug("weaviate retrieval done", zap.Int("hits", len(out)))
	return out, nil
}

func parseWeaviateHits(result *models.GraphQLResponse, className string) []rag.Evidence {
	get, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	items, ok := get[className].([]interface{})
	if !ok {
		return nil
	}

	out := make([]rag.Evidence, 0, len(items))
	for _, raw := range items {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		content, _ := obj["content"].(string)
		meta := map[string]any{}
		if src, ok := obj["source"].(string); ok {
			meta["source"] = src
		}
		if add, ok := obj["_additional"].(map[string]interface{}); ok {
			if d, ok := add["distance"].(float64); ok {
				meta["score"] = d
			}
		}
		out = append(out, rag.Evidence{Content: content, Source: rag.SourceSemanticSearch, Metadata: meta})
	}
	return out
}
