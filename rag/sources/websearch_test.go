package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/cricketflow/internal/cache"
	"github.com/BaSui01/cricketflow/rag"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tavilyBody = `{
	"query": "who won the 2011 world cup",
	"answer": "India won the 2011 Cricket World Cup.",
	"results": [
		{"title": "2011 World Cup Final", "url": "https://example.org/final", "content": "India beat Sri Lanka by six wickets.", "score": 0.98},
		{"title": "Empty", "url": "https://example.org/empty", "content": "  ", "score": 0.5},
		{"title": "Dhoni six", "url": "https://example.org/six", "content": "Dhoni finished it with a six.", "score": 0.91},
		{"title": "Extra", "url": "https://example.org/extra", "content": "Beyond the limit.", "score": 0.4}
	],
	"response_time": 0.8
}`

func newTavilyServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))

		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.IncludeAnswer)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tavilyBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTavilySearcher_WebSearch(t *testing.T) {
	var hits atomic.Int32
	srv := newTavilyServer(t, &hits)

	s := NewTavilySearcher(TavilyConfig{APIKey: "tvly-test", BaseURL: srv.URL, MaxResults: 3, Timeout: time.Second}, nil, nil)
	res, err := s.WebSearch(context.Background(), "Who won the 2011 World Cup?")
	require.NoError(t, err)

	assert.Equal(t, "India won the 2011 Cricket World Cup.", res.Answer)
	require.Len(t, res.Evidence, 3)
	assert.Equal(t, "answer", res.Evidence[0].Metadata["type"])
	assert.Equal(t, "India beat Sri Lanka by six wickets.", res.Evidence[1].Content)
	assert.Equal(t, "https://example.org/final", res.Evidence[1].Metadata["url"])
	assert.Equal(t, "Dhoni finished it with a six.", res.Evidence[2].Content)
	for _, ev := range res.Evidence {
		assert.Equal(t, rag.SourceWebSearch, ev.Source)
		assert.True(t, ev.Privileged())
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestTavilySearcher_CacheHitSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := newTavilyServer(t, &hits)

	mr := miniredis.RunT(t)
	cm, err := cache.NewManager(cache.Config{Addr: mr.Addr(), DefaultTTL: time.Minute}, nil)
	require.NoError(t, err)
	defer cm.Close()

	s := NewTavilySearcher(TavilyConfig{APIKey: "tvly-test", BaseURL: srv.URL, Timeout: time.Second}, cm, nil)
	ctx := context.Background()

	first, err := s.WebSearch(ctx, "Who won the 2011 World Cup?")
	require.NoError(t, err)
	// 大小写与空白不同的同一问题命中缓存
	second, err := s.WebSearch(ctx, "  who won the 2011   world cup? ")
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, first.Answer, second.Answer)
	assert.Len(t, second.Evidence, len(first.Evidence))
	assert.True(t, mr.Exists(cacheKey("who won the 2011 world cup?")))
}

func TestTavilySearcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewTavilySearcher(TavilyConfig{APIKey: "bad", BaseURL: srv.URL, Timeout: time.Second}, nil, nil)
	_, err := s.WebSearch(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestTavilySearcher_RateLimitHonoursContext(t *testing.T) {
	var hits atomic.Int32
	srv := newTavilyServer(t, &hits)

	s := NewTavilySearcher(TavilyConfig{APIKey: "tvly-test", BaseURL: srv.URL, RateLimit: 0.01, Timeout: time.Second}, nil, nil)
	_, err := s.Search(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.Search(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("A  b"), cacheKey("a b"))
	assert.NotEqual(t, cacheKey("a b"), cacheKey("a c"))
	assert.Contains(t, cacheKey("x"), "cricketflow:websearch:")
}
