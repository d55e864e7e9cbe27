package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.episodesTotal)
	assert.NotNil(t, collector.evidenceRequests)
	assert.NotNil(t, collector.verdictsTotal)
}

func TestNewCollector_NilLogger(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)
	assert.NotNil(t, collector.logger)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/ask", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("POST", "/ask", 503, 10*time.Millisecond, 10, 20)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/ask", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/ask", "5xx")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.httpRequestDuration))
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordLLMRequest("openai", "gpt-4o-mini", "success", 500*time.Millisecond, 150)
	collector.RecordLLMRequest("openai", "gpt-4o-mini", "error", 50*time.Millisecond, 0)

	assert.Equal(t, 150.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.llmRequestsTotal))
}

func TestCollector_RecordEpisode(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordEpisode("useful", 4, 2*time.Second)
	collector.RecordEpisode("useful", 6, time.Second)
	collector.RecordEpisode("", 15, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.episodesTotal.WithLabelValues("useful")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.episodesTotal.WithLabelValues("unknown")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.episodeSteps))
}

func TestCollector_RecordStateTransition(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordStateTransition("RETRIEVE", "GRADE_DOCUMENTS")
	collector.RecordStateTransition("RETRIEVE", "GRADE_DOCUMENTS")
	collector.RecordStateTransition("GRADE_DOCUMENTS", "GENERATE")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.stateTransitions.WithLabelValues("RETRIEVE", "GRADE_DOCUMENTS")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.stateTransitions))
}

func TestCollector_RecordEvidenceAndVerdict(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordEvidence("structured", "ok", 30*time.Millisecond)
	collector.RecordEvidence("web", "error", time.Second)
	collector.RecordVerdict("document_grader", "yes")
	collector.RecordVerdict("document_grader", "no")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.evidenceRequests.WithLabelValues("web", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.evidenceDuration))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.verdictsTotal))
}

func TestCollector_RegisterDBStats(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, collector.RegisterDBStats(db, "deliveries"))
	// 重复注册视为成功
	assert.NoError(t, collector.RegisterDBStats(db, "deliveries"))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/health", 200, time.Millisecond, 0, 64)
			collector.RecordLLMRequest("openai", "gpt-4o-mini", "success", time.Millisecond, 10)
			collector.RecordStateTransition("GENERATE", "GRADE_GENERATION")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
	assert.Equal(t, 100.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini")))
}

func TestCollector_MetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	registry.MustRegister(collector.episodesTotal)
	collector.RecordEpisode("failed", 1, time.Millisecond)

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatusCode(t *testing.T) {
	cases := map[int]string{200: "2xx", 302: "3xx", 404: "4xx", 500: "5xx", 100: "unknown"}
	for code, want := range cases {
		assert.Equal(t, want, statusCode(code))
	}
}
