package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() *Collector {
	return NewCollector("test", slog.New(slog.DiscardHandler))
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := newTestCollector()

	c.RecordHTTPRequest("GET", "/rag/search", 200, 10*time.Millisecond)
	c.RecordHTTPRequest("GET", "/rag/search", 200, 20*time.Millisecond)
	c.RecordHTTPRequest("GET", "/rag/search", 400, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/rag/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/rag/search", "400")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.httpRequestDuration))
}

func TestCollector_RecordEnrichment(t *testing.T) {
	c := newTestCollector()

	c.RecordEnrichment(OutcomeEnriched)
	c.RecordEnrichment(OutcomeEnriched)
	c.RecordEnrichment(OutcomeFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.enrichmentsTotal.WithLabelValues(OutcomeEnriched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.enrichmentsTotal.WithLabelValues(OutcomeFailed)))
}

func TestCollector_RecordIngestion(t *testing.T) {
	c := newTestCollector()

	c.RecordIngestion(3, 1, 42)
	c.RecordIngestion(0, 0, 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.ingestedFiles.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ingestedFiles.WithLabelValues("failed")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.ingestedChunks))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	c.RecordHTTPRequest("GET", "/", 200, time.Second)
	c.RecordEnrichment(OutcomeEnriched)
	c.RecordRetrieval(3)
	c.RecordIngestion(1, 1, 1)
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector()
	c.RecordRetrieval(2)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_retrieval_results_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := newTestCollector()
	b := newTestCollector()

	a.RecordEnrichment(OutcomeNoContext)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.enrichmentsTotal.WithLabelValues(OutcomeNoContext)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.enrichmentsTotal.WithLabelValues(OutcomeNoContext)))
}
