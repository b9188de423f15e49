package utils

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMetricsCollectorConcurrent(t *testing.T) {
	m := NewMetricsCollector()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			m.IncrementCounter("hits")
			m.RecordHistogram("latency", v)
			m.IncGauge("inflight")
		}(int64(i))
	}
	wg.Wait()

	if got := m.GetCounterValue("hits"); got != 50 {
		t.Fatalf("hits = %d", got)
	}
	if got := m.GetGauge("inflight"); got != 50 {
		t.Fatalf("inflight = %d", got)
	}
	h := m.GetMetrics()["histograms"].(map[string]map[string]int64)["latency"]
	if h["count"] != 50 || h["min"] != 0 || h["max"] != 49 || h["sum"] != 1225 {
		t.Fatalf("histogram = %v", h)
	}
}

func TestAPIMetricsStatusBuckets(t *testing.T) {
	m := NewMetricsCollector()
	am := NewAPIMetricsWith(m, NewLogger(zap.NewNop()))
	am.RecordAPIRequest("/api/grade", "POST", 200, time.Millisecond)
	am.RecordAPIRequest("/api/grade", "POST", 422, time.Millisecond)

	if m.GetCounterValue("api_responses_2xx") != 1 || m.GetCounterValue("api_responses_4xx") != 1 {
		t.Fatalf("status buckets: %v", m.GetMetrics()["counters"])
	}
	if m.GetCounterValue("api_requests_total") != 2 {
		t.Fatalf("total = %d", m.GetCounterValue("api_requests_total"))
	}
}
