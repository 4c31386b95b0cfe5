package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_ObserveRequest(t *testing.T) {
	c := NewCollector("test")

	c.ObserveRequest("GET", "/api/v1/products", 200, 15*time.Millisecond)
	c.ObserveRequest("GET", "/api/v1/products", 200, 30*time.Millisecond)
	c.ObserveRequest("GET", "", 404, time.Millisecond)

	if got := testutil.ToFloat64(c.requests.WithLabelValues("GET", "/api/v1/products", "200")); got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestCollector_Exports(t *testing.T) {
	c := NewCollector("test")

	c.ExportStarted()
	c.ExportStarted()
	if got := testutil.ToFloat64(c.exportsActive); got != 2 {
		t.Errorf("active = %v, want 2", got)
	}

	c.ExportFinished("bulk", "completed", 100, time.Second)
	c.ExportFinished("bulk", "salvaged", 40, time.Second)

	if got := testutil.ToFloat64(c.exportsActive); got != 0 {
		t.Errorf("active after finish = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.exportRows.WithLabelValues("bulk")); got != 140 {
		t.Errorf("rows = %v, want 140", got)
	}
	if got := testutil.ToFloat64(c.exportSessions.WithLabelValues("bulk", "salvaged")); got != 1 {
		t.Errorf("salvaged sessions = %v, want 1", got)
	}
}

func TestCollector_Cache(t *testing.T) {
	c := NewCollector("test")

	c.CacheHit("medium")
	c.CacheHit("medium")
	c.CacheMiss("medium")
	c.SetCacheEntries(7)

	if got := testutil.ToFloat64(c.cacheHits.WithLabelValues("medium")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.cacheMisses.WithLabelValues("medium")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.cacheEntries); got != 7 {
		t.Errorf("entries = %v, want 7", got)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveRequest("GET", "/", 200, time.Millisecond)
	c.ExportStarted()
	c.ExportFinished("bulk", "completed", 1, time.Millisecond)
	c.CacheHit("short")
	c.CacheMiss("short")
	c.SetCacheEntries(1)
	c.SetWSClients(1)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.ObserveRequest("GET", "/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), "test_http_requests_total") {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
}
