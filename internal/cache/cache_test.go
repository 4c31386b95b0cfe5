package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(max int) (*Cache, *clock) {
	c := New(max, nil)
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clk.now
	return c, clk
}

func TestCache_Expiry(t *testing.T) {
	c, clk := newTestCache(10)
	c.Set("/a", &Entry{Status: 200, Body: []byte("a")}, time.Minute)

	e, ok := c.Get("/a")
	require.True(t, ok)
	assert.Equal(t, "a", string(e.Body))

	clk.advance(time.Minute)
	_, ok = c.Get("/a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictsOldest(t *testing.T) {
	c, _ := newTestCache(2)
	c.Set("/1", &Entry{}, time.Hour)
	c.Set("/2", &Entry{}, time.Hour)
	c.Set("/3", &Entry{}, time.Hour)

	_, ok := c.Get("/1")
	assert.False(t, ok)
	_, ok = c.Get("/3")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c, _ := newTestCache(10)
	c.Set("/api/v1/products", &Entry{}, time.Hour)
	c.Set("/api/v1/products/7", &Entry{}, time.Hour)
	c.Set("/api/v1/products/company/3", &Entry{}, time.Hour)
	c.Set("/api/v1/companies/3", &Entry{}, time.Hour)
	c.Set("/api/v1/users", &Entry{}, time.Hour)

	removed := c.InvalidatePrefix("/api/v1/products", "/api/v1/companies")
	assert.Equal(t, 4, removed)
	_, ok := c.Get("/api/v1/users")
	assert.True(t, ok)
}

func TestCache_Purge(t *testing.T) {
	c, clk := newTestCache(10)
	c.Set("/short", &Entry{}, time.Minute)
	c.Set("/long", &Entry{}, 15*time.Minute)

	clk.advance(2 * time.Minute)
	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestCache_Janitor(t *testing.T) {
	c, _ := newTestCache(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.Error(t, c.StartJanitor(ctx, "not a schedule"))
	require.NoError(t, c.StartJanitor(ctx, "@every 1m"))
	require.NoError(t, c.StartJanitor(ctx, "@every 1m"), "second start is a no-op")
	c.Stop()
	c.Stop()
}

func TestMiddleware_HitAndMiss(t *testing.T) {
	c, _ := newTestCache(10)
	var calls atomic.Int32
	h := c.Middleware(Tier{Name: "medium", TTL: 5 * time.Minute})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=2", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=2", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=3", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	assert.EqualValues(t, 2, calls.Load())
}

func TestMiddleware_SkipsErrorsAndStreams(t *testing.T) {
	c, _ := newTestCache(10)
	status := http.StatusNotFound
	h := c.Middleware(Tier{Name: "long", TTL: time.Hour})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/companies/9", nil))
	assert.Equal(t, 0, c.Len())

	status = http.StatusOK
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products/stream", nil))
	assert.Equal(t, 0, c.Len())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/products", nil))
	assert.Equal(t, 0, c.Len())
}

func TestInvalidate_OnlyOnSuccess(t *testing.T) {
	c, _ := newTestCache(10)
	status := http.StatusBadRequest
	h := c.Invalidate("/api/v1/products")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	c.Set("/api/v1/products", &Entry{}, time.Hour)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/products", nil))
	assert.Equal(t, 1, c.Len())

	status = http.StatusCreated
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/products", nil))
	assert.Equal(t, 0, c.Len())
}

func TestMiddleware_DoesNotReplayPerRequestHeaders(t *testing.T) {
	c, _ := newTestCache(10)
	var remaining atomic.Int32
	remaining.Store(10)

	// Outer layers write these before the cache runs.
	limited := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(int(remaining.Add(-1))))
			w.Header().Add("Vary", "Accept-Encoding")
			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			next.ServeHTTP(w, r)
		})
	}
	h := limited(c.Middleware(Tier{Name: "short", TTL: time.Minute})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		w.Write([]byte(`{"success":true}`))
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	miss := httptest.NewRecorder()
	h.ServeHTTP(miss, req)
	require.Equal(t, "MISS", miss.Header().Get("X-Cache"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	hit := httptest.NewRecorder()
	h.ServeHTTP(hit, req)
	require.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, "8", hit.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "http://localhost:5173", hit.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, hit.Header().Get("Content-Encoding"))
	assert.Equal(t, []string{"Accept-Encoding"}, hit.Header().Values("Vary"))
	assert.Equal(t, "application/json", hit.Header().Get("Content-Type"))
	assert.Equal(t, `{"success":true}`, hit.Body.String())
}
