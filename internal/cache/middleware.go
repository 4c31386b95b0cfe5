package cache

import (
	"bytes"
	"net/http"
	"strings"
)

// maxBodySize caps what a single entry may hold; larger responses pass
// through uncached.
const maxBodySize = 1 << 20

// Middleware serves GET responses for t.TTL. Streaming routes, non-GET
// requests and responses other than 200/201 are never stored. Responses
// carry X-Cache: HIT or MISS.
func (c *Cache) Middleware(t Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || strings.Contains(r.URL.Path, "/stream") {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.RequestURI()
			if e, ok := c.Get(key); ok {
				c.metrics.CacheHit(t.Name)
				h := w.Header()
				for k, v := range e.Header {
					h[k] = v
				}
				h.Set("X-Cache", "HIT")
				w.WriteHeader(e.Status)
				w.Write(e.Body)
				return
			}

			c.metrics.CacheMiss(t.Name)
			w.Header().Set("X-Cache", "MISS")
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.overflow || (rec.status != http.StatusOK && rec.status != http.StatusCreated) {
				return
			}
			c.Set(key, &Entry{Status: rec.status, Header: storable(w.Header()), Body: rec.body.Bytes()}, t.TTL)
		})
	}
}

// perRequest are headers that describe one response rather than the
// resource. Compression, CORS and rate limiting run outside the cache and
// set these again for every request.
var perRequest = []string{
	"X-Cache",
	"X-Request-Id",
	"Content-Encoding",
	"Content-Length",
	"Vary",
	"Retry-After",
}

// storable copies h without per-request headers.
func storable(h http.Header) http.Header {
	out := h.Clone()
	for _, k := range perRequest {
		out.Del(k)
	}
	for k := range out {
		if strings.HasPrefix(k, "Ratelimit-") || strings.HasPrefix(k, "Access-Control-") {
			delete(out, k)
		}
	}
	return out
}

// Invalidate drops every entry under prefixes after a mutation succeeds
// (status below 400).
func (c *Cache) Invalidate(prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status < http.StatusBadRequest {
				c.InvalidatePrefix(prefixes...)
			}
		})
	}
}

// recorder tees the response body into a buffer.
type recorder struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	overflow bool
	wrote    bool
}

func (r *recorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wrote = true
	if !r.overflow {
		if r.body.Len()+len(b) > maxBodySize {
			r.overflow = true
			r.body = bytes.Buffer{}
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
