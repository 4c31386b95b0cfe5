package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalog/internal/cache"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/database"
)

var errBoom = errors.New("connection reset by peer")

// fakeStore implements the parts of core.Store the handlers reach. Anything
// else panics through the nil embedded interface.
type fakeStore struct {
	core.Store

	mu       sync.Mutex
	pingErr  error
	company  *database.Company
	products map[int64]database.Product
	users    map[string]database.UserCredentials
	total    int64

	// cursor behaviour
	rows      int
	failAt    int // fail before row failAt (1-based); 0 never fails
	cursorErr error

	getCompanyCalls int
	cursors         []*sliceSource
	lastQuery       database.CursorQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[int64]database.Product{},
		users:    map[string]database.UserCredentials{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) GetCompany(_ context.Context, id int64) (database.Company, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCompanyCalls++
	if f.company == nil || f.company.ID != id {
		return database.Company{}, database.ErrNotFound
	}
	return *f.company, nil
}

func (f *fakeStore) CountProducts(context.Context, database.ProductFilter) (int64, error) {
	return f.total, nil
}

func (f *fakeStore) ListProducts(context.Context, database.ProductFilter, database.Sort, database.Page) ([]database.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]database.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) GetProduct(_ context.Context, id int64) (database.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return database.Product{}, database.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) SetProductStatus(_ context.Context, id int64, status int32) (database.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return database.Product{}, database.ErrNotFound
	}
	p.StatusID = status
	f.products[id] = p
	return p, nil
}

func (f *fakeStore) FindActiveUserByLogin(_ context.Context, login string) (database.UserCredentials, error) {
	u, ok := f.users[login]
	if !ok {
		return database.UserCredentials{}, database.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) OpenProductCursor(_ context.Context, q database.CursorQuery) (database.RowSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	if f.cursorErr != nil {
		return nil, f.cursorErr
	}
	src := &sliceSource{n: f.rows, failAt: f.failAt}
	f.cursors = append(f.cursors, src)
	return src, nil
}

// sliceSource yields n generated product rows.
type sliceSource struct {
	n, failAt int
	i         int
	err       error
	closed    bool
}

func (s *sliceSource) Next() bool {
	if s.closed || s.i >= s.n {
		return false
	}
	if s.failAt > 0 && s.i+1 == s.failAt {
		s.err = errBoom
		return false
	}
	s.i++
	return true
}

func (s *sliceSource) Row() (database.Row, error) {
	row := orderedmap.NewOrderedMap[string, any]()
	row.Set("id", int64(s.i))
	row.Set("name", "Product "+string(rune('A'+(s.i-1)%26)))
	row.Set("price", 9.5)
	return row, nil
}

func (s *sliceSource) Err() error { return s.err }
func (s *sliceSource) Close()     { s.closed = true }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "catalog-api", Version: "1.0.0", Env: "production", APIPrefix: "/api/v1"},
		Server: config.ServerConfig{
			RequestTimeout:  5 * time.Second,
			MaxBodySize:     1 << 20,
			CompressMinSize: 1024,
		},
		Export: config.ExportConfig{FlushEvery: 2},
		Cache: config.CacheConfig{
			Enabled:   true,
			ShortTTL:  time.Minute,
			MediumTTL: 5 * time.Minute,
			LongTTL:   15 * time.Minute,
		},
		Rate:    config.RateLimitConfig{Enabled: false, Window: 15 * time.Minute, Requests: 100, LoginRequests: 5},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testEnv struct {
	store  *fakeStore
	svc    *core.Service
	server *Server
	cache  *cache.Cache
}

func newTestEnv(t *testing.T, cfg *config.Config, opts core.Options) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 4
	}
	store := newFakeStore()
	svc := core.NewService(store, opts)
	c := cache.New(100, nil)
	srv, err := NewServer(svc, cfg, Deps{Cache: c})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testEnv{store: store, svc: svc, server: srv, cache: c}
}

func (e *testEnv) do(method, target string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}
