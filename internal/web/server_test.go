package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/database"
	"github.com/JonMunkholm/catalog/internal/events"
)

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})
	env.store.products[5] = database.Product{ID: 5, Code: "P-5", Name: "Widget", StatusID: 1}

	rec := env.do(http.MethodGet, "/api/v1/products/5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Widget", body["data"].(map[string]any)["name"])

	rec = env.do(http.MethodGet, "/api/v1/products/6", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Product not found", body["message"])

	rec = env.do(http.MethodGet, "/api/v1/products/x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProducts_Envelope(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})
	env.store.products[1] = database.Product{ID: 1, Name: "A"}
	env.store.total = 1

	rec := env.do(http.MethodGet, "/api/v1/products?page=1&limit=10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["data"], 1)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["total"])
	assert.EqualValues(t, 1, pagination["totalPages"])
	assert.Equal(t, false, pagination["hasNext"])

	rec = env.do(http.MethodGet, "/api/v1/products?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductsByStatus_RejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})

	rec := env.do(http.MethodGet, "/api/v1/products/status/7", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCache_HitThenInvalidatedByDelete(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})
	env.store.products[5] = database.Product{ID: 5, Name: "Widget", StatusID: 1}

	rec := env.do(http.MethodGet, "/api/v1/products/5", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	rec = env.do(http.MethodGet, "/api/v1/products/5", nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec = env.do(http.MethodDelete, "/api/v1/products/5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", decode(t, rec)["message"])

	rec = env.do(http.MethodGet, "/api/v1/products/5", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.EqualValues(t, 0, decode(t, rec)["data"].(map[string]any)["statusId"])
}

func TestAPIKey_GuardsMutations(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	env := newTestEnv(t, cfg, core.Options{})
	env.store.products[5] = database.Product{ID: 5}

	rec := env.do(http.MethodDelete, "/api/v1/products/5", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodDelete, "/api/v1/products/5", nil, "X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTH002", decode(t, rec)["code"])

	rec = env.do(http.MethodDelete, "/api/v1/products/5", nil, "X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reads stay public.
	rec = env.do(http.MethodGet, "/api/v1/products/5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.Requests = 2
	env := newTestEnv(t, cfg, core.Options{})

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodGet, "/api/v1/products/status/1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := env.do(http.MethodGet, "/api/v1/products/status/1", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode(t, rec)["code"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// System routes are not limited.
	rec = env.do(http.MethodGet, "/docs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	cfg := testConfig()
	cfg.Rate.Enabled = true
	cfg.Rate.LoginRequests = 2
	env := newTestEnv(t, cfg, core.Options{})
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), 4)
	require.NoError(t, err)
	env.store.users["jdoe"] = database.UserCredentials{
		User:         database.User{ID: 9, Username: "jdoe", Email: "j@example.com"},
		PasswordHash: string(hash),
	}

	rec := env.do(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"username":"jdoe","password":"hunter22"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotContains(t, rec.Body.String(), "hunter22")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"username":"jdoe","password":"nope"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH001", decode(t, rec)["code"])

	rec = env.do(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})

	rec := env.do(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["errors"])

	rec = env.do(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"username":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decode(t, rec)["message"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})

	rec := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Contains(t, body, "exports")

	env.store.pingErr = errBoom
	rec = env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unreachable", decode(t, rec)["database"])
}

func TestSystemRoutes(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})

	rec := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.0.0", decode(t, rec)["version"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.do(http.MethodGet, "/docs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/api/v1/products/company/{companyId}/stream")

	rec = env.do(http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Route /api/v1/nope not found", body["message"])
}

func TestErrorResponse(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &core.ValidationError{Entity: "Product", Fields: []core.FieldError{{Field: "name", Message: "is required"}}}, http.StatusBadRequest},
		{"not found", &core.Error{Kind: core.ErrNotFound, Message: "User not found"}, http.StatusNotFound},
		{"conflict", &core.Error{Kind: core.ErrConflict, Message: "Email already exists"}, http.StatusConflict},
		{"credentials", core.ErrInvalidCredentials, http.StatusUnauthorized},
		{"busy", core.ErrTooManyExports, http.StatusServiceUnavailable},
		{"internal", errBoom, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, statusFor(tc.err))
		})
	}

	s := &Server{cfg: testConfig()}
	resp := s.errorResponse(errBoom, http.StatusInternalServerError)
	assert.Equal(t, "Internal server error", resp.Message)
	assert.NotContains(t, resp.Error, "connection reset")

	s.cfg.App.Env = "development"
	resp = s.errorResponse(errBoom, http.StatusInternalServerError)
	assert.Equal(t, errBoom.Error(), resp.Error)

	resp = s.errorResponse(&core.ValidationError{Entity: "Product", Fields: []core.FieldError{{Field: "name", Message: "is required"}}}, http.StatusBadRequest)
	assert.Equal(t, "Invalid product data", resp.Message)
	assert.Len(t, resp.Errors, 1)
}

func TestListProducts_RejectsOverflowingPage(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})

	rec := env.do(http.MethodGet, "/api/v1/products?page=4611686018427387904&limit=10", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestCache_CompressionAppliedPerRequest(t *testing.T) {
	env := newTestEnv(t, nil, core.Options{})
	for i := int64(1); i <= 10; i++ {
		env.store.products[i] = database.Product{ID: i, Code: fmt.Sprintf("P-%d", i), Name: fmt.Sprintf("Widget %d", i), StatusID: 1}
	}
	env.store.total = 10

	gunzip := func(rec *httptest.ResponseRecorder) []byte {
		t.Helper()
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err, "body must be gzip when Content-Encoding says so")
		data, err := io.ReadAll(zr)
		require.NoError(t, err)
		return data
	}

	miss := env.do(http.MethodGet, "/api/v1/products", nil, "Accept-Encoding", "gzip")
	require.Equal(t, http.StatusOK, miss.Code)
	require.Equal(t, "MISS", miss.Header().Get("X-Cache"))
	require.Equal(t, "gzip", miss.Header().Get("Content-Encoding"))
	want := gunzip(miss)
	require.True(t, json.Valid(want))

	hit := env.do(http.MethodGet, "/api/v1/products", nil, "Accept-Encoding", "gzip")
	require.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	require.Equal(t, "gzip", hit.Header().Get("Content-Encoding"))
	assert.JSONEq(t, string(want), string(gunzip(hit)))

	plain := env.do(http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, "HIT", plain.Header().Get("X-Cache"))
	assert.Empty(t, plain.Header().Get("Content-Encoding"))
	assert.JSONEq(t, string(want), plain.Body.String())
}

func TestWebsocket_ThroughRouter(t *testing.T) {
	hub := events.NewHub(nil, nil)
	defer hub.Close()
	svc := core.NewService(newFakeStore(), core.Options{BcryptCost: 4, Events: hub})
	srv, err := NewServer(svc, testConfig(), Deps{Hub: hub})
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(core.Event{Type: core.EventProductUpdated, Data: map[string]any{"id": 5}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"product_updated"`)
}

func TestCORS_PreflightThroughRouter(t *testing.T) {
	cfg := testConfig()
	cfg.Security.CORSOrigins = []string{"http://localhost:3000"}
	cfg.Security.CORSCredentials = true
	env := newTestEnv(t, cfg, core.Options{})

	rec := env.do(http.MethodOptions, "/api/v1/products/5", nil,
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", http.MethodDelete,
		"Access-Control-Request-Headers", "Content-Type")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")

	rec = env.do(http.MethodGet, "/api/v1/products/5", nil, "Origin", "http://evil.test")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
