package web

import (
	"context"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// healthTimeout bounds the database ping of /health.
const healthTimeout = 2 * time.Second

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	app := s.cfg.App
	writeJSON(w, map[string]any{
		"success": true,
		"message": app.Name + " is running",
		"version": app.Version,
		"docs":    "/docs",
		"endpoints": map[string]string{
			"companies": app.APIPrefix + "/companies",
			"users":     app.APIPrefix + "/users",
			"products":  app.APIPrefix + "/products",
			"health":    "/health",
		},
	})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	app := s.cfg.App
	templ.Handler(docsPage(app.Name, app.Version, app.APIPrefix)).ServeHTTP(w, r)
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Success     bool                     `json:"success"`
	Status      string                   `json:"status"`
	Version     string                   `json:"version"`
	Environment string                   `json:"environment"`
	Uptime      string                   `json:"uptime"`
	Timestamp   time.Time                `json:"timestamp"`
	Database    string                   `json:"database"`
	Exports     core.ExportLimiterStatus `json:"exports"`
	WSClients   int                      `json:"wsClients"`
	CacheSize   int                      `json:"cacheEntries"`
}

// handleHealth reports liveness plus database reachability. An unreachable
// database returns 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Success:     true,
		Status:      "OK",
		Version:     s.cfg.App.Version,
		Environment: s.cfg.App.Env,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Timestamp:   time.Now().UTC(),
		Database:    "connected",
		Exports:     s.service.Exports().Status(),
	}
	if s.hub != nil {
		resp.WSClients = s.hub.Clients()
	}
	if s.cache != nil {
		resp.CacheSize = s.cache.Len()
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Error("health check: database unreachable", "error", err)
		resp.Success = false
		resp.Status = "DEGRADED"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, resp)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondMessage(w, r, http.StatusNotFound, "Route "+r.URL.Path+" not found", "")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondMessage(w, r, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed on "+r.URL.Path, "")
}
