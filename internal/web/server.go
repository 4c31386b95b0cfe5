// Package web provides the HTTP server and handlers for the catalog API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/JonMunkholm/catalog/internal/cache"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/events"
	"github.com/JonMunkholm/catalog/internal/metrics"
	mw "github.com/JonMunkholm/catalog/internal/web/middleware"
)

// Deps are the optional collaborators of a Server. Nil members disable the
// feature they back.
type Deps struct {
	Cache   *cache.Cache
	Metrics *metrics.Collector
	Hub     *events.Hub
}

// Server is the HTTP server for the catalog API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	cache   *cache.Cache
	metrics *metrics.Collector
	hub     *events.Hub
	router  *chi.Mux
	server  *http.Server
	started time.Time

	limiters []*rateLimiter
	compress func(http.Handler) http.Handler
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config, deps Deps) (*Server, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(cfg.Server.CompressMinSize))
	if err != nil {
		return nil, err
	}

	s := &Server{
		service: service,
		cfg:     cfg,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		hub:     deps.Hub,
		router:  chi.NewRouter(),
		started: time.Now(),
		compress: func(next http.Handler) http.Handler {
			return wrap(next)
		},
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(mw.Metrics(s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
	s.router.Use(mw.CORS(&s.cfg.Security))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/", s.handleInfo)
	r.Get("/docs", s.handleDocs)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, s.cfg.Metrics.Path, s.metrics.Handler())
	}
	if s.hub != nil {
		r.Get("/ws", s.hub.ServeWS)
	}

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	short, medium, long := s.tiers()
	auth := mw.APIKeyAuth(&s.cfg.Security)

	r.Route(s.cfg.App.APIPrefix, func(r chi.Router) {
		if s.cfg.Rate.Enabled {
			r.Use(s.newRateLimiter(s.cfg.Rate.Requests, s.cfg.Rate.Window).middleware)
		}

		// Exports hold the connection for as long as the client reads, so
		// they bypass the request timeout, compression and the cache.
		r.Get("/products/stream", s.handleExportProducts)
		r.Get("/products/company/{companyId}/stream", s.handleExportCompanyProducts)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			// Cached bodies are stored before compression.
			r.Use(s.compress)

			companies := s.prefix("/companies")
			products := s.prefix("/products")
			users := s.prefix("/users")

			// Companies
			r.With(s.cached(medium)).Get("/companies", s.handleListCompanies)
			r.With(s.cached(short)).Get("/companies/stats", s.handleCompanyStats)
			r.With(s.cached(long)).Get("/companies/{id}", s.handleGetCompany)
			r.With(auth, s.invalidates(companies)).Post("/companies", s.handleCreateCompany)
			r.With(auth, s.invalidates(companies)).Put("/companies/{id}", s.handleUpdateCompany)
			r.With(auth, s.invalidates(companies, products, users)).Delete("/companies/{id}", s.handleDeleteCompany)

			// Users
			r.With(s.cached(medium)).Get("/users", s.handleListUsers)
			r.With(s.cached(short)).Get("/users/stats", s.handleUserStats)
			r.With(s.cached(medium)).Get("/users/{id}", s.handleGetUser)
			r.With(s.loginLimiter()).Post("/users/login", s.handleLogin)
			r.With(auth, s.invalidates(users, companies)).Post("/users", s.handleCreateUser)
			r.With(auth, s.invalidates(users, companies)).Put("/users/{id}", s.handleUpdateUser)
			r.With(auth, s.invalidates(users, companies)).Delete("/users/{id}", s.handleDeleteUser)

			// Products
			r.With(s.cached(medium)).Get("/products", s.handleListProducts)
			r.With(s.cached(short)).Get("/products/stats", s.handleProductStats)
			r.With(s.cached(long)).Get("/products/company/{companyId}", s.handleProductsByCompany)
			r.With(s.cached(medium)).Get("/products/status/{status}", s.handleProductsByStatus)
			r.With(s.cached(medium)).Get("/products/{id}", s.handleGetProduct)
			r.With(auth, s.invalidates(products, companies)).Post("/products", s.handleCreateProduct)
			r.With(auth, s.invalidates(products, companies)).Put("/products/{id}", s.handleUpdateProduct)
			r.With(auth, s.invalidates(products, companies)).Delete("/products/{id}", s.handleDeleteProduct)
		})
	})
}

func (s *Server) prefix(resource string) string {
	return s.cfg.App.APIPrefix + resource
}

func (s *Server) tiers() (short, medium, long cache.Tier) {
	c := s.cfg.Cache
	return cache.Tier{Name: "short", TTL: c.ShortTTL},
		cache.Tier{Name: "medium", TTL: c.MediumTTL},
		cache.Tier{Name: "long", TTL: c.LongTTL}
}

// cached serves GET responses from the cache for the tier's TTL.
func (s *Server) cached(t cache.Tier) func(http.Handler) http.Handler {
	if s.cache == nil || !s.cfg.Cache.Enabled {
		return passthrough
	}
	return s.cache.Middleware(t)
}

// invalidates drops cached responses under prefixes after a successful write.
func (s *Server) invalidates(prefixes ...string) func(http.Handler) http.Handler {
	if s.cache == nil || !s.cfg.Cache.Enabled {
		return passthrough
	}
	return s.cache.Invalidate(prefixes...)
}

func (s *Server) loginLimiter() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return passthrough
	}
	return s.newRateLimiter(s.cfg.Rate.LoginRequests, s.cfg.Rate.Window).middleware
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server. In-flight exports keep their
// connections until they finish or ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()

		// Prevent MIME type sniffing
		h.Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")

		// The API serves JSON plus one static docs page with inline styles.
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
	respond  func(w http.ResponseWriter, r *http.Request)
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter owned by s; Shutdown stops its
// cleanup goroutine.
func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
		respond: func(w http.ResponseWriter, r *http.Request) {
			s.respondMessage(w, r, http.StatusTooManyRequests,
				"Too many requests from this IP, please try again later.", "RATE001")
		},
	}
	s.limiters = append(s.limiters, rl)
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if rl.now().Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow checks if the request should be allowed and consumes a token if so.
// It also returns the tokens left and when the window resets.
func (rl *rateLimiter) allow(ip string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) > rl.window {
		v = &visitor{tokens: rl.rate, lastReset: now}
		rl.visitors[ip] = v
	}
	reset := v.lastReset.Add(rl.window)

	if v.tokens <= 0 {
		return false, 0, reset
	}
	v.tokens--
	return true, v.tokens, reset
}

// middleware returns an HTTP middleware that rate limits by IP.
// TrustedRealIP has already resolved RemoteAddr to the client address.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, reset := rl.allow(clientIP(r))
		wait := reset.Sub(rl.now())

		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(rl.rate))
		h.Set("RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(int(wait.Seconds())))

		if !ok {
			h.Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
			rl.respond(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON with status.
// Logs encoding errors since headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
