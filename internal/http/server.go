// Package http serves the dashboard's JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"painel/internal/core"
	"painel/internal/log"
	"painel/internal/middleware/ratelimit"
	"painel/internal/middleware/security"
	"painel/internal/middleware/trace"
	"painel/internal/services"
)

// Reloader drops the cached dataset and loads it again.
type Reloader interface {
	Reload(ctx context.Context) (*core.Dataset, error)
}

// Options tunes the server. Zero values pick the defaults.
type Options struct {
	Logger         *log.Logger
	ReloadLimit    ratelimit.Config
	TrustedProxies []string
	Headers        *security.HeadersConfig
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server wraps http.Server with the dashboard routes.
type Server struct {
	http.Server

	dashboard *services.Dashboard
	reloader  Reloader
	logger    *log.Logger

	clientIP     *security.ClientIP
	tracer       *trace.Middleware
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, dashboard *services.Dashboard, reloader Reloader, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	clientIP := security.NewClientIP()
	for _, cidr := range opts.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	limitCfg := opts.ReloadLimit
	if limitCfg.RequestsPerMinute <= 0 {
		limitCfg = ratelimit.Config{RequestsPerMinute: 6}
	}

	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}
	readTimeout, writeTimeout := opts.ReadTimeout, opts.WriteTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}

	s := &Server{
		dashboard: dashboard,
		reloader:  reloader,
		logger:    logger,
		clientIP:  clientIP,
		tracer:    trace.NewMiddleware(logger, clientIP.Extract),
		limiter:   ratelimit.NewLimiter(limitCfg),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /api/overview", serveReport(s.dashboard.Overview))
	mux.HandleFunc("GET /api/due-buckets", serveReport(s.dashboard.DueBuckets))
	mux.HandleFunc("GET /api/reconciliation", serveReport(s.dashboard.Reconciliation))
	mux.HandleFunc("GET /api/compliance", serveReport(s.dashboard.Compliance))
	mux.HandleFunc("GET /api/forecast", serveReport(s.dashboard.Forecast))
	mux.HandleFunc("GET /api/records/{dataset}", s.handleRecords)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.Handle("POST /api/reload", s.limiter.Middleware(clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(http.HandlerFunc(s.handleReload)))

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(headers).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the limiter's cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
