package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/skywindow/internal/auth"
	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/health"
	"github.com/star/skywindow/internal/httputil"
	"github.com/star/skywindow/internal/metrics"
	"github.com/star/skywindow/internal/report"
)

// Runner triggers report runs. Implemented by *report.Generator.
type Runner interface {
	Run(ctx context.Context, now time.Time, forceUserID string) (report.Summary, error)
	Running() bool
	LastRun() *report.Summary
}

// Catalogs exposes the catalogue snapshot. Implemented by *catalog.Holder.
type Catalogs interface {
	Get() *catalog.Catalog
	Reload(ctx context.Context) error
	AgeSeconds() float64
}

// Reports reads stored reports. Implemented by *reportstore.FS.
type Reports interface {
	Latest(userID, siteID string) (report.LocationReport, error)
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Runner   Runner
	Catalogs Catalogs
	Reports  Reports
	// BaseContext parents background runs so shutdown cancels them.
	// Defaults to context.Background().
	BaseContext context.Context
	// Now defaults to the current UTC time.
	Now func() time.Time
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, trustProxy bool, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(logger, authCfg, trustProxy, deps),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed handler with its middleware chain.
func NewHandler(logger *slog.Logger, authCfg auth.Config, trustProxy bool, deps Deps) http.Handler {
	if deps.BaseContext == nil {
		deps.BaseContext = context.Background()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	logger = logger.With("component", "api")

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /{$}", indexHandler)
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(func() bool { return deps.Catalogs.Get() != nil }))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/reports/run", runHandler(logger, deps))
	mux.HandleFunc("GET /api/v1/reports/last-run", lastRunHandler(deps.Runner))
	mux.HandleFunc("GET /api/v1/reports/{user_id}/{site_id}", latestReportHandler(logger, deps.Reports))
	mux.HandleFunc("POST /api/v1/catalog/reload", reloadHandler(logger, deps.Catalogs))
	mux.HandleFunc("GET /api/v1/catalog/stats", statsHandler(deps.Catalogs))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, trustProxy)(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
