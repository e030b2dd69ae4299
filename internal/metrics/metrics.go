package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skywindow_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_report_runs_total",
			Help: "Report generation runs by outcome (ok, error).",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skywindow_report_run_duration_seconds",
			Help:    "Wall time of a report generation run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	sitesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_report_sites_total",
			Help: "Per-site report outcomes by status (succeeded, failed).",
		},
		[]string{"status"},
	)

	usersSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skywindow_report_users_skipped_total",
			Help: "Users skipped because they had no observations.",
		},
	)

	notifyFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skywindow_notify_failures_total",
			Help: "Report notifications that could not be sent.",
		},
	)

	externalDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skywindow_external_call_duration_seconds",
			Help:    "Duration of calls to external providers.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "outcome"},
	)

	workersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skywindow_report_workers",
			Help: "Configured size of the report worker pool.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skywindow_catalog_age_seconds",
			Help: "Seconds since the catalogue snapshot was loaded.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDurationSeconds)
	prometheus.MustRegister(sitesTotal)
	prometheus.MustRegister(usersSkippedTotal)
	prometheus.MustRegister(notifyFailuresTotal)
	prometheus.MustRegister(externalDurationSeconds)
	prometheus.MustRegister(workersActive)
	prometheus.MustRegister(catalogAgeSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records a finished run.
func ObserveRun(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDurationSeconds.Observe(d.Seconds())
}

// SiteSucceeded counts a persisted site report.
func SiteSucceeded() {
	sitesTotal.WithLabelValues("succeeded").Inc()
}

// SiteFailed counts a site that produced no report.
func SiteFailed() {
	sitesTotal.WithLabelValues("failed").Inc()
}

// UserSkipped counts a user without observations.
func UserSkipped() {
	usersSkippedTotal.Inc()
}

// NotifyFailed counts a failed notification.
func NotifyFailed() {
	notifyFailuresTotal.Inc()
}

// ObserveExternal records the duration of a call to provider.
func ObserveExternal(provider string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	externalDurationSeconds.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// SetWorkers sets the worker pool size gauge.
func SetWorkers(n int) {
	workersActive.Set(float64(n))
}

// SetCatalogAge sets the catalogue age gauge.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
}

// knownRoutes are reported with their own path label.
var knownRoutes = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/reports/run":      true,
	"/api/v1/reports/last-run": true,
	"/api/v1/catalog/reload":   true,
	"/api/v1/catalog/stats":    true,
}

// reportPrefix is followed by {user_id}/{site_id}.
const reportPrefix = "/api/v1/reports/"

// normalizeRoute maps a request path to a bounded set of metric labels so
// that ids in the path and scanner traffic cannot blow up cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, reportPrefix); ok {
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return reportPrefix + "{user_id}/{site_id}"
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
