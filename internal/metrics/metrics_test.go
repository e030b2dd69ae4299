package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/reports/run", "/api/v1/reports/run"},
		{"/api/v1/reports/last-run", "/api/v1/reports/last-run"},
		{"/api/v1/catalog/reload", "/api/v1/catalog/reload"},
		{"/api/v1/catalog/stats", "/api/v1/catalog/stats"},

		// Per-site report routes collapse to one label.
		{"/api/v1/reports/ada/berlin", "/api/v1/reports/{user_id}/{site_id}"},
		{"/api/v1/reports/bob/usno", "/api/v1/reports/{user_id}/{site_id}"},

		// Unknown/bot paths collapse to "other".
		{"/api/v1/reports/ada", "other"},
		{"/api/v1/reports/ada/berlin/extra", "other"},
		{"/api/v1/reports//berlin", "other"},
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 distinct users produce exactly
// one path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/api/v1/reports/user" + string(rune('0'+i%10)) + string(rune('0'+i/10)) + "/site")
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))
	for _, p := range []string{"/a", "/b", "/c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", p, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))
	if after-before != 3 {
		t.Errorf("counter delta = %v, want 3", after-before)
	}
}

func TestRunAndSiteCounters(t *testing.T) {
	okBefore := testutil.ToFloat64(runsTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(runsTotal.WithLabelValues("error"))
	ObserveRun(time.Second, nil)
	ObserveRun(time.Second, errors.New("catalogue missing"))
	if d := testutil.ToFloat64(runsTotal.WithLabelValues("ok")) - okBefore; d != 1 {
		t.Errorf("ok runs delta = %v", d)
	}
	if d := testutil.ToFloat64(runsTotal.WithLabelValues("error")) - errBefore; d != 1 {
		t.Errorf("error runs delta = %v", d)
	}

	failedBefore := testutil.ToFloat64(sitesTotal.WithLabelValues("failed"))
	SiteFailed()
	SiteFailed()
	if d := testutil.ToFloat64(sitesTotal.WithLabelValues("failed")) - failedBefore; d != 2 {
		t.Errorf("failed sites delta = %v", d)
	}
}
