package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		cfg      Config
		method   string
		path     string
		header   string
		wantCode int
	}{
		{"disabled", Config{}, "GET", "/api/v1/reports/run", "", http.StatusOK},
		{"missing token", Config{Enabled: true, Token: "s3cret"}, "GET", "/api/v1/reports/run", "", http.StatusUnauthorized},
		{"wrong token", Config{Enabled: true, Token: "s3cret"}, "GET", "/api/v1/reports/run", "Bearer nope", http.StatusUnauthorized},
		{"no bearer prefix", Config{Enabled: true, Token: "s3cret"}, "GET", "/api/v1/reports/run", "s3cret", http.StatusUnauthorized},
		{"valid token", Config{Enabled: true, Token: "s3cret"}, "GET", "/api/v1/reports/run", "Bearer s3cret", http.StatusOK},
		{"stored report needs token", Config{Enabled: true, Token: "s3cret"}, "GET", "/api/v1/reports/ada/berlin", "", http.StatusUnauthorized},
		{"health exempt", Config{Enabled: true, Token: "s3cret"}, "GET", "/healthz", "", http.StatusOK},
		{"metrics exempt", Config{Enabled: true, Token: "s3cret"}, "GET", "/metrics", "", http.StatusOK},
		{"stats exempt", Config{Enabled: true, Token: "s3cret"}, "GET", "/api/v1/catalog/stats", "", http.StatusOK},
		{"trigger run needs token", Config{Enabled: true, Token: "s3cret"}, "POST", "/api/v1/reports/run", "", http.StatusUnauthorized},
		{"writes to exempt path need token", Config{Enabled: true, Token: "s3cret"}, "POST", "/api/v1/catalog/stats", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Middleware(tt.cfg)(ok).ServeHTTP(w, req)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if w.Code == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}
