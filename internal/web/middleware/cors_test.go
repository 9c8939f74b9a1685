package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantHeader string
		wantStatus int
	}{
		{name: "whitelisted", origins: []string{"https://attend.example.com"}, origin: "https://attend.example.com", method: http.MethodPost, wantHeader: "https://attend.example.com", wantStatus: http.StatusTeapot},
		{name: "trailing slash in config", origins: []string{"https://attend.example.com/"}, origin: "https://attend.example.com", method: http.MethodGet, wantHeader: "https://attend.example.com", wantStatus: http.StatusTeapot},
		{name: "not whitelisted", origins: []string{"https://attend.example.com"}, origin: "https://evil.example.com", method: http.MethodPost, wantHeader: "", wantStatus: http.StatusTeapot},
		{name: "localhost always allowed", origins: nil, origin: "http://localhost:5173", method: http.MethodGet, wantHeader: "http://localhost:5173", wantStatus: http.StatusTeapot},
		{name: "localhost lookalike", origins: nil, origin: "http://localhost.evil.com", method: http.MethodGet, wantHeader: "", wantStatus: http.StatusTeapot},
		{name: "wildcard", origins: []string{"*"}, origin: "https://anywhere.example", method: http.MethodGet, wantHeader: "https://anywhere.example", wantStatus: http.StatusTeapot},
		{name: "preflight", origins: []string{"https://attend.example.com"}, origin: "https://attend.example.com", method: http.MethodOptions, wantHeader: "https://attend.example.com", wantStatus: http.StatusOK},
		{name: "no origin", origins: []string{"*"}, origin: "", method: http.MethodGet, wantHeader: "", wantStatus: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/health", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()

			CORS(tt.origins)(next).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantHeader)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing security headers: %v", rec.Header())
	}
}
