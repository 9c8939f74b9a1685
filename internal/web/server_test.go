package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rohan1205/NeuraAttend/internal/attendance"
	"github.com/rohan1205/NeuraAttend/internal/config"
	"github.com/rohan1205/NeuraAttend/internal/database"
	"github.com/rohan1205/NeuraAttend/internal/database/memory"
	"github.com/rohan1205/NeuraAttend/internal/facematch"
	"github.com/rohan1205/NeuraAttend/internal/recognition"
	"github.com/rohan1205/NeuraAttend/internal/vision"
)

type nopProcessor struct{}

func (nopProcessor) ProcessFrame(ctx context.Context, frame *vision.Frame, at time.Time) (*recognition.FrameResult, error) {
	return &recognition.FrameResult{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Web.AllowedOrigins = []string{"https://attend.example.com"}

	store := memory.NewStore()
	if _, err := store.InsertIfAbsent(context.Background(), database.NewAttendanceRecord("alice", "2024-01-01", "09:00:00")); err != nil {
		t.Fatal(err)
	}
	ledger := attendance.NewLedger(store, attendance.Config{Location: time.UTC})
	gallery := facematch.NewGallery(map[string][]facematch.Embedding{"alice": {{1, 0}}})

	return NewServer(cfg, Deps{Pipeline: nopProcessor{}, Ledger: ledger, Gallery: gallery})
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/attendance", http.StatusOK},
		{http.MethodGet, "/api/v1/attendance?date=2024-01-01", http.StatusOK},
		{http.MethodGet, "/attendance", http.StatusOK},
		{http.MethodGet, "/api/v1/gallery", http.StatusOK},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodPost, "/api/v1/attendance/mark", http.StatusBadRequest},
		{http.MethodPost, "/mark-attendance", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestServerAttendanceList(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attendance?date=2024-01-01", nil))

	var records []database.AttendanceRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(records) != 1 || records[0].Name != "alice" || records[0].Time != "09:00:00" {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestServerCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/attendance/mark", nil)
	req.Header.Set("Origin", "https://attend.example.com")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://attend.example.com" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q", got)
	}
}
