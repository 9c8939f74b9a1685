package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(FileEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matcher.Threshold != 0.9 {
		t.Errorf("expected default threshold 0.9, got %v", cfg.Matcher.Threshold)
	}
	if cfg.Detector.Confidence != 0.6 {
		t.Errorf("expected default confidence 0.6, got %v", cfg.Detector.Confidence)
	}
	if cfg.Embedder.Dim != 512 {
		t.Errorf("expected default dim 512, got %d", cfg.Embedder.Dim)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %q", cfg.Database.Driver)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("MATCH_THRESHOLD", "0.75")
	t.Setenv("DETECTOR_CONFIDENCE", "0.8")
	t.Setenv("EMBEDDING_DIM", "128")
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("LEDGER_RETRY_MAX_ELAPSED", "2s")
	t.Setenv("DATABASE_DRIVER", DriverPostgres)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/attend")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Matcher.Threshold != 0.75 {
		t.Errorf("threshold = %v, want 0.75", cfg.Matcher.Threshold)
	}
	if cfg.Detector.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", cfg.Detector.Confidence)
	}
	if cfg.Embedder.Dim != 128 {
		t.Errorf("dim = %d, want 128", cfg.Embedder.Dim)
	}
	if cfg.Web.Addr() != "0.0.0.0:9090" {
		t.Errorf("addr = %s", cfg.Web.Addr())
	}
	if len(cfg.Web.AllowedOrigins) != 2 || cfg.Web.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("origins = %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Ledger.RetryMaxTime != 2*time.Second {
		t.Errorf("retry = %v", cfg.Ledger.RetryMaxTime)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neuraattend.yaml")
	content := `
matcher:
  threshold: 0.7
  index: hnsw
ledger:
  timezone: UTC
web:
  request_timeout: 10s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)
	t.Setenv("MATCH_INDEX", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Matcher.Threshold != 0.7 || cfg.Matcher.Index != IndexHNSW {
		t.Errorf("matcher = %+v", cfg.Matcher)
	}
	if cfg.Web.RequestTimeout != 10*time.Second {
		t.Errorf("request timeout = %v", cfg.Web.RequestTimeout)
	}
	// Values the file does not mention keep their defaults.
	if cfg.Embedder.Dim != 512 {
		t.Errorf("dim = %d, want default 512", cfg.Embedder.Dim)
	}

	// Environment wins over the file.
	t.Setenv("MATCH_THRESHOLD", "0.5")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Matcher.Threshold != 0.5 {
		t.Errorf("threshold = %v, want env value 0.5", cfg.Matcher.Threshold)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("matcher: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)

	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}

	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected read error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "zero threshold", modify: func(c *Config) { c.Matcher.Threshold = 0 }, wantErr: "threshold"},
		{name: "confidence out of range", modify: func(c *Config) { c.Detector.Confidence = 1.5 }, wantErr: "confidence"},
		{name: "unknown driver", modify: func(c *Config) { c.Database.Driver = "sqlite" }, wantErr: "unknown database driver"},
		{name: "postgres without url", modify: func(c *Config) { c.Database.Driver = DriverPostgres }, wantErr: "DATABASE_URL"},
		{name: "mysql without dsn", modify: func(c *Config) { c.Database.Driver = DriverMySQL }, wantErr: "MYSQL_DSN"},
		{name: "unknown index", modify: func(c *Config) { c.Matcher.Index = "faiss" }, wantErr: "matcher index"},
		{name: "postgres gallery without url", modify: func(c *Config) { c.Gallery.Source = GallerySourcePostgres }, wantErr: "gallery source"},
		{name: "bad timezone", modify: func(c *Config) { c.Ledger.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "empty inference url", modify: func(c *Config) { c.Inference.URL = "" }, wantErr: "inference URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
