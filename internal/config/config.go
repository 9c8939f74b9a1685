package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Gallery sources.
const (
	GallerySourceFile     = "file"
	GallerySourcePostgres = "postgres"
)

// Matcher index kinds.
const (
	IndexLinear = "linear"
	IndexHNSW   = "hnsw"
)

// FileEnv names the optional YAML file that supplies values the environment
// does not set.
const FileEnv = "NEURAATTEND_CONFIG"

type Config struct {
	Inference InferenceConfig `yaml:"inference"`
	Detector  DetectorConfig  `yaml:"detector"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Gallery   GalleryConfig   `yaml:"gallery"`
	Database  DatabaseConfig  `yaml:"database"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Web       WebConfig       `yaml:"web"`
}

type InferenceConfig struct {
	URL           string        `yaml:"url"` // model server, defaults to http://localhost:8000
	DetectorModel string        `yaml:"detector_model"`
	EmbedderModel string        `yaml:"embedder_model"`
	Timeout       time.Duration `yaml:"timeout"`
}

type DetectorConfig struct {
	Confidence float64 `yaml:"confidence"` // keep detections strictly above this
	InputSize  int     `yaml:"input_size"`
}

type EmbedderConfig struct {
	Dim       int `yaml:"dim"`
	InputSize int `yaml:"input_size"`
	BatchSize int `yaml:"batch_size"` // 0 or 1 embeds crops one at a time
}

type MatcherConfig struct {
	Threshold  float64 `yaml:"threshold"` // Euclidean distance acceptance threshold
	Index      string  `yaml:"index"`     // linear or hnsw
	HNSWM      int     `yaml:"hnsw_m"`
	EfSearch   int     `yaml:"hnsw_ef_search"`
	Candidates int     `yaml:"hnsw_candidates"`
	IndexPath  string  `yaml:"hnsw_index_path"` // optional, if empty the index is rebuilt on startup
}

type GalleryConfig struct {
	Source string `yaml:"source"` // file or postgres
	Path   string `yaml:"path"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`    // memory, postgres or mysql
	URL          string `yaml:"url"`       // PostgreSQL connection URL
	MySQLDSN     string `yaml:"mysql_dsn"` // e.g. attend:attend@tcp(mariadb:3306)/attendance
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type LedgerConfig struct {
	Timezone     string        `yaml:"timezone"` // IANA name used to derive the attendance date
	RetryMaxTime time.Duration `yaml:"retry_max_elapsed"`
	CacheMarked  bool          `yaml:"cache_marked"`
}

type WebConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			URL:           "http://localhost:8000",
			DetectorModel: "res10_300x300_ssd",
			EmbedderModel: "facenet_vggface2",
			Timeout:       30 * time.Second,
		},
		Detector: DetectorConfig{Confidence: 0.6, InputSize: 300},
		Embedder: EmbedderConfig{Dim: 512, InputSize: 160, BatchSize: 16},
		Matcher: MatcherConfig{
			Threshold:  0.9,
			Index:      IndexLinear,
			HNSWM:      16,
			EfSearch:   100,
			Candidates: 10,
		},
		Gallery: GalleryConfig{Source: GallerySourceFile, Path: "data/gallery.json"},
		Database: DatabaseConfig{
			Driver:       DriverMemory,
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Ledger: LedgerConfig{
			Timezone:     "Local",
			RetryMaxTime: 5 * time.Second,
			CacheMarked:  true,
		},
		Web: WebConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
		},
	}
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load builds the configuration from defaults, the optional YAML file named by
// NEURAATTEND_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Inference = InferenceConfig{
		URL:           envString("INFERENCE_URL", cfg.Inference.URL),
		DetectorModel: envString("DETECTOR_MODEL", cfg.Inference.DetectorModel),
		EmbedderModel: envString("EMBEDDER_MODEL", cfg.Inference.EmbedderModel),
		Timeout:       envDuration("INFERENCE_TIMEOUT", cfg.Inference.Timeout),
	}
	cfg.Detector = DetectorConfig{
		Confidence: envFloat("DETECTOR_CONFIDENCE", cfg.Detector.Confidence),
		InputSize:  envInt("DETECTOR_INPUT_SIZE", cfg.Detector.InputSize),
	}
	cfg.Embedder = EmbedderConfig{
		Dim:       envInt("EMBEDDING_DIM", cfg.Embedder.Dim),
		InputSize: envInt("EMBEDDER_INPUT_SIZE", cfg.Embedder.InputSize),
		BatchSize: envInt("EMBEDDER_BATCH_SIZE", cfg.Embedder.BatchSize),
	}
	cfg.Matcher = MatcherConfig{
		Threshold:  envFloat("MATCH_THRESHOLD", cfg.Matcher.Threshold),
		Index:      envString("MATCH_INDEX", cfg.Matcher.Index),
		HNSWM:      envInt("HNSW_M", cfg.Matcher.HNSWM),
		EfSearch:   envInt("HNSW_EF_SEARCH", cfg.Matcher.EfSearch),
		Candidates: envInt("HNSW_CANDIDATES", cfg.Matcher.Candidates),
		IndexPath:  envString("HNSW_INDEX_PATH", cfg.Matcher.IndexPath),
	}
	cfg.Gallery = GalleryConfig{
		Source: envString("GALLERY_SOURCE", cfg.Gallery.Source),
		Path:   envString("GALLERY_PATH", cfg.Gallery.Path),
	}
	cfg.Database = DatabaseConfig{
		Driver:       envString("DATABASE_DRIVER", cfg.Database.Driver),
		URL:          envString("DATABASE_URL", cfg.Database.URL),
		MySQLDSN:     envString("MYSQL_DSN", cfg.Database.MySQLDSN),
		MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns),
		MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns),
	}
	cfg.Ledger = LedgerConfig{
		Timezone:     envString("LEDGER_TIMEZONE", cfg.Ledger.Timezone),
		RetryMaxTime: envDuration("LEDGER_RETRY_MAX_ELAPSED", cfg.Ledger.RetryMaxTime),
		CacheMarked:  envBool("LEDGER_CACHE_MARKED", cfg.Ledger.CacheMarked),
	}
	cfg.Web = WebConfig{
		Host:           envString("WEB_HOST", cfg.Web.Host),
		Port:           envInt("WEB_PORT", cfg.Web.Port),
		AllowedOrigins: envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins),
		RequestTimeout: envDuration("WEB_REQUEST_TIMEOUT", cfg.Web.RequestTimeout),
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Inference.URL == "" {
		errs = append(errs, errors.New("inference URL is required"))
	}
	if c.Inference.DetectorModel == "" || c.Inference.EmbedderModel == "" {
		errs = append(errs, errors.New("detector and embedder model names are required"))
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence >= 1 {
		errs = append(errs, fmt.Errorf("detector confidence %v must be in [0, 1)", c.Detector.Confidence))
	}
	if c.Matcher.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("match threshold %v must be positive", c.Matcher.Threshold))
	}
	if c.Embedder.Dim <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimension %d must be positive", c.Embedder.Dim))
	}

	switch c.Matcher.Index {
	case IndexLinear, IndexHNSW:
	default:
		errs = append(errs, fmt.Errorf("unknown matcher index %q (want %s or %s)", c.Matcher.Index, IndexLinear, IndexHNSW))
	}

	switch c.Gallery.Source {
	case GallerySourceFile:
		if c.Gallery.Path == "" {
			errs = append(errs, errors.New("gallery path is required for file source"))
		}
	case GallerySourcePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres gallery source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown gallery source %q", c.Gallery.Source))
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres driver"))
		}
	case DriverMySQL:
		if c.Database.MySQLDSN == "" {
			errs = append(errs, errors.New("MYSQL_DSN is required for mysql driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	if _, err := c.Ledger.Location(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Location resolves the ledger timezone.
func (c LedgerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Addr returns host:port for the HTTP listener.
func (c WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
