package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rohan1205/NeuraAttend/internal/attendance"
	"github.com/rohan1205/NeuraAttend/internal/config"
	"github.com/rohan1205/NeuraAttend/internal/database"
	_ "github.com/rohan1205/NeuraAttend/internal/database/mariadb"
	_ "github.com/rohan1205/NeuraAttend/internal/database/memory"
	"github.com/rohan1205/NeuraAttend/internal/database/postgres"
	"github.com/rohan1205/NeuraAttend/internal/detector"
	"github.com/rohan1205/NeuraAttend/internal/embedder"
	"github.com/rohan1205/NeuraAttend/internal/facematch"
	"github.com/rohan1205/NeuraAttend/internal/inference"
	"github.com/rohan1205/NeuraAttend/internal/recognition"
)

// models holds the two networks every recognition command needs.
type models struct {
	locator   *detector.Locator
	extractor *embedder.Extractor
}

// loadModels probes the inference server for the detector and embedder
// models. Any failure is fatal: recognition must not start without them.
func loadModels(ctx context.Context, cfg *config.Config) (*models, error) {
	client := inference.NewClient(cfg.Inference.URL, cfg.Inference.Timeout)
	if err := client.CheckHealth(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", inference.ErrModelLoad, err)
	}

	fmt.Printf("Loading detector model %s from %s...\n", cfg.Inference.DetectorModel, cfg.Inference.URL)
	det, err := client.Load(ctx, cfg.Inference.DetectorModel)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loading embedder model %s...\n", cfg.Inference.EmbedderModel)
	emb, err := client.Load(ctx, cfg.Inference.EmbedderModel)
	if err != nil {
		return nil, err
	}

	return &models{
		locator: detector.NewLocator(det, detector.Config{
			ConfidenceThreshold: cfg.Detector.Confidence,
			InputSize:           cfg.Detector.InputSize,
		}),
		extractor: embedder.NewExtractor(emb, embedder.Config{
			InputSize: cfg.Embedder.InputSize,
			Dimension: cfg.Embedder.Dim,
			BatchSize: cfg.Embedder.BatchSize,
		}),
	}, nil
}

// loadGallery reads the gallery from the configured source and checks its
// dimension against the embedder.
func loadGallery(ctx context.Context, cfg *config.Config) (*facematch.Gallery, error) {
	var g *facematch.Gallery
	switch cfg.Gallery.Source {
	case config.GallerySourcePostgres:
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", facematch.ErrGalleryLoad, err)
		}
		defer pool.Close()

		samples, err := postgres.NewGalleryRepository(pool).LoadSamples(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", facematch.ErrGalleryLoad, err)
		}
		g = database.BuildGallery(samples)
	default:
		var err error
		g, err = facematch.LoadGalleryFile(cfg.Gallery.Path)
		if err != nil {
			return nil, err
		}
	}

	if !g.Empty() {
		if err := g.Validate(cfg.Embedder.Dim); err != nil {
			return nil, err
		}
	}
	fmt.Printf("Gallery: %d people, %d samples\n", g.People(), g.Len())
	if g.Empty() {
		fmt.Println("Warning: gallery is empty, every face will be reported as unknown")
	}
	return g, nil
}

// buildMatcher returns an exhaustive matcher, or an HNSW-fronted one when
// configured. A persisted index is reused unless it is stale.
func buildMatcher(cfg *config.Config, g *facematch.Gallery) *facematch.Matcher {
	if cfg.Matcher.Index != config.IndexHNSW || g.Empty() {
		return facematch.NewMatcher(g, cfg.Matcher.Threshold)
	}

	icfg := facematch.IndexConfig{
		M:          cfg.Matcher.HNSWM,
		EfSearch:   cfg.Matcher.EfSearch,
		Candidates: cfg.Matcher.Candidates,
	}

	path := cfg.Matcher.IndexPath
	if path != "" {
		idx, err := facematch.LoadIndex(path, g, icfg)
		if err == nil {
			fmt.Printf("Loaded HNSW index with %d samples from %s\n", idx.Len(), path)
			return facematch.NewIndexedMatcher(g, cfg.Matcher.Threshold, idx)
		}
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Warning: rebuilding HNSW index: %v\n", err)
		}
	}

	idx := facematch.BuildIndex(g, icfg)
	fmt.Printf("Built HNSW index with %d samples\n", idx.Len())
	if path != "" {
		if err := idx.Save(path); err != nil {
			fmt.Printf("Warning: failed to save HNSW index: %v\n", err)
		}
	}
	return facematch.NewIndexedMatcher(g, cfg.Matcher.Threshold, idx)
}

// openLedger connects the configured attendance store.
func openLedger(ctx context.Context, cfg *config.Config) (*attendance.Ledger, io.Closer, error) {
	loc, err := cfg.Ledger.Location()
	if err != nil {
		return nil, nil, err
	}
	store, closer, err := database.OpenAttendanceStore(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	fmt.Printf("Attendance store: %s\n", cfg.Database.Driver)

	return attendance.NewLedger(store, attendance.Config{
		Location:        loc,
		RetryMaxElapsed: cfg.Ledger.RetryMaxTime,
		CacheMarked:     cfg.Ledger.CacheMarked,
	}), closer, nil
}

// app bundles everything a recognition command needs.
type app struct {
	cfg      *config.Config
	gallery  *facematch.Gallery
	ledger   *attendance.Ledger
	pipeline *recognition.Pipeline
	closer   io.Closer
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// newApp loads models, gallery and store, in that order, and fails fast on
// the first one that is unavailable.
func newApp(ctx context.Context, cfg *config.Config, opts recognition.Options) (*app, error) {
	m, err := loadModels(ctx, cfg)
	if err != nil {
		return nil, err
	}
	g, err := loadGallery(ctx, cfg)
	if err != nil {
		return nil, err
	}
	matcher := buildMatcher(cfg, g)
	ledger, closer, err := openLedger(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open attendance store: %w", err)
	}

	opts.Batch = cfg.Embedder.BatchSize > 1
	return &app{
		cfg:      cfg,
		gallery:  g,
		ledger:   ledger,
		pipeline: recognition.New(m.locator, m.extractor, matcher, ledger, opts),
		closer:   closer,
	}, nil
}
