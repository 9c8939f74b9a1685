package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/rohan1205/NeuraAttend/internal/database"
)

// GalleryRepository provides PostgreSQL storage for enrolled embeddings
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new PostgreSQL gallery repository
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// LoadSamples returns every sample ordered by name and sample index
func (r *GalleryRepository) LoadSamples(ctx context.Context) ([]database.GallerySample, error) {
	query := `
		SELECT id, name, sample_index, embedding, source, created_at
		FROM gallery_embeddings
		ORDER BY name, sample_index
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	defer rows.Close()

	var samples []database.GallerySample
	for rows.Next() {
		var s database.GallerySample
		var vec pgvector.Vector
		if err := rows.Scan(&s.ID, &s.Name, &s.SampleIndex, &vec, &s.Source, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gallery sample: %w", err)
		}
		s.Embedding = vec.Slice()
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery: %w", err)
	}
	return samples, nil
}

// Count returns the total number of samples
func (r *GalleryRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM gallery_embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count gallery: %w", err)
	}
	return count, nil
}

// SaveSamples replaces all samples of a person in one transaction
func (r *GalleryRepository) SaveSamples(ctx context.Context, name string, samples []database.GallerySample) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM gallery_embeddings WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete old samples for %s: %w", name, err)
	}

	query := `
		INSERT INTO gallery_embeddings (id, name, sample_index, embedding, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	now := time.Now().UTC()
	for i, s := range samples {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		vec := pgvector.NewVector(s.Embedding)
		if _, err := tx.ExecContext(ctx, query, id, name, i, vec, s.Source, now); err != nil {
			return fmt.Errorf("insert sample %d for %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gallery for %s: %w", name, err)
	}
	return nil
}

// DeletePerson removes all samples of a person
func (r *GalleryRepository) DeletePerson(ctx context.Context, name string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM gallery_embeddings WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete person %s: %w", name, err)
	}
	return nil
}

// Nearest returns the samples closest to embedding by L2 distance, using the
// pgvector <-> operator. Used for ad hoc lookups; recognition matches in memory.
func (r *GalleryRepository) Nearest(ctx context.Context, embedding []float32, limit int) ([]database.GallerySample, []float64, error) {
	query := `
		SELECT id, name, sample_index, embedding, source, created_at, embedding <-> $1 AS distance
		FROM gallery_embeddings
		ORDER BY embedding <-> $1, name, sample_index
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest samples: %w", err)
	}
	defer rows.Close()

	var samples []database.GallerySample
	var distances []float64
	for rows.Next() {
		var s database.GallerySample
		var vec pgvector.Vector
		var dist float64
		if err := rows.Scan(&s.ID, &s.Name, &s.SampleIndex, &vec, &s.Source, &s.CreatedAt, &dist); err != nil {
			return nil, nil, fmt.Errorf("scan nearest sample: %w", err)
		}
		s.Embedding = vec.Slice()
		samples = append(samples, s)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate nearest samples: %w", err)
	}
	return samples, distances, nil
}
