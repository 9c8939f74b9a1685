package database

import (
	"context"
	"slices"
	"strings"

	"github.com/rohan1205/NeuraAttend/internal/facematch"
)

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// Exists reports whether name already has a record for date
	Exists(ctx context.Context, name, date string) (bool, error)
	// List returns the records of a date ordered by time, or all records if date is empty
	List(ctx context.Context, date string) ([]AttendanceRecord, error)
}

// AttendanceStore persists attendance records
type AttendanceStore interface {
	AttendanceReader

	// InsertIfAbsent stores the record unless one already exists for (Name, Date).
	// It reports whether the record was inserted. Implementations must make the
	// check and the insert a single atomic step.
	InsertIfAbsent(ctx context.Context, rec AttendanceRecord) (bool, error)
}

// GalleryReader provides read-only access to enrolled embeddings
type GalleryReader interface {
	// LoadSamples returns every sample ordered by name and sample index
	LoadSamples(ctx context.Context) ([]GallerySample, error)
	// Count returns the total number of samples stored
	Count(ctx context.Context) (int, error)
}

// GalleryWriter provides write access to enrolled embeddings
type GalleryWriter interface {
	GalleryReader

	// SaveSamples replaces all samples of a person
	SaveSamples(ctx context.Context, name string, samples []GallerySample) error
	// DeletePerson removes all samples of a person
	DeletePerson(ctx context.Context, name string) error
}

// BuildGallery groups stored samples into an immutable gallery, keeping
// enrollment order within each person.
func BuildGallery(samples []GallerySample) *facematch.Gallery {
	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b GallerySample) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return a.SampleIndex - b.SampleIndex
	})

	b := facematch.NewGalleryBuilder()
	for _, s := range sorted {
		b.Add(s.Name, s.Embedding)
	}
	return b.Build()
}

// SamplesFromGallery flattens a gallery into storable samples.
func SamplesFromGallery(g *facematch.Gallery) []GallerySample {
	var out []GallerySample
	for _, name := range g.Names() {
		for i, e := range g.Samples(name) {
			out = append(out, GallerySample{Name: name, SampleIndex: i, Embedding: e})
		}
	}
	return out
}
