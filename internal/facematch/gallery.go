package facematch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ErrGalleryLoad is returned when the gallery cannot be read or is malformed.
var ErrGalleryLoad = errors.New("gallery load failure")

// Gallery maps enrolled person names to their sample embeddings.
// A Gallery is immutable once built and safe for concurrent readers.
type Gallery struct {
	names     []string // sorted
	samples   map[string][]Embedding
	dimension int
}

// NewGallery builds a gallery from a name -> samples map. Samples keep their
// order. People without samples are dropped.
func NewGallery(people map[string][]Embedding) *Gallery {
	g := &Gallery{samples: make(map[string][]Embedding, len(people))}
	for name, samples := range people {
		if len(samples) == 0 {
			continue
		}
		copied := make([]Embedding, len(samples))
		for i, s := range samples {
			copied[i] = slices.Clone(s)
		}
		g.samples[name] = copied
		g.names = append(g.names, name)
	}
	slices.Sort(g.names)
	if len(g.names) > 0 {
		g.dimension = len(g.samples[g.names[0]][0])
	}
	return g
}

// Names returns the enrolled names in ascending order.
func (g *Gallery) Names() []string {
	if g == nil {
		return nil
	}
	return slices.Clone(g.names)
}

// Samples returns the samples of a person in enrollment order.
// The returned slice must not be modified.
func (g *Gallery) Samples(name string) []Embedding {
	if g == nil {
		return nil
	}
	return g.samples[name]
}

// People returns the number of enrolled people.
func (g *Gallery) People() int {
	if g == nil {
		return 0
	}
	return len(g.names)
}

// Len returns the total number of samples.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, s := range g.samples {
		n += len(s)
	}
	return n
}

// Empty reports whether the gallery has no samples.
func (g *Gallery) Empty() bool {
	return g.Len() == 0
}

// Dimension returns the embedding length of the first sample, or 0 if empty.
func (g *Gallery) Dimension() int {
	if g == nil {
		return 0
	}
	return g.dimension
}

// Validate checks that every sample has the given dimension.
func (g *Gallery) Validate(dimension int) error {
	for _, name := range g.Names() {
		for i, s := range g.samples[name] {
			if len(s) != dimension {
				return fmt.Errorf("%w: %s sample %d has dimension %d, want %d", ErrGalleryLoad, name, i, len(s), dimension)
			}
		}
	}
	return nil
}

// GalleryBuilder accumulates samples before the gallery is frozen.
type GalleryBuilder struct {
	people map[string][]Embedding
}

// NewGalleryBuilder creates an empty builder.
func NewGalleryBuilder() *GalleryBuilder {
	return &GalleryBuilder{people: make(map[string][]Embedding)}
}

// Add appends a sample for name.
func (b *GalleryBuilder) Add(name string, e Embedding) {
	b.people[name] = append(b.people[name], e)
}

// Build returns the immutable gallery.
func (b *GalleryBuilder) Build() *Gallery {
	return NewGallery(b.people)
}

// galleryFile is the on-disk JSON layout.
type galleryFile struct {
	Dimension int                    `json:"dimension"`
	People    map[string][]Embedding `json:"people"`
}

// LoadGalleryFile reads a gallery written by SaveGalleryFile.
func LoadGalleryFile(path string) (*Gallery, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGalleryLoad, err)
	}

	var file galleryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrGalleryLoad, path, err)
	}

	g := NewGallery(file.People)
	if file.Dimension > 0 {
		if err := g.Validate(file.Dimension); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// SaveGalleryFile writes the gallery as JSON, replacing the file atomically.
func SaveGalleryFile(path string, g *Gallery) error {
	file := galleryFile{Dimension: g.Dimension(), People: make(map[string][]Embedding, g.People())}
	for _, name := range g.Names() {
		file.People[name] = g.Samples(name)
	}

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal gallery: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create gallery directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write gallery file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace gallery file: %w", err)
	}
	return nil
}
