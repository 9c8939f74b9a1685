// Package enroll builds an identity gallery from a directory of labelled
// face photos laid out as <dir>/<person>/<image>.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rohan1205/NeuraAttend/internal/database"
	"github.com/rohan1205/NeuraAttend/internal/detector"
	"github.com/rohan1205/NeuraAttend/internal/facematch"
	"github.com/rohan1205/NeuraAttend/internal/recognition"
	"github.com/rohan1205/NeuraAttend/internal/vision"
)

// ErrNoFace is recorded for images in which no usable face was found.
var ErrNoFace = errors.New("no face found")

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// Image is one enrollment photo.
type Image struct {
	Person string // normalized name
	Path   string
}

// ListImages walks dir and returns its images grouped by person directory.
// Person names are normalized; files directly under dir are ignored.
// The result is sorted by person and then path.
func ListImages(dir string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enrollment directory: %w", err)
	}

	var images []Image
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		person := facematch.NormalizePersonName(entry.Name())
		if person == "" {
			continue
		}

		personDir := filepath.Join(dir, entry.Name())
		files, err := os.ReadDir(personDir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", personDir, err)
		}
		for _, f := range files {
			if f.IsDir() || !isImage(f.Name()) {
				continue
			}
			images = append(images, Image{Person: person, Path: filepath.Join(personDir, f.Name())})
		}
	}

	slices.SortFunc(images, func(a, b Image) int {
		if c := strings.Compare(a.Person, b.Person); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return images, nil
}

func isImage(name string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(name)))
}

// ProgressInfo is reported after each image.
type ProgressInfo struct {
	Current int
	Total   int
	Person  string
	Path    string
	Err     error
}

// Options tune enrollment.
type Options struct {
	Concurrency int                // parallel images, defaults to 4
	OnProgress  func(ProgressInfo) // optional, called from worker goroutines
}

// Skipped is an image that produced no sample.
type Skipped struct {
	Image Image
	Err   error
}

// Result is the outcome of an enrollment run.
type Result struct {
	Samples []database.GallerySample
	Skipped []Skipped
}

// Gallery builds the gallery of the enrolled samples.
func (r *Result) Gallery() *facematch.Gallery {
	return database.BuildGallery(r.Samples)
}

// Enroller computes one embedding per enrollment image.
type Enroller struct {
	locator   recognition.Locator
	extractor recognition.Extractor
}

// New creates an enroller.
func New(locator recognition.Locator, extractor recognition.Extractor) *Enroller {
	return &Enroller{locator: locator, extractor: extractor}
}

// Enroll processes images and returns their samples in input order. Each
// image contributes the embedding of its largest detected face, so gallery
// samples are face crops like recognition queries. Images that cannot be
// decoded or contain no face are skipped and listed in the result.
func (e *Enroller) Enroll(ctx context.Context, images []Image, opts Options) (*Result, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	samples := make([]facematch.Embedding, len(images))
	errs := make([]error, len(images))

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	sem := make(chan struct{}, concurrency)

	for i, img := range images {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			samples[i], errs[i] = e.embedImage(ctx, img.Path)

			if opts.OnProgress != nil {
				mu.Lock()
				done++
				info := ProgressInfo{Current: done, Total: len(images), Person: img.Person, Path: img.Path, Err: errs[i]}
				mu.Unlock()
				opts.OnProgress(info)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	next := make(map[string]int)
	now := time.Now().UTC()
	for i, img := range images {
		if errs[i] != nil {
			result.Skipped = append(result.Skipped, Skipped{Image: img, Err: errs[i]})
			continue
		}
		result.Samples = append(result.Samples, database.GallerySample{
			Name:        img.Person,
			SampleIndex: next[img.Person],
			Embedding:   samples[i],
			Source:      img.Path,
			CreatedAt:   now,
		})
		next[img.Person]++
	}
	return result, nil
}

func (e *Enroller) embedImage(ctx context.Context, path string) (facematch.Embedding, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the enrollment directory listing
	if err != nil {
		return nil, err
	}
	frame, err := vision.Decode(data)
	if err != nil {
		return nil, err
	}

	detections, err := e.locator.Locate(ctx, frame)
	if err != nil {
		return nil, err
	}
	face, ok := detector.Largest(detections)
	if !ok {
		return nil, ErrNoFace
	}
	crop, err := frame.Crop(face.Box)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", recognition.ErrInvalidCrop, err)
	}
	return e.extractor.Embed(ctx, crop)
}

// Save writes the samples to the store, replacing each enrolled person's
// previous samples. People not in the result are left untouched.
func Save(ctx context.Context, w database.GalleryWriter, samples []database.GallerySample) error {
	byPerson := make(map[string][]database.GallerySample)
	var order []string
	for _, s := range samples {
		if _, ok := byPerson[s.Name]; !ok {
			order = append(order, s.Name)
		}
		byPerson[s.Name] = append(byPerson[s.Name], s)
	}

	for _, name := range order {
		if err := w.SaveSamples(ctx, name, byPerson[name]); err != nil {
			return fmt.Errorf("saving samples of %s: %w", name, err)
		}
	}
	return nil
}
