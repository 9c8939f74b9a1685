// Package recognition runs detected faces through embedding, matching and
// attendance marking for one frame at a time.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rohan1205/NeuraAttend/internal/detector"
	"github.com/rohan1205/NeuraAttend/internal/embedder"
	"github.com/rohan1205/NeuraAttend/internal/facematch"
	"github.com/rohan1205/NeuraAttend/internal/vision"
)

// ErrInvalidCrop marks a detected face whose crop could not be embedded.
// The face is skipped and the rest of the frame is processed.
var ErrInvalidCrop = errors.New("invalid face crop")

// Locator finds faces in a frame.
type Locator interface {
	Locate(ctx context.Context, frame *vision.Frame) ([]detector.Detection, error)
}

// Extractor turns face crops into embeddings.
type Extractor interface {
	Embed(ctx context.Context, crop *vision.Frame) (facematch.Embedding, error)
	EmbedBatch(ctx context.Context, crops []*vision.Frame) ([]facematch.Embedding, error)
}

// Marker records attendance for a recognized person.
type Marker interface {
	MarkAt(ctx context.Context, name string, t time.Time) (bool, error)
}

// Options tune the pipeline.
type Options struct {
	Batch  bool // embed all crops of a frame in one call
	DryRun bool // identify faces without marking attendance
}

// FaceResult is the outcome for one face, in Locator order.
type FaceResult struct {
	Box        vision.BoundingBox
	Confidence float32
	Label      string
	Distance   float64
	Recorded   bool
	// Err is set when the attendance mark failed. The label is still valid.
	Err error
}

// FrameResult collects the faces of one frame.
type FrameResult struct {
	Faces []FaceResult
	// Skipped holds one error per detected face that could not be processed.
	Skipped []error
}

// Recorded returns the labels whose attendance was newly recorded.
func (r *FrameResult) Recorded() []string {
	var names []string
	for _, f := range r.Faces {
		if f.Recorded {
			names = append(names, f.Label)
		}
	}
	return names
}

// Pipeline wires the four stages together.
type Pipeline struct {
	locator    Locator
	extractor  Extractor
	identifier facematch.Identifier
	marker     Marker
	opts       Options
}

// New creates a pipeline. marker may be nil, which behaves like DryRun.
func New(locator Locator, extractor Extractor, identifier facematch.Identifier, marker Marker, opts Options) *Pipeline {
	return &Pipeline{
		locator:    locator,
		extractor:  extractor,
		identifier: identifier,
		marker:     marker,
		opts:       opts,
	}
}

type faceCrop struct {
	det  detector.Detection
	crop *vision.Frame
}

// ProcessFrame locates, embeds, identifies and marks every face in frame.
// at is the capture time used for the attendance date. Only a locator failure
// or a cancelled context fails the whole frame; every other problem is
// confined to the face it happened on.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame *vision.Frame, at time.Time) (*FrameResult, error) {
	detections, err := p.locator.Locate(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("locating faces: %w", err)
	}

	result := &FrameResult{}
	crops := make([]faceCrop, 0, len(detections))
	for _, det := range detections {
		if det.Box.Empty() {
			continue
		}
		crop, err := frame.Crop(det.Box)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Errorf("%w at %+v: %w", ErrInvalidCrop, det.Box, err))
			continue
		}
		crops = append(crops, faceCrop{det: det, crop: crop})
	}
	if len(crops) == 0 {
		return result, nil
	}

	embeddings, skipped := p.embed(ctx, crops)
	result.Skipped = append(result.Skipped, skipped...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, fc := range crops {
		emb := embeddings[i]
		if emb == nil {
			continue
		}
		match := p.identifier.Identify(emb)
		face := FaceResult{
			Box:        fc.det.Box,
			Confidence: fc.det.Confidence,
			Label:      match.Name,
			Distance:   match.Distance,
		}
		if match.Known() && !p.opts.DryRun && p.marker != nil {
			face.Recorded, face.Err = p.marker.MarkAt(ctx, match.Name, at)
			if face.Err != nil {
				log.Printf("recognition: marking %s failed: %v", match.Name, face.Err)
			}
		}
		result.Faces = append(result.Faces, face)
	}
	return result, nil
}

// embed returns one embedding per crop, nil where the crop failed, along
// with the per-crop errors.
func (p *Pipeline) embed(ctx context.Context, crops []faceCrop) ([]facematch.Embedding, []error) {
	if p.opts.Batch && len(crops) > 1 {
		frames := make([]*vision.Frame, len(crops))
		for i, fc := range crops {
			frames[i] = fc.crop
		}
		embeddings, err := p.extractor.EmbedBatch(ctx, frames)
		if err == nil && len(embeddings) != len(crops) {
			err = fmt.Errorf("got %d embeddings for %d crops", len(embeddings), len(crops))
		}
		if err == nil {
			return embeddings, nil
		}
		// Retry one by one so a single bad crop does not cost the whole frame.
		log.Printf("recognition: batch embedding failed, falling back to single crops: %v", err)
	}

	embeddings := make([]facematch.Embedding, len(crops))
	var errs []error
	for i, fc := range crops {
		if ctx.Err() != nil {
			break
		}
		emb, err := p.extractor.Embed(ctx, fc.crop)
		if err != nil {
			if errors.Is(err, embedder.ErrInvalidInput) {
				err = fmt.Errorf("%w: %w", ErrInvalidCrop, err)
			}
			errs = append(errs, fmt.Errorf("face at %+v: %w", fc.det.Box, err))
			continue
		}
		embeddings[i] = emb
	}
	return embeddings, errs
}
