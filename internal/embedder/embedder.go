// Package embedder maps face crops to fixed-length embedding vectors using a
// pretrained FaceNet-style network.
package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/rohan1205/NeuraAttend/internal/facematch"
	"github.com/rohan1205/NeuraAttend/internal/inference"
	"github.com/rohan1205/NeuraAttend/internal/vision"
)

const (
	DefaultInputSize = 160
	DefaultDimension = 512
	DefaultBatchSize = 16

	pixelScale = 255.0
)

// ErrInvalidInput is returned for crops the network cannot embed: zero area,
// wrong channel count, or a pixel buffer that does not match the dimensions.
var ErrInvalidInput = errors.New("invalid face crop")

// Config controls embedding extraction.
type Config struct {
	InputSize int
	Dimension int
	// BatchSize caps how many crops go into one forward call.
	BatchSize int
}

// DefaultConfig returns the embedder defaults.
func DefaultConfig() Config {
	return Config{
		InputSize: DefaultInputSize,
		Dimension: DefaultDimension,
		BatchSize: DefaultBatchSize,
	}
}

// Extractor computes embeddings for face crops.
type Extractor struct {
	net inference.Network
	cfg Config
}

// NewExtractor creates an Extractor. Zero config fields fall back to defaults.
func NewExtractor(net inference.Network, cfg Config) *Extractor {
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultInputSize
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Extractor{net: net, cfg: cfg}
}

// Dimension returns the embedding length the extractor produces.
func (e *Extractor) Dimension() int {
	return e.cfg.Dimension
}

// Embed computes the embedding of a single crop.
func (e *Extractor) Embed(ctx context.Context, crop *vision.Frame) (facematch.Embedding, error) {
	if err := validateCrop(crop); err != nil {
		return nil, err
	}

	input := inference.NewTensor(1, 3, e.cfg.InputSize, e.cfg.InputSize)
	fillInput(input.Data, crop, e.cfg.InputSize)

	out, err := e.net.Forward(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("embedder forward: %w", err)
	}
	embeddings, err := e.split(out, 1)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch computes embeddings for several crops, one forward call per
// BatchSize crops. The result is in input order. Any invalid crop fails the
// whole batch with ErrInvalidInput before inference runs.
func (e *Extractor) EmbedBatch(ctx context.Context, crops []*vision.Frame) ([]facematch.Embedding, error) {
	for i, crop := range crops {
		if err := validateCrop(crop); err != nil {
			return nil, fmt.Errorf("crop %d: %w", i, err)
		}
	}

	result := make([]facematch.Embedding, 0, len(crops))
	for start := 0; start < len(crops); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(crops))
		chunk := crops[start:end]

		size := e.cfg.InputSize
		input := inference.NewTensor(len(chunk), 3, size, size)
		per := 3 * size * size
		for i, crop := range chunk {
			fillInput(input.Data[i*per:(i+1)*per], crop, size)
		}

		out, err := e.net.Forward(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("embedder forward: %w", err)
		}
		embeddings, err := e.split(out, len(chunk))
		if err != nil {
			return nil, err
		}
		result = append(result, embeddings...)
	}
	return result, nil
}

func (e *Extractor) split(out inference.Tensor, n int) ([]facematch.Embedding, error) {
	if len(out.Data) != n*e.cfg.Dimension {
		return nil, fmt.Errorf("embedder output has %d values, want %d x %d", len(out.Data), n, e.cfg.Dimension)
	}
	embeddings := make([]facematch.Embedding, n)
	for i := range n {
		emb := make(facematch.Embedding, e.cfg.Dimension)
		copy(emb, out.Data[i*e.cfg.Dimension:(i+1)*e.cfg.Dimension])
		embeddings[i] = emb
	}
	return embeddings, nil
}

func validateCrop(crop *vision.Frame) error {
	if crop == nil {
		return fmt.Errorf("%w: nil crop", ErrInvalidInput)
	}
	if err := crop.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// fillInput writes the crop, resized to size x size, as an RGB channel-first
// block scaled to [0,1].
func fillInput(dst []float32, crop *vision.Frame, size int) {
	resized := vision.Resize(crop, size, size)
	plane := size * size
	for y := range size {
		for x := range size {
			r, g, b := resized.RGB(x, y)
			i := y*size + x
			dst[i] = float32(r) / pixelScale
			dst[plane+i] = float32(g) / pixelScale
			dst[2*plane+i] = float32(b) / pixelScale
		}
	}
}
