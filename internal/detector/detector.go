// Package detector locates faces in a frame with a pretrained SSD face detector.
package detector

import (
	"context"
	"fmt"

	"github.com/rohan1205/NeuraAttend/internal/inference"
	"github.com/rohan1205/NeuraAttend/internal/vision"
)

// Preprocessing constants of the pretrained SSD face detector.
const (
	DefaultInputSize           = 300
	DefaultConfidenceThreshold = 0.6

	meanB = 104.0
	meanG = 177.0
	meanR = 123.0

	scaleFactor = 1.0

	rowWidth      = 7
	colConfidence = 2
	colX1         = 3
	colY1         = 4
	colX2         = 5
	colY2         = 6
)

// Config controls detection.
type Config struct {
	ConfidenceThreshold float64
	InputSize           int
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		InputSize:           DefaultInputSize,
	}
}

// Detection is a face found in a frame.
type Detection struct {
	Box        vision.BoundingBox `json:"box"`
	Confidence float32            `json:"confidence"`
}

// Locator finds faces using a detector network.
type Locator struct {
	net inference.Network
	cfg Config
}

// NewLocator creates a Locator. Zero config fields fall back to defaults.
func NewLocator(net inference.Network, cfg Config) *Locator {
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultInputSize
	}
	return &Locator{net: net, cfg: cfg}
}

// Threshold returns the confidence threshold in use.
func (l *Locator) Threshold() float64 {
	return l.cfg.ConfidenceThreshold
}

// Locate returns the faces whose confidence is strictly above the threshold,
// in network output order. Boxes are clamped to the frame; a box may end up
// with zero width or height. No faces is a normal result.
func (l *Locator) Locate(ctx context.Context, frame *vision.Frame) ([]Detection, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}

	input := Preprocess(frame, l.cfg.InputSize)
	out, err := l.net.Forward(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("detector forward: %w", err)
	}

	return parseDetections(out, frame.Width, frame.Height, l.cfg.ConfidenceThreshold)
}

// Largest returns the detection with the biggest clamped box, or false if
// there is none with a positive area.
func Largest(detections []Detection) (Detection, bool) {
	var best Detection
	found := false
	for _, d := range detections {
		if d.Box.Empty() {
			continue
		}
		if !found || d.Box.Area() > best.Box.Area() {
			best = d
			found = true
		}
	}
	return best, found
}

// Preprocess resizes the frame to size x size and builds a [1,3,size,size]
// BGR tensor with the model means subtracted.
func Preprocess(frame *vision.Frame, size int) inference.Tensor {
	resized := vision.Resize(frame, size, size)
	t := inference.NewTensor(1, 3, size, size)

	plane := size * size
	for y := range size {
		for x := range size {
			r, g, b := resized.RGB(x, y)
			i := y*size + x
			t.Data[i] = (float32(b) - meanB) * scaleFactor
			t.Data[plane+i] = (float32(g) - meanG) * scaleFactor
			t.Data[2*plane+i] = (float32(r) - meanR) * scaleFactor
		}
	}
	return t
}

func parseDetections(out inference.Tensor, width, height int, threshold float64) ([]Detection, error) {
	if len(out.Shape) != 4 || out.Shape[3] != rowWidth {
		return nil, fmt.Errorf("unexpected detector output shape %v", out.Shape)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("detector output: %w", err)
	}

	rows := out.Shape[0] * out.Shape[1] * out.Shape[2]
	detections := make([]Detection, 0)
	for i := range rows {
		row := out.Data[i*rowWidth : (i+1)*rowWidth]
		conf := row[colConfidence]
		if conf <= float32(threshold) {
			continue
		}

		x1 := int(float64(row[colX1]) * float64(width))
		y1 := int(float64(row[colY1]) * float64(height))
		x2 := int(float64(row[colX2]) * float64(width))
		y2 := int(float64(row[colY2]) * float64(height))

		box := vision.BoxFromCorners(x1, y1, x2, y2).Clamp(width, height)
		detections = append(detections, Detection{Box: box, Confidence: conf})
	}
	return detections, nil
}
