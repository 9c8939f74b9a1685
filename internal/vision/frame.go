// Package vision holds the raster types shared by the recognition pipeline:
// frames, bounding boxes, crops, decoding and resizing.
package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Channels is the number of 8-bit color channels in a Frame.
const Channels = 3

// ErrEmptyFrame is returned when a frame or crop has no pixels.
var ErrEmptyFrame = errors.New("frame has zero area")

// Frame is a decoded raster image with interleaved 8-bit RGB pixels in row-major order.
// It implements image.Image so it can be fed to the x/image scalers directly.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewFrame allocates a black RGB frame of the given size.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		Width:    width,
		Height:   height,
		Channels: Channels,
		Pix:      make([]uint8, width*height*Channels),
	}
}

// FromImage converts any image.Image into an RGB Frame. Alpha is discarded.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())

	if rgba, ok := img.(*image.RGBA); ok {
		for y := range f.Height {
			src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := f.Pix[y*f.Width*Channels:]
			for x := range f.Width {
				dst[x*3] = src[x*4]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+2]
			}
		}
		return f
	}

	for y := range f.Height {
		for x := range f.Width {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*f.Width + x) * Channels
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(bl >> 8)
		}
	}
	return f
}

// Empty reports whether the frame has zero area.
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0
}

// Validate checks that the frame is a non-empty 3-channel raster whose buffer
// matches its dimensions.
func (f *Frame) Validate() error {
	if f.Empty() {
		return ErrEmptyFrame
	}
	if f.Channels != Channels {
		return fmt.Errorf("expected %d channels, got %d", Channels, f.Channels)
	}
	if want := f.Width * f.Height * Channels; len(f.Pix) != want {
		return fmt.Errorf("pixel buffer has %d bytes, want %d for %dx%d", len(f.Pix), want, f.Width, f.Height)
	}
	return nil
}

// RGB returns the color at (x, y). Coordinates must be inside the frame.
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the color at (x, y).
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	r, g, b := f.RGB(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Crop copies the region under box into a new frame. The box is clamped to
// the frame first; a box with no overlap yields ErrEmptyFrame.
func (f *Frame) Crop(box BoundingBox) (*Frame, error) {
	box = box.Clamp(f.Width, f.Height)
	if box.Empty() {
		return nil, ErrEmptyFrame
	}

	out := NewFrame(box.Width, box.Height)
	rowBytes := box.Width * Channels
	for y := range box.Height {
		src := ((box.Y+y)*f.Width + box.X) * Channels
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], f.Pix[src:src+rowBytes])
	}
	return out, nil
}
