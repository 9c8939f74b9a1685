package vision

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestBoundingBoxClamp(t *testing.T) {
	tests := []struct {
		name     string
		box      BoundingBox
		width    int
		height   int
		expected BoundingBox
	}{
		{
			name:     "inside frame",
			box:      BoundingBox{X: 10, Y: 20, Width: 30, Height: 40},
			width:    100,
			height:   100,
			expected: BoundingBox{X: 10, Y: 20, Width: 30, Height: 40},
		},
		{
			name:     "negative origin",
			box:      BoundingBox{X: -10, Y: -5, Width: 30, Height: 20},
			width:    100,
			height:   100,
			expected: BoundingBox{X: 0, Y: 0, Width: 20, Height: 15},
		},
		{
			name:     "overflows right and bottom",
			box:      BoundingBox{X: 90, Y: 80, Width: 30, Height: 40},
			width:    100,
			height:   100,
			expected: BoundingBox{X: 90, Y: 80, Width: 10, Height: 20},
		},
		{
			name:     "entirely outside",
			box:      BoundingBox{X: 150, Y: 10, Width: 20, Height: 20},
			width:    100,
			height:   100,
			expected: BoundingBox{X: 100, Y: 10, Width: 0, Height: 20},
		},
		{
			name:     "inverted corners",
			box:      BoundingBox{X: 50, Y: 50, Width: -20, Height: -10},
			width:    100,
			height:   100,
			expected: BoundingBox{X: 30, Y: 40, Width: 20, Height: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.box.Clamp(tt.width, tt.height)
			if got != tt.expected {
				t.Errorf("Clamp(%v) = %v, want %v", tt.box, got, tt.expected)
			}
			if !got.Within(tt.width, tt.height) {
				t.Errorf("Clamp(%v) = %v is outside %dx%d", tt.box, got, tt.width, tt.height)
			}
		})
	}
}

func TestFrameCrop(t *testing.T) {
	f := NewFrame(4, 3)
	for y := range 3 {
		for x := range 4 {
			f.SetRGB(x, y, uint8(x), uint8(y), uint8(x+y))
		}
	}

	crop, err := f.Crop(BoundingBox{X: 1, Y: 1, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if crop.Width != 2 || crop.Height != 2 {
		t.Fatalf("expected 2x2 crop, got %dx%d", crop.Width, crop.Height)
	}
	r, g, b := crop.RGB(1, 1)
	if r != 2 || g != 2 || b != 4 {
		t.Errorf("crop pixel (1,1) = (%d,%d,%d), want (2,2,4)", r, g, b)
	}

	if _, err := f.Crop(BoundingBox{X: 2, Y: 2, Width: 0, Height: 5}); err != ErrEmptyFrame {
		t.Errorf("expected ErrEmptyFrame for zero-width crop, got %v", err)
	}
}

func TestFrameValidate(t *testing.T) {
	if err := NewFrame(2, 2).Validate(); err != nil {
		t.Errorf("valid frame rejected: %v", err)
	}
	if err := NewFrame(0, 2).Validate(); err != ErrEmptyFrame {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
	gray := &Frame{Width: 2, Height: 2, Channels: 1, Pix: make([]uint8, 4)}
	if err := gray.Validate(); err == nil {
		t.Error("expected error for single-channel frame")
	}
	short := &Frame{Width: 2, Height: 2, Channels: 3, Pix: make([]uint8, 5)}
	if err := short.Validate(); err == nil {
		t.Error("expected error for truncated pixel buffer")
	}
}

func TestResize(t *testing.T) {
	f := NewFrame(10, 10)
	for i := range f.Pix {
		f.Pix[i] = 200
	}

	out := Resize(f, 3, 5)
	if out.Width != 3 || out.Height != 5 {
		t.Fatalf("expected 3x5, got %dx%d", out.Width, out.Height)
	}
	r, g, b := out.RGB(1, 2)
	if r != 200 || g != 200 || b != 200 {
		t.Errorf("uniform image changed color after resize: (%d,%d,%d)", r, g, b)
	}
}

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeDataURL(t *testing.T) {
	data := encodePNG(t, 4, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	payload := base64.StdEncoding.EncodeToString(data)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "data url", input: "data:image/png;base64," + payload},
		{name: "bare base64", input: payload},
		{name: "empty", input: "", wantErr: true},
		{name: "not base64 header", input: "data:image/png," + payload, wantErr: true},
		{name: "garbage", input: "data:image/png;base64,!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeDataURL(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.Width != 4 || f.Height != 2 {
				t.Fatalf("expected 4x2 frame, got %dx%d", f.Width, f.Height)
			}
			r, g, b := f.RGB(3, 1)
			if r != 10 || g != 20 || b != 30 {
				t.Errorf("pixel = (%d,%d,%d), want (10,20,30)", r, g, b)
			}
		})
	}
}

func TestSplitJPEG(t *testing.T) {
	jpeg1 := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	jpeg2 := []byte{0xFF, 0xD8, 0x03, 0xFF, 0xD9}

	stream := []byte{0x00, 0x00}
	stream = append(stream, jpeg1...)
	stream = append(stream, 0x42)
	stream = append(stream, jpeg2...)
	stream = append(stream, 0x00, 0x00)

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(SplitJPEG)

	var got [][]byte
	for scanner.Scan() {
		got = append(got, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[0], jpeg1) || !bytes.Equal(got[1], jpeg2) {
		t.Errorf("unexpected frames: %X", got)
	}
}
