package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrInvalidDataURL is returned for frame payloads that are not base64 images.
var ErrInvalidDataURL = errors.New("invalid image data URL")

// Decode decodes JPEG, PNG, GIF, BMP or WebP bytes into a Frame.
func Decode(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	f := FromImage(img)
	if f.Empty() {
		return nil, ErrEmptyFrame
	}
	return f, nil
}

// DecodeDataURL decodes a "data:image/...;base64,<payload>" string, as sent by
// browser canvases. A bare base64 payload without the header is accepted too.
func DecodeDataURL(s string) (*Frame, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidDataURL
	}
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, ErrInvalidDataURL
		}
		s = payload
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return Decode(raw)
}

// Resize scales the frame to width x height with bilinear interpolation.
func Resize(f *Frame, width, height int) *Frame {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), f, f.Bounds(), draw.Src, nil)
	return FromImage(dst)
}
