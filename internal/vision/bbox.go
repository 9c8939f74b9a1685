package vision

// BoundingBox is an integer rectangle (X, Y, Width, Height) in frame pixel space.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoxFromCorners builds a box from corner coordinates [x1, y1, x2, y2].
func BoxFromCorners(x1, y1, x2, y2 int) BoundingBox {
	return BoundingBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Corners returns the box as [x1, y1, x2, y2].
func (b BoundingBox) Corners() (x1, y1, x2, y2 int) {
	return b.X, b.Y, b.X + b.Width, b.Y + b.Height
}

// Area returns Width*Height, or 0 for degenerate boxes.
func (b BoundingBox) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Empty reports whether the box covers no pixels.
func (b BoundingBox) Empty() bool {
	return b.Area() == 0
}

// Clamp restricts the box to the (0,0)-(width,height) rectangle.
// Boxes entirely outside the frame collapse to zero size at the nearest edge.
func (b BoundingBox) Clamp(width, height int) BoundingBox {
	x1, y1, x2, y2 := b.Corners()
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	x1 = clampInt(x1, 0, width)
	x2 = clampInt(x2, 0, width)
	y1 = clampInt(y1, 0, height)
	y2 = clampInt(y2, 0, height)
	return BoxFromCorners(x1, y1, x2, y2)
}

// Within reports whether the box lies inside a width x height frame.
func (b BoundingBox) Within(width, height int) bool {
	x1, y1, x2, y2 := b.Corners()
	return x1 >= 0 && y1 >= 0 && b.Width >= 0 && b.Height >= 0 && x2 <= width && y2 <= height
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
