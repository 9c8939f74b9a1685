package facematch

import "math"

// Match finds the enrolled sample closest to q. If the minimum distance is
// strictly below threshold the owner's name is returned, otherwise Unknown
// with that distance. An empty gallery yields (Unknown, +Inf).
//
// Names are visited in ascending order and samples in enrollment order; on
// equal distance the first visited sample wins.
func Match(q Embedding, g *Gallery, threshold float64) Result {
	best := Result{Name: Unknown, Distance: math.Inf(1)}
	for _, name := range g.Names() {
		for _, sample := range g.Samples(name) {
			if d := EuclideanDistance(q, sample); d < best.Distance {
				best = Result{Name: name, Distance: d}
			}
		}
	}
	return accept(best, threshold)
}

func accept(best Result, threshold float64) Result {
	if best.Distance < threshold {
		return best
	}
	return Result{Name: Unknown, Distance: best.Distance}
}

// Matcher binds a gallery and a threshold. It is safe for concurrent use.
type Matcher struct {
	gallery   *Gallery
	threshold float64
	index     *Index
}

// NewMatcher creates an exhaustive-scan matcher.
func NewMatcher(g *Gallery, threshold float64) *Matcher {
	return &Matcher{gallery: g, threshold: threshold}
}

// NewIndexedMatcher creates a matcher that takes candidates from an HNSW
// index and re-scores them exactly.
func NewIndexedMatcher(g *Gallery, threshold float64, idx *Index) *Matcher {
	return &Matcher{gallery: g, threshold: threshold, index: idx}
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Gallery returns the gallery being matched against.
func (m *Matcher) Gallery() *Gallery {
	return m.gallery
}

// Identify matches q against the gallery.
func (m *Matcher) Identify(q Embedding) Result {
	if m.index == nil || m.index.Empty() {
		return Match(q, m.gallery, m.threshold)
	}
	return accept(m.index.Nearest(q), m.threshold)
}
