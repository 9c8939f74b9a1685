// Package facematch identifies a face embedding against a gallery of enrolled
// people. Matching is nearest neighbor under Euclidean distance with a
// rejection threshold; anything at or beyond the threshold is Unknown.
package facematch

// Unknown is the label for a face that matched nobody in the gallery.
const Unknown = "unknown"

// DefaultThreshold is the Euclidean distance below which a face is accepted.
const DefaultThreshold = 0.9

// Embedding is a face descriptor produced by the embedding network.
type Embedding []float32

// Result is the outcome of matching one embedding.
type Result struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Known reports whether the result names an enrolled person.
func (r Result) Known() bool {
	return r.Name != Unknown
}

// Identifier resolves an embedding to a person.
type Identifier interface {
	Identify(q Embedding) Result
}
