package facematch

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/coder/hnsw"
)

// HNSW parameters for 512-dim face embeddings.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWCandidates is how many nearest samples are re-scored exactly.
	HNSWCandidates = 10
)

// IndexConfig tunes the HNSW graph.
type IndexConfig struct {
	M          int
	EfSearch   int
	Candidates int
}

// DefaultIndexConfig returns the default HNSW parameters.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{M: HNSWMaxNeighbors, EfSearch: HNSWEfSearch, Candidates: HNSWCandidates}
}

// IndexMetadata is stored next to an exported graph to detect stale indexes.
type IndexMetadata struct {
	People    int       `json:"people"`
	Samples   int       `json:"samples"`
	Dimension int       `json:"dimension"`
	BuildTime time.Time `json:"build_time"`
}

// sampleRef locates a graph node in the gallery. Node keys are positions in
// (sorted name, enrollment order) sequence, so ordering keys reproduces the
// exhaustive scan order.
type sampleRef struct {
	name   string
	sample int
}

// Index is an approximate nearest neighbor index over gallery samples.
// Like the gallery it is read-only after Build.
type Index struct {
	graph *hnsw.Graph[int]
	refs  []sampleRef
	g     *Gallery
	cfg   IndexConfig
}

// BuildIndex builds an HNSW graph over every sample of the gallery.
func BuildIndex(g *Gallery, cfg IndexConfig) *Index {
	cfg = withIndexDefaults(cfg)
	idx := &Index{g: g, cfg: cfg, graph: newGraph(cfg)}

	for _, name := range g.Names() {
		for i, sample := range g.Samples(name) {
			key := len(idx.refs)
			idx.refs = append(idx.refs, sampleRef{name: name, sample: i})
			if len(sample) != g.Dimension() {
				continue // never nearest; the graph needs uniform vectors
			}
			idx.graph.Add(hnsw.MakeNode(key, []float32(sample)))
		}
	}
	return idx
}

func newGraph(cfg IndexConfig) *hnsw.Graph[int] {
	graph := hnsw.NewGraph[int]()
	graph.M = cfg.M
	graph.Ml = 1.0 / float64(cfg.M)
	graph.EfSearch = cfg.EfSearch
	graph.Distance = hnsw.EuclideanDistance
	return graph
}

func withIndexDefaults(cfg IndexConfig) IndexConfig {
	def := DefaultIndexConfig()
	if cfg.M <= 0 {
		cfg.M = def.M
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = def.EfSearch
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = def.Candidates
	}
	return cfg
}

// Empty reports whether the graph has no nodes.
func (idx *Index) Empty() bool {
	return idx == nil || idx.graph == nil || idx.graph.Len() == 0
}

// Len returns the number of indexed samples.
func (idx *Index) Len() int {
	if idx.Empty() {
		return 0
	}
	return idx.graph.Len()
}

// Nearest returns the closest sample among the HNSW candidates, re-scored
// with exact distance. Candidates are compared in exhaustive scan order so
// ties resolve the same way as Match.
func (idx *Index) Nearest(q Embedding) Result {
	best := Result{Name: Unknown, Distance: math.Inf(1)}
	if idx.Empty() || len(q) != idx.g.Dimension() {
		return best
	}

	k := min(idx.cfg.Candidates, idx.graph.Len())
	neighbors := idx.graph.Search([]float32(q), k)

	keys := make([]int, 0, len(neighbors))
	for _, n := range neighbors {
		keys = append(keys, n.Key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		ref := idx.refs[key]
		sample := idx.g.Samples(ref.name)[ref.sample]
		if d := EuclideanDistance(q, sample); d < best.Distance {
			best = Result{Name: ref.name, Distance: d}
		}
	}
	return best
}

// Metadata describes the indexed gallery.
func (idx *Index) Metadata() IndexMetadata {
	return IndexMetadata{
		People:    idx.g.People(),
		Samples:   idx.g.Len(),
		Dimension: idx.g.Dimension(),
		BuildTime: time.Now(),
	}
}

// Save exports the graph to path and its metadata to path+".meta".
func (idx *Index) Save(path string) error {
	if idx.Empty() {
		// Best-effort cleanup of a previous export.
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		return nil
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	defer f.Close()

	if err := idx.graph.Export(f); err != nil {
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}

	meta, err := json.Marshal(idx.Metadata())
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", meta, 0o600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// LoadIndex imports a graph exported by Save. It is rejected as stale if its
// metadata does not describe g, in which case callers should rebuild.
func LoadIndex(path string, g *Gallery, cfg IndexConfig) (*Index, error) {
	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	var meta IndexMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	if meta.People != g.People() || meta.Samples != g.Len() || meta.Dimension != g.Dimension() {
		return nil, fmt.Errorf("HNSW index %s is stale: %d people / %d samples, gallery has %d / %d",
			path, meta.People, meta.Samples, g.People(), g.Len())
	}

	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to open HNSW index: %w", err)
	}
	defer f.Close()

	cfg = withIndexDefaults(cfg)
	graph := newGraph(cfg)
	if err := graph.Import(f); err != nil {
		return nil, fmt.Errorf("failed to import HNSW index: %w", err)
	}
	graph.EfSearch = cfg.EfSearch

	idx := &Index{graph: graph, g: g, cfg: cfg}
	for _, name := range g.Names() {
		for i := range g.Samples(name) {
			idx.refs = append(idx.refs, sampleRef{name: name, sample: i})
		}
	}
	return idx, nil
}
