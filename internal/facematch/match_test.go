package facematch

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func vec(values ...float32) Embedding {
	return Embedding(values)
}

// offset returns a copy of e with the first component shifted by d, which is
// exactly Euclidean distance d away.
func offset(e Embedding, d float32) Embedding {
	out := append(Embedding(nil), e...)
	out[0] += d
	return out
}

func randomEmbedding(r *rand.Rand, dim int) Embedding {
	e := make(Embedding, dim)
	for i := range e {
		e[i] = r.Float32()*2 - 1
	}
	return e
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expected: 0},
		{name: "3-4-5", a: []float32{0, 0}, b: []float32{3, 4}, expected: 5},
		{name: "empty", a: []float32{}, b: []float32{}, expected: 0},
		{name: "dimension mismatch", a: []float32{1}, b: []float32{1, 2}, expected: math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EuclideanDistance(tt.a, tt.b); got != tt.expected {
				t.Errorf("EuclideanDistance = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEuclideanDistance_Symmetric(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for range 50 {
		a, b := randomEmbedding(r, 512), randomEmbedding(r, 512)
		if EuclideanDistance(a, b) != EuclideanDistance(b, a) {
			t.Fatal("distance is not symmetric")
		}
	}
}

func TestMatch(t *testing.T) {
	alice := vec(0.1, 0.2, 0.3, 0.4)
	bob := vec(-0.5, 0.5, -0.5, 0.5)
	gallery := NewGallery(map[string][]Embedding{
		"alice": {alice},
		"bob":   {bob},
	})

	tests := []struct {
		name      string
		query     Embedding
		threshold float64
		expected  string
		distance  float64
	}{
		{name: "exact match", query: alice, threshold: DefaultThreshold, expected: "alice", distance: 0},
		{name: "close to bob", query: offset(bob, 0.5), threshold: DefaultThreshold, expected: "bob", distance: 0.5},
		{name: "too far from alice", query: offset(alice, 1.5), threshold: DefaultThreshold, expected: Unknown, distance: 1.5},
		{name: "at threshold is unknown", query: offset(bob, 0.5), threshold: 0.5, expected: Unknown, distance: 0.5},
		{name: "just below threshold", query: offset(bob, 0.5), threshold: 0.5000001, expected: "bob", distance: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Match(tt.query, gallery, tt.threshold)
			if result.Name != tt.expected {
				t.Errorf("Match name = %q, want %q", result.Name, tt.expected)
			}
			if math.Abs(result.Distance-tt.distance) > 1e-6 {
				t.Errorf("Match distance = %v, want %v", result.Distance, tt.distance)
			}
		})
	}
}

func TestMatch_EmptyGallery(t *testing.T) {
	for _, g := range []*Gallery{nil, NewGallery(nil), NewGallery(map[string][]Embedding{"ghost": {}})} {
		result := Match(vec(1, 2, 3), g, DefaultThreshold)
		if result.Name != Unknown || !math.IsInf(result.Distance, 1) {
			t.Errorf("expected (unknown, +Inf), got %+v", result)
		}
	}
}

func TestMatch_DimensionMismatchNeverWins(t *testing.T) {
	gallery := NewGallery(map[string][]Embedding{
		"alice": {vec(0, 0)},
		"bob":   {vec(0, 0, 0)},
	})

	result := Match(vec(0, 0, 0), gallery, DefaultThreshold)
	if result.Name != "bob" || result.Distance != 0 {
		t.Errorf("expected bob at 0, got %+v", result)
	}
}

func TestMatch_ThresholdMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	gallery := NewGallery(map[string][]Embedding{
		"alice": {randomEmbedding(r, 16), randomEmbedding(r, 16)},
		"bob":   {randomEmbedding(r, 16)},
		"carol": {randomEmbedding(r, 16)},
	})

	for range 100 {
		q := randomEmbedding(r, 16)
		low := Match(q, gallery, 1.5)
		high := Match(q, gallery, 3.0)
		if low.Known() && low != high {
			t.Fatalf("raising the threshold changed a known result: %+v -> %+v", low, high)
		}
	}
}

func TestMatch_TieBreak(t *testing.T) {
	q := vec(0, 0)
	// Both samples are exactly distance 1 away.
	gallery := NewGallery(map[string][]Embedding{
		"zed":  {vec(1, 0)},
		"anna": {vec(0, 1)},
	})

	for range 20 {
		result := Match(q, gallery, 2)
		if result.Name != "anna" {
			t.Fatalf("expected lexicographically first name on tie, got %q", result.Name)
		}
	}

	// Within one person, the earlier sample is reported; distance is the same.
	gallery = NewGallery(map[string][]Embedding{"anna": {vec(0, 1), vec(1, 0)}})
	if result := Match(q, gallery, 2); result.Name != "anna" || result.Distance != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestMatcher_Identify(t *testing.T) {
	gallery := NewGallery(map[string][]Embedding{"alice": {vec(1, 1)}})

	m := NewMatcher(gallery, 0.5)
	if got := m.Identify(vec(1, 1.4)); got.Name != "alice" {
		t.Errorf("expected alice, got %+v", got)
	}
	if got := m.Identify(vec(1, 1.6)); got.Known() {
		t.Errorf("expected unknown with threshold 0.5, got %+v", got)
	}
	if m.Threshold() != 0.5 {
		t.Errorf("Threshold() = %v", m.Threshold())
	}
}

func TestIndexedMatcher_AgreesWithScan(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	people := map[string][]Embedding{}
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin"} {
		for range 3 {
			people[name] = append(people[name], randomEmbedding(r, 32))
		}
	}
	gallery := NewGallery(people)
	idx := BuildIndex(gallery, IndexConfig{Candidates: gallery.Len()})

	if idx.Len() != 15 {
		t.Fatalf("expected 15 indexed samples, got %d", idx.Len())
	}

	indexed := NewIndexedMatcher(gallery, 2.0, idx)
	scan := NewMatcher(gallery, 2.0)
	for name, samples := range people {
		for _, s := range samples {
			q := offset(s, 0.01)
			got, want := indexed.Identify(q), scan.Identify(q)
			if got.Name != want.Name || math.Abs(got.Distance-want.Distance) > 1e-9 {
				t.Errorf("%s: indexed %+v, scan %+v", name, got, want)
			}
		}
	}
}

func TestIndex_Empty(t *testing.T) {
	idx := BuildIndex(NewGallery(nil), DefaultIndexConfig())
	if !idx.Empty() {
		t.Fatal("expected empty index")
	}

	m := NewIndexedMatcher(NewGallery(nil), DefaultThreshold, idx)
	if got := m.Identify(vec(1, 2)); got.Known() || !math.IsInf(got.Distance, 1) {
		t.Errorf("expected (unknown, +Inf), got %+v", got)
	}
}

func TestIndex_SaveLoad(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	gallery := NewGallery(map[string][]Embedding{
		"alice": {randomEmbedding(r, 8)},
		"bob":   {randomEmbedding(r, 8), randomEmbedding(r, 8)},
	})
	path := filepath.Join(t.TempDir(), "gallery.hnsw")

	if err := BuildIndex(gallery, DefaultIndexConfig()).Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadIndex(path, gallery, DefaultIndexConfig())
	if err != nil {
		t.Fatalf("LoadIndex failed: %v", err)
	}
	q := gallery.Samples("bob")[1]
	if got := loaded.Nearest(q); got.Name != "bob" || got.Distance != 0 {
		t.Errorf("loaded index returned %+v", got)
	}

	other := NewGallery(map[string][]Embedding{"alice": {randomEmbedding(r, 8)}})
	if _, err := LoadIndex(path, other, DefaultIndexConfig()); err == nil {
		t.Error("expected stale index error")
	}
}

func TestGalleryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gallery.json")

	b := NewGalleryBuilder()
	b.Add("bob", vec(1, 2))
	b.Add("alice", vec(3, 4))
	b.Add("bob", vec(5, 6))
	gallery := b.Build()

	if err := SaveGalleryFile(path, gallery); err != nil {
		t.Fatalf("SaveGalleryFile failed: %v", err)
	}

	loaded, err := LoadGalleryFile(path)
	if err != nil {
		t.Fatalf("LoadGalleryFile failed: %v", err)
	}
	if names := loaded.Names(); len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Errorf("unexpected names %v", names)
	}
	if s := loaded.Samples("bob"); len(s) != 2 || s[1][0] != 5 {
		t.Errorf("sample order not preserved: %v", s)
	}
	if loaded.Dimension() != 2 || loaded.Len() != 3 {
		t.Errorf("dimension %d, len %d", loaded.Dimension(), loaded.Len())
	}

	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "pickle"},
		{name: "dimension mismatch", content: `{"dimension":3,"people":{"alice":[[1,2]]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(bad, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadGalleryFile(bad); !errors.Is(err, ErrGalleryLoad) {
				t.Errorf("expected ErrGalleryLoad, got %v", err)
			}
		})
	}

	if _, err := LoadGalleryFile(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrGalleryLoad) {
		t.Errorf("expected ErrGalleryLoad for missing file, got %v", err)
	}
}
