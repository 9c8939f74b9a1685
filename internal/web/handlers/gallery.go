package handlers

import (
	"net/http"

	"github.com/rohan1205/NeuraAttend/internal/facematch"
)

// GalleryHandler exposes the loaded gallery
type GalleryHandler struct {
	gallery   *facematch.Gallery
	threshold float64
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(g *facematch.Gallery, threshold float64) *GalleryHandler {
	return &GalleryHandler{gallery: g, threshold: threshold}
}

// PersonResponse is one enrolled person.
type PersonResponse struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
}

// GalleryResponse summarizes the gallery.
type GalleryResponse struct {
	People    []PersonResponse `json:"people"`
	Samples   int              `json:"samples"`
	Dimension int              `json:"dimension"`
	Threshold float64          `json:"threshold"`
}

// List returns the enrolled people. Embeddings are not exposed.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := GalleryResponse{
		People:    []PersonResponse{},
		Samples:   h.gallery.Len(),
		Dimension: h.gallery.Dimension(),
		Threshold: h.threshold,
	}
	for _, name := range h.gallery.Names() {
		resp.People = append(resp.People, PersonResponse{Name: name, Samples: len(h.gallery.Samples(name))})
	}
	respondJSON(w, http.StatusOK, resp)
}
