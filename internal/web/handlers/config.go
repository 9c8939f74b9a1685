package handlers

import (
	"net/http"

	"github.com/rohan1205/NeuraAttend/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse is the recognition configuration visible to clients.
// Connection strings are never included.
type ConfigResponse struct {
	DetectorModel      string  `json:"detector_model"`
	EmbedderModel      string  `json:"embedder_model"`
	DetectorConfidence float64 `json:"detector_confidence"`
	EmbeddingDimension int     `json:"embedding_dimension"`
	MatchThreshold     float64 `json:"match_threshold"`
	MatchIndex         string  `json:"match_index"`
	GallerySource      string  `json:"gallery_source"`
	AttendanceStore    string  `json:"attendance_store"`
	AttendanceTimezone string  `json:"attendance_timezone"`
}

// Get returns the active recognition configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		DetectorModel:      h.config.Inference.DetectorModel,
		EmbedderModel:      h.config.Inference.EmbedderModel,
		DetectorConfidence: h.config.Detector.Confidence,
		EmbeddingDimension: h.config.Embedder.Dim,
		MatchThreshold:     h.config.Matcher.Threshold,
		MatchIndex:         h.config.Matcher.Index,
		GallerySource:      h.config.Gallery.Source,
		AttendanceStore:    h.config.Database.Driver,
		AttendanceTimezone: h.config.Ledger.Timezone,
	})
}
