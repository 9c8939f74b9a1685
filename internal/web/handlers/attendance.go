package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/rohan1205/NeuraAttend/internal/database"
	"github.com/rohan1205/NeuraAttend/internal/recognition"
	"github.com/rohan1205/NeuraAttend/internal/vision"
)

// FrameProcessor runs the recognition pipeline over one frame.
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, frame *vision.Frame, at time.Time) (*recognition.FrameResult, error)
}

// RecordLister lists stored attendance records. Stamp formats an instant in
// the lister's timezone.
type RecordLister interface {
	Records(ctx context.Context, date string) ([]database.AttendanceRecord, error)
	Stamp(t time.Time) (date, clock string)
}

// AttendanceHandler handles frame submission and attendance listing
type AttendanceHandler struct {
	processor FrameProcessor
	records   RecordLister
	now       func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(processor FrameProcessor, records RecordLister) *AttendanceHandler {
	return &AttendanceHandler{
		processor: processor,
		records:   records,
		now:       time.Now,
	}
}

// MarkRequest carries one camera frame as a data URL.
type MarkRequest struct {
	Frame     string `json:"frame"`
	Timestamp string `json:"timestamp,omitempty"` // client capture time, informational
}

// FaceResponse describes one recognized face.
type FaceResponse struct {
	Box      vision.BoundingBox `json:"box"`
	Label    string             `json:"label"`
	Distance *float64           `json:"distance"`
	Recorded bool               `json:"recorded"`
	Error    string             `json:"error,omitempty"`
}

// MarkResponse is the result of processing a frame.
type MarkResponse struct {
	Success bool           `json:"success"`
	Marked  []string       `json:"marked"`
	Faces   []FaceResponse `json:"faces"`
	Skipped int            `json:"skipped"`
}

// Mark decodes the submitted frame, recognizes every face in it and marks
// attendance for known people. The server clock decides the attendance date.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req MarkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Frame == "" {
		respondError(w, http.StatusBadRequest, "frame is required")
		return
	}

	frame, err := vision.DecodeDataURL(req.Frame)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid frame: "+err.Error())
		return
	}

	result, err := h.processor.ProcessFrame(r.Context(), frame, h.now())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			respondError(w, http.StatusGatewayTimeout, "recognition timed out")
			return
		}
		log.Printf("attendance: processing frame (timestamp %q) failed: %v", sanitizeForLog(req.Timestamp), err)
		respondError(w, http.StatusBadGateway, "recognition failed")
		return
	}

	resp := MarkResponse{
		Success: true,
		Marked:  []string{},
		Faces:   make([]FaceResponse, 0, len(result.Faces)),
		Skipped: len(result.Skipped),
	}
	for _, f := range result.Faces {
		face := FaceResponse{
			Box:      f.Box,
			Label:    f.Label,
			Distance: finiteOrNil(f.Distance),
			Recorded: f.Recorded,
		}
		if f.Err != nil {
			face.Error = f.Err.Error()
			resp.Success = false
		}
		if f.Recorded {
			resp.Marked = append(resp.Marked, f.Label)
		}
		resp.Faces = append(resp.Faces, face)
	}

	respondJSON(w, http.StatusOK, resp)
}

// List returns the records of the date query parameter, or all records.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "today" {
		date, _ = h.records.Stamp(h.now())
	}
	if date != "" {
		if _, err := time.Parse(database.DateLayout, date); err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	records, err := h.records.Records(r.Context(), date)
	if err != nil {
		log.Printf("attendance: listing %q failed: %v", date, err)
		respondError(w, http.StatusServiceUnavailable, "attendance store unavailable")
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}
