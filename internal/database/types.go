package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Formats of the attendance date and time columns.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// ErrInvalidRecord is returned for records that can never be stored.
var ErrInvalidRecord = errors.New("invalid attendance record")

// AttendanceRecord is one attendance mark. At most one exists per (Name, Date).
type AttendanceRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Time      string    `json:"time"` // HH:MM:SS
	CreatedAt time.Time `json:"created_at"`
}

// NewAttendanceRecord creates a record with a fresh ID.
func NewAttendanceRecord(name, date, clock string) AttendanceRecord {
	return AttendanceRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Date:      date,
		Time:      clock,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the name is set and date and time are well formed.
func (r AttendanceRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRecord)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidRecord, r.Date)
	}
	if _, err := time.Parse(TimeLayout, r.Time); err != nil {
		return fmt.Errorf("%w: time %q is not HH:MM:SS", ErrInvalidRecord, r.Time)
	}
	return nil
}

// Key identifies the (name, date) slot the record occupies.
func (r AttendanceRecord) Key() string {
	return r.Name + "|" + r.Date
}

// GallerySample is one enrolled embedding of a person.
type GallerySample struct {
	ID          string
	Name        string
	SampleIndex int // enrollment order within the person
	Embedding   []float32
	Source      string // file the sample was computed from
	CreatedAt   time.Time
}
