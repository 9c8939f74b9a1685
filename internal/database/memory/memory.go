// Package memory is an in-process attendance store. Records live as long as
// the process; it suits development and single-instance kiosks.
package memory

import (
	"cmp"
	"context"
	"io"
	"slices"
	"sync"

	"github.com/rohan1205/NeuraAttend/internal/config"
	"github.com/rohan1205/NeuraAttend/internal/database"
)

func init() {
	database.RegisterAttendanceBackend(config.DriverMemory, func(context.Context, *config.DatabaseConfig) (database.AttendanceStore, io.Closer, error) {
		return NewStore(), database.NopCloser{}, nil
	})
}

// Store keeps records in a map keyed by (name, date).
type Store struct {
	mu      sync.RWMutex
	records map[string]database.AttendanceRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]database.AttendanceRecord)}
}

// Exists reports whether name has a record for date.
func (s *Store) Exists(_ context.Context, name, date string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[name+"|"+date]
	return ok, nil
}

// InsertIfAbsent stores rec unless its (name, date) slot is taken.
func (s *Store) InsertIfAbsent(_ context.Context, rec database.AttendanceRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rec.Key()
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = rec
	return true, nil
}

// List returns the records of date ordered by time, or all records when date is empty.
func (s *Store) List(_ context.Context, date string) ([]database.AttendanceRecord, error) {
	s.mu.RLock()
	out := make([]database.AttendanceRecord, 0, len(s.records))
	for _, rec := range s.records {
		if date == "" || rec.Date == date {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b database.AttendanceRecord) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.Time, b.Time), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
