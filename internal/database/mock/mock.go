// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rohan1205/NeuraAttend/internal/database"
)

// MockAttendanceStore is a mock implementation of database.AttendanceStore
type MockAttendanceStore struct {
	mu      sync.Mutex
	records map[string]database.AttendanceRecord

	// Error injection
	ExistsError error
	InsertError error
	ListError   error

	// InsertFailures makes the first N InsertIfAbsent calls return InsertError,
	// after which calls succeed. Zero means InsertError applies to every call.
	InsertFailures int

	// Call counters
	ExistsCalls int
	InsertCalls int
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{records: make(map[string]database.AttendanceRecord)}
}

// AddRecord seeds a record
func (m *MockAttendanceStore) AddRecord(rec database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key()] = rec
}

// Records returns a copy of the stored records
func (m *MockAttendanceStore) Records() []database.AttendanceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]database.AttendanceRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b database.AttendanceRecord) int { return strings.Compare(a.Key(), b.Key()) })
	return out
}

// Exists checks if a record exists for name and date
func (m *MockAttendanceStore) Exists(ctx context.Context, name, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExistsCalls++
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	_, ok := m.records[name+"|"+date]
	return ok, nil
}

// InsertIfAbsent stores the record unless its slot is taken
func (m *MockAttendanceStore) InsertIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertError != nil && (m.InsertFailures == 0 || m.InsertCalls <= m.InsertFailures) {
		return false, m.InsertError
	}
	if _, ok := m.records[rec.Key()]; ok {
		return false, nil
	}
	m.records[rec.Key()] = rec
	return true, nil
}

// List returns records for a date, or all records when date is empty
func (m *MockAttendanceStore) List(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []database.AttendanceRecord
	for _, rec := range m.Records() {
		if date == "" || rec.Date == date {
			out = append(out, rec)
		}
	}
	return out, nil
}

// MockGalleryStore is a mock implementation of database.GalleryWriter
type MockGalleryStore struct {
	mu      sync.RWMutex
	samples map[string][]database.GallerySample

	// Error injection
	LoadError   error
	CountError  error
	SaveError   error
	DeleteError error
}

// NewMockGalleryStore creates a new mock gallery store
func NewMockGalleryStore() *MockGalleryStore {
	return &MockGalleryStore{samples: make(map[string][]database.GallerySample)}
}

// LoadSamples returns every sample ordered by name and sample index
func (m *MockGalleryStore) LoadSamples(ctx context.Context) ([]database.GallerySample, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.samples))
	for name := range m.samples {
		names = append(names, name)
	}
	slices.Sort(names)

	var out []database.GallerySample
	for _, name := range names {
		out = append(out, m.samples[name]...)
	}
	return out, nil
}

// Count returns the number of samples
func (m *MockGalleryStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.samples {
		n += len(s)
	}
	return n, nil
}

// SaveSamples replaces the samples of a person
func (m *MockGalleryStore) SaveSamples(ctx context.Context, name string, samples []database.GallerySample) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]database.GallerySample, len(samples))
	for i, s := range samples {
		s.Name = name
		s.SampleIndex = i
		stored[i] = s
	}
	m.samples[name] = stored
	return nil
}

// DeletePerson removes the samples of a person
func (m *MockGalleryStore) DeletePerson(ctx context.Context, name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.samples, name)
	return nil
}
