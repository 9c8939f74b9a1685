// Package attendance records at most one attendance mark per person per day.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rohan1205/NeuraAttend/internal/database"
)

// ErrPersistenceUnavailable is returned when the store keeps failing after retries.
var ErrPersistenceUnavailable = errors.New("attendance store unavailable")

const defaultInitialInterval = 50 * time.Millisecond

// Config controls the ledger.
type Config struct {
	// Location is the timezone used by MarkAt to derive date and time.
	Location *time.Location
	// RetryMaxElapsed bounds the time spent retrying one store call.
	// Zero means a single attempt.
	RetryMaxElapsed time.Duration
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
	// CacheMarked remembers people already marked today so repeat sightings
	// skip the store entirely.
	CacheMarked bool
}

// Ledger marks attendance against a store.
type Ledger struct {
	store database.AttendanceStore
	cfg   Config
	cache *markedCache
}

// NewLedger creates a ledger over store.
func NewLedger(store database.AttendanceStore, cfg Config) *Ledger {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultInitialInterval
	}
	l := &Ledger{store: store, cfg: cfg}
	if cfg.CacheMarked {
		l.cache = newMarkedCache()
	}
	return l
}

// Mark records attendance for name on date (YYYY-MM-DD) at clock (HH:MM:SS).
// It returns true if a new record was stored and false if name was already
// marked that day. Invalid input is rejected without touching the store;
// store failures are retried and then reported as ErrPersistenceUnavailable.
func (l *Ledger) Mark(ctx context.Context, name, date, clock string) (bool, error) {
	rec := database.NewAttendanceRecord(name, date, clock)
	if err := rec.Validate(); err != nil {
		return false, err
	}

	if l.cache.has(name, date) {
		return false, nil
	}

	var exists bool
	err := l.retry(ctx, func() error {
		var err error
		exists, err = l.store.Exists(ctx, name, date)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("checking %s on %s: %w", name, date, err)
	}
	if exists {
		l.cache.add(name, date)
		return false, nil
	}

	// The store insert is idempotent per (name, date), so retrying it after an
	// ambiguous failure cannot create a second record.
	var inserted bool
	err = l.retry(ctx, func() error {
		var err error
		inserted, err = l.store.InsertIfAbsent(ctx, rec)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("marking %s on %s: %w", name, date, err)
	}

	l.cache.add(name, date)
	return inserted, nil
}

// MarkAt marks name at instant t, using the configured timezone for the date.
func (l *Ledger) MarkAt(ctx context.Context, name string, t time.Time) (bool, error) {
	date, clock := l.Stamp(t)
	return l.Mark(ctx, name, date, clock)
}

// Stamp formats t as the ledger's date and time strings.
func (l *Ledger) Stamp(t time.Time) (date, clock string) {
	local := t.In(l.cfg.Location)
	return local.Format(database.DateLayout), local.Format(database.TimeLayout)
}

// Records lists the records of date, or every record when date is empty.
func (l *Ledger) Records(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	var records []database.AttendanceRecord
	err := l.retry(ctx, func() error {
		var err error
		records, err = l.store.List(ctx, date)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	return records, nil
}

func (l *Ledger) retry(ctx context.Context, op func() error) error {
	var b backoff.BackOff
	if l.cfg.RetryMaxElapsed > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = l.cfg.InitialInterval
		exp.MaxElapsedTime = l.cfg.RetryMaxElapsed
		b = exp
	} else {
		b = &backoff.StopBackOff{}
	}

	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	return nil
}

// markedCache remembers (name, date) pairs known to be marked. Only the most
// recent date is kept so the set does not grow across days.
type markedCache struct {
	mu    sync.Mutex
	date  string
	names map[string]struct{}
}

func newMarkedCache() *markedCache {
	return &markedCache{names: make(map[string]struct{})}
}

func (c *markedCache) has(name, date string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.date != date {
		return false
	}
	_, ok := c.names[name]
	return ok
}

func (c *markedCache) add(name, date string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if date < c.date {
		return
	}
	if date != c.date {
		c.date = date
		c.names = make(map[string]struct{})
	}
	c.names[name] = struct{}{}
}
