package database

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/rohan1205/NeuraAttend/internal/config"
)

// StoreOpener connects an attendance store for a driver. The returned closer
// releases its connections; it may be a no-op.
type StoreOpener func(ctx context.Context, cfg *config.DatabaseConfig) (AttendanceStore, io.Closer, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]StoreOpener)
)

// RegisterAttendanceBackend registers a store driver.
// Backend packages call this from init to avoid import cycles.
func RegisterAttendanceBackend(driver string, open StoreOpener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("database: RegisterAttendanceBackend opener is nil")
	}
	if _, dup := backends[driver]; dup {
		panic("database: RegisterAttendanceBackend called twice for driver " + driver)
	}
	backends[driver] = open
}

// Drivers returns the registered driver names in sorted order.
func Drivers() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// OpenAttendanceStore opens the store selected by cfg.Driver.
func OpenAttendanceStore(ctx context.Context, cfg *config.DatabaseConfig) (AttendanceStore, io.Closer, error) {
	backendsMu.RLock()
	open, ok := backends[cfg.Driver]
	backendsMu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("attendance store driver %q not registered (have %v)", cfg.Driver, Drivers())
	}
	store, closer, err := open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s attendance store: %w", cfg.Driver, err)
	}
	return store, closer, nil
}

// NopCloser is a closer for stores without connections.
type NopCloser struct{}

// Close does nothing.
func (NopCloser) Close() error { return nil }
