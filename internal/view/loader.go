package view

import (
	"context"
	"sync"
	"time"

	"labordash/internal/store"
	"labordash/internal/table"
)

// Loader reads the persisted table and keeps the last parse around while the
// artifact's modification time is unchanged. Returned tables are shared and
// must be treated as read-only.
type Loader struct {
	source store.Store

	mu      sync.Mutex
	cached  table.Table
	version time.Time
	valid   bool
}

func NewLoader(source store.Store) *Loader {
	return &Loader{source: source}
}

// Load returns the table and the version it was read at. A missing artifact
// yields store.ErrNotFound.
func (l *Loader) Load(ctx context.Context) (table.Table, time.Time, error) {
	versioned, ok := l.source.(store.Versioned)
	if !ok {
		t, err := l.source.ReadTable(ctx)
		return t, time.Time{}, err
	}

	version, err := versioned.ModTime()
	if err != nil {
		l.reset()
		return table.Table{}, time.Time{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.valid && l.version.Equal(version) {
		return l.cached, l.version, nil
	}

	t, err := l.source.ReadTable(ctx)
	if err != nil {
		l.valid = false
		return table.Table{}, time.Time{}, err
	}
	l.cached = t
	l.version = version
	l.valid = true
	return t, version, nil
}

func (l *Loader) reset() {
	l.mu.Lock()
	l.valid = false
	l.cached = table.Table{}
	l.mu.Unlock()
}
