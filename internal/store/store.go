package store

import (
	"context"
	"errors"
	"time"

	"labordash/internal/model"
	"labordash/internal/table"
)

// ErrNotFound is returned by ReadTable when no table has been persisted yet.
var ErrNotFound = errors.New("store: table not found")

type Store interface {
	WriteTable(ctx context.Context, t table.Table) error
	ReadTable(ctx context.Context) (table.Table, error)
	Close() error
}

// Versioned stores report when their content last changed, so readers can
// skip re-parsing an unchanged artifact.
type Versioned interface {
	ModTime() (time.Time, error)
}

type RunRecorder interface {
	RecordRun(ctx context.Context, run model.Run) error
}

type NopStore struct{}

func (s *NopStore) WriteTable(ctx context.Context, t table.Table) error {
	_ = ctx
	_ = t
	return nil
}

func (s *NopStore) ReadTable(ctx context.Context) (table.Table, error) {
	_ = ctx
	return table.Table{}, ErrNotFound
}

func (s *NopStore) Close() error {
	return nil
}
