package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"labordash/internal/store"
	"labordash/internal/table"
)

// Store keeps the wide table in a single CSV file.
type Store struct {
	path string
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("csvfile: path is required")
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

// WriteTable streams the table into a pending file next to the target and
// renames it into place, so readers see either the old or the new file.
func (s *Store) WriteTable(ctx context.Context, t table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o644))
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	if err := table.WriteCSV(pending, t); err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	return pending.CloseAtomicallyReplace()
}

func (s *Store) ReadTable(ctx context.Context) (table.Table, error) {
	if err := ctx.Err(); err != nil {
		return table.Table{}, err
	}

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return table.Table{}, store.ErrNotFound
		}
		return table.Table{}, err
	}
	defer file.Close()

	t, err := table.ReadCSV(file)
	if err != nil {
		return table.Table{}, fmt.Errorf("%s: %w", s.path, err)
	}
	return t, nil
}

func (s *Store) ModTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, store.ErrNotFound
		}
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (s *Store) Close() error {
	return nil
}
