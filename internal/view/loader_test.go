package view

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"labordash/internal/store"
	"labordash/internal/store/csvfile"
	"labordash/internal/table"
)

type countingStore struct {
	*csvfile.Store
	reads int
}

func (s *countingStore) ReadTable(ctx context.Context) (table.Table, error) {
	s.reads++
	return s.Store.ReadTable(ctx)
}

func TestLoaderMissingArtifact(t *testing.T) {
	csvStore, _ := csvfile.New(filepath.Join(t.TempDir(), "bls_data.csv"))
	loader := NewLoader(csvStore)

	_, _, err := loader.Load(context.Background())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoaderMemoizesOnModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bls_data.csv")
	if err := os.WriteFile(path, []byte("date,Rate\n2024-01-01,3.7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	csvStore, _ := csvfile.New(path)
	source := &countingStore{Store: csvStore}
	loader := NewLoader(source)
	ctx := context.Background()

	first, version, err := loader.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, _, err := loader.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if source.reads != 1 {
		t.Errorf("reads = %d, want 1 for an unchanged file", source.reads)
	}

	if err := os.WriteFile(path, []byte("date,Rate\n2024-01-01,3.7\n2024-02-01,3.9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	later := version.Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	second, _, err := loader.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if source.reads != 2 || first.Len() != 1 || second.Len() != 2 {
		t.Errorf("reads=%d first=%d second=%d, want reload after change", source.reads, first.Len(), second.Len())
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loader.Load(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Load() after removal = %v, want ErrNotFound", err)
	}
}
