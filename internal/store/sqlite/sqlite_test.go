package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"labordash/internal/model"
	"labordash/internal/store"
	"labordash/internal/table"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "labordash.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestReadEmpty(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.ReadTable(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ReadTable() error = %v, want ErrNotFound", err)
	}
	if _, err := s.LastRun(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LastRun() error = %v, want ErrNotFound", err)
	}
}

func TestWriteTableReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := table.Table{
		Columns: []string{"Job Openings"},
		Rows: []table.Row{
			{Date: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), Cells: []table.Cell{{Value: 7.5, Valid: true}}},
		},
	}
	second := table.Table{
		Columns: []string{"Unemployment Rate", "Employment Cost Index"},
		Rows: []table.Row{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Cells: []table.Cell{{Value: 3.7, Valid: true}, {}}},
			{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Cells: []table.Cell{{Value: 3.8, Valid: true}, {Value: 163.3, Valid: true}}},
		},
	}

	if err := s.WriteTable(ctx, first); err != nil {
		t.Fatalf("WriteTable(first) error = %v", err)
	}
	if err := s.WriteTable(ctx, second); err != nil {
		t.Fatalf("WriteTable(second) error = %v", err)
	}

	got, err := s.ReadTable(ctx)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("ReadTable() mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := model.Run{ID: "a", StartedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), StartYear: 2018, EndYear: 2024, Rows: 70}
	newer := model.Run{ID: "b", StartedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), StartYear: 2018, EndYear: 2024, Rows: 71, Columns: []string{"Unemployment Rate", "Job Openings"}}
	for _, run := range []model.Run{older, newer} {
		if err := s.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
	}

	got, err := s.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun() error = %v", err)
	}
	if diff := cmp.Diff(newer, got); diff != "" {
		t.Errorf("LastRun() mismatch (-want +got):\n%s", diff)
	}
}
