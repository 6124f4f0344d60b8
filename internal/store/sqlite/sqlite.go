package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"labordash/internal/model"
	"labordash/internal/store"
	"labordash/internal/table"
)

// Store mirrors the wide table into SQLite in long form and keeps a log of
// collector runs.
type Store struct {
	db   *sql.DB
	path string
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: path}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteTable replaces the stored table in a single transaction.
func (s *Store) WriteTable(ctx context.Context, t table.Table) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, statement := range []string{
		`DELETE FROM table_cells`,
		`DELETE FROM table_dates`,
		`DELETE FROM table_columns`,
	} {
		if _, err = tx.ExecContext(ctx, statement); err != nil {
			return err
		}
	}

	for i, name := range t.Columns {
		if _, err = tx.ExecContext(ctx, `INSERT INTO table_columns (position, name) VALUES (?, ?)`, i, name); err != nil {
			return err
		}
	}

	dateStmt, err := tx.PrepareContext(ctx, `INSERT INTO table_dates (date) VALUES (?)`)
	if err != nil {
		return err
	}
	defer dateStmt.Close()

	cellStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO table_cells (date, metric, value) VALUES (?, ?, ?)
		ON CONFLICT(date, metric) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return err
	}
	defer cellStmt.Close()

	for _, row := range t.Rows {
		date := row.Date.Format(table.DateLayout)
		if _, err = dateStmt.ExecContext(ctx, date); err != nil {
			return err
		}
		for i, cell := range row.Cells {
			if !cell.Valid || i >= len(t.Columns) {
				continue
			}
			if _, err = cellStmt.ExecContext(ctx, date, t.Columns[i], cell.Value); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *Store) ReadTable(ctx context.Context) (table.Table, error) {
	columns, err := s.queryStrings(ctx, `SELECT name FROM table_columns ORDER BY position`)
	if err != nil {
		return table.Table{}, err
	}
	dates, err := s.queryStrings(ctx, `SELECT date FROM table_dates ORDER BY date`)
	if err != nil {
		return table.Table{}, err
	}
	if len(dates) == 0 {
		return table.Table{}, store.ErrNotFound
	}

	out := table.Table{Columns: columns, Rows: make([]table.Row, 0, len(dates))}
	rowIndex := make(map[string]int, len(dates))
	for _, raw := range dates {
		date, err := time.Parse(table.DateLayout, raw)
		if err != nil {
			return table.Table{}, fmt.Errorf("%w: date %q", table.ErrInvalidTable, raw)
		}
		rowIndex[raw] = len(out.Rows)
		out.Rows = append(out.Rows, table.Row{Date: date, Cells: make([]table.Cell, len(columns))})
	}

	rows, err := s.db.QueryContext(ctx, `SELECT date, metric, value FROM table_cells`)
	if err != nil {
		return table.Table{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var date, metric string
		var value float64
		if err := rows.Scan(&date, &metric, &value); err != nil {
			return table.Table{}, err
		}
		i, ok := rowIndex[date]
		col := out.Index(metric)
		if !ok || col < 0 {
			return table.Table{}, fmt.Errorf("%w: orphan cell %s/%s", table.ErrInvalidTable, date, metric)
		}
		out.Rows[i].Cells[col] = table.Cell{Value: value, Valid: true}
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, err
	}

	return out, nil
}

func (s *Store) RecordRun(ctx context.Context, run model.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collector_runs (id, started_at, start_year, end_year, row_count, columns)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.StartYear, run.EndYear, run.Rows, strings.Join(run.Columns, "|"))
	return err
}

// LastRun returns the most recent run record.
func (s *Store) LastRun(ctx context.Context) (model.Run, error) {
	var run model.Run
	var startedAt, columns string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, start_year, end_year, row_count, columns
		FROM collector_runs ORDER BY started_at DESC, rowid DESC LIMIT 1
	`).Scan(&run.ID, &startedAt, &run.StartYear, &run.EndYear, &run.Rows, &columns)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, store.ErrNotFound
	}
	if err != nil {
		return model.Run{}, err
	}
	run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return model.Run{}, err
	}
	if columns != "" {
		run.Columns = strings.Split(columns, "|")
	}
	return run, nil
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

func (s *Store) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS table_columns (
			position INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);`,
		`CREATE TABLE IF NOT EXISTS table_dates (
			date TEXT PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS table_cells (
			date TEXT NOT NULL,
			metric TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (date, metric)
		);`,
		`CREATE TABLE IF NOT EXISTS collector_runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			start_year INTEGER NOT NULL,
			end_year INTEGER NOT NULL,
			row_count INTEGER NOT NULL,
			columns TEXT NOT NULL
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}
