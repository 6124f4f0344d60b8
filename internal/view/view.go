// Package view derives the ephemeral tables the dashboard renders from the
// persisted wide table. Nothing here mutates its input.
package view

import (
	"time"

	"labordash/internal/table"
)

// Derive returns the rows whose date falls in [start, end], compared by
// calendar day. A reversed interval yields an empty view.
func Derive(t table.Table, start, end time.Time) table.Table {
	start = table.Day(start)
	end = table.Day(end)

	out := table.Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		day := table.Day(row.Date)
		if day.Before(start) || day.After(end) {
			continue
		}
		out.Rows = append(out.Rows, table.Row{Date: row.Date, Cells: append([]table.Cell(nil), row.Cells...)})
	}
	return out
}

// Clamp fits a requested interval into the table's bounds. Zero values select
// the corresponding bound and reversed inputs are swapped.
func Clamp(t table.Table, start, end time.Time) (time.Time, time.Time) {
	minDate, ok := t.MinDate()
	if !ok {
		return start, end
	}
	maxDate, _ := t.MaxDate()

	if start.IsZero() {
		start = minDate
	}
	if end.IsZero() {
		end = maxDate
	}
	start, end = table.Day(start), table.Day(end)
	if end.Before(start) {
		start, end = end, start
	}
	if start.Before(minDate) {
		start = minDate
	}
	if end.After(maxDate) {
		end = maxDate
	}
	if start.After(maxDate) {
		start = maxDate
	}
	if end.Before(minDate) {
		end = minDate
	}
	return start, end
}

// ForwardFill replaces each gap with the closest earlier value in the same
// column. Leading gaps stay gaps.
func ForwardFill(t table.Table) table.Table {
	out := t.Clone()
	for col := range out.Columns {
		var last table.Cell
		for i := range out.Rows {
			cell := out.Rows[i].Cells[col]
			if cell.Valid {
				last = cell
				continue
			}
			if last.Valid {
				out.Rows[i].Cells[col] = last
			}
		}
	}
	return out
}

// Descending returns a copy with the newest rows first, for the raw table.
func Descending(t table.Table) table.Table {
	out := t.Clone()
	for i, j := 0, len(out.Rows)-1; i < j; i, j = i+1, j-1 {
		out.Rows[i], out.Rows[j] = out.Rows[j], out.Rows[i]
	}
	return out
}

// SelectSeries keeps the wanted names that exist as columns, in the order
// they were asked for.
func SelectSeries(t table.Table, wanted []string) []string {
	selected := make([]string, 0, len(wanted))
	for _, name := range wanted {
		if t.Has(name) {
			selected = append(selected, name)
		}
	}
	return selected
}
