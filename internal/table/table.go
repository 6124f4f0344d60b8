package table

import (
	"errors"
	"sort"
	"time"

	"labordash/internal/model"
)

const DateLayout = "2006-01-02"

// ErrInvalidTable marks a persisted table that exists but cannot be parsed.
var ErrInvalidTable = errors.New("table: invalid table")

// Cell is one value of the wide table. Valid=false is a gap.
type Cell struct {
	Value float64
	Valid bool
}

type Row struct {
	Date  time.Time
	Cells []Cell
}

// Table is the wide form: one row per date, one column per metric. Rows are
// kept in ascending date order and Cells are aligned with Columns.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t Table) Len() int {
	return len(t.Rows)
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Index returns the position of a column, or -1 when the column is absent.
func (t Table) Index(name string) int {
	for i, column := range t.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

func (t Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Value returns the cell at row i for the named column.
func (t Table) Value(i int, name string) (Cell, bool) {
	idx := t.Index(name)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return Cell{}, false
	}
	return t.Rows[i].Cells[idx], true
}

func (t Table) MinDate() (time.Time, bool) {
	if t.Empty() {
		return time.Time{}, false
	}
	return t.Rows[0].Date, true
}

func (t Table) MaxDate() (time.Time, bool) {
	if t.Empty() {
		return time.Time{}, false
	}
	return t.Rows[len(t.Rows)-1].Date, true
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = Row{Date: row.Date, Cells: append([]Cell(nil), row.Cells...)}
	}
	return out
}

// Pivot aggregates normalized rows into a wide table. On a (date, series)
// collision the later row wins. Columns follow catalog order, named through
// the catalog; series the catalog does not know keep their raw ID and sort
// after the catalog columns. Only series with at least one row get a column.
func Pivot(rows []model.NormalizedRow, catalog model.Catalog) Table {
	type key struct {
		date   time.Time
		series string
	}

	values := make(map[key]float64, len(rows))
	dates := make(map[time.Time]struct{})
	present := make(map[string]struct{})
	for _, row := range rows {
		date := Day(row.Date)
		values[key{date: date, series: row.SeriesID}] = row.Value
		dates[date] = struct{}{}
		present[row.SeriesID] = struct{}{}
	}

	seriesIDs := make([]string, 0, len(present))
	columns := make([]string, 0, len(present))
	for _, series := range catalog {
		if _, ok := present[series.ID]; !ok {
			continue
		}
		seriesIDs = append(seriesIDs, series.ID)
		columns = append(columns, series.Name)
		delete(present, series.ID)
	}
	unknown := make([]string, 0, len(present))
	for id := range present {
		unknown = append(unknown, id)
	}
	sort.Strings(unknown)
	seriesIDs = append(seriesIDs, unknown...)
	columns = append(columns, unknown...)

	ordered := make([]time.Time, 0, len(dates))
	for date := range dates {
		ordered = append(ordered, date)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	out := Table{Columns: columns, Rows: make([]Row, 0, len(ordered))}
	for _, date := range ordered {
		cells := make([]Cell, len(seriesIDs))
		for i, id := range seriesIDs {
			if value, ok := values[key{date: date, series: id}]; ok {
				cells[i] = Cell{Value: value, Valid: true}
			}
		}
		out.Rows = append(out.Rows, Row{Date: date, Cells: cells})
	}
	return out
}

// Day drops the time of day, keeping the calendar date in UTC.
func Day(value time.Time) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
}
