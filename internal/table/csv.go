package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const dateColumn = "date"

// WriteCSV encodes the table with a leading date column. Gaps are written as
// empty cells.
func WriteCSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)

	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, dateColumn)
	header = append(header, t.Columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range t.Rows {
		record[0] = row.Date.Format(DateLayout)
		for i := range t.Columns {
			record[i+1] = ""
			if i < len(row.Cells) && row.Cells[i].Valid {
				record[i+1] = strconv.FormatFloat(row.Cells[i].Value, 'f', -1, 64)
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV decodes a table written by WriteCSV. Rows are re-sorted and dates
// must be unique; any unparsable date or cell yields ErrInvalidTable.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, fmt.Errorf("%w: missing header", ErrInvalidTable)
		}
		return Table{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(header[0], "\ufeff")), dateColumn) {
		return Table{}, fmt.Errorf("%w: first column must be %q", ErrInvalidTable, dateColumn)
	}

	columns := make([]string, 0, len(header)-1)
	for _, name := range header[1:] {
		columns = append(columns, strings.TrimSpace(name))
	}

	out := Table{Columns: columns}
	seen := make(map[time.Time]struct{})
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Table{}, fmt.Errorf("%w: line %d: %v", ErrInvalidTable, line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		date, err := parseDate(record[0])
		if err != nil {
			return Table{}, fmt.Errorf("%w: line %d: date %q", ErrInvalidTable, line, record[0])
		}
		if _, dup := seen[date]; dup {
			return Table{}, fmt.Errorf("%w: line %d: duplicate date %s", ErrInvalidTable, line, date.Format(DateLayout))
		}
		seen[date] = struct{}{}

		cells := make([]Cell, len(columns))
		for i := range columns {
			if i+1 >= len(record) {
				break
			}
			raw := strings.TrimSpace(record[i+1])
			if raw == "" {
				continue
			}
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Table{}, fmt.Errorf("%w: line %d: column %q value %q", ErrInvalidTable, line, columns[i], raw)
			}
			cells[i] = Cell{Value: value, Valid: true}
		}
		out.Rows = append(out.Rows, Row{Date: date, Cells: cells})
	}

	sortRows(out.Rows)
	return out, nil
}

// parseDate accepts the plain date layout plus a midnight timestamp, which
// is how some spreadsheet tools re-save the file.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if value, err := time.Parse(layout, raw); err == nil {
			return Day(value), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", raw)
}
