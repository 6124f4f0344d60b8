package server

import (
	"github.com/xuri/excelize/v2"

	"labordash/internal/table"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportSheet     = "Labor Data"
)

// buildWorkbook lays the table out as one sheet: a header row, then one row
// per date. Gaps are left as empty cells.
func buildWorkbook(t table.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)

	header := make([]interface{}, 0, len(t.Columns)+1)
	header = append(header, "date")
	for _, name := range t.Columns {
		header = append(header, name)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, row := range t.Rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, axis, row.Date.Format(table.DateLayout)); err != nil {
			return nil, err
		}
		for col, cell := range row.Cells {
			if !cell.Valid {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(col+2, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellFloat(exportSheet, axis, cell.Value, -1, 64); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "A", 12); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
