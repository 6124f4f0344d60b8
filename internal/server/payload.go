package server

import (
	"labordash/internal/table"
	"labordash/internal/view"
)

// TablePayload is the JSON form of a table. Gaps are null.
type TablePayload struct {
	Columns []string     `json:"columns"`
	Rows    []RowPayload `json:"rows"`
}

type RowPayload struct {
	Date   string     `json:"date"`
	Values []*float64 `json:"values"`
}

type KPIPayload struct {
	CurrentDate  string      `json:"current_date"`
	PreviousDate string      `json:"previous_date"`
	KPIs         []KPIRecord `json:"kpis"`
}

type KPIRecord struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Available bool     `json:"available"`
	Current   *float64 `json:"current"`
	Previous  *float64 `json:"previous"`
	Delta     *float64 `json:"delta"`
	Adverse   bool     `json:"adverse"`
	Display   string   `json:"display"`
	DeltaText string   `json:"delta_text"`
}

func NewTablePayload(t table.Table) TablePayload {
	payload := TablePayload{
		Columns: append([]string{}, t.Columns...),
		Rows:    make([]RowPayload, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		values := make([]*float64, len(row.Cells))
		for i, cell := range row.Cells {
			if cell.Valid {
				v := cell.Value
				values[i] = &v
			}
		}
		payload.Rows = append(payload.Rows, RowPayload{
			Date:   row.Date.Format(table.DateLayout),
			Values: values,
		})
	}
	return payload
}

func NewKPIPayload(set view.KPISet) KPIPayload {
	payload := KPIPayload{
		CurrentDate:  set.Current.Date.Format(table.DateLayout),
		PreviousDate: set.Previous.Date.Format(table.DateLayout),
		KPIs:         make([]KPIRecord, 0, len(set.KPIs)),
	}
	for _, kpi := range set.KPIs {
		record := KPIRecord{
			Name:      kpi.Name,
			Label:     kpi.Label,
			Available: kpi.Available,
			Adverse:   kpi.Adverse(),
			Display:   view.FormatValue(kpi),
			DeltaText: view.FormatDelta(kpi),
		}
		if kpi.Available {
			current, previous, delta := kpi.Current, kpi.Previous, kpi.Delta
			record.Current = &current
			record.Previous = &previous
			record.Delta = &delta
		}
		payload.KPIs = append(payload.KPIs, record)
	}
	return payload
}
