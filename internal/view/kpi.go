package view

import (
	"errors"

	"labordash/internal/model"
	"labordash/internal/table"
)

// ErrInsufficientData is returned when fewer than two rows are available to
// compare.
var ErrInsufficientData = errors.New("view: not enough data in range")

type Polarity int

const (
	// Normal means an increase is good news.
	Normal Polarity = iota
	// Inverse means an increase is adverse, as for unemployment.
	Inverse
)

type Format int

const (
	FormatPercent Format = iota
	FormatThousands
	FormatDollars
	FormatIndex
)

type Metric struct {
	Name     string
	Label    string
	Polarity Polarity
	Format   Format
}

// TrackedMetrics are the KPI cards, in display order.
var TrackedMetrics = []Metric{
	{Name: model.MetricUnemploymentRate, Label: "Unemployment Rate", Polarity: Inverse, Format: FormatPercent},
	{Name: model.MetricTotalNonfarmPayroll, Label: "Total Nonfarm Jobs", Polarity: Normal, Format: FormatThousands},
	{Name: model.MetricAverageHourlyEarnings, Label: "Avg Hourly Earnings", Polarity: Normal, Format: FormatDollars},
	{Name: model.MetricEmploymentCostIndex, Label: "Employment Cost Index", Polarity: Normal, Format: FormatIndex},
}

type KPI struct {
	Metric
	Current  float64
	Previous float64
	Delta    float64
	// Available is false when the column is missing or either row is a gap
	// even after forward fill.
	Available bool
}

// Adverse reports whether the change is bad news given the metric polarity.
func (k KPI) Adverse() bool {
	if !k.Available {
		return false
	}
	if k.Polarity == Inverse {
		return k.Delta > 0
	}
	return k.Delta < 0
}

type KPISet struct {
	Current  table.Row
	Previous table.Row
	KPIs     []KPI
}

// ComputeKPIs compares the last two rows of a forward-filled view.
func ComputeKPIs(filled table.Table, metrics []Metric) (KPISet, error) {
	n := filled.Len()
	if n < 2 {
		return KPISet{}, ErrInsufficientData
	}

	set := KPISet{
		Current:  filled.Rows[n-1],
		Previous: filled.Rows[n-2],
		KPIs:     make([]KPI, 0, len(metrics)),
	}
	for _, metric := range metrics {
		kpi := KPI{Metric: metric}
		current, ok := filled.Value(n-1, metric.Name)
		previous, _ := filled.Value(n-2, metric.Name)
		if ok && current.Valid && previous.Valid {
			kpi.Current = current.Value
			kpi.Previous = previous.Value
			kpi.Delta = current.Value - previous.Value
			kpi.Available = true
		}
		set.KPIs = append(set.KPIs, kpi)
	}
	return set, nil
}
