package view

import (
	"errors"
	"math"
	"testing"

	"labordash/internal/model"
	"labordash/internal/table"
)

func TestComputeKPIsTwoRows(t *testing.T) {
	src := table.Table{
		Columns: []string{model.MetricUnemploymentRate},
		Rows: []table.Row{
			{Date: day(2024, 1, 1), Cells: []table.Cell{cell(4.0)}},
			{Date: day(2024, 2, 1), Cells: []table.Cell{cell(4.2)}},
		},
	}

	set, err := ComputeKPIs(ForwardFill(src), TrackedMetrics)
	if err != nil {
		t.Fatalf("ComputeKPIs() error = %v", err)
	}
	if len(set.KPIs) != len(TrackedMetrics) {
		t.Fatalf("KPIs = %d, want %d", len(set.KPIs), len(TrackedMetrics))
	}

	rate := set.KPIs[0]
	if !rate.Available || rate.Current != 4.2 || math.Abs(rate.Delta-0.2) > 1e-9 {
		t.Errorf("rate KPI = %+v, want current 4.2 delta +0.2", rate)
	}
	if !rate.Adverse() {
		t.Error("rising unemployment should be adverse")
	}
	for _, kpi := range set.KPIs[1:] {
		if kpi.Available {
			t.Errorf("%s should be unavailable when its column is missing", kpi.Name)
		}
	}
}

func TestComputeKPIsUsesFilledQuarterly(t *testing.T) {
	filled := ForwardFill(fixture())
	metrics := []Metric{{Name: "Index", Format: FormatIndex}}

	set, err := ComputeKPIs(Derive(filled, day(2024, 4, 1), day(2024, 5, 1)), metrics)
	if err != nil {
		t.Fatalf("ComputeKPIs() error = %v", err)
	}
	kpi := set.KPIs[0]
	if !kpi.Available || kpi.Current != 163.3 || kpi.Delta != 0 {
		t.Errorf("index KPI = %+v, want carried 163.3 with zero delta", kpi)
	}
}

func TestComputeKPIsInsufficientData(t *testing.T) {
	for _, rows := range []int{0, 1} {
		src := fixture()
		src.Rows = src.Rows[:rows]
		if _, err := ComputeKPIs(src, TrackedMetrics); !errors.Is(err, ErrInsufficientData) {
			t.Errorf("%d rows: error = %v, want ErrInsufficientData", rows, err)
		}
	}
}

func TestComputeKPIsLeadingGap(t *testing.T) {
	src := fixture()
	src.Rows = src.Rows[:2]
	set, err := ComputeKPIs(ForwardFill(src), []Metric{{Name: "Index"}})
	if err != nil {
		t.Fatal(err)
	}
	if set.KPIs[0].Available {
		t.Error("a column with only leading gaps should not produce a KPI")
	}
}

func TestAdverse(t *testing.T) {
	tests := []struct {
		polarity Polarity
		delta    float64
		want     bool
	}{
		{Inverse, 0.1, true},
		{Inverse, -0.1, false},
		{Normal, -5, true},
		{Normal, 5, false},
		{Normal, 0, false},
	}
	for _, tt := range tests {
		kpi := KPI{Metric: Metric{Polarity: tt.polarity}, Delta: tt.delta, Available: true}
		if got := kpi.Adverse(); got != tt.want {
			t.Errorf("Adverse(polarity=%d, delta=%v) = %v, want %v", tt.polarity, tt.delta, got, tt.want)
		}
	}
	if (KPI{Metric: Metric{Polarity: Inverse}, Delta: 1}).Adverse() {
		t.Error("unavailable KPI reported adverse")
	}
}
