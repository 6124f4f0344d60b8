package server

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"labordash/internal/table"
	"labordash/internal/view"
)

func TestPointsSkipGaps(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	src := table.Table{
		Columns: []string{"Index"},
		Rows: []table.Row{
			{Date: jan, Cells: []table.Cell{{Value: 160, Valid: true}}},
			{Date: jan.AddDate(0, 1, 0), Cells: []table.Cell{{}}},
			{Date: mar, Cells: []table.Cell{{Value: 161, Valid: true}}},
		},
	}

	times, values := points(src, "Index")
	if diff := cmp.Diff([]time.Time{jan, mar}, times); diff != "" {
		t.Errorf("times mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{160, 161}, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if times, _ := points(src, "Missing"); times != nil {
		t.Errorf("points() for a missing column = %v", times)
	}
}

func TestRenderPanelNothingToPlot(t *testing.T) {
	panel, _ := view.PanelByID("compensation")
	_, err := renderPanel(table.Table{Columns: []string{"Other"}}, panel)
	if !errors.Is(err, errNothingToPlot) {
		t.Errorf("renderPanel() error = %v, want errNothingToPlot", err)
	}
}

func TestBlankPNG(t *testing.T) {
	data, err := blankPNG(20, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, pngSignature) {
		t.Error("blankPNG() is not a PNG")
	}
}
