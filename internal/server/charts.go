package server

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"labordash/internal/table"
	"labordash/internal/view"
)

const (
	chartWidth  = 960
	chartHeight = 360
)

var errNothingToPlot = errors.New("no plottable points")

var seriesColors = []drawing.Color{chart.ColorBlue, chart.ColorRed}

// renderPanel draws the panel's series as lines over the raw rows. Gaps are
// skipped, never filled. The second series gets the secondary axis.
func renderPanel(t table.Table, panel view.Panel) ([]byte, error) {
	var series []chart.Series
	for _, name := range view.SelectSeries(t, panel.Series) {
		times, values := points(t, name)
		if len(times) == 0 {
			continue
		}
		if len(times) == 1 {
			// A single point has no range to draw; widen it by a day.
			times = append(times, times[0].Add(24*time.Hour))
			values = append(values, values[0])
		}
		ts := chart.TimeSeries{
			Name:    name,
			XValues: times,
			YValues: values,
			Style: chart.Style{
				StrokeColor: seriesColors[len(series)%len(seriesColors)],
				StrokeWidth: 2,
			},
		}
		if len(series) > 0 {
			ts.YAxis = chart.YAxisSecondary
		}
		series = append(series, ts)
	}
	if len(series) == 0 {
		return nil, errNothingToPlot
	}

	ch := chart.Chart{
		Title:      panel.Title,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 12}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 2006")},
		YAxis:      chart.YAxis{Name: series[0].GetName()},
		Series:     series,
	}
	if len(series) > 1 {
		ch.YAxisSecondary = chart.YAxis{Name: series[1].GetName()}
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func points(t table.Table, name string) ([]time.Time, []float64) {
	col := t.Index(name)
	if col < 0 {
		return nil, nil
	}
	var times []time.Time
	var values []float64
	for _, row := range t.Rows {
		cell := row.Cells[col]
		if !cell.Valid {
			continue
		}
		times = append(times, row.Date)
		values = append(values, cell.Value)
	}
	return times, values
}

// blankPNG is served when a panel has nothing to draw or rendering fails.
func blankPNG(w, h int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	background := color.RGBA{R: 250, G: 250, B: 250, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, background)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
