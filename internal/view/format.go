package view

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// FormatValue renders a KPI value the way the cards show it.
func FormatValue(k KPI) string {
	if !k.Available {
		return "n/a"
	}
	switch k.Format {
	case FormatPercent:
		return strconv.FormatFloat(k.Current, 'f', -1, 64) + "%"
	case FormatThousands:
		return humanize.Comma(int64(k.Current)) + "k"
	case FormatDollars:
		return "$" + humanize.FormatFloat("#,###.##", k.Current)
	default:
		return strconv.FormatFloat(k.Current, 'f', -1, 64)
	}
}

// FormatDelta renders the change since the previous row.
func FormatDelta(k KPI) string {
	if !k.Available {
		return ""
	}
	switch k.Format {
	case FormatPercent:
		return fmt.Sprintf("%+.1f%%", roundZero(k.Delta, 1))
	case FormatThousands:
		return fmt.Sprintf("%+dk", int64(k.Delta))
	case FormatDollars:
		sign := "+"
		if k.Delta < 0 {
			sign = "-"
		}
		return sign + "$" + fmt.Sprintf("%.2f", math.Abs(k.Delta))
	default:
		return fmt.Sprintf("%+.1f", roundZero(k.Delta, 1))
	}
}

// roundZero avoids printing "-0.0" for tiny negative float noise.
func roundZero(value float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	rounded := math.Round(value*scale) / scale
	if rounded == 0 {
		return 0
	}
	return rounded
}

// FormatCell renders a raw table cell; gaps are blank.
func FormatCell(value float64, valid bool) string {
	if !valid {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
