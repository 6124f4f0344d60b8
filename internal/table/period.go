package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"labordash/internal/model"
)

// Quarterly figures are stamped onto the last month of the quarter so they
// line up with the monthly series.
var quarterMonths = map[string]time.Month{
	"Q01": time.March,
	"Q02": time.June,
	"Q03": time.September,
	"Q04": time.December,
}

// ResolvePeriod maps a BLS period code to the first day of a calendar month.
// Codes it does not understand resolve to January of the year and report
// ok=false.
func ResolvePeriod(year int, period string) (time.Time, bool) {
	period = strings.ToUpper(strings.TrimSpace(period))
	month := time.January
	ok := false

	switch {
	case strings.Contains(period, "M"):
		value, err := strconv.Atoi(strings.ReplaceAll(period, "M", ""))
		if err == nil && value >= 1 && value <= 12 {
			month = time.Month(value)
			ok = true
		}
	case strings.Contains(period, "Q"):
		if mapped, found := quarterMonths[period]; found {
			month = mapped
			ok = true
		}
	}

	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), ok
}

// NormalizeStats counts what Normalize had to work around.
type NormalizeStats struct {
	Unrecognized []model.RawObservation
	Invalid      []model.RawObservation
}

// Normalize projects raw observations onto calendar dates. Observations whose
// year or value does not parse are skipped and reported in Invalid;
// observations with an unknown period code are kept (January of the year) and
// reported in Unrecognized.
func Normalize(observations []model.RawObservation) ([]model.NormalizedRow, NormalizeStats) {
	rows := make([]model.NormalizedRow, 0, len(observations))
	var stats NormalizeStats

	for _, observation := range observations {
		year, err := strconv.Atoi(strings.TrimSpace(observation.Year))
		if err != nil {
			stats.Invalid = append(stats.Invalid, observation)
			continue
		}
		value, err := parseValue(observation.Value)
		if err != nil {
			stats.Invalid = append(stats.Invalid, observation)
			continue
		}
		date, ok := ResolvePeriod(year, observation.Period)
		if !ok {
			stats.Unrecognized = append(stats.Unrecognized, observation)
		}
		rows = append(rows, model.NormalizedRow{
			Date:     date,
			SeriesID: observation.SeriesID,
			Value:    value,
		})
	}

	return rows, stats
}

func parseValue(raw string) (float64, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if trimmed == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(trimmed, 64)
}
