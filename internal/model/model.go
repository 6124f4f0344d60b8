package model

import "time"

type Cadence string

const (
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
)

const (
	MetricTotalNonfarmPayroll   = "Total Nonfarm Payroll"
	MetricUnemploymentRate      = "Unemployment Rate"
	MetricUnemploymentLevel     = "Unemployment Level"
	MetricEmploymentCostIndex   = "Employment Cost Index"
	MetricAverageHourlyEarnings = "Average Hourly Earnings"
	MetricJobOpenings           = "Job Openings"
)

type Series struct {
	ID      string
	Name    string
	Cadence Cadence
}

// Catalog is the ordered set of series a collector requests. Order drives
// the column order of the pivoted table.
type Catalog []Series

// DefaultCatalog lists the BLS series behind the dashboard.
var DefaultCatalog = Catalog{
	{ID: "CES0000000001", Name: MetricTotalNonfarmPayroll, Cadence: CadenceMonthly},
	{ID: "LNS14000000", Name: MetricUnemploymentRate, Cadence: CadenceMonthly},
	{ID: "LNS13000000", Name: MetricUnemploymentLevel, Cadence: CadenceMonthly},
	{ID: "CIU1010000000000A", Name: MetricEmploymentCostIndex, Cadence: CadenceQuarterly},
	{ID: "CES0500000003", Name: MetricAverageHourlyEarnings, Cadence: CadenceMonthly},
	{ID: "JTS00000000JOL", Name: MetricJobOpenings, Cadence: CadenceMonthly},
}

func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for _, series := range c {
		ids = append(ids, series.ID)
	}
	return ids
}

func (c Catalog) Name(id string) (string, bool) {
	for _, series := range c {
		if series.ID == id {
			return series.Name, true
		}
	}
	return "", false
}

// RawObservation is one data point as the upstream API returns it.
type RawObservation struct {
	SeriesID string
	Year     string
	Period   string
	Value    string
}

type NormalizedRow struct {
	Date     time.Time
	SeriesID string
	Value    float64
}

// Run describes one collector execution.
type Run struct {
	ID        string
	StartedAt time.Time
	StartYear int
	EndYear   int
	Rows      int
	Columns   []string
}
