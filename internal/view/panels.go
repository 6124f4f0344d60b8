package view

import "labordash/internal/model"

type Panel struct {
	ID       string
	Tab      string
	Subtitle string
	Title    string
	Series   []string
}

var DefaultPanels = []Panel{
	{
		ID:       "unemployment",
		Tab:      "Unemployment",
		Subtitle: "Unemployment Trends",
		Title:    "Rate (%) vs Count (Thousands)",
		Series:   []string{model.MetricUnemploymentRate, model.MetricUnemploymentLevel},
	},
	{
		ID:       "jobs",
		Tab:      "Jobs Market",
		Subtitle: "Labor Demand",
		Title:    "Total Jobs vs. Job Openings",
		Series:   []string{model.MetricTotalNonfarmPayroll, model.MetricJobOpenings},
	},
	{
		ID:       "compensation",
		Tab:      "Compensation",
		Subtitle: "Wages & Costs",
		Title:    "Hourly Earnings vs Cost Index",
		Series:   []string{model.MetricAverageHourlyEarnings, model.MetricEmploymentCostIndex},
	},
}

func PanelByID(id string) (Panel, bool) {
	for _, panel := range DefaultPanels {
		if panel.ID == id {
			return panel, true
		}
	}
	return Panel{}, false
}
