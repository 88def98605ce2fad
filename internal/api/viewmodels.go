package api

import (
	"fmt"
	"math"

	"gridheat/internal/models"
	"gridheat/internal/pivot"
)

// HeatmapData is the JSON shape the heatmap endpoints serve. Z rows are
// hours 0..23; absent cells are null, never zero, so the chart layer
// leaves them blank.
type HeatmapData struct {
	Dates  []string     `json:"dates"`
	Hours  []string     `json:"hours"`
	Z      [][]*float64 `json:"z"`
	Ticks  pivot.Ticks  `json:"ticks"`
	Units  string       `json:"units"`
	Zip5   string       `json:"zip5,omitempty"`
}

func heatmapData(m *pivot.Matrix, units string) HeatmapData {
	data := HeatmapData{
		Dates: make([]string, len(m.Dates)),
		Hours: make([]string, pivot.HoursPerDay),
		Z:     make([][]*float64, pivot.HoursPerDay),
		Ticks: pivot.DeriveTicks(m),
		Units: units,
	}
	for i, d := range m.Dates {
		data.Dates[i] = d.Format("2006-01-02")
	}
	for h := 0; h < pivot.HoursPerDay; h++ {
		data.Hours[h] = pivot.HourLabel(h)
		row := make([]*float64, len(m.Dates))
		for c := range m.Dates {
			if v, ok := m.At(h, c); ok {
				val := v
				row[c] = &val
			}
		}
		data.Z[h] = row
	}
	return data
}

// SeriesData is one line-chart series with its window mean.
type SeriesData struct {
	Dates  []string  `json:"dates"`
	Values []float64 `json:"values"`
	Mean   float64   `json:"mean"`
	Label  string    `json:"label"`
}

func seriesData(s pivot.Series, label string) SeriesData {
	out := SeriesData{
		Dates:  make([]string, len(s.Dates)),
		Values: s.Values,
		Mean:   s.Mean,
		Label:  label,
	}
	for i, d := range s.Dates {
		out.Dates[i] = d.Format("2006-01-02")
	}
	if out.Values == nil {
		out.Values = []float64{}
	}
	return out
}

// DailyData backs the combined daily line plots.
type DailyData struct {
	Usage       SeriesData `json:"usage"`
	Temperature SeriesData `json:"temperature"`
}

// MonthlyData backs the two stacked bar charts: cumulative usage by
// (hour, month) with fixed categorical orderings.
type MonthlyData struct {
	Cells      []pivot.HourMonthCell `json:"cells"`
	MonthOrder []string              `json:"monthOrder"`
	HourOrder  []string              `json:"hourOrder"`
}

func monthlyData(records []models.UsageRecord) MonthlyData {
	hours := make([]string, pivot.HoursPerDay)
	for h := 0; h < pivot.HoursPerDay; h++ {
		hours[h] = pivot.HourLabel(h)
	}
	cells := pivot.HourMonthTotals(records)
	if cells == nil {
		cells = []pivot.HourMonthCell{}
	}
	return MonthlyData{
		Cells:      cells,
		MonthOrder: pivot.MonthOrder,
		HourOrder:  hours,
	}
}

// PriceStats summarizes the derived price-per-kWh column for the dataset
// page header.
type PriceStats struct {
	MeanPrice float64 `json:"meanPrice"`
	Priced    int     `json:"priced"`
	Unpriced  int     `json:"unpriced"` // zero-usage intervals, price undefined
}

func priceStats(records []models.UsageRecord) PriceStats {
	var stats PriceStats
	var sum float64
	for _, r := range records {
		if r.PricePerKWh.Valid && !math.IsNaN(r.PricePerKWh.Float64) {
			sum += r.PricePerKWh.Float64
			stats.Priced++
		} else {
			stats.Unpriced++
		}
	}
	if stats.Priced > 0 {
		stats.MeanPrice = sum / float64(stats.Priced)
	}
	return stats
}

func formatZip5(zip5 int) string {
	return fmt.Sprintf("%05d", zip5)
}
