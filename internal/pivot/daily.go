package pivot

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"gridheat/internal/models"
)

// MonthOrder fixes the categorical ordering of month labels on bar charts.
var MonthOrder = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// Series is a date-indexed line chart series with its window mean, drawn
// as the dashed reference line.
type Series struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
	Mean   float64     `json:"mean"`
}

// DailyUsage sums hourly usage into one total per date.
func DailyUsage(records []models.UsageRecord) Series {
	totals := make(map[time.Time]float64)
	for _, r := range records {
		totals[dateOf(r.PeriodStart)] += r.UsageKWh
	}
	return seriesFromMap(totals)
}

// DailyMeanTemp averages hourly Fahrenheit temperatures into one value
// per local date. A daylight-saving transition repeats one local hour;
// like the weather pivot, only the first sample for a (date, hour) pair
// counts toward the mean.
func DailyMeanTemp(observations []models.WeatherObservation) Series {
	type cell struct {
		date time.Time
		hour int
	}
	seen := make(map[cell]bool)
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, o := range observations {
		c := cell{dateOf(o.LocalTime), o.LocalTime.Hour()}
		if seen[c] {
			continue
		}
		seen[c] = true
		sums[c.date] += o.TempF
		counts[c.date]++
	}
	means := make(map[time.Time]float64, len(sums))
	for d, sum := range sums {
		means[d] = sum / float64(counts[d])
	}
	return seriesFromMap(means)
}

func seriesFromMap(byDate map[time.Time]float64) Series {
	s := Series{
		Dates:  make([]time.Time, 0, len(byDate)),
		Values: make([]float64, 0, len(byDate)),
	}
	for d := range byDate {
		s.Dates = append(s.Dates, d)
	}
	sort.Slice(s.Dates, func(i, j int) bool { return s.Dates[i].Before(s.Dates[j]) })
	for _, d := range s.Dates {
		s.Values = append(s.Values, byDate[d])
	}
	if mean, err := stats.Mean(s.Values); err == nil {
		s.Mean = mean
	}
	return s
}

// HourMonthCell is one bar segment: cumulative usage for an (hour, month)
// pair across the whole window.
type HourMonthCell struct {
	Hour  string  `json:"hour"`  // "00:00" .. "23:00"
	Month string  `json:"month"` // "Jan" .. "Dec"
	Total float64 `json:"total"`
}

// HourMonthTotals groups cumulative usage by starting hour and month
// label, ordered hour-major then calendar month. Both bar charts are
// drawn from this one grouping with the axes swapped.
func HourMonthTotals(records []models.UsageRecord) []HourMonthCell {
	type key struct {
		hour  int
		month string
	}
	totals := make(map[key]float64)
	for _, r := range records {
		totals[key{r.PeriodStart.Hour(), r.Month}] += r.UsageKWh
	}

	var cells []HourMonthCell
	for h := 0; h < HoursPerDay; h++ {
		for _, m := range MonthOrder {
			if total, ok := totals[key{h, m}]; ok {
				cells = append(cells, HourMonthCell{Hour: HourLabel(h), Month: m, Total: total})
			}
		}
	}
	return cells
}
