// Package pivot reshapes time-indexed usage and weather rows into the
// dense day-by-hour matrices the dashboard charts render, and derives
// calendar-aligned axis ticks for them.
package pivot

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gridheat/internal/models"
)

// ErrDuplicateCell indicates two different source rows map to the same
// (date, hour) cell. Construction halts rather than silently overwriting.
var ErrDuplicateCell = errors.New("duplicate value for pivot cell")

// HoursPerDay is the fixed row count of every matrix: the full 24-hour
// sequence in chronological order, regardless of which hours were observed.
const HoursPerDay = 24

// DuplicatePolicy controls what happens when two samples land on one cell.
type DuplicatePolicy int

const (
	// RejectDuplicates fails construction with ErrDuplicateCell. Used for
	// usage data, where a repeated interval means a corrupt export.
	RejectDuplicates DuplicatePolicy = iota
	// KeepFirst silently keeps the first sample for a cell. Used for
	// weather data, where a daylight-saving transition repeats one local
	// hour.
	KeepFirst
)

// Sample is one (date, hour, value) triple feeding a matrix.
type Sample struct {
	Date  time.Time // midnight in the display zone
	Hour  int       // 0..23
	Value float64
}

// Matrix is a dense day-by-hour pivot. Rows are hours 0..23, columns the
// sorted distinct dates observed. Absent cells hold NaN, never zero.
type Matrix struct {
	Dates  []time.Time
	Values [HoursPerDay][]float64
}

// Build pivots samples into a matrix. Columns are the sorted set of
// distinct dates seen in the input; every matrix has the full 24 hour
// rows. Cells no sample maps to stay NaN.
func Build(samples []Sample, policy DuplicatePolicy) (*Matrix, error) {
	dateSet := make(map[time.Time]struct{})
	for _, s := range samples {
		if s.Hour < 0 || s.Hour >= HoursPerDay {
			return nil, fmt.Errorf("sample hour %d out of range", s.Hour)
		}
		dateSet[s.Date] = struct{}{}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	colIndex := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		colIndex[d] = i
	}

	m := &Matrix{Dates: dates}
	for h := 0; h < HoursPerDay; h++ {
		row := make([]float64, len(dates))
		for i := range row {
			row[i] = math.NaN()
		}
		m.Values[h] = row
	}

	for _, s := range samples {
		col := colIndex[s.Date]
		if !math.IsNaN(m.Values[s.Hour][col]) {
			if policy == KeepFirst {
				continue
			}
			return nil, fmt.Errorf("%w: %s %02d:00", ErrDuplicateCell, s.Date.Format("2006-01-02"), s.Hour)
		}
		m.Values[s.Hour][col] = s.Value
	}

	return m, nil
}

// At returns the cell value and whether it is present.
func (m *Matrix) At(hour, col int) (float64, bool) {
	v := m.Values[hour][col]
	return v, !math.IsNaN(v)
}

// MinMax returns the smallest and largest present values. ok is false
// when the matrix holds no values at all.
func (m *Matrix) MinMax() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for h := 0; h < HoursPerDay; h++ {
		for _, v := range m.Values[h] {
			if math.IsNaN(v) {
				continue
			}
			ok = true
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi, ok
}

// HourLabel formats a row index as the zero-padded clock label used on
// the hour axis.
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// UsageSamples converts usage records to pivot samples keyed by the
// interval's local date and starting hour.
func UsageSamples(records []models.UsageRecord) []Sample {
	samples := make([]Sample, 0, len(records))
	for _, r := range records {
		samples = append(samples, Sample{
			Date:  dateOf(r.PeriodStart),
			Hour:  r.PeriodStart.Hour(),
			Value: r.UsageKWh,
		})
	}
	return samples
}

// WeatherSamples converts weather observations to pivot samples keyed by
// the localized date and clock hour, valued in Fahrenheit.
func WeatherSamples(observations []models.WeatherObservation) []Sample {
	samples := make([]Sample, 0, len(observations))
	for _, o := range observations {
		samples = append(samples, Sample{
			Date:  dateOf(o.LocalTime),
			Hour:  o.LocalTime.Hour(),
			Value: o.TempF,
		})
	}
	return samples
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
