package api

import (
	"fmt"
	"net/http"

	"github.com/xuri/excelize/v2"

	"gridheat/internal/models"
	"gridheat/internal/pivot"
)

// handleExportXLSX serves the dataset as a workbook: the usage and
// weather pivots plus the daily summary series.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.datasetByQuery(w, r)
	if !ok {
		return
	}

	records, err := s.store.GetUsageRecords(ds.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	observations, err := s.store.GetWeatherObservations(ds.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	usage, err := pivot.Build(pivot.UsageSamples(records), pivot.RejectDuplicates)
	if err != nil {
		s.matrixError(w, err)
		return
	}
	temp, err := pivot.Build(pivot.WeatherSamples(observations), pivot.KeepFirst)
	if err != nil {
		s.matrixError(w, err)
		return
	}

	data, err := buildWorkbook(ds, usage, temp, pivot.DailyUsage(records), pivot.DailyMeanTemp(observations))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=gridheat-dataset-%d.xlsx", ds.ID))
	w.Write(data)
}

func buildWorkbook(ds *models.Dataset, usage, temp *pivot.Matrix, dailyUsage, dailyTemp pivot.Series) ([]byte, error) {
	f := excelize.NewFile()
	usageSheet := "usage"
	weatherSheet := "weather"
	dailySheet := "daily"
	f.SetSheetName("Sheet1", usageSheet)
	f.NewSheet(weatherSheet)
	f.NewSheet(dailySheet)

	if err := writePivotSheet(f, usageSheet, usage, fmt.Sprintf("Hourly energy (kWh), zip %05d", ds.Zip5)); err != nil {
		return nil, err
	}
	if err := writePivotSheet(f, weatherSheet, temp, fmt.Sprintf("Hourly temperature (°F), zip %05d", ds.Zip5)); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(dailySheet, "A1", "Date")
	_ = f.SetCellValue(dailySheet, "B1", "Energy (kWh)")
	_ = f.SetCellValue(dailySheet, "C1", "Mean temperature (°F)")
	tempByDate := make(map[string]float64, len(dailyTemp.Dates))
	for i, d := range dailyTemp.Dates {
		tempByDate[d.Format("2006-01-02")] = dailyTemp.Values[i]
	}
	for i, d := range dailyUsage.Dates {
		row := i + 2
		date := d.Format("2006-01-02")
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("A%d", row), date)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("B%d", row), dailyUsage.Values[i])
		if t, ok := tempByDate[date]; ok {
			_ = f.SetCellValue(dailySheet, fmt.Sprintf("C%d", row), t)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writePivotSheet lays a matrix out with dates across the top and hours
// down the side. Absent cells stay empty.
func writePivotSheet(f *excelize.File, sheet string, m *pivot.Matrix, title string) error {
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	for c, d := range m.Dates {
		cell, err := excelize.CoordinatesToCellName(c+2, 2)
		if err != nil {
			return err
		}
		_ = f.SetCellValue(sheet, cell, d.Format("2006-01-02"))
	}
	for h := 0; h < pivot.HoursPerDay; h++ {
		cell, err := excelize.CoordinatesToCellName(1, h+3)
		if err != nil {
			return err
		}
		_ = f.SetCellValue(sheet, cell, pivot.HourLabel(h))
		for c := range m.Dates {
			v, ok := m.At(h, c)
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+2, h+3)
			if err != nil {
				return err
			}
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}
