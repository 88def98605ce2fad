package api

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"gridheat/internal/models"
	"gridheat/internal/pivot"
)

func TestBuildWorkbook(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	usage, err := pivot.Build([]pivot.Sample{
		{Date: d1, Hour: 0, Value: 1.5},
		{Date: d2, Hour: 23, Value: 0.25},
	}, pivot.RejectDuplicates)
	if err != nil {
		t.Fatalf("build usage: %v", err)
	}
	temp, err := pivot.Build([]pivot.Sample{
		{Date: d1, Hour: 0, Value: 50},
		{Date: d2, Hour: 0, Value: 60},
	}, pivot.KeepFirst)
	if err != nil {
		t.Fatalf("build temp: %v", err)
	}

	dailyUsage := pivot.Series{Dates: []time.Time{d1, d2}, Values: []float64{1.5, 0.25}, Mean: 0.875}
	dailyTemp := pivot.Series{Dates: []time.Time{d1}, Values: []float64{50}, Mean: 50}

	ds := &models.Dataset{ID: 7, Zip5: 95814}
	data, err := buildWorkbook(ds, usage, temp, dailyUsage, dailyTemp)
	if err != nil {
		t.Fatalf("buildWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"usage", "weather", "daily"} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
			t.Errorf("sheet %q missing (idx %d, err %v)", sheet, idx, err)
		}
	}

	// Dates run across row 2, hours down column A from row 3.
	if v, err := f.GetCellValue("usage", "B2"); err != nil || v != "2024-01-01" {
		t.Errorf("usage!B2 = %q, %v", v, err)
	}
	if v, err := f.GetCellValue("usage", "A3"); err != nil || v != "00:00" {
		t.Errorf("usage!A3 = %q, %v", v, err)
	}
	if v, err := f.GetCellValue("usage", "B3"); err != nil || v != "1.5" {
		t.Errorf("usage!B3 = %q, %v", v, err)
	}
	// Hour 23 on day 2: column C, row 26.
	if v, err := f.GetCellValue("usage", "C26"); err != nil || v != "0.25" {
		t.Errorf("usage!C26 = %q, %v", v, err)
	}
	// Absent cell stays empty.
	if v, err := f.GetCellValue("usage", "C3"); err != nil || v != "" {
		t.Errorf("usage!C3 = %q, want empty", v)
	}

	if v, err := f.GetCellValue("daily", "A2"); err != nil || v != "2024-01-01" {
		t.Errorf("daily!A2 = %q, %v", v, err)
	}
	if v, err := f.GetCellValue("daily", "C2"); err != nil || v != "50" {
		t.Errorf("daily!C2 = %q, %v", v, err)
	}
	// No temperature for day 2.
	if v, err := f.GetCellValue("daily", "C3"); err != nil || v != "" {
		t.Errorf("daily!C3 = %q, want empty", v)
	}
}
