package meterfile

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseUsage(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}

	header, err := LocateHeader(strings.NewReader(validDoc))
	if err != nil {
		t.Fatalf("LocateHeader: %v", err)
	}
	records, err := ParseUsage(strings.NewReader(validDoc), header, loc)
	if err != nil {
		t.Fatalf("ParseUsage: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	wantStart := time.Date(2024, 1, 1, 0, 0, 0, 0, loc)
	if !first.PeriodStart.Equal(wantStart) {
		t.Errorf("PeriodStart = %v, want %v", first.PeriodStart, wantStart)
	}
	if first.UsageKWh != 0.5 {
		t.Errorf("UsageKWh = %v, want 0.5", first.UsageKWh)
	}
	if first.Cost != 0.25 {
		t.Errorf("Cost = %v, want 0.25 (leading $ stripped)", first.Cost)
	}
	if first.Month != "Jan" {
		t.Errorf("Month = %q, want Jan", first.Month)
	}

	second := records[1]
	if !second.PricePerKWh.Valid || second.PricePerKWh.Float64 != 0.5 {
		t.Errorf("PricePerKWh = %+v, want 0.5 for USAGE=2.0 COST=$1.00", second.PricePerKWh)
	}
}

func TestParseUsage_ZeroUsagePriceUndefined(t *testing.T) {
	doc := "Address,X 958141234\n" +
		"TYPE,DATE,START TIME,END TIME,USAGE (kWh),COST,NOTES\n" +
		"Electric usage,2024-01-01,05:00,05:59,0.00,$0.00,\n"

	header, err := LocateHeader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LocateHeader: %v", err)
	}
	records, err := ParseUsage(strings.NewReader(doc), header, time.UTC)
	if err != nil {
		t.Fatalf("ParseUsage: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].PricePerKWh.Valid {
		t.Errorf("PricePerKWh = %+v, want NULL for zero usage", records[0].PricePerKWh)
	}
}

func TestParseUsage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "missing usage column",
			doc: "Address,X 958141234\n" +
				"TYPE,DATE,START TIME,COST\n" +
				"Electric usage,2024-01-01,00:00,$1.00\n",
		},
		{
			name: "bad timestamp",
			doc: "Address,X 958141234\n" +
				"TYPE,DATE,START TIME,END TIME,USAGE (kWh),COST,NOTES\n" +
				"Electric usage,not-a-date,00:00,00:59,1.0,$1.00,\n",
		},
		{
			name: "bad usage number",
			doc: "Address,X 958141234\n" +
				"TYPE,DATE,START TIME,END TIME,USAGE (kWh),COST,NOTES\n" +
				"Electric usage,2024-01-01,00:00,00:59,abc,$1.00,\n",
		},
		{
			name: "no data rows",
			doc: "Address,X 958141234\n" +
				"TYPE,DATE,START TIME,END TIME,USAGE (kWh),COST,NOTES\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, err := LocateHeader(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("LocateHeader: %v", err)
			}
			if _, err := ParseUsage(strings.NewReader(tt.doc), header, time.UTC); !errors.Is(err, ErrMalformedInput) {
				t.Errorf("ParseUsage error = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestParseUsage_SlashDates(t *testing.T) {
	doc := "Address,X 958141234\n" +
		"TYPE,DATE,START TIME,END TIME,USAGE (kWh),COST,NOTES\n" +
		"Electric usage,1/15/2024,13:00,13:59,1.25,$0.50,\n"

	header, err := LocateHeader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LocateHeader: %v", err)
	}
	records, err := ParseUsage(strings.NewReader(doc), header, time.UTC)
	if err != nil {
		t.Fatalf("ParseUsage: %v", err)
	}
	want := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
	if !records[0].PeriodStart.Equal(want) {
		t.Errorf("PeriodStart = %v, want %v", records[0].PeriodStart, want)
	}
}
