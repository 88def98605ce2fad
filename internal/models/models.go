package models

import (
	"database/sql"
	"time"
)

// HeaderAddress is the result of locating the metadata and header lines
// inside a usage export. HeaderLine is the zero-based index of the line
// starting with "TYPE"; the tabular section begins on the line after it.
type HeaderAddress struct {
	Zip5        int
	Zip4        int
	AddressLine int
	HeaderLine  int
	ColumnNames []string
}

// Dataset is one ingested usage export plus the weather window fetched
// for it.
type Dataset struct {
	ID         int64
	SourceName string
	Zip5       int
	Zip4       int
	Latitude   float64
	Longitude  float64
	StartAt    time.Time
	EndAt      time.Time
	UploadedAt time.Time
}

// UsageRecord is one row of the tabular section: an hourly metering
// interval. PricePerKWh is NULL when the interval used no energy.
type UsageRecord struct {
	ID          int64
	DatasetID   int64
	PeriodStart time.Time
	UsageKWh    float64
	Cost        float64
	PricePerKWh sql.NullFloat64
	Month       string // "Jan" .. "Dec", from PeriodStart
}

// WeatherObservation is one hourly temperature sample. ObservedAt is
// stored in UTC; LocalTime carries the same instant in the configured
// display zone, which is what the pivot keys on.
type WeatherObservation struct {
	ID         int64
	DatasetID  int64
	ObservedAt time.Time
	LocalTime  time.Time
	TempC      float64
	TempF      float64
}

// Location is a geocoded point for a zip code.
type Location struct {
	Latitude  float64
	Longitude float64
	PlaceName string
}
