// Package store persists ingested datasets in SQLite so the dashboard's
// chart endpoints can re-read them across requests. Pivot matrices are
// never stored; they are derived fresh per render.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"gridheat/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New wraps an open database handle. loc is the display zone weather
// timestamps are localized to on read.
func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

// SaveDataset stores a dataset with its usage rows and weather
// observations in one transaction.
func (s *Store) SaveDataset(ds models.Dataset, records []models.UsageRecord, observations []models.WeatherObservation) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO datasets (source_name, zip5, zip4, latitude, longitude, start_at, end_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ds.SourceName, ds.Zip5, ds.Zip4, ds.Latitude, ds.Longitude, ds.StartAt, ds.EndAt)
	if err != nil {
		return 0, fmt.Errorf("insert dataset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	usageStmt, err := tx.Prepare(`
		INSERT INTO usage_records (dataset_id, period_start, usage_kwh, cost, price_per_kwh, month)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer usageStmt.Close()
	for _, r := range records {
		if _, err := usageStmt.Exec(id, r.PeriodStart, r.UsageKWh, r.Cost, r.PricePerKWh, r.Month); err != nil {
			return 0, fmt.Errorf("insert usage record at %s: %w", r.PeriodStart, err)
		}
	}

	weatherStmt, err := tx.Prepare(`
		INSERT INTO weather_observations (dataset_id, observed_at, temp_c, temp_f)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer weatherStmt.Close()
	for _, o := range observations {
		if _, err := weatherStmt.Exec(id, o.ObservedAt.UTC(), o.TempC, o.TempF); err != nil {
			return 0, fmt.Errorf("insert weather observation at %s: %w", o.ObservedAt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetDataset returns dataset metadata, or nil when the ID is unknown.
func (s *Store) GetDataset(id int64) (*models.Dataset, error) {
	row := s.db.QueryRow(`
		SELECT id, source_name, zip5, zip4, latitude, longitude, start_at, end_at, uploaded_at
		FROM datasets WHERE id = ?
	`, id)

	var ds models.Dataset
	err := row.Scan(&ds.ID, &ds.SourceName, &ds.Zip5, &ds.Zip4, &ds.Latitude, &ds.Longitude, &ds.StartAt, &ds.EndAt, &ds.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// ListDatasets returns the most recently uploaded datasets, newest first.
func (s *Store) ListDatasets(limit int) ([]models.Dataset, error) {
	rows, err := s.db.Query(`
		SELECT id, source_name, zip5, zip4, latitude, longitude, start_at, end_at, uploaded_at
		FROM datasets ORDER BY uploaded_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []models.Dataset
	for rows.Next() {
		var ds models.Dataset
		if err := rows.Scan(&ds.ID, &ds.SourceName, &ds.Zip5, &ds.Zip4, &ds.Latitude, &ds.Longitude, &ds.StartAt, &ds.EndAt, &ds.UploadedAt); err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// GetUsageRecords returns a dataset's usage rows in chronological order,
// with timestamps localized to the display zone.
func (s *Store) GetUsageRecords(datasetID int64) ([]models.UsageRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, dataset_id, period_start, usage_kwh, cost, price_per_kwh, month
		FROM usage_records WHERE dataset_id = ? ORDER BY period_start ASC
	`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var r models.UsageRecord
		if err := rows.Scan(&r.ID, &r.DatasetID, &r.PeriodStart, &r.UsageKWh, &r.Cost, &r.PricePerKWh, &r.Month); err != nil {
			return nil, err
		}
		r.PeriodStart = r.PeriodStart.In(s.loc)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetWeatherObservations returns a dataset's weather rows in
// chronological order. LocalTime is rebuilt from the stored UTC instant.
func (s *Store) GetWeatherObservations(datasetID int64) ([]models.WeatherObservation, error) {
	rows, err := s.db.Query(`
		SELECT id, dataset_id, observed_at, temp_c, temp_f
		FROM weather_observations WHERE dataset_id = ? ORDER BY observed_at ASC
	`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []models.WeatherObservation
	for rows.Next() {
		var o models.WeatherObservation
		if err := rows.Scan(&o.ID, &o.DatasetID, &o.ObservedAt, &o.TempC, &o.TempF); err != nil {
			return nil, err
		}
		o.LocalTime = o.ObservedAt.In(s.loc)
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

// CountDatasets reports how many datasets are stored; used by /health.
func (s *Store) CountDatasets() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM datasets").Scan(&n)
	return n, err
}
