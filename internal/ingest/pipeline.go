package ingest

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"gridheat/internal/logging"
	"gridheat/internal/meterfile"
	"gridheat/internal/metrics"
	"gridheat/internal/models"
	"gridheat/internal/store"
)

// Pipeline runs one synchronous ingestion per uploaded document: locate
// the header, parse the usage rows, geocode the zip, fetch the weather
// window, store it all as one dataset. Any failure aborts the run with
// nothing stored.
type Pipeline struct {
	store    *store.Store
	geocoder *Geocoder
	weather  *WeatherClient
	loc      *time.Location
	log      *logging.Logger
}

func NewPipeline(st *store.Store, geocoder *Geocoder, weather *WeatherClient, loc *time.Location, log *logging.Logger) *Pipeline {
	return &Pipeline{store: st, geocoder: geocoder, weather: weather, loc: loc, log: log}
}

// Run ingests one document and returns the stored dataset ID.
func (p *Pipeline) Run(r io.Reader, sourceName string) (int64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("read_error").Inc()
		return 0, fmt.Errorf("read upload: %w", err)
	}

	p.log.Infof("locating header in %s", sourceName)
	header, err := meterfile.LocateHeader(bytes.NewReader(raw))
	if err != nil {
		metrics.ParseFailuresTotal.WithLabelValues("locate").Inc()
		metrics.UploadsTotal.WithLabelValues("malformed").Inc()
		return 0, err
	}
	p.log.Infof("header on line %d, zip %05d, columns %v", header.HeaderLine, header.Zip5, header.ColumnNames)

	records, err := meterfile.ParseUsage(bytes.NewReader(raw), header, p.loc)
	if err != nil {
		metrics.ParseFailuresTotal.WithLabelValues("parse").Inc()
		metrics.UploadsTotal.WithLabelValues("malformed").Inc()
		return 0, err
	}
	start, end := records[0].PeriodStart, records[0].PeriodStart
	for _, rec := range records[1:] {
		if rec.PeriodStart.Before(start) {
			start = rec.PeriodStart
		}
		if rec.PeriodStart.After(end) {
			end = rec.PeriodStart
		}
	}
	p.log.Infof("parsed %d usage rows from %s to %s", len(records),
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	p.log.Infof("geocoding zip %05d", header.Zip5)
	point, err := p.geocoder.Lookup(header.Zip5)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("external_error").Inc()
		return 0, err
	}
	p.log.Infof("zip %05d resolves to %s (%.4f, %.4f)", header.Zip5, point.PlaceName, point.Latitude, point.Longitude)

	observations, err := p.weather.FetchHourly(*point, start, end)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("external_error").Inc()
		return 0, err
	}
	fetched := len(observations)
	observations = clipToLocalDates(observations, start, end)
	p.log.Infof("fetched %d hourly weather observations, %d within the usage dates", fetched, len(observations))

	dataset := models.Dataset{
		SourceName: sourceName,
		Zip5:       header.Zip5,
		Zip4:       header.Zip4,
		Latitude:   point.Latitude,
		Longitude:  point.Longitude,
		StartAt:    start,
		EndAt:      end,
	}
	id, err := p.store.SaveDataset(dataset, records, observations)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("store_error").Inc()
		return 0, fmt.Errorf("store dataset: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	metrics.DatasetsIngested.Inc()
	p.log.Infof("dataset %d stored", id)
	return id, nil
}

// clipToLocalDates drops observations whose local date falls outside the
// usage window's local dates. The archive API serves whole UTC days, which
// spill onto an extra local date on either side of the window in any zone
// west or east of UTC; keeping them would give the temperature pivot more
// date columns than the usage pivot.
func clipToLocalDates(observations []models.WeatherObservation, start, end time.Time) []models.WeatherObservation {
	first := localDate(start)
	last := localDate(end)
	kept := make([]models.WeatherObservation, 0, len(observations))
	for _, o := range observations {
		d := localDate(o.LocalTime)
		if d.Before(first) || d.After(last) {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

func localDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
