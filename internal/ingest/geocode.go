// Package ingest turns an uploaded usage export into a stored dataset:
// header location, CSV parsing, zip geocoding, and the hourly weather
// fetch for the usage window.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gridheat/internal/httputil"
	"gridheat/internal/metrics"
	"gridheat/internal/models"
)

// ErrExternalService marks geocoding or weather fetch failures so the
// caller can distinguish them from a malformed upload.
var ErrExternalService = errors.New("external service failure")

const zippopotamBaseURL = "https://api.zippopotam.us"

// Geocoder resolves a US zip code to coordinates via Zippopotam.
type Geocoder struct {
	baseURL string
	client  *http.Client
}

func NewGeocoder() *Geocoder {
	return &Geocoder{
		baseURL: zippopotamBaseURL,
		client:  httputil.NewClient(),
	}
}

type zippopotamResponse struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName string `json:"place name"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"places"`
}

// Lookup resolves the 5-digit primary zip to a point. An unknown zip
// (404) is permanent; transient statuses are retried with exponential
// backoff.
func (g *Geocoder) Lookup(zip5 int) (*models.Location, error) {
	url := fmt.Sprintf("%s/us/%05d", g.baseURL, zip5)

	start := time.Now()
	body, err := fetchWithRetry(g.client, url, "geocode")
	metrics.ExternalCallLatency.WithLabelValues("geocode").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: geocode zip %05d: %v", ErrExternalService, zip5, err)
	}

	var data zippopotamResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: geocode unmarshal: %v", ErrExternalService, err)
	}
	if len(data.Places) == 0 {
		return nil, fmt.Errorf("%w: no places for zip %05d", ErrExternalService, zip5)
	}

	place := data.Places[0]
	lat, err := strconv.ParseFloat(place.Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode latitude %q: %v", ErrExternalService, place.Latitude, err)
	}
	lon, err := strconv.ParseFloat(place.Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: geocode longitude %q: %v", ErrExternalService, place.Longitude, err)
	}

	return &models.Location{Latitude: lat, Longitude: lon, PlaceName: place.PlaceName}, nil
}

// fetchWithRetry GETs url, retrying rate-limit style statuses with
// exponential backoff and treating everything else as permanent.
func fetchWithRetry(client *http.Client, url, service string) ([]byte, error) {
	var body []byte
	operation := func() error {
		resp, err := client.Get(url)
		if err != nil {
			metrics.ExternalCallsTotal.WithLabelValues(service, "error").Inc()
			return backoff.Permanent(fmt.Errorf("fetch: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			metrics.ExternalCallsTotal.WithLabelValues(service, strconv.Itoa(resp.StatusCode)).Inc()
			return fmt.Errorf("transient: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			metrics.ExternalCallsTotal.WithLabelValues(service, strconv.Itoa(resp.StatusCode)).Inc()
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			metrics.ExternalCallsTotal.WithLabelValues(service, "error").Inc()
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		metrics.ExternalCallsTotal.WithLabelValues(service, "200").Inc()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return body, nil
}
