package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gridheat/internal/httputil"
	"gridheat/internal/metrics"
	"gridheat/internal/models"
)

const meteoBaseURL = "https://archive-api.open-meteo.com"

// hourlyTimeLayout is the timestamp format of the archive API when asked
// for UTC timestamps.
const hourlyTimeLayout = "2006-01-02T15:04"

// WeatherClient fetches hourly temperature history from the Open-Meteo
// archive API.
type WeatherClient struct {
	baseURL string
	client  *http.Client
	loc     *time.Location
}

// NewWeatherClient returns a client whose observations are localized to
// loc, the account's display zone.
func NewWeatherClient(loc *time.Location) *WeatherClient {
	return &WeatherClient{
		baseURL: meteoBaseURL,
		client:  httputil.NewClient(),
		loc:     loc,
	}
}

type meteoResponse struct {
	Hourly struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m"`
	} `json:"hourly"`
}

// FetchHourly returns hourly temperature observations for the point over
// [start, end]. The API serves UTC timestamps in Celsius; each
// observation is localized and carries a derived Fahrenheit value.
// Missing hours (null temperature) are dropped rather than zero-filled.
func (w *WeatherClient) FetchHourly(point models.Location, start, end time.Time) ([]models.WeatherObservation, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", point.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", point.Longitude))
	q.Set("start_date", start.UTC().Format("2006-01-02"))
	q.Set("end_date", end.UTC().Format("2006-01-02"))
	q.Set("hourly", "temperature_2m")
	q.Set("timezone", "UTC")
	u := w.baseURL + "/v1/archive?" + q.Encode()

	began := time.Now()
	body, err := fetchWithRetry(w.client, u, "weather")
	metrics.ExternalCallLatency.WithLabelValues("weather").Observe(time.Since(began).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: weather fetch: %v", ErrExternalService, err)
	}

	var data meteoResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: weather unmarshal: %v", ErrExternalService, err)
	}
	if len(data.Hourly.Time) != len(data.Hourly.Temperature) {
		return nil, fmt.Errorf("%w: weather series length mismatch: %d times, %d temps",
			ErrExternalService, len(data.Hourly.Time), len(data.Hourly.Temperature))
	}

	var observations []models.WeatherObservation
	for i, ts := range data.Hourly.Time {
		temp := data.Hourly.Temperature[i]
		if temp == nil {
			continue
		}
		observedAt, err := time.ParseInLocation(hourlyTimeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: weather timestamp %q: %v", ErrExternalService, ts, err)
		}
		observations = append(observations, models.WeatherObservation{
			ObservedAt: observedAt,
			LocalTime:  observedAt.In(w.loc),
			TempC:      *temp,
			TempF:      *temp*9/5 + 32,
		})
	}

	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: weather returned no observations", ErrExternalService)
	}
	return observations, nil
}
