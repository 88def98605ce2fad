// Package api serves the dashboard: HTML pages, JSON chart endpoints,
// rendered heatmap PNGs, and the workbook export.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridheat/internal/heatimg"
	"gridheat/internal/ingest"
	"gridheat/internal/logging"
	"gridheat/internal/meterfile"
	"gridheat/internal/models"
	"gridheat/internal/pivot"
	"gridheat/internal/store"
)

// maxUploadBytes caps usage export uploads. A year of hourly rows is
// well under a megabyte.
const maxUploadBytes = 16 << 20

type Server struct {
	store    *store.Store
	pipeline *ingest.Pipeline
	port     string
	loc      *time.Location
	tmpl     *template.Template
	log      *logging.Logger
}

func NewServer(st *store.Store, pipeline *ingest.Pipeline, port string, loc *time.Location, log *logging.Logger) *Server {
	return &Server{
		store:    st,
		pipeline: pipeline,
		port:     port,
		loc:      loc,
		tmpl:     newTemplates(),
		log:      log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /dataset/{id}", s.handleDataset)
	mux.HandleFunc("GET /api/heatmap", s.handleAPIHeatmap)
	mux.HandleFunc("GET /api/daily", s.handleAPIDaily)
	mux.HandleFunc("GET /api/monthly", s.handleAPIMonthly)
	mux.HandleFunc("GET /heatmap.png", s.handleHeatmapPNG)
	mux.HandleFunc("GET /export/xlsx", s.handleExportXLSX)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type IndexData struct {
	Datasets []models.Dataset
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.ListDatasets(10)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", IndexData{Datasets: datasets}); err != nil {
		s.log.Warnf("render index: %v", err)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("export")
	if err != nil {
		http.Error(w, "missing export file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	id, err := s.pipeline.Run(file, header.Filename)
	if err != nil {
		s.log.Warnf("upload %s: %v", header.Filename, err)
		switch {
		case errors.Is(err, meterfile.ErrMalformedInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ingest.ErrExternalService):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/dataset/%d", id), http.StatusSeeOther)
}

type DatasetPageData struct {
	Dataset models.Dataset
	Prices  PriceStats
	Rows    int
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.datasetByPath(w, r)
	if !ok {
		return
	}
	records, err := s.store.GetUsageRecords(ds.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := DatasetPageData{
		Dataset: *ds,
		Prices:  priceStats(records),
		Rows:    len(records),
	}
	if err := s.tmpl.ExecuteTemplate(w, "dataset.html", data); err != nil {
		s.log.Warnf("render dataset %d: %v", ds.ID, err)
	}
}

func (s *Server) handleAPIHeatmap(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.datasetByQuery(w, r)
	if !ok {
		return
	}

	kind := r.URL.Query().Get("kind")
	var data HeatmapData
	switch kind {
	case "usage":
		m, err := s.usageMatrix(ds.ID)
		if err != nil {
			s.matrixError(w, err)
			return
		}
		data = heatmapData(m, "kWh")
	case "temperature":
		m, err := s.temperatureMatrix(ds.ID)
		if err != nil {
			s.matrixError(w, err)
			return
		}
		data = heatmapData(m, "°F")
	default:
		http.Error(w, "kind must be usage or temperature", http.StatusBadRequest)
		return
	}
	data.Zip5 = formatZip5(ds.Zip5)

	writeJSON(w, data)
}

func (s *Server) handleAPIDaily(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, DailyData{
		Usage:       seriesData(pivot.DailyUsage(records), "Daily cumulative energy (kWh)"),
		Temperature: seriesData(pivot.DailyMeanTemp(observations), "Daily average temperature (°F)"),
	})
}

func (s *Server) handleAPIMonthly(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.datasetByQuery(w, r)
	if !ok {
		return
	}
	records, err := s.store.GetUsageRecords(ds.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, monthlyData(records))
}

func (s *Server) handleHeatmapPNG(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.datasetByQuery(w, r)
	if !ok {
		return
	}

	var (
		data []byte
		err  error
	)
	switch kind := r.URL.Query().Get("kind"); kind {
	case "usage":
		var m *pivot.Matrix
		if m, err = s.usageMatrix(ds.ID); err == nil {
			data, err = heatimg.Render(m)
		}
	case "temperature":
		var m *pivot.Matrix
		if m, err = s.temperatureMatrix(ds.ID); err == nil {
			data, err = heatimg.Render(m)
		}
	case "overlay":
		var usage, temp *pivot.Matrix
		if usage, err = s.usageMatrix(ds.ID); err == nil {
			if temp, err = s.temperatureMatrix(ds.ID); err == nil {
				data, err = heatimg.RenderOverlay(temp, usage)
			}
		}
	default:
		http.Error(w, "kind must be usage, temperature or overlay", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.matrixError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

type HealthStatus struct {
	Status   string `json:"status"`
	Datasets int    `json:"datasets"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok"}
	n, err := s.store.CountDatasets()
	if err != nil {
		health.Status = "error"
		health.Error = err.Error()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(health)
		return
	}
	health.Datasets = n
	writeJSON(w, health)
}

func (s *Server) usageMatrix(datasetID int64) (*pivot.Matrix, error) {
	records, err := s.store.GetUsageRecords(datasetID)
	if err != nil {
		return nil, err
	}
	return pivot.Build(pivot.UsageSamples(records), pivot.RejectDuplicates)
}

func (s *Server) temperatureMatrix(datasetID int64) (*pivot.Matrix, error) {
	observations, err := s.store.GetWeatherObservations(datasetID)
	if err != nil {
		return nil, err
	}
	// A daylight-saving transition repeats one local hour; keep the first.
	return pivot.Build(pivot.WeatherSamples(observations), pivot.KeepFirst)
}

// matrixError maps a pivot failure to a response: duplicate cells are a
// data problem the user should see, everything else is internal.
func (s *Server) matrixError(w http.ResponseWriter, err error) {
	if errors.Is(err, pivot.ErrDuplicateCell) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) datasetByQuery(w http.ResponseWriter, r *http.Request) (*models.Dataset, bool) {
	return s.lookupDataset(w, r.URL.Query().Get("dataset"))
}

func (s *Server) datasetByPath(w http.ResponseWriter, r *http.Request) (*models.Dataset, bool) {
	return s.lookupDataset(w, r.PathValue("id"))
}

func (s *Server) lookupDataset(w http.ResponseWriter, raw string) (*models.Dataset, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid dataset id", http.StatusBadRequest)
		return nil, false
	}
	ds, err := s.store.GetDataset(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if ds == nil {
		http.Error(w, "dataset not found", http.StatusNotFound)
		return nil, false
	}
	return ds, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
