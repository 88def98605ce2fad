package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	_ "modernc.org/sqlite"

	"gridheat/internal/api"
	"gridheat/internal/ingest"
	"gridheat/internal/logging"
	"gridheat/internal/store"
)

var cli struct {
	Level string `enum:"INFO,WARNING" default:"WARNING" help:"Logging level."`
	DB    string `default:"data/gridheat.db" help:"Path to SQLite database."`
	Port  string `default:"8080" help:"HTTP server port."`
	CSV   string `optional:"" help:"Usage export to ingest at startup."`
	TZ    string `default:"America/Los_Angeles" help:"Display time zone for dates and hours."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("gridheat"),
		kong.Description("Dashboard of utility energy usage against hourly weather."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	log := logging.New(cli.Level)
	defer log.Sync()

	loc, err := time.LoadLocation(cli.TZ)
	if err != nil {
		log.Warnf("load %s timezone, using UTC: %v", cli.TZ, err)
		loc = time.UTC
	}

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Errorf("open database: %v", err)
		kctx.Exit(1)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Errorf("migrate: %v", err)
		kctx.Exit(1)
	}
	log.Infof("database migrated")

	pipeline := ingest.NewPipeline(st, ingest.NewGeocoder(), ingest.NewWeatherClient(loc), loc, log)

	if cli.CSV != "" {
		f, err := os.Open(cli.CSV)
		if err != nil {
			log.Errorf("open %s: %v", cli.CSV, err)
			kctx.Exit(1)
		}
		id, err := pipeline.Run(f, cli.CSV)
		f.Close()
		if err != nil {
			log.Errorf("ingest %s: %v", cli.CSV, err)
			kctx.Exit(1)
		}
		log.Infof("ingested %s as dataset %d", cli.CSV, id)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(st, pipeline, cli.Port, loc, log)
	log.Infof("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Errorf("server: %v", err)
		kctx.Exit(1)
	}
}
