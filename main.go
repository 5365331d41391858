package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/fuelmap-es/gasolineras-api/config"
	"github.com/fuelmap-es/gasolineras-api/db"
	"github.com/fuelmap-es/gasolineras-api/httpapi"
	"github.com/fuelmap-es/gasolineras-api/metrics"
	"github.com/fuelmap-es/gasolineras-api/minetur"
	"github.com/fuelmap-es/gasolineras-api/scheduler"
	syncpkg "github.com/fuelmap-es/gasolineras-api/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("db connection error: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema error: %v", err)
	}
	metrics.RegisterRowGauges(store)

	fetcher := minetur.NewClient(cfg.UpstreamURL, cfg.RequestTimeout)
	orchestrator := syncpkg.New(fetcher, store)

	if cfg.SyncInterval > 0 {
		sched := scheduler.New(cfg.SyncInterval, orchestrator)
		if err := sched.Start(); err != nil {
			log.Fatalf("scheduler error: %v", err)
		}
		defer sched.Stop()
		log.Printf("scheduler enabled (interval=%s)", cfg.SyncInterval)
	}

	srv := httpapi.New(cfg, store, orchestrator)
	log.Printf("REST API listening on %s", cfg.ListenAddr())

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
