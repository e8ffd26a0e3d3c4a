package main

import (
	"context"
	"log"
	"net/http"

	"github.com/avaskey/housebook/internal/api"
	"github.com/avaskey/housebook/internal/config"
	"github.com/avaskey/housebook/internal/service"
	"github.com/avaskey/housebook/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ledgerStore, err := store.NewStore(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer ledgerStore.Close()

	if err := ledgerStore.Migrate(context.Background()); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}

	poster := service.NewPoster(ledgerStore.Db)
	handler := api.NewHandler(ledgerStore, poster, cfg.SweepOnFetch)
	router := api.NewRouter(handler)

	log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
