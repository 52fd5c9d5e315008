package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/randunun/bom-pricer/internal/pricer"
	"github.com/randunun/bom-pricer/internal/pricing"
	"github.com/randunun/bom-pricer/internal/store"
)

// openStore builds the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	}
	return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
}

func newConverter() pricing.Converter {
	return pricing.NewConverter(cfg.FX.Rates)
}

func newPricer(st store.Store) *pricer.Pricer {
	return pricer.New(st, newConverter(), cfg.Scoring.ToScoring(), pricer.Config{
		MaxBOMLines:   cfg.Crawl.MaxBOMLines,
		PollAttempts:  cfg.Crawl.PollAttempts,
		PollInterval:  time.Duration(cfg.Crawl.PollIntervalSecs) * time.Second,
		SearchBaseURL: cfg.Crawl.SearchBaseURL,
	})
}
