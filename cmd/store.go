package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hoopsight/hoopsync/internal/resilience"
	"github.com/hoopsight/hoopsync/internal/source"
	"github.com/hoopsight/hoopsync/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initGateway builds the provider catalog; the store supplies the cached
// espn event id mapping for the odds primary.
func initGateway(st store.Store) *source.Gateway {
	return source.NewCatalog(source.CatalogOptions{
		UserAgent:     cfg.Sources.UserAgent,
		Timeout:       cfg.Sources.Timeout(),
		LiveBaseURL:   cfg.Sources.LiveBaseURL,
		StatsBaseURL:  cfg.Sources.StatsBaseURL,
		ESPNBaseURL:   cfg.Sources.ESPNBaseURL,
		CoversBaseURL: cfg.Sources.CoversBaseURL,
		InjuryURL:     cfg.Sources.InjuryURL,
		RatePerSec:    cfg.Sources.RatePerSec,
		RateBurst:     cfg.Sources.RateBurst,
		LiveMaxAge:    cfg.Sources.LiveMaxAge(),
		ESPNEventID:   st.GetESPNEventID,
	}, source.WithBackoff(sourceBackoff()))
}

func sourceBackoff() resilience.Backoff {
	b := resilience.DefaultBackoff()
	if cfg.Sources.Retry.MaxAttempts > 0 {
		b.MaxAttempts = cfg.Sources.Retry.MaxAttempts
	}
	if cfg.Sources.Retry.BaseDelayMS > 0 {
		b.BaseDelay = time.Duration(cfg.Sources.Retry.BaseDelayMS) * time.Millisecond
	}
	if cfg.Sources.Retry.MaxDelayMS > 0 {
		b.MaxDelay = time.Duration(cfg.Sources.Retry.MaxDelayMS) * time.Millisecond
	}
	return b
}
