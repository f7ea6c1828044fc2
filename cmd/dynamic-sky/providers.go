package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"dynamic-sky/config"
	"dynamic-sky/internal/astro"
	"dynamic-sky/internal/storage"

	"github.com/rs/zerolog"
)

// secretsProvider re-reads the secrets file before every fetch so a changed
// API key or location is picked up without a restart.
type secretsProvider struct {
	cfg config.Config
}

func (p *secretsProvider) Name() string { return p.cfg.Astro.Provider }

func (p *secretsProvider) Forecast(ctx context.Context) (*astro.Forecast, error) {
	cfg := p.cfg
	if secrets, err := config.LoadSecrets(cfg.Paths.SecretsFile); err == nil {
		cfg.ApplySecrets(secrets)
	}
	provider, err := newProvider(&cfg)
	if err != nil {
		return nil, err
	}
	return provider.Forecast(ctx)
}

func newProvider(cfg *config.Config) (astro.Provider, error) {
	switch cfg.Astro.Provider {
	case "", "openweather":
		return astro.NewOpenWeatherClient(astro.OpenWeatherConfig{
			APIKey:    cfg.Astro.APIKey,
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
			Units:     cfg.Astro.Units,
			Timeout:   cfg.Astro.Timeout,
		}), nil
	case "openmeteo":
		if !cfg.Location.HasCoordinates() {
			return nil, astro.ErrMissingCredentials
		}
		return astro.NewOpenMeteoClient(astro.OpenMeteoConfig{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
			Timeout:   cfg.Astro.Timeout,
		}), nil
	case "offline":
		return &astro.SunriseCalculator{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
			Location:  cfg.Location.TimeLocation(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown astro provider %q", cfg.Astro.Provider)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newAstroService wires provider and cache. The returned closer releases the
// sqlite backend when it is used.
func newAstroService(cfg *config.Config, logger zerolog.Logger) (*astro.Service, io.Closer, error) {
	if _, err := newProvider(cfg); err != nil && !errors.Is(err, astro.ErrMissingCredentials) {
		return nil, nil, err
	}

	var cache astro.Cache
	var closer io.Closer = nopCloser{}
	switch cfg.Astro.CacheBackend {
	case "sqlite":
		db, err := storage.NewDatabase(cfg.DatabasePath())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug().Str("path", cfg.DatabasePath()).Msg("astro cache database opened")
		cache = db.AstroCache()
		closer = db
	default:
		cache = astro.NewFileCache(cfg.Paths.AstroCachePath())
	}

	service := astro.NewService(astro.ServiceConfig{
		Provider:      &secretsProvider{cfg: *cfg},
		Cache:         cache,
		Location:      cfg.Location.TimeLocation(),
		TTL:           cfg.Astro.CacheTTL,
		RetryInterval: cfg.Astro.RetryInterval,
		Logger:        logger,
	})
	return service, closer, nil
}
