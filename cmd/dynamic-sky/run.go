package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dynamic-sky/config"
	"dynamic-sky/internal/api"
	"dynamic-sky/internal/astro"
	"dynamic-sky/internal/clock"
	"dynamic-sky/internal/hyprlax"
	"dynamic-sky/internal/layers"
	"dynamic-sky/internal/mqtt"
	"dynamic-sky/internal/reconciler"
	"dynamic-sky/internal/render"
	"dynamic-sky/internal/sky"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	sunOverlayName  = "sun_overlay.png"
	moonOverlayName = "moon_overlay.png"
)

func newModel(cfg *config.Config, width, height int) *sky.Model {
	geom := sky.Geometry{
		Width:          width,
		Height:         height,
		MarginLeft:     cfg.Sky.MarginLeft,
		MarginRight:    cfg.Sky.MarginRight,
		HorizonFrac:    cfg.Sky.HorizonFrac,
		ApexFrac:       cfg.Sky.ApexFrac,
		MinTopMargin:   cfg.Sky.MinTopMargin,
		ArcHeightDay:   cfg.Sky.ArcHeightDay,
		ArcHeightNight: cfg.Sky.ArcHeightNight,
	}
	opts := sky.Options{
		TwilightMinutes:   cfg.Sky.TwilightMinutes,
		MoonBandMin:       cfg.Sky.MoonBandMin,
		MoonBandMax:       cfg.Sky.MoonBandMax,
		ForceMoon:         cfg.Sky.ForceMoon,
		MoonPhaseOverride: cfg.Sky.MoonPhaseOverride(),
		Moonlit:           cfg.Sky.Moonlit,
	}
	return sky.NewModel(geom, opts)
}

// resolveAstro fetches today's astro data; without it nothing can be drawn.
func resolveAstro(ctx context.Context, service *astro.Service, loc *time.Location) (astro.AstroData, error) {
	data, err := service.Get(ctx, time.Now().In(loc))
	if err != nil {
		return astro.AstroData{}, &ExitError{Code: 1, Err: fmt.Errorf("failed to obtain sunrise/sunset: %w", err)}
	}
	return data, nil
}

// timeSource picks the demo, fixed or real clock. Demo and fixed runs also
// report that astro data should stay frozen.
func timeSource(cfg *config.Config, data astro.AstroData, loc *time.Location, logger zerolog.Logger) (clock.Source, bool, error) {
	var fixed *time.Time
	if cfg.At != "" {
		at, err := clock.ParseAt(cfg.At, loc, time.Now())
		if err != nil {
			return nil, false, &ExitError{Code: 2, Err: err}
		}
		logger.Info().Time("at", at).Msg("using fixed time")
		fixed = &at
	}

	if cfg.Demo.Mode != "" {
		mode, err := clock.ParseDemoMode(cfg.Demo.Mode)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Err: err}
		}
		twilight := time.Duration(cfg.Sky.TwilightMinutes) * time.Minute
		start, end := clock.DemoWindow(mode, data, twilight)
		period := time.Duration(max(1, cfg.Demo.Seconds)) * time.Second
		logger.Info().
			Stringer("window", mode).
			Time("start", start).
			Time("end", end).
			Dur("period", period).
			Msg("demo mode")
		return clock.NewDemo(start, end, period), true, nil
	}

	if fixed != nil {
		return clock.Fixed{At: *fixed}, true, nil
	}
	return clock.Real{Loc: loc}, false, nil
}

func runController(cmd *cobra.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.Paths.EnsureDirs(); err != nil {
		logger.Warn().Err(err).Msg("failed to create working directories")
	}
	loc := cfg.Location.TimeLocation()
	logger.Debug().Time("now", time.Now().In(loc)).Msg("time")

	render.EnsureAssets(cfg.Paths.AssetsDir, cfg.Sky.SunSize, cfg.Sky.MoonSize, logger)

	service, closer, err := newAstroService(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	data, err := resolveAstro(ctx, service, loc)
	if err != nil {
		return err
	}
	logger.Info().
		Time("sunrise", data.Sunrise).
		Time("sunset", data.Sunset).
		Time("next_sunrise", data.NextSunrise).
		Msg("astro data")

	client := hyprlax.NewClient(hyprlax.ExecRunner{Binary: cfg.Layers.Binary}, logger)
	width, height, err := client.MonitorGeometry(ctx)
	if err != nil {
		if !cfg.DryRun || !errors.Is(err, hyprlax.ErrBinaryNotFound) {
			return err
		}
		width, height = hyprlax.FallbackWidth, hyprlax.FallbackHeight
	}
	logger.Info().Int("width", width).Int("height", height).Msg("monitor geometry")

	source, frozen, err := timeSource(cfg, data, loc, logger)
	if err != nil {
		return err
	}
	var frozenAstro *astro.AstroData
	if frozen {
		frozenAstro = &data
	}

	renderer := render.NewRenderer(render.Config{
		CacheDir: cfg.Paths.CacheDir,
		Width:    width,
		Height:   height,
		SunSize:  cfg.Sky.SunSize,
		MoonSize: cfg.Sky.MoonSize,
		Logger:   logger,
	})
	sunPath := filepath.Join(cfg.Paths.TmpDir, sunOverlayName)
	moonPath := filepath.Join(cfg.Paths.TmpDir, moonOverlayName)
	for _, p := range []string{sunPath, moonPath} {
		if err := renderer.EnsurePlaceholder(p); err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("failed to write placeholder")
		}
	}

	manager, err := layers.NewManager(layers.ManagerConfig{
		Client:        client,
		Placeholders:  renderer,
		SunOverlay:    sunPath,
		MoonOverlay:   moonPath,
		SceneDir:      cfg.Layers.SceneDir,
		SkyRegex:      cfg.Layers.SkyRegex,
		BuildingRegex: cfg.Layers.BuildingRegex,
		SunZ:          cfg.Layers.SunZ,
		MoonZ:         cfg.Layers.MoonZ,
		ZBetween:      cfg.Layers.ZBetween,
		DryRun:        cfg.DryRun,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	dir, err := manager.DiscoverOrCreate(ctx)
	if err != nil {
		return err
	}

	publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Enabled:     cfg.MQTT.Enabled,
		Logger:      logger,
	})
	var publishers []reconciler.StatePublisher
	if err != nil {
		logger.Warn().Err(err).Msg("MQTT connection failed")
	} else {
		defer publisher.Close()
		if cfg.MQTT.Enabled {
			logger.Info().Str("broker", cfg.MQTT.Broker).Msg("publishing sky state over MQTT")
			if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
				logger.Warn().Err(err).Msg("failed to publish discovery config")
			}
			publishers = append(publishers, publisher)
		}
	}

	var secretsChanged <-chan struct{}
	if watcher, err := config.NewSecretsWatcher(cfg.Paths.SecretsFile); err != nil {
		logger.Debug().Err(err).Msg("secrets watcher not started")
	} else {
		defer watcher.Stop()
		secretsChanged = watcher.Changes
	}

	epsilon := cfg.Loop.Epsilon
	if cfg.Demo.Mode != "" {
		epsilon = cfg.Demo.Epsilon
	}
	rec := reconciler.New(reconciler.Config{
		Clock:          source,
		Astro:          service,
		Model:          newModel(cfg, width, height),
		Compositor:     client,
		Renderer:       renderer,
		Directory:      dir,
		SunPath:        sunPath,
		MoonPath:       moonPath,
		Epsilon:        epsilon,
		Interval:       cfg.Loop.Interval,
		DemoTick:       cfg.Demo.Tick,
		Demo:           cfg.Demo.Mode != "",
		Once:           cfg.Loop.Once || (cfg.At != "" && cfg.Demo.Mode == ""),
		DryRun:         cfg.DryRun,
		FrozenAstro:    frozenAstro,
		SecretsChanged: secretsChanged,
		Publishers:     publishers,
		Logger:         logger,
	})

	if cfg.API.Enabled {
		server := api.NewServer(api.ServerConfig{
			Port:   cfg.API.Port,
			State:  rec,
			Astro:  service,
			Logger: logger,
		})
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("API server shutdown")
			}
		}()
	}

	return rec.Run(ctx)
}
