package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"dynamic-sky/internal/astro"
	"dynamic-sky/internal/clock"
	"dynamic-sky/internal/hyprlax"
	"dynamic-sky/internal/render"

	"github.com/spf13/cobra"
)

func stateCmd() *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Compute the sky once and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			loc := cfg.Location.TimeLocation()

			service, closer, err := newAstroService(cfg, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			data, err := resolveAstro(cmd.Context(), service, loc)
			if err != nil {
				return err
			}

			now := time.Now().In(loc)
			if cfg.At != "" {
				now, err = clock.ParseAt(cfg.At, loc, now)
				if err != nil {
					return &ExitError{Code: 2, Err: err}
				}
			}

			st := newModel(cfg, width, height).Compute(now, data)
			return printJSON(cmd, st)
		},
	}

	cmd.Flags().IntVar(&width, "width", hyprlax.FallbackWidth, "screen width in px")
	cmd.Flags().IntVar(&height, "height", hyprlax.FallbackHeight, "screen height in px")

	return cmd
}

type astroReport struct {
	astro.AstroData
	Source   string    `json:"source"`
	Fallback bool      `json:"fallback"`
	Fetched  time.Time `json:"fetched_at"`
}

func astroCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "astro",
		Short: "Fetch today's sunrise, sunset and moon phase and print them as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			loc := cfg.Location.TimeLocation()

			service, closer, err := newAstroService(cfg, logger)
			if err != nil {
				return err
			}
			defer closer.Close()

			data, err := resolveAstro(cmd.Context(), service, loc)
			if err != nil {
				return err
			}

			report := astroReport{AstroData: data}
			if entry := service.Entry(); entry != nil {
				report.Source = entry.Source
				report.Fallback = entry.Fallback
				report.Fetched = entry.FetchedAt(loc)
			}
			return printJSON(cmd, report)
		},
	}
}

func assetsCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Generate the sun and moon SVG assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Paths.EnsureDirs(); err != nil {
				return fmt.Errorf("failed to create asset directories: %w", err)
			}

			if !force {
				render.EnsureAssets(cfg.Paths.AssetsDir, cfg.Sky.SunSize, cfg.Sky.MoonSize, logger)
				fmt.Fprintf(cmd.OutOrStdout(), "Assets in %s\n", cfg.Paths.AssetsDir)
				return nil
			}

			sunPath := filepath.Join(cfg.Paths.AssetsDir, render.SunSVGName)
			if err := render.GenerateSunSVG(sunPath, max(200, cfg.Sky.SunSize)); err != nil {
				return fmt.Errorf("failed to write %s: %w", sunPath, err)
			}
			moonDir := filepath.Join(cfg.Paths.AssetsDir, render.MoonSVGDir)
			if err := render.GenerateMoonSVGs(moonDir, render.MoonBuckets, max(200, cfg.Sky.MoonSize)); err != nil {
				return fmt.Errorf("failed to write moon assets: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s and %d moon phases to %s\n", sunPath, render.MoonBuckets, moonDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing assets")

	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
