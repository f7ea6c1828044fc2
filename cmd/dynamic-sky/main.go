package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"dynamic-sky/config"
	"dynamic-sky/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "dynamic-sky"

var (
	configFile      string
	secretsFile     string
	intervalSeconds int
)

// ExitError carries the process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Dynamic sun and moon overlays for hyprlax",
		Long: "Computes a stylized day/night sky from sunrise, sunset and moon phase and keeps " +
			"the hyprlax sun, moon and tint layers in sync with it.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runController(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path")
	pf.StringVar(&secretsFile, "secrets", "", "secrets file (default <base_dir>/.secrets.env)")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.IntVar(&intervalSeconds, "interval", 120, "base polling interval in seconds")
	pf.Bool("once", false, "run a single tick and exit")
	pf.Int("sun-size", 260, "sun diameter in px")
	pf.Int("moon-size", 180, "moon diameter in px")
	pf.Float64("arc-height-day", 580, "day arch height in px (0 derives it from --apex-frac/--horizon-frac)")
	pf.Float64("arc-height-night", 500, "night arch height in px (0 derives it from --apex-frac/--horizon-frac)")
	pf.Float64("apex-frac", 0.18, "arch apex as a fraction of the screen height")
	pf.Float64("horizon-frac", 0.62, "horizon as a fraction of the screen height")
	pf.Int("twilight-minutes", 45, "dawn/dusk window in minutes")
	pf.Int("sun-z", 5, "fallback z-index for the sun overlay")
	pf.Int("moon-z", 5, "fallback z-index for the moon overlay")
	pf.Float64("moon-phase", -1, "override moon phase 0..1 (negative uses provider data)")
	pf.Bool("force-moon", false, "show the moon at night regardless of phase")
	pf.Float64("moon-band-min", 0.05, "lowest moon phase that is drawn")
	pf.Float64("moon-band-max", 0.95, "highest moon phase that is drawn")
	pf.Bool("moonlit", false, "brighten the building tint with moon altitude")
	pf.Bool("dry-run", false, "do not call hyprlax; compute, render and log only")
	pf.String("at", "", "simulate a specific time (ISO 8601 or HH:MM[:SS])")
	pf.String("demo", "", "loop one window quickly: dawn, dusk, day or night")
	pf.Int("demo-seconds", 120, "seconds of real time per demo window")
	pf.String("sky-regex", "", "regex selecting sky layers from the layer list")
	pf.String("bld-regex", "", "regex selecting building layers from the layer list")

	rootCmd.AddCommand(stateCmd())
	rootCmd.AddCommand(astroCmd())
	rootCmd.AddCommand(assetsCmd())

	return rootCmd
}

var flagKeys = map[string]string{
	"verbose":          "verbose",
	"once":             "loop.once",
	"sun-size":         "sky.sun_size",
	"moon-size":        "sky.moon_size",
	"arc-height-day":   "sky.arc_height_day",
	"arc-height-night": "sky.arc_height_night",
	"apex-frac":        "sky.apex_frac",
	"horizon-frac":     "sky.horizon_frac",
	"twilight-minutes": "sky.twilight_minutes",
	"sun-z":            "layers.sun_z",
	"moon-z":           "layers.moon_z",
	"moon-phase":       "sky.moon_phase",
	"force-moon":       "sky.force_moon",
	"moon-band-min":    "sky.moon_band_min",
	"moon-band-max":    "sky.moon_band_max",
	"moonlit":          "sky.moonlit",
	"dry-run":          "dry_run",
	"at":               "at",
	"demo":             "demo.mode",
	"demo-seconds":     "demo.seconds",
	"sky-regex":        "layers.sky_regex",
	"bld-regex":        "layers.bld_regex",
}

// loadConfig binds the command's flags, loads configuration and secrets and
// builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	flags := cmd.Flags()
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return nil, zerolog.Nop(), err
			}
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	if flags.Changed("interval") {
		cfg.Loop.Interval = time.Duration(intervalSeconds) * time.Second
	}
	// Explicit apex/horizon fractions only matter when the heights are derived.
	if flags.Changed("apex-frac") || flags.Changed("horizon-frac") {
		if !flags.Changed("arc-height-day") {
			cfg.Sky.ArcHeightDay = 0
		}
		if !flags.Changed("arc-height-night") {
			cfg.Sky.ArcHeightNight = 0
		}
	}
	if secretsFile != "" {
		cfg.Paths.SecretsFile = secretsFile
	}

	logger := logging.New(appName, cfg.Verbose)

	secrets, err := config.LoadSecrets(cfg.Paths.SecretsFile)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring secrets file")
	} else {
		cfg.ApplySecrets(secrets)
	}

	return cfg, logger, nil
}
