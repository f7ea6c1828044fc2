package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Location LocationConfig `mapstructure:"location"`
	Astro    AstroConfig    `mapstructure:"astro"`
	Sky      SkyConfig      `mapstructure:"sky"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Demo     DemoConfig     `mapstructure:"demo"`
	Layers   LayersConfig   `mapstructure:"layers"`
	Paths    PathsConfig    `mapstructure:"paths"`
	API      APIConfig      `mapstructure:"api"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Database DatabaseConfig `mapstructure:"database"`
	Verbose  bool           `mapstructure:"verbose"`
	DryRun   bool           `mapstructure:"dry_run"`
	At       string         `mapstructure:"at"`
}

type LocationConfig struct {
	Timezone  string  `mapstructure:"timezone"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

type AstroConfig struct {
	Provider      string        `mapstructure:"provider"`
	APIKey        string        `mapstructure:"api_key"`
	Units         string        `mapstructure:"units"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheBackend  string        `mapstructure:"cache_backend"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

type SkyConfig struct {
	SunSize         int     `mapstructure:"sun_size"`
	MoonSize        int     `mapstructure:"moon_size"`
	ArcHeightDay    float64 `mapstructure:"arc_height_day"`
	ArcHeightNight  float64 `mapstructure:"arc_height_night"`
	ApexFrac        float64 `mapstructure:"apex_frac"`
	HorizonFrac     float64 `mapstructure:"horizon_frac"`
	MinTopMargin    int     `mapstructure:"min_top_margin"`
	MarginLeft      int     `mapstructure:"margin_left"`
	MarginRight     int     `mapstructure:"margin_right"`
	TwilightMinutes int     `mapstructure:"twilight_minutes"`
	MoonPhase       float64 `mapstructure:"moon_phase"`
	ForceMoon       bool    `mapstructure:"force_moon"`
	MoonBandMin     float64 `mapstructure:"moon_band_min"`
	MoonBandMax     float64 `mapstructure:"moon_band_max"`
	Moonlit         bool    `mapstructure:"moonlit"`
}

type LoopConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Once     bool          `mapstructure:"once"`
	Epsilon  int           `mapstructure:"epsilon"`
}

type DemoConfig struct {
	Mode    string        `mapstructure:"mode"`
	Seconds int           `mapstructure:"seconds"`
	Tick    time.Duration `mapstructure:"tick"`
	Epsilon int           `mapstructure:"epsilon"`
}

type LayersConfig struct {
	Binary        string   `mapstructure:"binary"`
	SceneDir      string   `mapstructure:"scene_dir"`
	SkyRegex      string   `mapstructure:"sky_regex"`
	BuildingRegex string   `mapstructure:"bld_regex"`
	SunZ          int      `mapstructure:"sun_z"`
	MoonZ         int      `mapstructure:"moon_z"`
	ZBetween      []string `mapstructure:"z_between"`
}

type PathsConfig struct {
	BaseDir     string `mapstructure:"base_dir"`
	AssetsDir   string `mapstructure:"assets_dir"`
	CacheDir    string `mapstructure:"cache_dir"`
	TmpDir      string `mapstructure:"tmp_dir"`
	SecretsFile string `mapstructure:"secrets_file"`
}

type APIConfig struct {
	Port    int  `mapstructure:"port"`
	Enabled bool `mapstructure:"enabled"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SetDefaults registers every default on the global viper instance. It is
// called by Load and by the CLI before flags are bound.
func SetDefaults() {
	viper.SetDefault("location.timezone", "")
	viper.SetDefault("location.latitude", 0)
	viper.SetDefault("location.longitude", 0)
	viper.SetDefault("astro.provider", "openweather")
	viper.SetDefault("astro.api_key", "")
	viper.SetDefault("astro.units", "metric")
	viper.SetDefault("astro.timeout", "10s")
	viper.SetDefault("astro.cache_backend", "json")
	viper.SetDefault("astro.cache_ttl", "6h")
	viper.SetDefault("astro.retry_interval", "15m")
	viper.SetDefault("sky.sun_size", 260)
	viper.SetDefault("sky.moon_size", 180)
	viper.SetDefault("sky.arc_height_day", 580.0)
	viper.SetDefault("sky.arc_height_night", 500.0)
	viper.SetDefault("sky.apex_frac", 0.18)
	viper.SetDefault("sky.horizon_frac", 0.62)
	viper.SetDefault("sky.min_top_margin", 40)
	viper.SetDefault("sky.margin_left", 80)
	viper.SetDefault("sky.margin_right", 80)
	viper.SetDefault("sky.twilight_minutes", 45)
	viper.SetDefault("sky.moon_phase", -1.0)
	viper.SetDefault("sky.force_moon", false)
	viper.SetDefault("sky.moon_band_min", 0.05)
	viper.SetDefault("sky.moon_band_max", 0.95)
	viper.SetDefault("sky.moonlit", false)
	viper.SetDefault("loop.interval", "120s")
	viper.SetDefault("loop.once", false)
	viper.SetDefault("loop.epsilon", 10)
	viper.SetDefault("demo.mode", "")
	viper.SetDefault("demo.seconds", 120)
	viper.SetDefault("demo.tick", "500ms")
	viper.SetDefault("demo.epsilon", 3)
	viper.SetDefault("layers.binary", "hyprlax")
	viper.SetDefault("layers.scene_dir", "examples/pixel-city-advanced")
	viper.SetDefault("layers.sky_regex", `/(1|2|3|4)\.png$`)
	viper.SetDefault("layers.bld_regex", `/(5|6|7|8|9|10)\.png$`)
	viper.SetDefault("layers.sun_z", 5)
	viper.SetDefault("layers.moon_z", 5)
	viper.SetDefault("layers.z_between", []string{})
	viper.SetDefault("paths.base_dir", ".")
	viper.SetDefault("paths.assets_dir", "")
	viper.SetDefault("paths.cache_dir", "")
	viper.SetDefault("paths.tmp_dir", "")
	viper.SetDefault("paths.secrets_file", "")
	viper.SetDefault("api.port", 8046)
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic_prefix", "dynamic-sky")
	viper.SetDefault("mqtt.client_id", "dynamic-sky")
	viper.SetDefault("database.path", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("dry_run", false)
	viper.SetDefault("at", "")
}

func Load(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("dynamic-sky")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "dynamic-sky"))
		}
	}

	viper.SetEnvPrefix("DYNAMIC_SKY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Paths.resolve()

	return &cfg, nil
}

func (p *PathsConfig) resolve() {
	if p.BaseDir == "" {
		p.BaseDir = "."
	}
	if p.AssetsDir == "" {
		p.AssetsDir = filepath.Join(p.BaseDir, "assets")
	}
	if p.CacheDir == "" {
		p.CacheDir = filepath.Join(p.AssetsDir, "cache")
	}
	if p.TmpDir == "" {
		p.TmpDir = filepath.Join(p.BaseDir, "tmp")
	}
	if p.SecretsFile == "" {
		p.SecretsFile = filepath.Join(p.BaseDir, ".secrets.env")
	}
}

// EnsureDirs creates the assets, cache and tmp directories.
func (p PathsConfig) EnsureDirs() error {
	for _, dir := range []string{p.AssetsDir, p.CacheDir, p.TmpDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// AstroCachePath is the JSON cache file for astronomical data.
func (p PathsConfig) AstroCachePath() string {
	return filepath.Join(p.CacheDir, "astro.json")
}

// DatabasePath returns the sqlite cache location, defaulting next to the JSON cache.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Paths.CacheDir, "astro.db")
}

// ApplySecrets overlays credentials and location from the secrets file.
// Unparsable coordinates are ignored so the file never makes things worse.
func (c *Config) ApplySecrets(s Secrets) {
	if s.OpenWeatherAPIKey != "" {
		c.Astro.APIKey = s.OpenWeatherAPIKey
	}
	if s.Lat != "" {
		if v, err := strconv.ParseFloat(s.Lat, 64); err == nil {
			c.Location.Latitude = v
		}
	}
	if s.Lon != "" {
		if v, err := strconv.ParseFloat(s.Lon, 64); err == nil {
			c.Location.Longitude = v
		}
	}
	if s.TZ != "" {
		c.Location.Timezone = s.TZ
	}
}

// HasCoordinates reports whether a location was configured. 0,0 counts as unset.
func (l LocationConfig) HasCoordinates() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

// TimeLocation resolves the configured zone, falling back to the system zone.
func (l LocationConfig) TimeLocation() *time.Location {
	if l.Timezone != "" {
		if loc, err := time.LoadLocation(l.Timezone); err == nil {
			return loc
		}
	}
	return time.Local
}

// MoonPhaseOverride returns the configured phase, or nil when unset (negative).
func (s SkyConfig) MoonPhaseOverride() *float64 {
	if s.MoonPhase < 0 {
		return nil
	}
	v := s.MoonPhase
	if v > 1 {
		v = 1
	}
	return &v
}
