package config

import (
	"errors"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "QUAKEMAP_"

// listKeys are read from the environment as ";"-separated lists, since entries such as
// credits may themselves contain commas.
var listKeys = map[string]struct{}{
	"credits":     {},
	"institution": {},
}

// Config holds all run settings, populated from defaults, an optional YAML file and
// QUAKEMAP_* environment variables.
type Config struct {
	CatalogPath     string  `koanf:"catalog_path"`
	MinMagnitude    float64 `koanf:"min_magnitude"`
	ClusterSeed     uint64  `koanf:"cluster_seed"`
	ClusterRuns     int     `koanf:"cluster_runs"`
	ClusterMaxIter  int     `koanf:"cluster_max_iter"`
	FallbackEnabled bool    `koanf:"fallback_enabled"`

	// Presentation.
	OutputDir       string   `koanf:"output_dir"`
	LogoPath        string   `koanf:"logo_path"`
	LogoFallbackURL string   `koanf:"logo_fallback_url"`
	MapTitle        string   `koanf:"map_title"`
	MapSubtitle     string   `koanf:"map_subtitle"`
	DataSource      string   `koanf:"data_source"`
	Credits         []string `koanf:"credits"`
	Institution     []string `koanf:"institution"`
	GeoJSONEnabled  bool     `koanf:"geojson_enabled"`
	PlotEnabled     bool     `koanf:"plot_enabled"`

	HTTPAddr        string        `koanf:"http_addr"`
	Serve           bool          `koanf:"serve"`
	LogLevel        string        `koanf:"log_level"`
	LogFormat       string        `koanf:"log_format"`
	ShutdownTimeout time.Duration `koanf:"-"`

	// Optional sinks; empty values disable them.
	KafkaBrokers []string `koanf:"-"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	SQLitePath   string   `koanf:"sqlite_path"`

	// Mapbox reverse geocoding for popup place names.
	MapboxToken     string        `koanf:"mapbox_token"`
	MapboxEnabled   bool          `koanf:"mapbox_enabled"`
	MapboxTimeout   time.Duration `koanf:"mapbox_timeout"`
	MapboxCacheSize int           `koanf:"mapbox_cache_size"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		CatalogPath:    "katalog_gempa_v2.tsv",
		MinMagnitude:   3.0,
		ClusterSeed:    42,
		ClusterRuns:    10,
		ClusterMaxIter: 300,

		OutputDir:       "public",
		LogoPath:        "logo_ugm_hitamputih.png",
		LogoFallbackURL: "https://upload.wikimedia.org/wikipedia/id/2/25/Logo_UGM.png",
		MapTitle:        "Earthquake Distribution Map",
		MapSubtitle:     "Depth clustering (k-means)",
		DataSource:      "BMKG & USGS earthquake catalogs",
		Institution: []string{
			"Geodetic Engineering Undergraduate Program",
			"Department of Geodetic Engineering",
			"Faculty of Engineering",
			"Universitas Gadjah Mada",
		},
		GeoJSONEnabled: true,
		PlotEnabled:    true,

		HTTPAddr:  ":8080",
		LogLevel:  "info",
		LogFormat: "json",

		KafkaTopic: "earthquake-grid-cells",

		MapboxTimeout:   5 * time.Second,
		MapboxCacheSize: 1000,
	}
}

// Load builds a Config by layering, low to high precedence:
//  1. Defaults()
//  2. the YAML file named by QUAKEMAP_CONFIG, if set
//  3. QUAKEMAP_* environment variables (QUAKEMAP_OUTPUT_DIR -> output_dir)
//
// SHUTDOWN_TIMEOUT follows the shared storm-data convention and is read separately.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.New("invalid QUAKEMAP_CONFIG: " + err.Error())
		}
	}

	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := Defaults()
	// Lists are replaced, never merged element-wise with the defaults.
	cfg.Institution = nil
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	if !k.Exists("institution") {
		cfg.Institution = Defaults().Institution
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	cfg.ShutdownTimeout = shutdownTimeout

	if raw := strings.TrimSpace(k.String("kafka_brokers")); raw != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(raw)
	}

	// A token implies geocoding unless it is explicitly switched off.
	if !k.Exists("mapbox_enabled") {
		cfg.MapboxEnabled = cfg.MapboxToken != ""
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CatalogPath == "" {
		return errors.New("QUAKEMAP_CATALOG_PATH is required")
	}
	if c.MinMagnitude < 0 {
		return errors.New("QUAKEMAP_MIN_MAGNITUDE must not be negative")
	}
	if c.ClusterRuns <= 0 {
		return errors.New("QUAKEMAP_CLUSTER_RUNS must be positive")
	}
	if c.ClusterMaxIter <= 0 {
		return errors.New("QUAKEMAP_CLUSTER_MAX_ITER must be positive")
	}
	if c.OutputDir == "" {
		return errors.New("QUAKEMAP_OUTPUT_DIR is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return errors.New("QUAKEMAP_LOG_FORMAT must be json or text")
	}
	if c.Serve && c.HTTPAddr == "" {
		return errors.New("QUAKEMAP_HTTP_ADDR is required when QUAKEMAP_SERVE is true")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("QUAKEMAP_KAFKA_TOPIC is required when QUAKEMAP_KAFKA_BROKERS is set")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("QUAKEMAP_MAPBOX_ENABLED is true but QUAKEMAP_MAPBOX_TOKEN is not set")
	}
	if c.MapboxTimeout <= 0 {
		return errors.New("invalid QUAKEMAP_MAPBOX_TIMEOUT")
	}
	if c.MapboxCacheSize <= 0 {
		return errors.New("QUAKEMAP_MAPBOX_CACHE_SIZE must be positive")
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
