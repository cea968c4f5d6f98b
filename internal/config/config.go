package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
	"github.com/kailas-cloud/weightedterms/internal/domain/query"
)

// Config holds the weightedterms service configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Cache         CacheConfig         `yaml:"cache"`
	Weights       WeightsConfig       `yaml:"weights"`
	Dashboard     DashboardConfig     `yaml:"dashboard"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Panels        []PanelConfig       `yaml:"panels"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for mutating endpoints.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// ElasticsearchConfig holds search backend settings.
type ElasticsearchConfig struct {
	URLs        []string `yaml:"urls"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Sniff       bool     `yaml:"sniff"`
	Healthcheck bool     `yaml:"healthcheck"`
	TimeoutSec  int      `yaml:"timeout_sec"`
}

// CacheConfig holds the weights payload cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// WeightsConfig holds weights file fetch settings.
type WeightsConfig struct {
	FetchTimeoutSec int `yaml:"fetch_timeout_sec"`
}

// DashboardConfig holds the initial dashboard scope.
type DashboardConfig struct {
	Indices            []string      `yaml:"indices"`
	Queries            []query.Query `yaml:"queries"`
	RefreshIntervalSec int           `yaml:"refresh_interval_sec"` // 0 = no auto-refresh
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// PanelConfig is one panel as written in YAML. Flags that default to true are pointers.
type PanelConfig struct {
	ID             string           `yaml:"id"`
	Title          string           `yaml:"title"`
	Field          string           `yaml:"field"`
	AggField       string           `yaml:"agg_field_1"`
	SubField       string           `yaml:"agg_field_2"`
	Size           int              `yaml:"size"`
	Exclude        string           `yaml:"filter"`
	Weights        string           `yaml:"weights"`
	WeightsFileURL string           `yaml:"weights_file_url"`
	Chart          string           `yaml:"chart"`
	Missing        *bool            `yaml:"missing"`
	Other          *bool            `yaml:"other"`
	Donut          bool             `yaml:"donut"`
	Tilt           bool             `yaml:"tilt"`
	Labels         *bool            `yaml:"labels"`
	Arrangement    string           `yaml:"arrangement"`
	CounterPos     string           `yaml:"counter_pos"`
	Spyable        *bool            `yaml:"spyable"`
	Queries        dompanel.Queries `yaml:"queries"`
}

// Definition converts the YAML panel into a normalized panel definition.
func (p PanelConfig) Definition() dompanel.Definition {
	def := dompanel.Definition{
		ID:             p.ID,
		Title:          p.Title,
		Field:          p.Field,
		AggField:       p.AggField,
		SubField:       p.SubField,
		Size:           p.Size,
		Exclude:        p.Exclude,
		ManualWeights:  p.Weights,
		WeightsFileURL: p.WeightsFileURL,
		Chart:          dompanel.Chart(strings.ToLower(p.Chart)),
		Missing:        boolOr(p.Missing, true),
		Other:          boolOr(p.Other, true),
		Donut:          p.Donut,
		Tilt:           p.Tilt,
		Labels:         boolOr(p.Labels, true),
		Arrangement:    p.Arrangement,
		CounterPos:     p.CounterPos,
		Spyable:        boolOr(p.Spyable, true),
		Queries:        p.Queries,
	}
	def.Normalize()
	return def
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Elasticsearch.TimeoutSec <= 0 {
		c.Elasticsearch.TimeoutSec = 30
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "valkey"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Weights.FetchTimeoutSec <= 0 {
		c.Weights.FetchTimeoutSec = 10
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "weightedterms"
	}
	if c.Tracing.SampleRatio <= 0 {
		c.Tracing.SampleRatio = 0.3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Elasticsearch.URLs) == 0 {
		return fmt.Errorf("elasticsearch.urls is required")
	}
	if c.Cache.Enabled {
		switch c.Cache.Driver {
		case "valkey", "redis":
		default:
			return fmt.Errorf("cache.driver must be \"valkey\" or \"redis\", got %q", c.Cache.Driver)
		}
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required when cache is enabled")
		}
	}
	if c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in (0, 1], got %v", c.Tracing.SampleRatio)
	}
	if c.Dashboard.RefreshIntervalSec < 0 {
		return fmt.Errorf("dashboard.refresh_interval_sec must not be negative, got %d", c.Dashboard.RefreshIntervalSec)
	}

	seen := make(map[string]bool, len(c.Panels))
	for i, p := range c.Panels {
		if p.ID == "" {
			return fmt.Errorf("panels[%d].id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("panels[%d].id %q is duplicated", i, p.ID)
		}
		seen[p.ID] = true

		def := p.Definition()
		if err := def.Validate(); err != nil {
			return fmt.Errorf("panels[%d]: %w", i, err)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
