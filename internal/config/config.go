// Package config is the single source of truth for runtime configuration
// and filesystem paths. Precedence, lowest to highest: built-in defaults,
// the optional YAML file named by MOT_CONFIG_FILE, environment variables
// with the MOT prefix.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// EnvPrefix is the environment variable prefix for all settings.
const EnvPrefix = "MOT"

// Config represents the complete application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source" envconfig:"SOURCE"`
	Scrape  ScrapeConfig  `yaml:"scrape" envconfig:"SCRAPE"`
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// SourceConfig configures the identifier source (the tradable-instruments
// listino published as a semicolon-separated CSV).
type SourceConfig struct {
	ListinoURL string        `yaml:"listino_url" envconfig:"LISTINO_URL" validate:"required,url"`
	Currency   string        `yaml:"currency" envconfig:"CURRENCY" validate:"required,len=3"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"min=1s"`
}

// ScrapeConfig configures per-instrument fetching against the exchange.
type ScrapeConfig struct {
	PageURL       string        `yaml:"page_url" envconfig:"PAGE_URL" validate:"required,url"`
	ChartsURL     string        `yaml:"charts_url" envconfig:"CHARTS_URL" validate:"required,url"`
	UserAgent     string        `yaml:"user_agent" envconfig:"USER_AGENT" validate:"required"`
	PageTimeout   time.Duration `yaml:"page_timeout" envconfig:"PAGE_TIMEOUT" validate:"min=1s,max=2m"`
	ChartsTimeout time.Duration `yaml:"charts_timeout" envconfig:"CHARTS_TIMEOUT" validate:"min=1s,max=2m"`
	Retries       int           `yaml:"retries" envconfig:"RETRIES" validate:"min=1,max=10"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" validate:"min=0"`
	Workers       int           `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
	RatePerSecond float64       `yaml:"rate_per_second" envconfig:"RATE_PER_SECOND" validate:"gt=0"`
	RateBurst     int           `yaml:"rate_burst" envconfig:"RATE_BURST" validate:"min=1"`
}

// ServerConfig configures the read-only results server.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"min=1s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"min=1s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"min=1s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"min=1s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains the configurable filesystem locations. Relative
// entries are resolved against the base directory by NewPaths.
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ResultsDir string `yaml:"results_dir" envconfig:"RESULTS_DIR" validate:"required"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			ListinoURL: "https://www.simpletoolsforinvestors.eu/data/listino/listino.csv",
			Currency:   "EUR",
			Timeout:    30 * time.Second,
		},
		Scrape: ScrapeConfig{
			PageURL:       "https://www.borsaitaliana.it/borsa/obbligazioni/mot/euro-obbligazioni/scheda/",
			ChartsURL:     "https://charts.borsaitaliana.it/charts/services/ChartWService.asmx/GetCvals",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
			PageTimeout:   20 * time.Second,
			ChartsTimeout: 10 * time.Second,
			Retries:       3,
			RetryDelay:    2 * time.Second,
			Workers:       8,
			RatePerSecond: 10,
			RateBurst:     5,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/motcli.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ResultsDir: "results",
			ReportsDir: "reports",
			LogsDir:    "logs",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file
// named by MOT_CONFIG_FILE, and environment variables, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML configuration onto cfg.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
