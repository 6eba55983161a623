package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Site      Site      `yaml:"site"`
	Affiliate Affiliate `yaml:"affiliate"`
	Tracking  Tracking  `yaml:"tracking"`
	Linking   Linking   `yaml:"linking"`
	Schedule  Schedule  `yaml:"schedule"`
	Feeds     []Feed    `yaml:"feeds"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Site struct {
	Name       string `yaml:"name"`
	BaseURL    string `yaml:"base_url"`
	ContentDir string `yaml:"content_dir"`
}

type Affiliate struct {
	Tag              string        `yaml:"tag"`
	ProductsCSV      string        `yaml:"products_csv"`
	CheckTimeout     time.Duration `yaml:"check_timeout"`
	CheckConcurrency int           `yaml:"check_concurrency"`
}

type Tracking struct {
	MaxClicks         int           `yaml:"max_clicks"`
	RetentionDays     int           `yaml:"retention_days"`
	AnalyticsEndpoint string        `yaml:"analytics_endpoint"`
	AnalyticsTimeout  time.Duration `yaml:"analytics_timeout"`
	SessionCookie     string        `yaml:"session_cookie"`
}

type Linking struct {
	MinScore           int `yaml:"min_score"`
	RelatedLimit       int `yaml:"related_limit"`
	SuggestionsPerPost int `yaml:"suggestions_per_post"`
}

// Schedule holds cron specs for jobs run by `serve`. An empty spec disables the job.
type Schedule struct {
	Prune     string `yaml:"prune"`
	ASINCheck string `yaml:"asin_check"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for gearlinks.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "gearlinks")
}

// DataDir returns the XDG data directory for gearlinks.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "gearlinks")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/gearlinks/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'gearlinks init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file overrides anything.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Site: Site{
			Name:       "Unbiased Tech Reviews",
			BaseURL:    "http://localhost:8000",
			ContentDir: "content",
		},
		Affiliate: Affiliate{
			Tag:              "unbiasedtechr-20",
			ProductsCSV:      "affiliate-products.csv",
			CheckTimeout:     8 * time.Second,
			CheckConcurrency: 4,
		},
		Tracking: Tracking{
			MaxClicks:        1000,
			RetentionDays:    30,
			AnalyticsTimeout: 3 * time.Second,
			SessionCookie:    "affiliate_session",
		},
		Linking: Linking{
			MinScore:           20,
			RelatedLimit:       3,
			SuggestionsPerPost: 5,
		},
		Schedule: Schedule{Prune: "0 3 * * *"},
		Server:   Server{Port: 8000},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Debug reports whether per-operation debug logging is enabled.
func (c *Config) Debug() bool {
	return c.Logging.Level == "DEBUG"
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
