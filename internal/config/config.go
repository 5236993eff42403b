package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dvloznov/sales-analysis/internal/clean"
	"github.com/dvloznov/sales-analysis/internal/logger"
)

// DefaultSourceURL is the published Diwali sales dataset.
const DefaultSourceURL = "https://raw.githubusercontent.com/ramjiiiitdm2011/Diwali-Sales-Analysis-Python-Project/main/Diwali%20Sales%20Data.csv"

type Config struct {
	Source   SourceConfig   `toml:"source"`
	Clean    CleanConfig    `toml:"clean"`
	Output   OutputConfig   `toml:"output"`
	Insights InsightsConfig `toml:"insights"`
	Log      logger.Config  `toml:"log"`
	Run      RunConfig      `toml:"run"`
}

type SourceConfig struct {
	// URL is an http(s)://, gs://, bq:// location or a local path.
	URL      string `toml:"url"`
	Encoding string `toml:"encoding"`
}

type CleanConfig struct {
	DropColumns  []string          `toml:"drop_columns"`
	AmountColumn string            `toml:"amount_column"`
	Rename       map[string]string `toml:"rename"`
	RetainRename bool              `toml:"retain_rename"`
}

type OutputConfig struct {
	Dir       string `toml:"dir"`
	GCSBucket string `toml:"gcs_bucket"`
	GCSPrefix string `toml:"gcs_prefix"`
}

type InsightsConfig struct {
	Enabled bool   `toml:"enabled"`
	Model   string `toml:"model"`
}

type RunConfig struct {
	Timeout string `toml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := clean.DefaultOptions()
	return &Config{
		Source: SourceConfig{URL: DefaultSourceURL, Encoding: "ISO-8859-1"},
		Clean: CleanConfig{
			DropColumns:  opts.DropColumns,
			AmountColumn: opts.AmountColumn,
			Rename:       opts.Rename,
		},
		Output:   OutputConfig{Dir: "images", GCSPrefix: "diwali-sales"},
		Insights: InsightsConfig{Model: "gemini-2.5-flash"},
		Log:      logger.Config{Level: "info", Format: "console"},
		Run:      RunConfig{Timeout: "5m"},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the decoder cannot.
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return errors.New("config: source.url is required")
	}
	if c.Output.Dir == "" {
		return errors.New("config: output.dir is required")
	}
	if c.Clean.AmountColumn == "" {
		return errors.New("config: clean.amount_column is required")
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout parses run.timeout. Zero means no deadline.
func (c *Config) Timeout() (time.Duration, error) {
	if c.Run.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Run.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: run.timeout: %w", err)
	}
	return d, nil
}

// CleanOptions converts the [clean] section for the cleaner.
func (c *Config) CleanOptions() clean.Options {
	return clean.Options{
		DropColumns:  c.Clean.DropColumns,
		AmountColumn: c.Clean.AmountColumn,
		Rename:       c.Clean.Rename,
		RetainRename: c.Clean.RetainRename,
	}
}
