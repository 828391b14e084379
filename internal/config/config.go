package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL         = "http://localhost:8000/api"
	DefaultWebURL         = "http://localhost:5173"
	DefaultDialogInterval = 5 * time.Second
	DefaultThreadInterval = 2 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

// Duration is a time.Duration that decodes from TOML strings like "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config represents the global ~/.soc/config.toml.
type Config struct {
	DefaultSession string   `toml:"default_session"`
	APIURL         string   `toml:"api_url"`
	WebURL         string   `toml:"web_url"`
	DialogInterval Duration `toml:"dialog_interval"`
	ThreadInterval Duration `toml:"thread_interval"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.WebURL == "" {
		c.WebURL = DefaultWebURL
	}
	if c.DialogInterval.Duration <= 0 {
		c.DialogInterval.Duration = DefaultDialogInterval
	}
	if c.ThreadInterval.Duration <= 0 {
		c.ThreadInterval.Duration = DefaultThreadInterval
	}
	if c.RequestTimeout.Duration <= 0 {
		c.RequestTimeout.Duration = DefaultRequestTimeout
	}
}

// Load reads config from the given path. Returns nil config and error if file missing.
// Fields absent from the file are filled with defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault is Load, but a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
