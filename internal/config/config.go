// Package config resolves export settings from defaults, an optional YAML
// file and command-line flags, and rejects conflicting combinations before
// any I/O starts.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/histmerge/internal/places"
	"github.com/roach88/histmerge/internal/sink"
)

// EnvConfigPath names the environment variable consulted when no config
// file is given on the command line.
const EnvConfigPath = "HISTMERGE_CONFIG"

// Config holds settings that may come from a config file.
type Config struct {
	// Browser selects the history database layout ("firefox", "chromium").
	Browser string `yaml:"browser"`

	// Driver selects the SQLite driver ("sqlite3", "sqlite").
	Driver string `yaml:"driver"`

	// BufferSize is the read and write buffer size in bytes.
	BufferSize int `yaml:"buffer_size"`

	// CheckOrder verifies that both inputs arrive in key order.
	CheckOrder bool `yaml:"check_order"`

	Verbose bool `yaml:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Browser:    places.Firefox.Name,
		Driver:     places.DriverCGO,
		BufferSize: sink.DefaultBufferSize,
	}
}

// Load returns defaults overlaid with the YAML file at path.
// An empty path falls back to $HISTMERGE_CONFIG; if that is unset too the
// defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// io.EOF means the file holds no document at all.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the settings on their own.
func (c Config) Validate() error {
	if _, err := places.LookupSchema(c.Browser); err != nil {
		return err
	}
	if !places.IsValidDriver(c.Driver) {
		return fmt.Errorf("unknown driver %q: must be one of %v", c.Driver, places.ValidDrivers)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer size must not be negative, got %d", c.BufferSize)
	}
	return nil
}
