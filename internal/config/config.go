// Package config loads the client configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the client-side configuration for the CLI and tracker.
type Config struct {
	// FunctionsBaseURL is the common prefix of the callable endpoints.
	FunctionsBaseURL string `toml:"functions_base_url"`
	// Bucket holds uploads and OCR output.
	Bucket string `toml:"bucket"`
	// UserID names this client in derived storage paths.
	UserID string `toml:"user_id"`
	// APIKey, when set, is presented to the backend as a bearer token.
	// Leave empty against a backend running in open (guest) mode.
	APIKey string `toml:"api_key"`
	// StatePath is the local library database location.
	StatePath string `toml:"state_path"`
	// RefreshConcurrency bounds parallel polls during refresh --all.
	RefreshConcurrency int `toml:"refresh_concurrency"`
}

// Default returns a configuration with every optional field populated.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		UserID:             "guest",
		StatePath:          filepath.Join(home, ".ebookflow", "library.db"),
		RefreshConcurrency: 4,
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".ebookflow", "config.toml")
}

// Load reads the configuration file at path, applying defaults for anything
// unset. A missing file yields the defaults and no error; a present file must
// parse and validate.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields a real (non-mock) run requires.
func (c Config) Validate() error {
	var problems []string
	if c.FunctionsBaseURL == "" {
		problems = append(problems, "functions_base_url must be set")
	}
	if c.Bucket == "" {
		problems = append(problems, "bucket must be set")
	}
	if c.UserID == "" {
		problems = append(problems, "user_id must not be empty")
	}
	if strings.Contains(c.UserID, "/") {
		problems = append(problems, "user_id must not contain '/'")
	}
	if c.RefreshConcurrency <= 0 {
		problems = append(problems, "refresh_concurrency must be positive")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
