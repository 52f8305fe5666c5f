// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	apperrors "solar-pricing/internal/errors"
	"solar-pricing/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Matrix contains price matrix settings
	Matrix MatrixConfig `json:"matrix"`

	// Storage contains persistence settings
	Storage StorageConfig `json:"storage"`

	// Quote contains quote calculation settings
	Quote QuoteConfig `json:"quote"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// MatrixConfig contains price matrix settings
type MatrixConfig struct {
	// DefaultPath is used when a command is given no matrix file
	DefaultPath string `json:"default_path,omitempty"`

	// FatalKeywords mark validation findings that reject an upload
	FatalKeywords []string `json:"fatal_keywords"`
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	// DatabasePath is the SQLite database holding uploads and products
	DatabasePath string `json:"database_path"`
}

// QuoteConfig contains quote calculation settings
type QuoteConfig struct {
	// VATPercent is applied to net prices
	VATPercent float64 `json:"vat_percent"`

	// Currency is the quote currency code
	Currency string `json:"currency"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".solar-pricing", "admin.db")

	return &Config{
		Version: "1.0",
		Matrix: MatrixConfig{
			FatalKeywords: []string{"empty", "anzahl module", "ohne speicher", "duplicate"},
		},
		Storage: StorageConfig{
			DatabasePath: dbPath,
		},
		Quote: QuoteConfig{
			VATPercent: 19.0,
			Currency:   "EUR",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a JSON or HCL file.
// A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, apperrors.Wrap(apperrors.TypeConfig, "read config", err).WithContext("path", path)
	}

	config := Default()
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		if err := loadHCL(path, data, config); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(data, config); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeConfig, "decode config", err).WithContext("path", path)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if strings.TrimSpace(c.Storage.DatabasePath) == "" {
		err = multierr.Append(err, apperrors.Config("storage.database_path is required"))
	}
	if c.Quote.VATPercent < 0 || c.Quote.VATPercent > 100 {
		err = multierr.Append(err, apperrors.Newf(apperrors.TypeConfig, "quote.vat_percent out of range: %v", c.Quote.VATPercent))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		err = multierr.Append(err, apperrors.Newf(apperrors.TypeConfig, "logging.format must be console or json, got %q", c.Logging.Format))
	}
	for i, kw := range c.Matrix.FatalKeywords {
		if strings.TrimSpace(kw) == "" {
			err = multierr.Append(err, apperrors.Newf(apperrors.TypeConfig, "matrix.fatal_keywords[%d] is empty", i))
		}
	}
	return err
}

// Save saves configuration to a JSON file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
