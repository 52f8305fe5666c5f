package config

import (
	apperrors "solar-pricing/internal/errors"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// HCL blocks decode into fresh structs, so every field is optional here
// and only the attributes that are present are overlaid on the defaults.
type hclConfig struct {
	Version string      `hcl:"version,optional"`
	Matrix  *hclMatrix  `hcl:"matrix,block"`
	Storage *hclStorage `hcl:"storage,block"`
	Quote   *hclQuote   `hcl:"quote,block"`
	Logging *hclLogging `hcl:"logging,block"`
}

type hclMatrix struct {
	DefaultPath   string   `hcl:"default_path,optional"`
	FatalKeywords []string `hcl:"fatal_keywords,optional"`
}

type hclStorage struct {
	DatabasePath string `hcl:"database_path,optional"`
}

type hclQuote struct {
	VATPercent *float64 `hcl:"vat_percent,optional"`
	Currency   string   `hcl:"currency,optional"`
}

type hclLogging struct {
	Level       string `hcl:"level,optional"`
	Format      string `hcl:"format,optional"`
	Output      string `hcl:"output,optional"`
	Development *bool  `hcl:"development,optional"`
}

func loadHCL(path string, data []byte, config *Config) error {
	var file hclConfig
	if err := hclsimple.Decode(path, data, nil, &file); err != nil {
		return apperrors.Wrap(apperrors.TypeConfig, "decode hcl config", err)
	}

	overlay(&config.Version, file.Version)
	if m := file.Matrix; m != nil {
		overlay(&config.Matrix.DefaultPath, m.DefaultPath)
		if len(m.FatalKeywords) > 0 {
			config.Matrix.FatalKeywords = m.FatalKeywords
		}
	}
	if s := file.Storage; s != nil {
		overlay(&config.Storage.DatabasePath, s.DatabasePath)
	}
	if q := file.Quote; q != nil {
		if q.VATPercent != nil {
			config.Quote.VATPercent = *q.VATPercent
		}
		overlay(&config.Quote.Currency, q.Currency)
	}
	if l := file.Logging; l != nil {
		overlay(&config.Logging.Level, l.Level)
		overlay(&config.Logging.Format, l.Format)
		overlay(&config.Logging.Output, l.Output)
		if l.Development != nil {
			config.Logging.Development = *l.Development
		}
	}
	return nil
}

func overlay(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
