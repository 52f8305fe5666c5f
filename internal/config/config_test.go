package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/multierr"

	apperrors "solar-pricing/internal/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quote.VATPercent != 19 || cfg.Quote.Currency != "EUR" {
		t.Errorf("quote defaults = %+v", cfg.Quote)
	}
	if len(cfg.Matrix.FatalKeywords) != 4 {
		t.Errorf("fatal keywords = %v", cfg.Matrix.FatalKeywords)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "matrix": {"default_path": "/data/preismatrix.xlsx"},
  "storage": {"database_path": "/tmp/admin.db"},
  "quote": {"vat_percent": 7}
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matrix.DefaultPath != "/data/preismatrix.xlsx" || cfg.Storage.DatabasePath != "/tmp/admin.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Quote.VATPercent != 7 || cfg.Quote.Currency != "EUR" {
		t.Errorf("quote = %+v", cfg.Quote)
	}
}

func TestLoadHCL(t *testing.T) {
	path := writeFile(t, "config.hcl", `
matrix {
  fatal_keywords = ["empty", "duplicate"]
}

quote {
  vat_percent = 0
}

logging {
  level  = "debug"
  format = "json"
}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.Join(cfg.Matrix.FatalKeywords, ",") != "empty,duplicate" {
		t.Errorf("fatal keywords = %v", cfg.Matrix.FatalKeywords)
	}
	if cfg.Quote.VATPercent != 0 {
		t.Errorf("explicit zero VAT should be kept, got %v", cfg.Quote.VATPercent)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("unset storage path should keep the default")
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json syntax", "c.json", `{"quote": `},
		{"hcl syntax", "c.hcl", `quote {`},
		{"invalid values", "c.json", `{"quote": {"vat_percent": 150}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.file, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadErrorCarriesPath(t *testing.T) {
	path := writeFile(t, "c.json", `{"quote": `)
	_, err := Load(path)
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Context["path"] != path {
		t.Errorf("decode error should carry the config path, got %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Storage.DatabasePath = " "
	cfg.Quote.VATPercent = -1
	cfg.Logging.Format = "xml"
	cfg.Matrix.FatalKeywords = []string{"empty", ""}

	err := cfg.Validate()
	if got := len(multierr.Errors(err)); got != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", got, err)
	}
	if Default().Validate() != nil {
		t.Error("defaults should validate")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Matrix.DefaultPath = "matrix.csv"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Matrix.DefaultPath != "matrix.csv" {
		t.Errorf("default path = %q", loaded.Matrix.DefaultPath)
	}
}
