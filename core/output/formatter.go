// Package output provides output formatting interfaces.
// This package produces human and machine-readable outputs.
package output

import (
	"io"
	"sort"
	"sync"

	"solar-pricing/core/matrix"
	"solar-pricing/core/pricing"
	"solar-pricing/core/quote"
	"solar-pricing/core/types"
	apperrors "solar-pricing/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is human-readable CLI text
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given report
	Render(w io.Writer, report *Report) error
}

// Report is everything a command may print. Nil sections are omitted.
type Report struct {
	// Title is a one-line heading
	Title string `json:"title,omitempty"`

	// File is the matrix file the report is about
	File string `json:"file,omitempty"`

	// Source is the format the matrix was loaded from
	Source types.SourceKind `json:"source,omitempty"`

	// Valid is the upload verdict, when one was made
	Valid *bool `json:"valid,omitempty"`

	// Matrix summarizes the loaded matrix
	Matrix *matrix.MatrixInfo `json:"matrix,omitempty"`

	// Cache describes the loader cache
	Cache *pricing.CacheSummary `json:"cache,omitempty"`

	// Price is a single matrix lookup
	Price *PriceResult `json:"price,omitempty"`

	// Quote is a full quote breakdown
	Quote *quote.Breakdown `json:"quote,omitempty"`

	// Table is a generic listing
	Table *Table `json:"table,omitempty"`

	// Findings are warnings collected along the way
	Findings []string `json:"findings"`
}

// PriceResult is the outcome of one price lookup
type PriceResult struct {
	ModuleCount  int     `json:"module_count"`
	StorageModel string  `json:"storage_model"`
	Column       string  `json:"column"`
	Price        float64 `json:"price"`
	Found        bool    `json:"found"`
}

// Table is a header plus rows of preformatted cells
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// FormatterRegistry manages formatter registration
type FormatterRegistry interface {
	// Register adds a formatter to the registry
	Register(formatter Formatter) error

	// GetFormatter returns a formatter for a format type
	GetFormatter(format Format) (Formatter, bool)

	// GetAll returns all registered formatters
	GetAll() []Formatter
}

// Registry is the default FormatterRegistry
type Registry struct {
	formatters map[Format]Formatter
	mu         sync.RWMutex
}

// NewRegistry creates a registry holding the CLI and JSON formatters.
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	_ = r.Register(NewCLIFormatter())
	_ = r.Register(NewJSONFormatter())
	return r
}

// Register adds a formatter; a second formatter for the same format is an error.
func (r *Registry) Register(formatter Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.formatters[formatter.Format()]; exists {
		return apperrors.Newf(apperrors.TypeConfig, "formatter %q already registered", formatter.Format())
	}
	r.formatters[formatter.Format()] = formatter
	return nil
}

// GetFormatter returns the formatter for a format
func (r *Registry) GetFormatter(format Format) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[format]
	return f, ok
}

// GetAll returns all formatters ordered by format name
func (r *Registry) GetAll() []Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Formatter, 0, len(r.formatters))
	for _, f := range r.formatters {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Format() < all[j].Format() })
	return all
}

// Lookup resolves a format name through the default registry.
func Lookup(name string) (Formatter, error) {
	f, ok := NewRegistry().GetFormatter(Format(name))
	if !ok {
		return nil, apperrors.Newf(apperrors.TypeInput, "unknown output format %q (use cli or json)", name)
	}
	return f, nil
}
