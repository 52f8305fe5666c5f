// Package pricing - Content-addressed matrix loading
// Identical uploads are parsed once; the hash is the only cache key.
package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"solar-pricing/core/matrix"
	"solar-pricing/core/types"
	"solar-pricing/internal/logging"
)

const (
	msgNoInput    = "No matrix data provided (both Excel and CSV are empty)"
	msgBothFailed = "Failed to load matrix from both Excel and CSV sources"
)

// MatrixLoader parses price matrices and caches the results by content hash.
// There is no eviction beyond Clear.
type MatrixLoader struct {
	entries       map[string]*CacheEntry
	fatalKeywords []string
	now           func() time.Time
	logger        *zap.Logger

	mu sync.RWMutex
}

// CacheEntry is one parsed input
type CacheEntry struct {
	Hash      string
	Table     *types.PriceTable
	Source    types.SourceKind
	Findings  []string
	CreatedAt time.Time
}

// CacheEntryInfo describes a cache entry for diagnostics
type CacheEntryInfo struct {
	Hash         string           `json:"hash"`
	Source       types.SourceKind `json:"source"`
	Timestamp    time.Time        `json:"timestamp"`
	Rows         int              `json:"rows"`
	Columns      int              `json:"columns"`
	FindingCount int              `json:"error_count"`
}

// CacheSummary contains cache statistics
type CacheSummary struct {
	TotalEntries int              `json:"total_entries"`
	Entries      []CacheEntryInfo `json:"entries"`
}

// LoaderOption configures a MatrixLoader
type LoaderOption func(*MatrixLoader)

// WithLogger sets the loader's logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *MatrixLoader) {
		l.logger = logger
	}
}

// WithFatalKeywords replaces the keywords Validate treats as fatal.
func WithFatalKeywords(keywords []string) LoaderOption {
	return func(l *MatrixLoader) {
		if len(keywords) > 0 {
			l.fatalKeywords = append([]string(nil), keywords...)
		}
	}
}

// WithClock sets the time source for entry timestamps.
func WithClock(now func() time.Time) LoaderOption {
	return func(l *MatrixLoader) {
		l.now = now
	}
}

// NewMatrixLoader creates an empty loader
func NewMatrixLoader(opts ...LoaderOption) *MatrixLoader {
	l := &MatrixLoader{
		entries:       make(map[string]*CacheEntry),
		fatalKeywords: matrix.DefaultFatalKeywords,
		now:           time.Now,
		logger:        logging.Named(logging.ComponentLoader),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ComputeHash returns the SHA-256 hex digest of data.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Load returns the table for the given inputs. Excel is tried first; CSV
// only when Excel is absent or yields no table. The reasons a source failed
// are kept, prefixed with the source, ahead of the findings of the source
// that succeeded. Findings are never nil on failure.
func (l *MatrixLoader) Load(excelData []byte, csvText string) (*types.PriceTable, types.SourceKind, []string) {
	if len(excelData) == 0 && csvText == "" {
		return nil, types.SourceNone, []string{msgNoInput}
	}

	var failures []string
	if len(excelData) > 0 {
		table, findings, ok := l.loadSource(excelData, types.SourceExcel, matrix.ParseExcel)
		if ok {
			return table, types.SourceExcel, findings
		}
		failures = append(failures, findings...)
	}

	if csvText != "" {
		parseCSV := func(data []byte) (*types.PriceTable, []string) {
			return matrix.ParseCSV(string(data))
		}
		table, findings, ok := l.loadSource([]byte(csvText), types.SourceCSV, parseCSV)
		if ok {
			return table, types.SourceCSV, append(failures, findings...)
		}
		failures = append(failures, findings...)
	}

	return nil, types.SourceNone, append(failures, msgBothFailed)
}

func (l *MatrixLoader) loadSource(
	data []byte,
	source types.SourceKind,
	parse func([]byte) (*types.PriceTable, []string),
) (*types.PriceTable, []string, bool) {
	hash := ComputeHash(data)

	if entry, ok := l.get(hash); ok {
		l.logger.Debug("matrix cache hit", logging.Hash(hash), logging.Source(source))
		return entry.Table, append([]string(nil), entry.Findings...), true
	}

	table, parseFindings := parse(data)
	if table.IsEmpty() {
		l.Invalidate(hash)
		l.logger.Warn("matrix parse failed",
			logging.Source(source), zap.Strings("findings", parseFindings))
		return nil, prefixed(source, parseFindings), false
	}

	validation := matrix.ValidateStructure(table)
	findings := make([]string, 0, len(validation)+len(parseFindings))
	for _, f := range validation {
		findings = append(findings, string(source)+" validation: "+f)
	}
	findings = append(findings, prefixed(source, parseFindings)...)

	l.put(&CacheEntry{
		Hash:      hash,
		Table:     table,
		Source:    source,
		Findings:  findings,
		CreatedAt: l.now(),
	})

	rows, cols := table.Shape()
	l.logger.Info("matrix loaded",
		logging.Source(source), logging.Hash(hash), logging.Shape(rows, cols), zap.Int("findings", len(findings)))

	return table, append([]string(nil), findings...), true
}

func (l *MatrixLoader) get(hash string) (*CacheEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[hash]
	return entry, ok
}

func (l *MatrixLoader) put(entry *CacheEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.Hash] = entry
}

// Invalidate removes the entry for a hash
func (l *MatrixLoader) Invalidate(hash string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, hash)
}

// Clear drops every cached entry.
func (l *MatrixLoader) Clear() {
	l.mu.Lock()
	n := len(l.entries)
	l.entries = make(map[string]*CacheEntry)
	l.mu.Unlock()

	l.logger.Info("matrix cache cleared", zap.Int("entries", n))
}

// CacheInfo returns a summary of the cached entries, oldest first.
func (l *MatrixLoader) CacheInfo() CacheSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := CacheSummary{
		TotalEntries: len(l.entries),
		Entries:      make([]CacheEntryInfo, 0, len(l.entries)),
	}
	for _, entry := range l.entries {
		rows, cols := entry.Table.Shape()
		summary.Entries = append(summary.Entries, CacheEntryInfo{
			Hash:         shortHash(entry.Hash),
			Source:       entry.Source,
			Timestamp:    entry.CreatedAt,
			Rows:         rows,
			Columns:      cols,
			FindingCount: len(entry.Findings),
		})
	}
	sort.Slice(summary.Entries, func(i, j int) bool {
		a, b := summary.Entries[i], summary.Entries[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Hash < b.Hash
	})
	return summary
}

// Validate loads the inputs and reports whether the result is usable for
// upload. A result is invalid without a table or with any fatal finding.
func (l *MatrixLoader) Validate(excelData []byte, csvText string) (bool, []string) {
	table, _, findings := l.Load(excelData, csvText)
	if table == nil {
		return false, findings
	}
	if fatal := matrix.FatalFindings(findings, l.fatalKeywords...); len(fatal) > 0 {
		l.logger.Warn("matrix rejected", zap.Strings("fatal", fatal))
		return false, findings
	}
	return true, findings
}

// prefixed labels parser findings with their source, e.g. "CSV: ...".
func prefixed(source types.SourceKind, findings []string) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, string(source)+": "+f)
	}
	return out
}

func shortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8] + "..."
}
