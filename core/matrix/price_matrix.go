package matrix

import (
	"fmt"

	"go.uber.org/zap"

	"solar-pricing/core/types"
	apperrors "solar-pricing/internal/errors"
	"solar-pricing/internal/logging"
)

// PriceMatrix performs INDEX/MATCH lookups over one immutable table.
// The trailing column is the "no storage" column regardless of its name.
type PriceMatrix struct {
	table    *types.PriceTable
	columns  []string
	rowIndex map[int]int
	logger   *zap.Logger
}

// Option configures a PriceMatrix
type Option func(*PriceMatrix)

// WithLogger sets the logger used for lookup diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *PriceMatrix) {
		m.logger = logger
	}
}

// MatrixInfo summarizes a loaded matrix
type MatrixInfo struct {
	MinModuleCount      int      `json:"min_module_count"`
	MaxModuleCount      int      `json:"max_module_count"`
	TotalModuleOptions  int      `json:"total_module_options"`
	StorageModels       []string `json:"storage_models"`
	TotalStorageOptions int      `json:"total_storage_options"`
	HasNoStorage        bool     `json:"has_no_storage"`
	Rows                int      `json:"rows"`
	Columns             int      `json:"columns"`
	ValidationFindings  []string `json:"validation_findings"`
}

// NewPriceMatrix wraps a table for lookups. It fails only for an empty
// table or one without columns; other structural problems are logged.
func NewPriceMatrix(table *types.PriceTable, opts ...Option) (*PriceMatrix, error) {
	m := &PriceMatrix{logger: logging.Named(logging.ComponentPrice)}
	for _, opt := range opts {
		opt(m)
	}

	if table == nil {
		return nil, apperrors.Pricing("Price matrix cannot be empty")
	}
	rows, cols := table.Shape()
	if rows == 0 {
		return nil, apperrors.Pricing("Price matrix cannot be empty")
	}
	if cols == 0 {
		return nil, apperrors.Pricing("Price matrix must have at least one column")
	}

	m.table = table
	m.columns = table.Columns()

	last := m.columns[cols-1]
	if !IsNoStorageName(last) {
		m.logger.Warn("last column is not the no-storage column; no-storage lookups use it anyway",
			zap.String("column", last), zap.String("expected", types.NoStorage))
	}

	missing := make(map[string]int)
	for c, name := range m.columns {
		for r := 0; r < rows; r++ {
			if types.IsMissing(table.Cell(r, c)) {
				missing[name]++
			}
		}
	}
	if len(missing) > 0 {
		m.logger.Warn("matrix contains missing prices", zap.Any("missing_per_column", missing))
	}

	// First occurrence wins when a module count is repeated.
	m.rowIndex = make(map[int]int, rows)
	for i, mc := range table.ModuleCounts() {
		if _, ok := m.rowIndex[mc]; !ok {
			m.rowIndex[mc] = i
		}
	}

	m.logger.Info("price matrix initialized",
		zap.Int("module_counts", rows), zap.Int("storage_options", cols))
	return m, nil
}

// Table returns the wrapped table.
func (m *PriceMatrix) Table() *types.PriceTable {
	return m.table
}

// LookupResult is the outcome of one INDEX/MATCH lookup.
type LookupResult struct {
	Price    float64  `json:"price"`
	Column   string   `json:"column,omitempty"`
	Found    bool     `json:"found"`
	Fallback bool     `json:"fallback"`
	Findings []string `json:"findings,omitempty"`
}

// GetPrice looks up the price for a module count and storage model.
//
// With includeStorage false or an empty storageModel the trailing column is
// used. An unknown storage model falls back to the trailing column and adds a
// finding. A zero price is returned for a missing row or cell, always together
// with a finding; callers must check findings rather than the price.
func (m *PriceMatrix) GetPrice(moduleCount int, storageModel string, includeStorage bool) (float64, []string) {
	res := m.Lookup(moduleCount, storageModel, includeStorage)
	return res.Price, res.Findings
}

// Lookup is GetPrice with the matched column and whether a cell was found.
func (m *PriceMatrix) Lookup(moduleCount int, storageModel string, includeStorage bool) (res LookupResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("Error during price lookup: %v", r)
			m.logger.Error(msg)
			res = LookupResult{Findings: append(res.Findings, msg)}
		}
	}()

	row, ok := m.rowIndex[moduleCount]
	if !ok {
		res.Findings = []string{fmt.Sprintf("Module count %d not found in matrix. Available counts: %s",
			moduleCount, formatInts(m.GetAvailableModuleCounts()))}
		return res
	}

	col := len(m.columns) - 1
	if includeStorage && storageModel != "" {
		if c, found := m.matchColumn(storageModel); found {
			col = c
		} else {
			res.Fallback = true
			res.Findings = append(res.Findings, fmt.Sprintf(
				"Storage model '%s' not found in matrix. Available models: %s. Using '%s' as fallback.",
				storageModel, formatStrings(m.GetAvailableStorageModels()), types.NoStorage))
		}
	}
	res.Column = m.columns[col]

	v := m.table.Cell(row, col)
	if types.IsMissing(v) {
		res.Findings = append(res.Findings, fmt.Sprintf("No price found for %d modules with %s", moduleCount, res.Column))
		return res
	}

	m.logger.Debug("price found",
		zap.Int("module_count", moduleCount), zap.String("column", res.Column), zap.Float64("price", v))
	res.Price = v
	res.Found = true
	return res
}

// matchColumn finds a column equal to name ignoring case and surrounding whitespace.
func (m *PriceMatrix) matchColumn(name string) (int, bool) {
	want := normalizeModel(name)
	for i, col := range m.columns {
		if normalizeModel(col) == want {
			return i, true
		}
	}
	return 0, false
}

// GetAvailableModuleCounts returns the distinct module counts in ascending order.
func (m *PriceMatrix) GetAvailableModuleCounts() []int {
	counts := make([]int, 0, len(m.rowIndex))
	for mc := range m.rowIndex {
		counts = append(counts, mc)
	}
	return sortedCopy(counts)
}

// GetAvailableStorageModels returns every column except the trailing one, in table order.
func (m *PriceMatrix) GetAvailableStorageModels() []string {
	return append([]string(nil), m.columns[:len(m.columns)-1]...)
}

// HasNoStorageOption reports whether the trailing column is named "Ohne Speicher".
func (m *PriceMatrix) HasNoStorageOption() bool {
	return IsNoStorageName(m.columns[len(m.columns)-1])
}

// ValidateStructure runs the structural checks against the wrapped table.
func (m *PriceMatrix) ValidateStructure() []string {
	return ValidateStructure(m.table)
}

// GetMatrixInfo summarizes the matrix.
func (m *PriceMatrix) GetMatrixInfo() MatrixInfo {
	counts := m.GetAvailableModuleCounts()
	models := m.GetAvailableStorageModels()
	rows, cols := m.table.Shape()
	return MatrixInfo{
		MinModuleCount:      counts[0],
		MaxModuleCount:      counts[len(counts)-1],
		TotalModuleOptions:  len(counts),
		StorageModels:       models,
		TotalStorageOptions: len(models),
		HasNoStorage:        m.HasNoStorageOption(),
		Rows:                rows,
		Columns:             cols,
		ValidationFindings:  m.ValidateStructure(),
	}
}
