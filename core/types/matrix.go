// Package types - Price matrix data model
package types

import (
	"math"

	apperrors "solar-pricing/internal/errors"
)

const (
	// NoStorage is the canonical column for systems quoted without battery storage
	NoStorage = "Ohne Speicher"

	// IndexName is the canonical name of the module count row key
	IndexName = "Anzahl Module"
)

// SourceKind identifies where a loaded table came from
type SourceKind string

const (
	SourceExcel SourceKind = "Excel"
	SourceCSV   SourceKind = "CSV"
	SourceNone  SourceKind = "None"
)

// Missing returns the value used for an absent price cell.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether a cell value is absent.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// PriceTable is an immutable module count × storage model grid of prices.
// Row keys are not required to be unique; the validator reports duplicates.
type PriceTable struct {
	indexName    string
	moduleCounts []int
	columns      []string
	cells        [][]float64
}

// NewPriceTable copies the given data into a new table.
// Every row must have exactly one cell per column.
func NewPriceTable(indexName string, moduleCounts []int, columns []string, cells [][]float64) (*PriceTable, error) {
	if len(cells) != len(moduleCounts) {
		return nil, apperrors.Newf(apperrors.TypeInput,
			"price table has %d module counts but %d rows", len(moduleCounts), len(cells))
	}
	t := &PriceTable{
		indexName:    indexName,
		moduleCounts: append([]int(nil), moduleCounts...),
		columns:      append([]string(nil), columns...),
		cells:        make([][]float64, len(cells)),
	}
	for i, row := range cells {
		if len(row) != len(columns) {
			return nil, apperrors.Newf(apperrors.TypeInput,
				"price table row %d has %d cells, expected %d", i, len(row), len(columns))
		}
		t.cells[i] = append([]float64(nil), row...)
	}
	return t, nil
}

// IndexName returns the name of the row key.
func (t *PriceTable) IndexName() string {
	return t.indexName
}

// ModuleCounts returns the row keys in table order.
func (t *PriceTable) ModuleCounts() []int {
	return append([]int(nil), t.moduleCounts...)
}

// Columns returns the storage model column names in table order.
func (t *PriceTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Row returns a copy of the cells of row i.
func (t *PriceTable) Row(i int) []float64 {
	return append([]float64(nil), t.cells[i]...)
}

// Cell returns the price at row r, column c.
func (t *PriceTable) Cell(r, c int) float64 {
	return t.cells[r][c]
}

// Shape returns the number of rows and columns.
func (t *PriceTable) Shape() (rows, cols int) {
	return len(t.moduleCounts), len(t.columns)
}

// IsEmpty reports whether the table has no rows or no columns.
func (t *PriceTable) IsEmpty() bool {
	return t == nil || len(t.moduleCounts) == 0 || len(t.columns) == 0
}

// Equal reports whether two tables hold the same keys, columns and cells.
// Missing cells compare equal to each other.
func (t *PriceTable) Equal(other *PriceTable) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.indexName != other.indexName ||
		len(t.moduleCounts) != len(other.moduleCounts) ||
		len(t.columns) != len(other.columns) {
		return false
	}
	for i, mc := range t.moduleCounts {
		if other.moduleCounts[i] != mc {
			return false
		}
	}
	for i, col := range t.columns {
		if other.columns[i] != col {
			return false
		}
	}
	for r := range t.cells {
		for c, v := range t.cells[r] {
			w := other.cells[r][c]
			if IsMissing(v) && IsMissing(w) {
				continue
			}
			if v != w {
				return false
			}
		}
	}
	return true
}
