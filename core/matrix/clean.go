package matrix

import (
	"fmt"
	"strings"

	"solar-pricing/core/types"
)

// rawRow is one data row before index coercion.
// The index is already parsed; a missing value drops the row.
type rawRow struct {
	index float64
	cells []float64
}

// cleanMessages are the source specific findings emitted while cleaning.
type cleanMessages struct {
	noValidIndex string
	emptyAfter   string
}

var (
	csvMessages = cleanMessages{
		noValidIndex: "No valid numeric module counts found in index",
		emptyAfter:   "Matrix is empty after cleaning and type conversion",
	}
	excelMessages = cleanMessages{
		noValidIndex: "No valid numeric module counts found in Excel index",
		emptyAfter:   "Excel matrix is empty after cleaning and type conversion",
	}
)

// buildTable coerces the index, drops all-missing rows and columns and
// returns the resulting table, or nil with a finding when nothing is left.
func buildTable(columns []string, rows []rawRow, msgs cleanMessages) (*types.PriceTable, []string) {
	var counts []int
	var cells [][]float64
	for _, r := range rows {
		mc, ok := wholeNumber(r.index)
		if !ok {
			continue
		}
		counts = append(counts, mc)
		cells = append(cells, r.cells)
	}
	if len(counts) == 0 {
		return nil, []string{msgs.noValidIndex}
	}

	keepRows := make([]int, 0, len(cells))
	for i, row := range cells {
		if !allMissing(row) {
			keepRows = append(keepRows, i)
		}
	}

	keepCols := make([]int, 0, len(columns))
	for c := range columns {
		for _, r := range keepRows {
			if !types.IsMissing(cells[r][c]) {
				keepCols = append(keepCols, c)
				break
			}
		}
	}

	if len(keepRows) == 0 || len(keepCols) == 0 {
		return nil, []string{msgs.emptyAfter}
	}

	outCounts := make([]int, len(keepRows))
	outCells := make([][]float64, len(keepRows))
	outCols := make([]string, len(keepCols))
	for j, c := range keepCols {
		outCols[j] = columns[c]
	}
	for i, r := range keepRows {
		outCounts[i] = counts[r]
		row := make([]float64, len(keepCols))
		for j, c := range keepCols {
			row[j] = cells[r][c]
		}
		outCells[i] = row
	}

	table, err := types.NewPriceTable(types.IndexName, outCounts, outCols, outCells)
	if err != nil {
		return nil, []string{err.Error()}
	}
	return table, nil
}

// uniqueHeaders names blank headers "Unnamed: N" and suffixes repeats
// with ".1", ".2" so every column can be addressed by name.
func uniqueHeaders(headers []string, offset int) []string {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i+offset)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func allMissing(row []float64) bool {
	for _, v := range row {
		if !types.IsMissing(v) {
			return false
		}
	}
	return true
}

func isIndexHeader(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "anzahl module", "anzahl_module":
		return true
	}
	return false
}
