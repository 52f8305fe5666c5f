package matrix

import (
	"encoding/csv"
	"fmt"
	"strings"

	"solar-pricing/core/types"
	"solar-pricing/internal/logging"
)

// ParseCSV parses a semicolon separated matrix with German number formatting.
// Lines starting with '#' are comments. The row key is the column named
// "Anzahl Module" (or "Anzahl_Module"), otherwise the first column when it is
// entirely numeric. Unparseable prices become missing cells.
//
// On failure the table is nil and the findings say why.
func ParseCSV(text string) (table *types.PriceTable, findings []string) {
	if strings.TrimSpace(text) == "" {
		return nil, []string{"CSV data is empty"}
	}

	defer func() {
		if r := recover(); r != nil {
			table, findings = nil, []string{fmt.Sprintf("Error parsing CSV: %v", r)}
		}
	}()

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	reader.Comma = ';'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []string{fmt.Sprintf("Error parsing CSV: %v", err)}
	}
	if len(records) == 0 {
		return nil, []string{"CSV file is empty"}
	}

	header := records[0]
	data := records[1:]
	for i, rec := range data {
		if len(rec) > len(header) {
			return nil, []string{fmt.Sprintf(
				"Error parsing CSV: row %d has %d fields, header has %d", i+2, len(rec), len(header))}
		}
	}

	indexCol := csvIndexColumn(header, data)
	if indexCol < 0 {
		return nil, []string{"Could not find 'Anzahl Module' column or suitable numeric index column"}
	}

	names := uniqueHeaders(header, 0)
	columns := make([]string, 0, len(names)-1)
	for i, name := range names {
		if i != indexCol {
			columns = append(columns, name)
		}
	}

	rows := make([]rawRow, 0, len(data))
	for _, rec := range data {
		row := rawRow{index: types.Missing(), cells: make([]float64, 0, len(columns))}
		for i := range header {
			field := ""
			if i < len(rec) {
				field = rec[i]
			}
			v, _ := ParseLocaleNumber(field)
			if i == indexCol {
				row.index = v
				continue
			}
			row.cells = append(row.cells, v)
		}
		rows = append(rows, row)
	}

	table, findings = buildTable(columns, rows, csvMessages)
	if table == nil {
		return nil, findings
	}

	r, c := table.Shape()
	logging.Named(logging.ComponentMatrix).Info("parsed csv matrix", logging.Shape(r, c))
	return table, findings
}

// csvIndexColumn returns the column holding module counts, or -1.
func csvIndexColumn(header []string, data [][]string) int {
	for i, name := range header {
		if isIndexHeader(name) {
			return i
		}
	}
	if len(header) == 0 || len(data) == 0 {
		return -1
	}

	seen := false
	for _, rec := range data {
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if _, ok := ParseLocaleNumber(rec[0]); !ok {
			return -1
		}
		seen = true
	}
	if !seen {
		return -1
	}
	return 0
}
