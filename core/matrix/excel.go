package matrix

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"solar-pricing/core/types"
	"solar-pricing/internal/logging"
)

// ParseExcel parses the first worksheet of a workbook. The first column is
// always the row key and the header row names the storage models. Cells typed
// as numbers are taken as is; text cells use the same German number rules as
// ParseCSV, so both sources yield equal tables for the same data.
func ParseExcel(data []byte) (table *types.PriceTable, findings []string) {
	if len(data) == 0 {
		return nil, []string{"Excel data is empty"}
	}

	defer func() {
		if r := recover(); r != nil {
			table, findings = nil, []string{fmt.Sprintf("Error parsing Excel: %v", r)}
		}
	}()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, []string{fmt.Sprintf("Error parsing Excel: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, []string{"Excel file is empty or first column is empty"}
	}
	sheet := sheets[0]

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, []string{fmt.Sprintf("Error parsing Excel: %v", err)}
	}
	if len(records) < 2 {
		return nil, []string{"Excel file is empty or first column is empty"}
	}

	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	if width < 2 {
		return nil, []string{"Excel file is empty or first column is empty"}
	}

	header := make([]string, width-1)
	copy(header, records[0][min(1, len(records[0])):])
	columns := uniqueHeaders(header, 1)

	reader := excelCellReader{file: f, sheet: sheet}
	rows := make([]rawRow, 0, len(records)-1)
	for r := 1; r < len(records); r++ {
		rec := records[r]
		row := rawRow{index: types.Missing(), cells: make([]float64, len(columns))}
		for c := 0; c < width; c++ {
			v := types.Missing()
			if c < len(rec) {
				v = reader.value(c+1, r+1, rec[c])
			}
			if c == 0 {
				row.index = v
				continue
			}
			row.cells[c-1] = v
		}
		rows = append(rows, row)
	}

	table, findings = buildTable(columns, rows, excelMessages)
	if table == nil {
		return nil, findings
	}

	nr, nc := table.Shape()
	logging.Named(logging.ComponentMatrix).Info("parsed excel matrix",
		zap.String("sheet", sheet), logging.Shape(nr, nc))
	return table, findings
}

type excelCellReader struct {
	file  *excelize.File
	sheet string
}

// value converts a raw cell value. Text cells follow the locale rules,
// everything else is expected to hold a plain number.
func (r excelCellReader) value(col, row int, raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.Missing()
	}

	if name, err := excelize.CoordinatesToCellName(col, row); err == nil {
		if typ, err := r.file.GetCellType(r.sheet, name); err == nil {
			switch typ {
			case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
				v, _ := ParseLocaleNumber(raw)
				return v
			}
		}
	}

	if v, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(v, 0) {
		return v
	}
	v, _ := ParseLocaleNumber(raw)
	return v
}
