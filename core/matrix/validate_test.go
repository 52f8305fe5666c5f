package matrix

import (
	"strings"
	"testing"

	"solar-pricing/core/types"
)

func mustTable(t *testing.T, indexName string, counts []int, columns []string, cells [][]float64) *types.PriceTable {
	t.Helper()
	table, err := types.NewPriceTable(indexName, counts, columns, cells)
	if err != nil {
		t.Fatalf("NewPriceTable: %v", err)
	}
	return table
}

func containsFinding(findings []string, substr string) bool {
	for _, f := range findings {
		if strings.Contains(strings.ToLower(f), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}

func TestValidateStructureValid(t *testing.T) {
	table, _ := ParseCSV(validCSV)
	if findings := ValidateStructure(table); len(findings) != 0 {
		t.Errorf("expected no findings for a valid matrix, got %v", findings)
	}
}

func TestValidateStructureFindings(t *testing.T) {
	nan := types.Missing()

	tests := []struct {
		name    string
		table   *types.PriceTable
		contain []string
	}{
		{
			name:    "nil table",
			table:   nil,
			contain: []string{"Matrix is empty"},
		},
		{
			name:    "no rows",
			table:   mustTable(t, types.IndexName, nil, []string{"Ohne Speicher"}, nil),
			contain: []string{"Matrix is empty"},
		},
		{
			name:    "no columns",
			table:   mustTable(t, types.IndexName, []int{10}, nil, [][]float64{{}}),
			contain: []string{"at least one column"},
		},
		{
			name:    "wrong index name",
			table:   mustTable(t, "Module", []int{10}, []string{"Ohne Speicher"}, [][]float64{{1}}),
			contain: []string{"Index should be 'Anzahl Module', found: 'Module'"},
		},
		{
			name:    "missing no-storage column",
			table:   mustTable(t, types.IndexName, []int{10}, []string{"Speicher A", "Speicher B"}, [][]float64{{1, 2}}),
			contain: []string{"Last column should be 'Ohne Speicher', found: 'Speicher B'"},
		},
		{
			name:    "duplicate module counts",
			table:   mustTable(t, types.IndexName, []int{10, 12, 10}, []string{"Ohne Speicher"}, [][]float64{{1}, {2}, {3}}),
			contain: []string{"Duplicate module counts found: [10]"},
		},
		{
			name:    "non-positive module counts",
			table:   mustTable(t, types.IndexName, []int{0, -2}, []string{"Ohne Speicher"}, [][]float64{{1}, {2}}),
			contain: []string{"Non-positive module counts found: [0, -2]"},
		},
		{
			name: "missing values and empty rows and columns",
			table: mustTable(t, types.IndexName, []int{10, 12},
				[]string{"Speicher A", "Leer", "Ohne Speicher"},
				[][]float64{{1, nan, 2}, {nan, nan, nan}}),
			contain: []string{
				"Column 'Speicher A' contains 1 non-numeric values",
				"Column 'Leer' contains 2 non-numeric values",
				"Matrix contains 1 completely empty rows",
				"Matrix contains 1 completely empty columns",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := ValidateStructure(tt.table)
			for _, want := range tt.contain {
				if !containsFinding(findings, want) {
					t.Errorf("findings %v missing %q", findings, want)
				}
			}
		})
	}
}

func TestValidateStructureDoesNotMutate(t *testing.T) {
	table := mustTable(t, "idx", []int{10, 10}, []string{"A"}, [][]float64{{1}, {types.Missing()}})
	before := mustTable(t, "idx", []int{10, 10}, []string{"A"}, [][]float64{{1}, {types.Missing()}})

	_ = ValidateStructure(table)

	if !table.Equal(before) {
		t.Error("ValidateStructure modified the table")
	}
}

func TestIsFatalFinding(t *testing.T) {
	tests := []struct {
		finding string
		fatal   bool
	}{
		{"Matrix is empty", true},
		{"CSV validation: Last column should be 'Ohne Speicher', found: 'X'", true},
		{"Index should be 'Anzahl Module', found: 'Module'", true},
		{"Duplicate module counts found: [10]", true},
		{"Column 'A' contains 1 non-numeric values", false},
		{"Non-positive module counts found: [0]", false},
	}

	for _, tt := range tests {
		t.Run(tt.finding, func(t *testing.T) {
			if got := IsFatalFinding(tt.finding); got != tt.fatal {
				t.Errorf("IsFatalFinding(%q) = %v, want %v", tt.finding, got, tt.fatal)
			}
		})
	}

	if !IsFatalFinding("Column 'A' contains 1 non-numeric values", "non-numeric") {
		t.Error("custom keywords should replace the defaults")
	}
	if got := FatalFindings([]string{"Matrix is empty", "fine"}); len(got) != 1 {
		t.Errorf("FatalFindings = %v", got)
	}
}
