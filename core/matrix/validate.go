package matrix

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"solar-pricing/core/types"
)

// DefaultFatalKeywords mark findings that make an uploaded matrix unusable.
var DefaultFatalKeywords = []string{"empty", "anzahl module", "ohne speicher", "duplicate"}

// ValidateStructure inspects a table and returns every structural finding.
// It never modifies the table.
func ValidateStructure(table *types.PriceTable) []string {
	if table == nil {
		return []string{"Matrix is empty"}
	}
	rows, cols := table.Shape()
	if rows == 0 {
		return []string{"Matrix is empty"}
	}
	if cols == 0 {
		return []string{"Matrix must have at least one column"}
	}

	var findings []string

	if !isIndexHeader(table.IndexName()) {
		findings = append(findings, fmt.Sprintf("Index should be '%s', found: '%s'", types.IndexName, table.IndexName()))
	}

	columns := table.Columns()
	last := columns[len(columns)-1]
	if !IsNoStorageName(last) {
		findings = append(findings, fmt.Sprintf("Last column should be '%s', found: '%s'", types.NoStorage, last))
	}

	counts := table.ModuleCounts()
	if dups := duplicateCounts(counts); len(dups) > 0 {
		findings = append(findings, fmt.Sprintf("Duplicate module counts found: %s", formatInts(dups)))
	}

	var invalid []int
	for _, mc := range counts {
		if mc <= 0 {
			invalid = append(invalid, mc)
		}
	}
	if len(invalid) > 0 {
		findings = append(findings, fmt.Sprintf("Non-positive module counts found: %s", formatInts(invalid)))
	}

	for c, name := range columns {
		bad := 0
		for r := 0; r < rows; r++ {
			if v := table.Cell(r, c); types.IsMissing(v) || math.IsInf(v, 0) {
				bad++
			}
		}
		if bad > 0 {
			findings = append(findings, fmt.Sprintf("Column '%s' contains %d non-numeric values", name, bad))
		}
	}

	emptyRows := 0
	for r := 0; r < rows; r++ {
		if allMissing(table.Row(r)) {
			emptyRows++
		}
	}
	emptyCols := 0
	for c := range columns {
		empty := true
		for r := 0; r < rows; r++ {
			if !types.IsMissing(table.Cell(r, c)) {
				empty = false
				break
			}
		}
		if empty {
			emptyCols++
		}
	}
	if emptyRows > 0 {
		findings = append(findings, fmt.Sprintf("Matrix contains %d completely empty rows", emptyRows))
	}
	if emptyCols > 0 {
		findings = append(findings, fmt.Sprintf("Matrix contains %d completely empty columns", emptyCols))
	}

	return findings
}

// IsFatalFinding reports whether a finding contains one of the keywords,
// compared case-insensitively. With no keywords DefaultFatalKeywords apply.
func IsFatalFinding(finding string, keywords ...string) bool {
	if len(keywords) == 0 {
		keywords = DefaultFatalKeywords
	}
	lower := strings.ToLower(finding)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// FatalFindings filters findings down to the fatal ones.
func FatalFindings(findings []string, keywords ...string) []string {
	var fatal []string
	for _, f := range findings {
		if IsFatalFinding(f, keywords...) {
			fatal = append(fatal, f)
		}
	}
	return fatal
}

// IsNoStorageName reports whether a column name is "Ohne Speicher",
// ignoring case and surrounding whitespace.
func IsNoStorageName(name string) bool {
	return normalizeModel(name) == strings.ToLower(types.NoStorage)
}

func normalizeModel(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// duplicateCounts lists each repeated key once per extra occurrence, in table order.
func duplicateCounts(counts []int) []int {
	seen := make(map[int]bool, len(counts))
	var dups []int
	for _, mc := range counts {
		if seen[mc] {
			dups = append(dups, mc)
			continue
		}
		seen[mc] = true
	}
	return dups
}

func sortedCopy(counts []int) []int {
	out := append([]int(nil), counts...)
	sort.Ints(out)
	return out
}

func formatInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatStrings(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + v + "'"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
