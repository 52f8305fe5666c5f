package pricing

import (
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"solar-pricing/core/types"
)

const csvMatrix = `Anzahl Module;Speicher A;Ohne Speicher
10;15.000,00;12.000,00
15;18.000,00;14.000,00
20;21.000,00;16.000,00`

func newTestLoader(opts ...LoaderOption) *MatrixLoader {
	return NewMatrixLoader(append([]LoaderOption{WithLogger(zap.NewNop())}, opts...)...)
}

func excelMatrix(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("SetCellValue: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestLoadNoInput(t *testing.T) {
	l := newTestLoader()
	table, source, findings := l.Load(nil, "")
	if table != nil || source != types.SourceNone {
		t.Fatalf("got (%v, %s)", table, source)
	}
	if len(findings) != 1 || findings[0] != msgNoInput {
		t.Errorf("findings = %v", findings)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	l := newTestLoader()

	first, source, findings := l.Load(nil, csvMatrix)
	if first == nil || source != types.SourceCSV {
		t.Fatalf("first load failed: %v", findings)
	}
	second, _, secondFindings := l.Load(nil, csvMatrix)

	if !first.Equal(second) {
		t.Error("identical input produced different tables")
	}
	if len(findings) != len(secondFindings) {
		t.Errorf("findings differ: %v vs %v", findings, secondFindings)
	}
	if got := l.CacheInfo().TotalEntries; got != 1 {
		t.Errorf("cache entries = %d, want 1", got)
	}
}

func TestLoadPrefersExcel(t *testing.T) {
	l := newTestLoader()
	excel := excelMatrix(t, [][]any{
		{"Anzahl Module", "Speicher X", "Ohne Speicher"},
		{5, 9000.0, 7000.0},
	})

	table, source, findings := l.Load(excel, csvMatrix)
	if source != types.SourceExcel {
		t.Fatalf("source = %s, findings %v", source, findings)
	}
	if counts := table.ModuleCounts(); len(counts) != 1 || counts[0] != 5 {
		t.Errorf("expected the Excel table, got counts %v", counts)
	}
}

func TestLoadFallsBackToCSV(t *testing.T) {
	l := newTestLoader()

	table, source, findings := l.Load([]byte("not a workbook"), csvMatrix)
	if source != types.SourceCSV || table == nil {
		t.Fatalf("expected CSV fallback, got %s with %v", source, findings)
	}
	if got := l.CacheInfo().TotalEntries; got != 1 {
		t.Errorf("failed Excel parse must not be cached, entries = %d", got)
	}
	if len(findings) == 0 || !strings.HasPrefix(findings[0], "Excel: ") {
		t.Errorf("Excel failure reason should be kept, findings = %v", findings)
	}

	// The cached CSV entry carries only its own findings.
	_, _, csvOnly := l.Load(nil, csvMatrix)
	if len(csvOnly) != 0 {
		t.Errorf("CSV findings = %v, want none", csvOnly)
	}
}

func TestLoadBothFail(t *testing.T) {
	l := newTestLoader()

	table, source, findings := l.Load([]byte("garbage"), "Name;Preis\nfoo;bar")
	if table != nil || source != types.SourceNone {
		t.Fatalf("got (%v, %s)", table, source)
	}
	if len(findings) != 3 {
		t.Fatalf("findings = %v, want Excel reason, CSV reason, summary", findings)
	}
	if !strings.HasPrefix(findings[0], "Excel: ") {
		t.Errorf("first finding = %q", findings[0])
	}
	if !strings.HasPrefix(findings[1], "CSV: ") || !strings.Contains(findings[1], "Anzahl Module") {
		t.Errorf("second finding = %q", findings[1])
	}
	if findings[2] != msgBothFailed {
		t.Errorf("last finding = %q", findings[2])
	}
	if got := l.CacheInfo().TotalEntries; got != 0 {
		t.Errorf("entries = %d, want 0", got)
	}
}

func TestLoadFailureReasons(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want string
	}{
		{"no index column", "Name;Preis\nfoo;bar", "CSV: Could not find 'Anzahl Module'"},
		{"blank text", "   ", "CSV: CSV data is empty"},
		{"no numeric counts", "Anzahl Module;Ohne Speicher\nabc;1", "CSV: No valid numeric module counts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, _, findings := newTestLoader().Load(nil, tt.csv)
			if table != nil {
				t.Fatal("expected no table")
			}
			if len(findings) != 2 || !strings.HasPrefix(findings[0], tt.want) || findings[1] != msgBothFailed {
				t.Errorf("findings = %v, want %q then summary", findings, tt.want)
			}
		})
	}
}

func TestLoadFailedParseLeavesNoEntry(t *testing.T) {
	l := newTestLoader()
	bad := "Name;Preis\nfoo;bar"

	if _, _, findings := l.Load(nil, bad); findings[len(findings)-1] != msgBothFailed {
		t.Errorf("findings = %v", findings)
	}
	if _, ok := l.get(ComputeHash([]byte(bad))); ok {
		t.Error("failed parse was cached")
	}

	good := "Anzahl Module;Ohne Speicher\n10;1"
	l.put(&CacheEntry{Hash: ComputeHash([]byte(good)), Table: mustGoodTable(t), Source: types.SourceCSV})
	l.Invalidate(ComputeHash([]byte(good)))
	if got := l.CacheInfo().TotalEntries; got != 0 {
		t.Errorf("entries after Invalidate = %d", got)
	}
}

func mustGoodTable(t *testing.T) *types.PriceTable {
	t.Helper()
	table, err := types.NewPriceTable(types.IndexName, []int{10}, []string{types.NoStorage}, [][]float64{{1}})
	if err != nil {
		t.Fatalf("NewPriceTable: %v", err)
	}
	return table
}

func TestLoadPrefixesFindings(t *testing.T) {
	l := newTestLoader()
	csv := "Anzahl Module;A;B\n10;1;2\n10;3;4"

	_, _, findings := l.Load(nil, csv)
	if len(findings) == 0 {
		t.Fatal("expected findings")
	}
	for _, f := range findings {
		if !strings.HasPrefix(f, "CSV validation: ") && !strings.HasPrefix(f, "CSV: ") {
			t.Errorf("finding %q lacks a source prefix", f)
		}
	}
}

func TestCacheInfoAndClear(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLoader(WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	l.Load(nil, csvMatrix)
	l.Load(nil, "Anzahl Module;Ohne Speicher\n8;100")

	info := l.CacheInfo()
	if info.TotalEntries != 2 || len(info.Entries) != 2 {
		t.Fatalf("info = %+v", info)
	}
	first := info.Entries[0]
	if len(first.Hash) != 11 || !strings.HasSuffix(first.Hash, "...") {
		t.Errorf("hash %q should be truncated", first.Hash)
	}
	if first.Source != types.SourceCSV || first.Rows != 3 || first.Columns != 2 || first.FindingCount != 0 {
		t.Errorf("entry = %+v", first)
	}
	if !first.Timestamp.Before(info.Entries[1].Timestamp) {
		t.Error("entries should be ordered oldest first")
	}

	l.Clear()
	if got := l.CacheInfo().TotalEntries; got != 0 {
		t.Errorf("entries after Clear = %d", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		csv       string
		valid     bool
		mentioned string
	}{
		{"valid matrix", csvMatrix, true, ""},
		{"missing no-storage column", "Anzahl Module;Speicher A;Speicher B\n10;1;2", false, "Ohne Speicher"},
		{"duplicate module counts", "Anzahl Module;Ohne Speicher\n10;1\n10;2", false, "Duplicate"},
		{"numeric first column accepted", "Module;Ohne Speicher\n10;1", true, ""},
		{"no usable rows", "Anzahl Module;Ohne Speicher\nabc;1", false, "Failed to load"},
		{"reason kept", "Anzahl Module;Ohne Speicher\nabc;1", false, "No valid numeric module counts"},
		{"blank text", "   ", false, "CSV data is empty"},
		{"no input", "", false, "No matrix data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, findings := newTestLoader().Validate(nil, tt.csv)
			if valid != tt.valid {
				t.Errorf("valid = %v, want %v (%v)", valid, tt.valid, findings)
			}
			if tt.mentioned == "" {
				return
			}
			found := false
			for _, f := range findings {
				if strings.Contains(f, tt.mentioned) {
					found = true
				}
			}
			if !found {
				t.Errorf("findings %v do not mention %q", findings, tt.mentioned)
			}
		})
	}
}

func TestValidateCustomKeywords(t *testing.T) {
	l := newTestLoader(WithFatalKeywords([]string{"non-numeric"}))
	csv := "Anzahl Module;A;Ohne Speicher\n10;;2\n12;1;3"

	valid, findings := l.Validate(nil, csv)
	if valid {
		t.Errorf("expected custom keyword to reject, findings %v", findings)
	}
	valid, _ = l.Validate(nil, "Anzahl Module;Speicher A;Speicher B\n10;1;2")
	if !valid {
		t.Error("default keywords should no longer apply")
	}
}
