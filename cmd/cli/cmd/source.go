package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"solar-pricing/adapters/storage"
	"solar-pricing/core/matrix"
	"solar-pricing/core/output"
	"solar-pricing/core/pricing"
	"solar-pricing/core/types"
	"solar-pricing/internal/config"
	apperrors "solar-pricing/internal/errors"
)

// matrixInput is the raw matrix a command works on.
type matrixInput struct {
	Label    string
	FileName string
	Excel    []byte
	CSV      string
}

// Data returns the raw bytes of whichever source is set.
func (in *matrixInput) Data() []byte {
	if len(in.Excel) > 0 {
		return in.Excel
	}
	return []byte(in.CSV)
}

// Kind reports which loader source the input feeds.
func (in *matrixInput) Kind() types.SourceKind {
	if len(in.Excel) > 0 {
		return types.SourceExcel
	}
	return types.SourceCSV
}

// readMatrixFile reads a file and classifies it as Excel or CSV by
// extension, falling back to the zip signature.
func readMatrixFile(path string) (*matrixInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInput, "read matrix file", err)
	}
	in := &matrixInput{Label: path, FileName: filepath.Base(path)}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		in.Excel = data
	case ".csv", ".txt":
		in.CSV = string(data)
	default:
		if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
			in.Excel = data
		} else {
			in.CSV = string(data)
		}
	}
	return in, nil
}

// resolveMatrixInput uses the file argument, then the configured default
// path, then the most recent upload in the store.
func resolveMatrixInput(ctx context.Context, args []string) (*matrixInput, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = config.Get().Matrix.DefaultPath
	}
	if path != "" {
		return readMatrixFile(path)
	}

	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	upload, err := store.LatestMatrix(ctx)
	if apperrors.IsType(err, apperrors.TypeNotFound) {
		return nil, apperrors.Input("no matrix file given and no matrix has been uploaded")
	}
	if err != nil {
		return nil, err
	}
	return uploadInput(upload), nil
}

func uploadInput(upload *storage.MatrixUpload) *matrixInput {
	in := &matrixInput{Label: "upload " + upload.ID, FileName: upload.FileName}
	if upload.Source == types.SourceExcel {
		in.Excel = upload.Data
	} else {
		in.CSV = string(upload.Data)
	}
	return in
}

func newLoader() *pricing.MatrixLoader {
	return pricing.NewMatrixLoader(pricing.WithFatalKeywords(config.Get().Matrix.FatalKeywords))
}

// loadedMatrix is a parsed input ready for lookups.
type loadedMatrix struct {
	Input    *matrixInput
	Loader   *pricing.MatrixLoader
	Source   types.SourceKind
	Findings []string
	Matrix   *matrix.PriceMatrix
}

// loadMatrix parses the command's matrix. A matrix that cannot be built is
// an error carrying the loader's findings.
func loadMatrix(ctx context.Context, args []string) (*loadedMatrix, error) {
	in, err := resolveMatrixInput(ctx, args)
	if err != nil {
		return nil, err
	}
	loader := newLoader()
	table, source, findings := loader.Load(in.Excel, in.CSV)
	if table == nil {
		return nil, apperrors.Newf(apperrors.TypeParsing, "could not load matrix from %s: %s", in.Label, strings.Join(findings, "; "))
	}
	m, err := matrix.NewPriceMatrix(table)
	if err != nil {
		return nil, err
	}
	return &loadedMatrix{Input: in, Loader: loader, Source: source, Findings: findings, Matrix: m}, nil
}

func openStore() (storage.Store, error) {
	return storage.StoreFactory(storage.BackendSQLite, map[string]string{
		"path": config.Get().Storage.DatabasePath,
	})
}

func render(cmd *cobra.Command, report *output.Report) error {
	f, err := output.Lookup(outputFormat)
	if err != nil {
		return err
	}
	return f.Render(cmd.OutOrStdout(), report)
}

// parseDecimal accepts plain decimals ("12.5") and German notation ("1.234,56").
func parseDecimal(flag, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	if !strings.Contains(value, ",") {
		if d, err := decimal.NewFromString(value); err == nil {
			return d, nil
		}
	}
	if v, ok := matrix.ParseLocaleNumber(value); ok {
		return decimal.NewFromFloat(v), nil
	}
	return decimal.Zero, apperrors.Newf(apperrors.TypeInput, "--%s: invalid amount %q", flag, value)
}
