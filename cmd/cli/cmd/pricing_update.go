package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solar-pricing/adapters/storage"
	"solar-pricing/core/matrix"
	"solar-pricing/core/output"
	"solar-pricing/core/pricing"
	"solar-pricing/core/types"
	"solar-pricing/internal/logging"
)

var (
	uploadForce  bool
	uploadDryRun bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <matrix-file>",
	Short: "Validate a matrix and store it as the active matrix",
	Long: `Validate an Excel or CSV price matrix and save it to the admin database.
The saved upload becomes the matrix used by commands run without a file.

Invalid matrices are rejected unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadForce, "force", false, "store the matrix even when validation fails")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "validate only, do not store")

	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	in, err := readMatrixFile(args[0])
	if err != nil {
		return err
	}
	upload, report := validateUpload(newLoader(), in)
	report.Title = "Matrix upload"

	if (upload.Valid || uploadForce) && !uploadDryRun {
		if err := saveUpload(cmd, upload); err != nil {
			return err
		}
		report.Table = uploadsTable([]*storage.MatrixUpload{upload})
	}

	if err := render(cmd, report); err != nil {
		return err
	}
	if !upload.Valid && !uploadForce {
		return errInvalidMatrix
	}
	return nil
}

// validateUpload runs upload validation and describes the result as an upload record.
func validateUpload(loader *pricing.MatrixLoader, in *matrixInput) (*storage.MatrixUpload, *output.Report) {
	valid, findings := loader.Validate(in.Excel, in.CSV)
	upload := &storage.MatrixUpload{
		FileName: in.FileName,
		Hash:     pricing.ComputeHash(in.Data()),
		Data:     in.Data(),
		Valid:    valid,
		Findings: findings,
	}
	report := &output.Report{File: in.Label, Valid: &upload.Valid, Findings: findings}

	table, source, _ := loader.Load(in.Excel, in.CSV)
	upload.Source = source
	if source == types.SourceNone {
		upload.Source = in.Kind()
	}
	if table != nil {
		upload.Rows, upload.Columns = table.Shape()
		if m, err := matrix.NewPriceMatrix(table); err == nil {
			info := m.GetMatrixInfo()
			report.Matrix = &info
			report.Source = source
		}
	}
	return upload, report
}

func saveUpload(cmd *cobra.Command, upload *storage.MatrixUpload) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveMatrix(cmd.Context(), upload); err != nil {
		return err
	}
	logging.Named(logging.ComponentUpload).Info("matrix stored",
		zap.String("id", upload.ID),
		logging.Source(upload.Source),
		logging.Hash(upload.Hash),
		zap.Bool("valid", upload.Valid),
		logging.Shape(upload.Rows, upload.Columns))
	return nil
}
