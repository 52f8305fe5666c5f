package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"solar-pricing/adapters/storage"
	"solar-pricing/core/output"
)

var uploadsLimit int

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List stored matrix uploads, newest first",
	Args:  cobra.NoArgs,
	RunE:  runUploads,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <upload-id>",
	Short: "Make a previous upload the active matrix again",
	Long: `Restore a previous matrix upload.

This re-validates the stored file and saves it as a NEW upload, so the
history stays append-only and the restored matrix becomes the latest.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	uploadsCmd.Flags().IntVarP(&uploadsLimit, "limit", "n", 20, "maximum uploads to list (0 for all)")
	restoreCmd.Flags().BoolVar(&uploadForce, "force", false, "restore even when validation now fails")

	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(restoreCmd)
}

func runUploads(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.ListMatrices(cmd.Context(), uploadsLimit)
	if err != nil {
		return err
	}
	return render(cmd, &output.Report{
		Title: "Matrix uploads",
		Table: uploadsTable(list),
	})
}

func runRestore(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	previous, err := store.GetMatrix(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	upload, report := validateUpload(newLoader(), uploadInput(previous))
	upload.FileName = previous.FileName
	report.Title = "Matrix restore"
	report.File = "upload " + previous.ID

	if upload.Valid || uploadForce {
		if err := store.SaveMatrix(cmd.Context(), upload); err != nil {
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

func uploadsTable(list []*storage.MatrixUpload) *output.Table {
	t := &output.Table{Headers: []string{"ID", "FILE", "SOURCE", "ROWS", "COLUMNS", "VALID", "FINDINGS", "CREATED"}}
	for _, u := range list {
		valid := "no"
		if u.Valid {
			valid = "yes"
		}
		t.Rows = append(t.Rows, []string{
			u.ID,
			u.FileName,
			string(u.Source),
			strconv.Itoa(u.Rows),
			strconv.Itoa(u.Columns),
			valid,
			strconv.Itoa(len(u.Findings)),
			u.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return t
}
