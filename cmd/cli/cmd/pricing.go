package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"solar-pricing/adapters/storage"
	"solar-pricing/core/output"
	"solar-pricing/core/resolver"
	"solar-pricing/core/types"
	"solar-pricing/internal/logging"
)

var (
	moduleCount  int
	storageModel string
	storageID    string
	noStorage    bool
)

var priceCmd = &cobra.Command{
	Use:   "price [matrix-file]",
	Short: "Look up the matrix price for a module count and storage model",
	Long: `Look up one price. The storage model is either given by name (--storage)
or resolved from the product catalog (--storage-id). Unknown models fall back
to the "Ohne Speicher" column with a finding.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrice,
}

func init() {
	addSelectionFlags(priceCmd)
	rootCmd.AddCommand(priceCmd)
}

// addSelectionFlags registers the flags that pick a matrix cell.
func addSelectionFlags(c *cobra.Command) {
	c.Flags().IntVarP(&moduleCount, "modules", "m", 0, "number of PV modules")
	c.Flags().StringVarP(&storageModel, "storage", "s", "", "storage model column name")
	c.Flags().StringVar(&storageID, "storage-id", "", "storage product id from the catalog")
	c.Flags().BoolVar(&noStorage, "no-storage", false, "price the system without storage")
	_ = c.MarkFlagRequired("modules")
	c.MarkFlagsMutuallyExclusive("storage", "storage-id")
}

func runPrice(cmd *cobra.Command, args []string) error {
	loaded, err := loadMatrix(cmd.Context(), args)
	if err != nil {
		return err
	}

	findings := loaded.Findings
	model := resolver.NormalizeStorageName(storageModel)
	if storageID != "" {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		r := resolver.New(resolver.WithLogger(logging.Named(logging.ComponentResolver)))
		model = r.ResolveStorageName(storageID, !noStorage, storage.ProductLookup(cmd.Context(), store))
	}

	res := loaded.Matrix.Lookup(moduleCount, model, !noStorage && model != types.NoStorage)
	findings = append(findings, res.Findings...)

	return render(cmd, &output.Report{
		Title:  "Price lookup",
		File:   loaded.Input.Label,
		Source: loaded.Source,
		Price: &output.PriceResult{
			ModuleCount:  moduleCount,
			StorageModel: model,
			Column:       res.Column,
			Price:        res.Price,
			Found:        res.Found,
		},
		Findings: findings,
	})
}

// priceCell formats one matrix cell for a table.
func priceCell(v float64) string {
	if types.IsMissing(v) {
		return ""
	}
	return output.FormatAmount(decimal.NewFromFloat(v))
}
