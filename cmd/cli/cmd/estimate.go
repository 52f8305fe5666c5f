package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"solar-pricing/adapters/storage"
	"solar-pricing/core/output"
	"solar-pricing/core/quote"
	"solar-pricing/core/types"
	"solar-pricing/internal/config"
	"solar-pricing/internal/logging"
)

var (
	additionalCosts string
	oneTimeBonus    string
	discountPercent string
	surchargePct    string
	specialDiscount string
	extraCosts      string
	vatPercent      string
)

var quoteCmd = &cobra.Command{
	Use:   "quote [matrix-file]",
	Short: "Compute a full quote with modifications and VAT",
	Long: `Compute a quote from the matrix price:

  subtotal  = matrix price + additional costs
  after     = subtotal - one-time bonus
  net       = after - discount% + surcharge% - special discount + extra costs
  gross     = net + VAT

Amounts accept "1234.56" or German notation "1.234,56".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuote,
}

func init() {
	addSelectionFlags(quoteCmd)
	quoteCmd.Flags().StringVar(&additionalCosts, "additional-costs", "", "costs added to the matrix price")
	quoteCmd.Flags().StringVar(&oneTimeBonus, "bonus", "", "one-time bonus subtracted from the subtotal")
	quoteCmd.Flags().StringVar(&discountPercent, "discount", "", "discount in percent")
	quoteCmd.Flags().StringVar(&surchargePct, "surcharge", "", "surcharge in percent")
	quoteCmd.Flags().StringVar(&specialDiscount, "special-discount", "", "fixed special discount")
	quoteCmd.Flags().StringVar(&extraCosts, "extra-costs", "", "fixed extra costs after discounts")
	quoteCmd.Flags().StringVar(&vatPercent, "vat", "", "VAT percent (default from config)")

	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	req, err := quoteRequest()
	if err != nil {
		return err
	}

	loaded, err := loadMatrix(cmd.Context(), args)
	if err != nil {
		return err
	}

	cfg := config.Get()
	opts := []quote.Option{
		quote.WithVATPercent(decimal.NewFromFloat(cfg.Quote.VATPercent)),
		quote.WithCurrency(types.Currency(cfg.Quote.Currency)),
		quote.WithLogger(logging.Named(logging.ComponentQuote)),
	}
	if storageID != "" {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, quote.WithProductLookup(storage.ProductLookup(cmd.Context(), store)))
	}

	calc, err := quote.NewCalculator(loaded.Matrix, nil, opts...)
	if err != nil {
		return err
	}
	breakdown, findings := calc.Quote(req)

	return render(cmd, &output.Report{
		Title:    "Quote",
		File:     loaded.Input.Label,
		Source:   loaded.Source,
		Quote:    breakdown,
		Findings: append(loaded.Findings, findings...),
	})
}

// quoteRequest builds the request from the command flags.
func quoteRequest() (quote.Request, error) {
	req := quote.Request{
		ModuleCount:    moduleCount,
		StorageID:      storageID,
		StorageModel:   storageModel,
		IncludeStorage: !noStorage,
	}

	amounts := []struct {
		flag  string
		value string
		dst   *decimal.Decimal
	}{
		{"additional-costs", additionalCosts, &req.AdditionalCosts},
		{"bonus", oneTimeBonus, &req.OneTimeBonus},
		{"discount", discountPercent, &req.Modifications.DiscountPercent},
		{"surcharge", surchargePct, &req.Modifications.SurchargePercent},
		{"special-discount", specialDiscount, &req.Modifications.SpecialDiscount},
		{"extra-costs", extraCosts, &req.Modifications.ExtraCosts},
	}
	for _, a := range amounts {
		d, err := parseDecimal(a.flag, a.value)
		if err != nil {
			return req, err
		}
		*a.dst = d
	}

	if vatPercent != "" {
		vat, err := parseDecimal("vat", vatPercent)
		if err != nil {
			return req, err
		}
		req.VATPercent = &vat
	}
	return req, nil
}
