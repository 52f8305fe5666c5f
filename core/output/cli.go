package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"solar-pricing/core/quote"
)

// CLIFormatter renders reports as plain text
type CLIFormatter struct{}

// NewCLIFormatter creates a CLI formatter
func NewCLIFormatter() *CLIFormatter {
	return &CLIFormatter{}
}

// Format returns FormatCLI
func (f *CLIFormatter) Format() Format {
	return FormatCLI
}

// Render writes the report sections in a fixed order.
func (f *CLIFormatter) Render(w io.Writer, r *Report) error {
	pw := &printer{w: w}

	if r.Title != "" {
		pw.printf("%s\n", r.Title)
		pw.printf("%s\n\n", strings.Repeat("=", len([]rune(r.Title))))
	}
	if r.File != "" {
		pw.printf("File:    %s\n", r.File)
	}
	if r.Source != "" {
		pw.printf("Source:  %s\n", r.Source)
	}
	if r.Valid != nil {
		verdict := "INVALID"
		if *r.Valid {
			verdict = "valid"
		}
		pw.printf("Status:  %s\n", verdict)
	}

	if m := r.Matrix; m != nil {
		pw.printf("\nMatrix\n")
		pw.printf("  Module counts:   %d-%d (%d options)\n", m.MinModuleCount, m.MaxModuleCount, m.TotalModuleOptions)
		pw.printf("  Storage models:  %d\n", m.TotalStorageOptions)
		for _, name := range m.StorageModels {
			pw.printf("    - %s\n", name)
		}
		pw.printf("  No storage:      %s\n", yesNo(m.HasNoStorage))
		pw.printf("  Shape:           %d x %d\n", m.Rows, m.Columns)
	}

	if p := r.Price; p != nil {
		pw.printf("\nPrice\n")
		pw.printf("  Modules:  %d\n", p.ModuleCount)
		pw.printf("  Storage:  %s\n", p.StorageModel)
		if p.Found {
			pw.printf("  Column:   %s\n", p.Column)
			pw.printf("  Price:    %s\n", FormatEuro(decimal.NewFromFloat(p.Price)))
		} else {
			pw.printf("  Price:    not available\n")
		}
	}

	if q := r.Quote; q != nil {
		pw.printf("\nQuote\n")
		renderQuote(pw, q)
	}

	if t := r.Table; t != nil {
		pw.printf("\n")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
		for _, row := range t.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if c := r.Cache; c != nil {
		pw.printf("\nCache: %d entries\n", c.TotalEntries)
		for _, e := range c.Entries {
			pw.printf("  %s  %-5s  %dx%d  %d findings\n", e.Hash, e.Source, e.Rows, e.Columns, e.FindingCount)
		}
	}

	if len(r.Findings) > 0 {
		pw.printf("\nFindings (%d)\n", len(r.Findings))
		for _, finding := range r.Findings {
			pw.printf("  ! %s\n", finding)
		}
	}

	return pw.err
}

func renderQuote(pw *printer, q *quote.Breakdown) {
	line := func(label string, amount decimal.Decimal) {
		pw.printf("  %-22s %15s\n", label, FormatEuro(amount))
	}

	pw.printf("  %-22s %15d\n", "Modules", q.ModuleCount)
	pw.printf("  %-22s %15s\n", "Storage", q.StorageModel)
	if !q.Priced {
		pw.printf("  %-22s %15s\n", "Matrix price", "not available")
	} else {
		line("Matrix price", q.MatrixPrice)
	}
	if !q.AdditionalCosts.IsZero() {
		line("Additional costs", q.AdditionalCosts)
	}
	line("Subtotal", q.Subtotal)
	if !q.OneTimeBonus.IsZero() {
		line("One-time bonus", q.OneTimeBonus.Neg())
	}
	if !q.DiscountAmount.IsZero() {
		line("Discount", q.DiscountAmount.Neg())
	}
	if !q.SurchargeAmount.IsZero() {
		line("Surcharge", q.SurchargeAmount)
	}
	if !q.SpecialDiscount.IsZero() {
		line("Special discount", q.SpecialDiscount.Neg())
	}
	if !q.ExtraCosts.IsZero() {
		line("Extra costs", q.ExtraCosts)
	}
	line("Net", q.Net)
	line(fmt.Sprintf("VAT %s%%", q.VATPercent.String()), q.VATAmount)
	line("Gross", q.Gross)
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// FormatEuro renders an amount in German notation, e.g. "13.711,80 €".
func FormatEuro(amount decimal.Decimal) string {
	return FormatAmount(amount) + " €"
}

// FormatAmount renders an amount with "." thousands and "," decimal separators.
func FormatAmount(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, ch := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(ch)
	}

	out := b.String() + "," + frac
	if neg && strings.Trim(out, "0.,") != "" {
		out = "-" + out
	}
	return out
}
