// Package quote turns a matrix price into a customer quote.
//
// The order of operations is fixed:
//
//	subtotal = matrix price + additional costs
//	- one-time bonus
//	x (1 - discount%)
//	x (1 + surcharge%)
//	- special discount
//	+ extra costs          = net
//	net x (1 + VAT%)       = gross
package quote

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solar-pricing/core/matrix"
	"solar-pricing/core/resolver"
	"solar-pricing/core/types"
	apperrors "solar-pricing/internal/errors"
	"solar-pricing/internal/logging"
)

// DefaultVATPercent is the German standard VAT rate
var DefaultVATPercent = decimal.NewFromInt(19)

// Modifications are the manual price adjustments of a quote
type Modifications struct {
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	SurchargePercent decimal.Decimal `json:"surcharge_percent"`
	SpecialDiscount  decimal.Decimal `json:"special_discount"`
	ExtraCosts       decimal.Decimal `json:"additional_costs"`
}

// Request describes one system to quote
type Request struct {
	ModuleCount int

	// StorageID is resolved through the product catalog. StorageModel is
	// used as a column name when no id is given.
	StorageID      string
	StorageModel   string
	IncludeStorage bool

	AdditionalCosts decimal.Decimal
	OneTimeBonus    decimal.Decimal
	Modifications   Modifications

	// VATPercent overrides the calculator default when set.
	VATPercent *decimal.Decimal
}

// Breakdown is every intermediate amount of a quote
type Breakdown struct {
	ModuleCount  int    `json:"module_count"`
	StorageModel string `json:"storage_model"`
	Column       string `json:"column"`

	// Priced is false when the matrix had no price for the request.
	Priced bool `json:"priced"`

	MatrixPrice     decimal.Decimal `json:"matrix_price"`
	AdditionalCosts decimal.Decimal `json:"additional_costs"`
	Subtotal        decimal.Decimal `json:"subtotal_netto"`
	OneTimeBonus    decimal.Decimal `json:"one_time_bonus"`
	AfterBonus      decimal.Decimal `json:"subtotal_after_bonus"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	SurchargeAmount decimal.Decimal `json:"surcharge_amount"`
	SpecialDiscount decimal.Decimal `json:"special_discount"`
	ExtraCosts      decimal.Decimal `json:"extra_costs"`
	Net             decimal.Decimal `json:"final_price_netto"`
	VATPercent      decimal.Decimal `json:"vat_percent"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	Gross           decimal.Decimal `json:"final_price_brutto"`

	Currency types.Currency `json:"currency"`
	Findings []string       `json:"findings,omitempty"`
}

// Calculator quotes against one price matrix
type Calculator struct {
	matrix   *matrix.PriceMatrix
	resolver *resolver.StorageModelResolver
	lookup   types.ProductLookup
	vat      decimal.Decimal
	currency types.Currency
	logger   *zap.Logger
}

// Option configures a Calculator
type Option func(*Calculator)

// WithVATPercent sets the default VAT rate.
func WithVATPercent(p decimal.Decimal) Option {
	return func(c *Calculator) {
		c.vat = p
	}
}

// WithCurrency sets the quote currency.
func WithCurrency(cur types.Currency) Option {
	return func(c *Calculator) {
		c.currency = cur
	}
}

// WithProductLookup sets the catalog used to resolve storage ids.
func WithProductLookup(lookup types.ProductLookup) Option {
	return func(c *Calculator) {
		c.lookup = lookup
	}
}

// WithLogger sets the calculator's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Calculator) {
		c.logger = logger
	}
}

// NewCalculator creates a calculator. A nil resolver gets a fresh one.
func NewCalculator(m *matrix.PriceMatrix, r *resolver.StorageModelResolver, opts ...Option) (*Calculator, error) {
	if m == nil {
		return nil, apperrors.Pricing("quote calculator requires a price matrix")
	}
	c := &Calculator{
		matrix:   m,
		resolver: r,
		vat:      DefaultVATPercent,
		currency: types.CurrencyEUR,
		logger:   logging.Named(logging.ComponentQuote),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = resolver.New(resolver.WithLogger(c.logger))
	}
	return c, nil
}

// Quote prices a request. Findings from storage matching and the matrix
// lookup are returned and also recorded on the breakdown.
func (c *Calculator) Quote(req Request) (*Breakdown, []string) {
	var findings []string

	model, storageFindings := c.storageModel(req)
	findings = append(findings, storageFindings...)

	lookup := c.matrix.Lookup(req.ModuleCount, model, req.IncludeStorage && model != types.NoStorage)
	findings = append(findings, lookup.Findings...)

	vat := c.vat
	if req.VATPercent != nil {
		vat = *req.VATPercent
	}

	b := Compute(decimal.NewFromFloat(lookup.Price), req.AdditionalCosts, req.OneTimeBonus, req.Modifications, vat)
	b.ModuleCount = req.ModuleCount
	b.StorageModel = model
	b.Column = lookup.Column
	b.Priced = lookup.Found
	b.Currency = c.currency
	b.Findings = findings

	if !b.Priced {
		c.logger.Warn("quote without matrix price",
			zap.Int("module_count", req.ModuleCount), zap.String("storage", model), zap.Strings("findings", findings))
	} else {
		c.logger.Debug("quote computed",
			zap.Int("module_count", req.ModuleCount), zap.String("column", lookup.Column), zap.String("net", b.Net.StringFixed(2)))
	}
	return b, findings
}

// storageModel turns the request's storage selection into a column name.
func (c *Calculator) storageModel(req Request) (string, []string) {
	if !req.IncludeStorage {
		return types.NoStorage, nil
	}
	if req.StorageID != "" {
		return c.resolver.ResolveStorageName(req.StorageID, true, c.lookup), nil
	}

	name := resolver.NormalizeStorageName(req.StorageModel)
	if name == types.NoStorage {
		return name, nil
	}
	matched, exact := c.resolver.ValidateStorageNameInMatrix(name, c.matrix.GetAvailableStorageModels())
	switch {
	case exact:
		return matched, nil
	case matched != types.NoStorage:
		return matched, []string{fmt.Sprintf("Storage model '%s' matched partially to '%s'", name, matched)}
	default:
		// Keep the requested name so the lookup reports the fallback.
		return name, nil
	}
}

// Compute applies the quote formula to a base price.
func Compute(matrixPrice, additionalCosts, oneTimeBonus decimal.Decimal, mods Modifications, vatPercent decimal.Decimal) *Breakdown {
	one := decimal.NewFromInt(1)

	subtotal := matrixPrice.Add(additionalCosts)
	afterBonus := subtotal.Sub(oneTimeBonus)

	afterDiscount := afterBonus.Mul(one.Sub(types.Percent(mods.DiscountPercent)))
	discountAmount := afterBonus.Sub(afterDiscount)

	afterSurcharge := afterDiscount.Mul(one.Add(types.Percent(mods.SurchargePercent)))
	surchargeAmount := afterSurcharge.Sub(afterDiscount)

	net := afterSurcharge.Sub(mods.SpecialDiscount).Add(mods.ExtraCosts)
	gross := net.Mul(one.Add(types.Percent(vatPercent)))

	return &Breakdown{
		MatrixPrice:     matrixPrice,
		AdditionalCosts: additionalCosts,
		Subtotal:        subtotal,
		OneTimeBonus:    oneTimeBonus,
		AfterBonus:      afterBonus,
		DiscountAmount:  discountAmount,
		SurchargeAmount: surchargeAmount,
		SpecialDiscount: mods.SpecialDiscount,
		ExtraCosts:      mods.ExtraCosts,
		Net:             net,
		VATPercent:      vatPercent,
		VATAmount:       gross.Sub(net),
		Gross:           gross,
		Currency:        types.CurrencyEUR,
	}
}
