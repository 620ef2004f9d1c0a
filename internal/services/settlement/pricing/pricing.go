// Package pricing validates order lines and turns them into a payable
// subtotal. Money is decimal and rounded half-to-even at two places.
package pricing

import (
	"github.com/shopspring/decimal"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
)

const (
	MoneyPlaces    = 2
	QuantityPlaces = 3
)

var (
	DefaultVATRate = decimal.RequireFromString("0.16")

	lineTolerance = decimal.New(1, -6)
)

type LineItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitType  models.UnitType `json:"unit_type"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Breakdown is the priced form of an order as it is persisted.
type Breakdown struct {
	Gross    decimal.Decimal `json:"gross_total"`
	Discount decimal.Decimal `json:"discount"`
	Net      decimal.Decimal `json:"net_total"`
	VATRate  decimal.Decimal `json:"vat_rate"`
	VAT      decimal.Decimal `json:"vat_amount"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyPlaces)
}

// fits reports whether d has at most places digits after the point, i.e.
// whether a numeric column of that scale stores it unchanged.
func fits(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

func ComputeLineTotal(quantity, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity.IsNegative() {
		return decimal.Zero, apperr.Invalid("quantity cannot be negative: %s", quantity)
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, apperr.Invalid("unit price cannot be negative: %s", unitPrice)
	}
	return quantity.Mul(unitPrice), nil
}

// ValidateItem accepts a supplied line total that is within 1e-6 of
// quantity*unit price, or that equals its value rounded to the minor unit.
func ValidateItem(item LineItem) error {
	if item.ProductID <= 0 {
		return apperr.Invalid("product_id is required")
	}
	if !item.Quantity.IsPositive() {
		return apperr.Invalid("quantity must be greater than zero for product %d", item.ProductID)
	}
	if !fits(item.Quantity, QuantityPlaces) {
		return apperr.Invalid("quantity %s for product %d has more than %d decimal places", item.Quantity, item.ProductID, QuantityPlaces)
	}
	if !fits(item.UnitPrice, MoneyPlaces) {
		return apperr.Invalid("unit price %s for product %d has more than %d decimal places", item.UnitPrice, item.ProductID, MoneyPlaces)
	}
	if !item.UnitType.Valid() {
		return apperr.Invalid("unknown unit type %q for product %d", item.UnitType, item.ProductID)
	}

	expected, err := ComputeLineTotal(item.Quantity, item.UnitPrice)
	if err != nil {
		return err
	}

	if item.LineTotal.Sub(expected).Abs().LessThanOrEqual(lineTolerance) {
		return nil
	}
	if item.LineTotal.Equal(Round(expected)) {
		return nil
	}
	return apperr.Invalid("line total %s for product %d does not match %s x %s",
		item.LineTotal, item.ProductID, item.Quantity, item.UnitPrice)
}

// SumOrderTotal adds the line totals as given. Items must already have
// passed ValidateItem.
func SumOrderTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// ActiveItemsTotal sums the persisted lines that have not been returned.
func ActiveItemsTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Status == models.OrderItemReturned {
			continue
		}
		total = total.Add(item.LineTotal)
	}
	return total
}

func ComputeSubtotal(itemTotals []decimal.Decimal, discount decimal.Decimal, vatEnabled bool, vatRate decimal.Decimal) (decimal.Decimal, error) {
	b, err := Quote(itemTotals, discount, vatEnabled, vatRate)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Subtotal, nil
}

// QuoteItems prices validated lines. The gross total is SumOrderTotal.
func QuoteItems(items []LineItem, discount decimal.Decimal, vatEnabled bool, vatRate decimal.Decimal) (Breakdown, error) {
	if len(items) == 0 {
		return Quote(nil, discount, vatEnabled, vatRate)
	}
	return Quote([]decimal.Decimal{SumOrderTotal(items)}, discount, vatEnabled, vatRate)
}

// Quote applies the discount before VAT. VAT is charged on the
// discounted amount and the result is rounded once at the end.
func Quote(itemTotals []decimal.Decimal, discount decimal.Decimal, vatEnabled bool, vatRate decimal.Decimal) (Breakdown, error) {
	gross := decimal.Zero
	for _, t := range itemTotals {
		if t.IsNegative() {
			return Breakdown{}, apperr.Invalid("line total cannot be negative: %s", t)
		}
		gross = gross.Add(t)
	}

	if discount.IsNegative() {
		return Breakdown{}, apperr.Invalid("discount cannot be negative: %s", discount)
	}
	if !fits(discount, MoneyPlaces) {
		return Breakdown{}, apperr.Invalid("discount %s has more than %d decimal places", discount, MoneyPlaces)
	}
	if discount.GreaterThan(gross) {
		return Breakdown{}, apperr.Invalid("discount %s exceeds order total %s", discount, gross)
	}
	if vatRate.IsNegative() {
		return Breakdown{}, apperr.Invalid("vat rate cannot be negative: %s", vatRate)
	}

	net := gross.Sub(discount)
	b := Breakdown{
		Gross:    Round(gross),
		Discount: discount,
		Net:      Round(net),
		VATRate:  decimal.Zero,
		VAT:      decimal.Zero,
		Subtotal: Round(net),
	}
	if vatEnabled {
		b.VATRate = vatRate
		b.Subtotal = Round(net.Mul(decimal.NewFromInt(1).Add(vatRate)))
		b.VAT = b.Subtotal.Sub(b.Net)
	}
	return b, nil
}
