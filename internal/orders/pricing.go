package orders

import (
	"github.com/shopspring/decimal"

	"github.com/JairHAM/pos-api/internal/catalog"
)

// PricingOptions resolves the optional amounts of a request. Precedence for the
// unit price: request price when present and HonorPriceOverride, else catalog
// price. Tax: request tax, else DefaultTax, else zero. Discount: request or zero.
type PricingOptions struct {
	HonorPriceOverride  bool
	DefaultTax          decimal.NullDecimal
	RejectNegativeTotal bool
}

// ItemRequest is one requested line.
type ItemRequest struct {
	ProductID string
	Quantity  int
	Price     decimal.NullDecimal
	Notes     string
}

// Line is a priced, validated line.
type Line struct {
	ProductID     string
	ProductName   string
	Quantity      int
	UnitPrice     decimal.Decimal
	Subtotal      decimal.Decimal
	PriceOverride bool
	Notes         string
}

type Quote struct {
	Lines    []Line
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Price computes line subtotals and order totals over a catalog snapshot. It
// has no side effects. Line subtotals are exact; only the total is rounded to
// cents, half up.
func Price(items []ItemRequest, products map[string]catalog.Product, tax, discount decimal.NullDecimal, opts PricingOptions) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, ErrEmptyItems
	}

	q := Quote{Lines: make([]Line, 0, len(items)), Subtotal: decimal.Zero}
	for i, it := range items {
		if it.ProductID == "" {
			return Quote{}, ErrMissingProductID.WithDetails("index", i)
		}
		if it.Quantity <= 0 {
			return Quote{}, ErrInvalidQuantity.WithDetails("productId", it.ProductID)
		}
		p, ok := products[it.ProductID]
		if !ok {
			return Quote{}, ErrProductNotFound.WithDetails("productId", it.ProductID)
		}
		if !p.IsActive {
			return Quote{}, ErrProductInactive.WithDetails("productId", it.ProductID).WithDetails("product", p.Name)
		}

		unit := p.Price
		override := false
		if it.Price.Valid && opts.HonorPriceOverride {
			if it.Price.Decimal.IsNegative() || !catalog.ValidMoney(it.Price.Decimal) {
				return Quote{}, ErrInvalidPrice.WithDetails("productId", it.ProductID)
			}
			unit = it.Price.Decimal
			override = !unit.Equal(p.Price)
		}

		sub := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if !catalog.ValidMoney(sub) {
			return Quote{}, ErrInvalidAmount.WithDetails("productId", it.ProductID)
		}
		q.Subtotal = q.Subtotal.Add(sub)
		q.Lines = append(q.Lines, Line{
			ProductID:     p.ID,
			ProductName:   p.Name,
			Quantity:      it.Quantity,
			UnitPrice:     unit,
			Subtotal:      sub,
			PriceOverride: override,
			Notes:         it.Notes,
		})
	}

	switch {
	case tax.Valid:
		q.Tax = tax.Decimal
	case opts.DefaultTax.Valid:
		q.Tax = opts.DefaultTax.Decimal
	default:
		q.Tax = decimal.Zero
	}
	q.Discount = decimal.Zero
	if discount.Valid {
		q.Discount = discount.Decimal
	}
	if q.Tax.IsNegative() || q.Discount.IsNegative() || !catalog.ValidMoney(q.Tax) || !catalog.ValidMoney(q.Discount) {
		return Quote{}, ErrInvalidAmount
	}

	gross := q.Subtotal.Add(q.Tax)
	if opts.RejectNegativeTotal && q.Discount.GreaterThan(gross) {
		return Quote{}, ErrNegativeTotal
	}
	q.Total = roundHalfUp(gross.Sub(q.Discount), 2)
	if !catalog.ValidMoney(q.Subtotal) || !catalog.ValidMoney(q.Total) {
		return Quote{}, ErrInvalidAmount
	}
	return q, nil
}

// roundHalfUp rounds ties toward +inf, also for negative totals.
func roundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Add(decimal.New(5, -(places + 1))).RoundFloor(places)
}
