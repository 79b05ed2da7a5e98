package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/JairHAM/pos-api/internal/catalog"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullDec(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func testProducts() map[string]catalog.Product {
	return map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Coffee", Price: dec("10.00"), Stock: 5, IsActive: true},
		"p2": {ID: "p2", Name: "Bagel", Price: dec("0.333"), Stock: 5, IsActive: true},
		"p3": {ID: "p3", Name: "Retired", Price: dec("4.00"), IsActive: false},
	}
}

func TestPriceComputesTotals(t *testing.T) {
	t.Parallel()

	q, err := Price([]ItemRequest{{ProductID: "p1", Quantity: 2}}, testProducts(), nullDec("1.00"), decimal.NullDecimal{}, PricingOptions{})
	require.NoError(t, err)
	require.Equal(t, "20.00", q.Subtotal.StringFixed(2))
	require.Equal(t, "1.00", q.Tax.StringFixed(2))
	require.Equal(t, "0.00", q.Discount.StringFixed(2))
	require.Equal(t, "21.00", q.Total.StringFixed(2))
	require.Len(t, q.Lines, 1)
	require.Equal(t, "Coffee", q.Lines[0].ProductName)
	require.False(t, q.Lines[0].PriceOverride)
}

func TestPriceKeepsLineSubtotalsExact(t *testing.T) {
	t.Parallel()

	q, err := Price([]ItemRequest{{ProductID: "p2", Quantity: 3}}, testProducts(), decimal.NullDecimal{}, decimal.NullDecimal{}, PricingOptions{})
	require.NoError(t, err)
	require.True(t, q.Lines[0].Subtotal.Equal(dec("0.999")), q.Lines[0].Subtotal.String())
	require.Equal(t, "1.00", q.Total.StringFixed(2))
}

func TestPriceRoundsTotalHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.00"},
		{"-1.006", "-1.01"},
		{"2", "2.00"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, roundHalfUp(dec(tc.in), 2).StringFixed(2), tc.in)
	}
}

func TestPriceOverridePrecedence(t *testing.T) {
	t.Parallel()

	items := []ItemRequest{{ProductID: "p1", Quantity: 1, Price: nullDec("7.50")}}

	q, err := Price(items, testProducts(), decimal.NullDecimal{}, decimal.NullDecimal{}, PricingOptions{HonorPriceOverride: true})
	require.NoError(t, err)
	require.Equal(t, "7.50", q.Lines[0].UnitPrice.StringFixed(2))
	require.True(t, q.Lines[0].PriceOverride)

	q, err = Price(items, testProducts(), decimal.NullDecimal{}, decimal.NullDecimal{}, PricingOptions{HonorPriceOverride: false})
	require.NoError(t, err)
	require.Equal(t, "10.00", q.Lines[0].UnitPrice.StringFixed(2))
	require.False(t, q.Lines[0].PriceOverride)
}

func TestPriceTaxPrecedence(t *testing.T) {
	t.Parallel()

	items := []ItemRequest{{ProductID: "p1", Quantity: 1}}
	opts := PricingOptions{DefaultTax: nullDec("0.80")}

	q, err := Price(items, testProducts(), decimal.NullDecimal{}, decimal.NullDecimal{}, opts)
	require.NoError(t, err)
	require.Equal(t, "0.80", q.Tax.StringFixed(2))

	q, err = Price(items, testProducts(), nullDec("0"), decimal.NullDecimal{}, opts)
	require.NoError(t, err)
	require.True(t, q.Tax.IsZero(), "explicit zero tax beats the default")
	require.Equal(t, "10.00", q.Total.StringFixed(2))
}

func TestPriceNegativeTotal(t *testing.T) {
	t.Parallel()

	items := []ItemRequest{{ProductID: "p1", Quantity: 1}}

	q, err := Price(items, testProducts(), decimal.NullDecimal{}, nullDec("12.00"), PricingOptions{})
	require.NoError(t, err)
	require.Equal(t, "-2.00", q.Total.StringFixed(2))

	_, err = Price(items, testProducts(), decimal.NullDecimal{}, nullDec("12.00"), PricingOptions{RejectNegativeTotal: true})
	require.ErrorIs(t, err, ErrNegativeTotal)
}

func TestPriceRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		items    []ItemRequest
		tax      decimal.NullDecimal
		discount decimal.NullDecimal
		want     error
	}{
		"empty":            {items: nil, want: ErrEmptyItems},
		"zero quantity":    {items: []ItemRequest{{ProductID: "p1", Quantity: 0}}, want: ErrInvalidQuantity},
		"negative qty":     {items: []ItemRequest{{ProductID: "p1", Quantity: -2}}, want: ErrInvalidQuantity},
		"missing id":       {items: []ItemRequest{{Quantity: 1}}, want: ErrMissingProductID},
		"unknown product":  {items: []ItemRequest{{ProductID: "nope", Quantity: 1}}, want: ErrProductNotFound},
		"inactive product": {items: []ItemRequest{{ProductID: "p3", Quantity: 1}}, want: ErrProductInactive},
		"negative price":   {items: []ItemRequest{{ProductID: "p1", Quantity: 1, Price: nullDec("-1")}}, want: ErrInvalidPrice},
		"negative tax":     {items: []ItemRequest{{ProductID: "p1", Quantity: 1}}, tax: nullDec("-0.01"), want: ErrInvalidAmount},
		"negative discount": {
			items: []ItemRequest{{ProductID: "p1", Quantity: 1}}, discount: nullDec("-5"), want: ErrInvalidAmount,
		},
		"second line fails": {
			items: []ItemRequest{{ProductID: "p1", Quantity: 1}, {ProductID: "nope", Quantity: 1}}, want: ErrProductNotFound,
		},
	}
	for name, tc := range cases {
		_, err := Price(tc.items, testProducts(), tc.tax, tc.discount, PricingOptions{HonorPriceOverride: true})
		require.ErrorIs(t, err, tc.want, name)
	}
}

func TestPriceRejectsAmountsTheLedgerCannotStore(t *testing.T) {
	t.Parallel()

	one := []ItemRequest{{ProductID: "p1", Quantity: 1}}
	cases := map[string]struct {
		items    []ItemRequest
		tax      decimal.NullDecimal
		discount decimal.NullDecimal
		want     error
	}{
		"price scale":    {items: []ItemRequest{{ProductID: "p1", Quantity: 3, Price: nullDec("0.00005")}}, want: ErrInvalidPrice},
		"price too big":  {items: []ItemRequest{{ProductID: "p1", Quantity: 1, Price: nullDec("100000000000000")}}, want: ErrInvalidPrice},
		"line too big":   {items: []ItemRequest{{ProductID: "p1", Quantity: 1_000_000, Price: nullDec("99999999999")}}, want: ErrInvalidAmount},
		"tax scale":      {items: one, tax: nullDec("0.12345"), want: ErrInvalidAmount},
		"discount scale": {items: one, discount: nullDec("1.00001"), want: ErrInvalidAmount},
	}
	for name, tc := range cases {
		_, err := Price(tc.items, testProducts(), tc.tax, tc.discount, PricingOptions{HonorPriceOverride: true})
		require.ErrorIs(t, err, tc.want, name)
	}

	// trailing zeros beyond the scale are still exact
	q, err := Price([]ItemRequest{{ProductID: "p1", Quantity: 3, Price: nullDec("0.000100")}}, testProducts(),
		nullDec("0.50000"), decimal.NullDecimal{}, PricingOptions{HonorPriceOverride: true})
	require.NoError(t, err)
	require.True(t, q.Lines[0].Subtotal.Equal(dec("0.0003")), q.Lines[0].Subtotal.String())
}
