package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestValidMoney(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"10.50", true},
		{"0.0001", true},
		{"1.23450", true},
		{"-3.25", true},
		{"99999999999999.9999", true},
		{"0.00005", false},
		{"100000000000000", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ValidMoney(decimal.RequireFromString(tc.in)), tc.in)
	}
}
