package orders

import (
	"fmt"
	"strconv"
	"strings"
)

const orderNumberPrefix = "ORD-"

// FormatOrderNumber renders a ledger sequence value as ORD-000042.
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("%s%06d", orderNumberPrefix, seq)
}

// ParseOrderNumber returns the sequence value encoded in an order number.
func ParseOrderNumber(s string) (int64, bool) {
	if !strings.HasPrefix(s, orderNumberPrefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(s, orderNumberPrefix), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
