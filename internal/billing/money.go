package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Balances and amounts travel as bare JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// FormatCurrency renders an amount as USD with exactly two fraction digits
// and comma thousands separators, e.g. "$1,234.50" or "-$0.75". Rounding is
// standard half-away-from-zero to two decimal places.
func FormatCurrency(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte(',')
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// CanProcessPayment reports whether a balance is eligible for payment.
// Zero and negative balances mean there is nothing to pay.
func CanProcessPayment(balance decimal.Decimal) bool {
	return balance.IsPositive()
}
