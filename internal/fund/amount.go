package fund

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	fiatPlaces   = 2
	cryptoPlaces = 8
)

var amountRe = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// NormalizeAmount cleans a user-entered amount. Grouping commas and
// surrounding space are dropped; anything that is not a non-negative decimal
// becomes "0". A valid amount is returned as typed, except that a leading
// "." gains a zero and a trailing "." is removed.
func NormalizeAmount(value string) string {
	v := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if !amountRe.MatchString(v) {
		return "0"
	}
	if strings.HasPrefix(v, ".") {
		v = "0" + v
	}
	return strings.TrimSuffix(v, ".")
}

// ParseAmount parses a normalized amount. Invalid input parses as zero.
func ParseAmount(value string) decimal.Decimal {
	d, err := decimal.NewFromString(NormalizeAmount(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// IsPositive reports whether value is a decimal strictly greater than zero.
func IsPositive(value string) bool {
	return ParseAmount(value).IsPositive()
}

// convert derives the other denomination from amount using rate, which is
// crypto per unit of fiat.
func convert(amount decimal.Decimal, rate decimal.Decimal, from InputType) string {
	if rate.IsZero() || amount.IsZero() {
		return "0"
	}
	if from == InputFiat {
		return amount.Mul(rate).Round(cryptoPlaces).String()
	}
	return amount.DivRound(rate, fiatPlaces+2).StringFixed(fiatPlaces)
}
