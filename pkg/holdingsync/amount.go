package holdingsync

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var reLeadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Amount wraps decimal.Decimal for quantities and monetary values read from
// broker exports.
type Amount struct {
	decimal.Decimal
}

// MarshalJSON outputs as a JSON number (not a string).
func (a Amount) MarshalJSON() ([]byte, error) {
	f, _ := a.Round(4).Float64()
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// NewAmount creates an Amount from a float64.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

// ParseAmount reads an export cell leniently: surrounding blanks, currency
// signs and thousands separators are ignored, the leading numeric prefix is
// used and anything else is zero.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	m := reLeadingNumber.FindString(s)
	if m == "" {
		return Amount{decimal.Zero}
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return Amount{decimal.Zero}
	}
	return Amount{d}
}

// Round2 rounds half away from zero to two places, which is half-up for the
// non-negative values exports carry.
func (a Amount) Round2() Amount {
	return Amount{a.Round(2)}
}

// AveragePrice is book/qty rounded to two places when qty > 0, else zero.
func AveragePrice(book, qty Amount) Amount {
	if !qty.IsPositive() {
		return Amount{decimal.Zero}
	}
	return Amount{book.Div(qty.Decimal)}.Round2()
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{a.Decimal.Add(b.Decimal)}
}
