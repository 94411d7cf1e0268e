package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Percentage is a value in the closed range [0, 100].
type Percentage struct {
	value decimal.Decimal
}

// NewPercentage validates d and wraps it as a Percentage.
func NewPercentage(d decimal.Decimal) (Percentage, error) {
	if d.IsNegative() || d.GreaterThan(hundred) {
		return Percentage{}, fmt.Errorf("%w: got %s", ErrInvalidPercentage, d.String())
	}
	return Percentage{value: d}, nil
}

// ParsePercentage parses a decimal string such as "12.5".
func ParsePercentage(s string) (Percentage, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Percentage{}, fmt.Errorf("%w: %v", ErrInvalidPercentage, err)
	}
	return NewPercentage(d)
}

// MustPercentage is ParsePercentage for constants and tests.
func MustPercentage(s string) Percentage {
	p, err := ParsePercentage(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Decimal returns the percentage as a number between 0 and 100.
func (p Percentage) Decimal() decimal.Decimal {
	return p.value
}

// Fraction returns the percentage as a number between 0 and 1.
func (p Percentage) Fraction() decimal.Decimal {
	return p.value.Div(hundred)
}

// IsZero reports whether the percentage is exactly 0.
func (p Percentage) IsZero() bool {
	return p.value.IsZero()
}

// Of returns p percent of amount.
func (p Percentage) Of(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.value).Div(hundred)
}

func (p Percentage) String() string {
	return p.value.String()
}
