// Package money represents USD amounts as integer cents.
// JSON carries amounts as decimal dollars, e.g. 27.89.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Cents int64

var hundred = decimal.NewFromInt(100)

// FromDecimal converts dollars to cents, rounding half away from zero.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// Dollars parses a dollar amount such as "27.89".
func Dollars(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// MustDollars is Dollars for constants and tests.
func MustDollars(s string) Cents {
	c, err := Dollars(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Cents) Decimal() decimal.Decimal { return decimal.New(int64(c), -2) }

// Percent returns c * rate, rounded to the nearest cent.
func (c Cents) Percent(rate decimal.Decimal) Cents {
	return Cents(decimal.NewFromInt(int64(c)).Mul(rate).Round(0).IntPart())
}

func Min(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}

func Max(a, b Cents) Cents {
	if a > b {
		return a
	}
	return b
}

func (c Cents) String() string { return "$" + c.Decimal().StringFixed(2) }

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.Decimal().StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*c = FromDecimal(d)
	return nil
}
