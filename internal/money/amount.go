// Package money implements the fixed-point decimal type the ledger uses for
// every balance and amount: 20 digits of precision, 6 of them fractional
// (the store's NUMERIC(20,6)), no binary floating point anywhere in the
// arithmetic path.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every Amount is normalized to,
// matching the NUMERIC(20,6) columns in the store schema.
const Scale = 6

// Amount is a fixed-point decimal value normalized to Scale fractional
// digits. The zero value is zero.
type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// New builds an Amount from a decimal.Decimal, rounding to Scale.
func New(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Scale)}
}

// FromInt builds an Amount representing a whole number of units.
func FromInt(i int64) Amount {
	return Amount{d: decimal.NewFromInt(i)}
}

// Parse accepts either a JSON number rendered as text or a numeric string
// (§9: "the wire accepts JSON numbers or numeric strings") and returns a
// normalized Amount. It rejects malformed input.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return New(d), nil
}

// MustParse is Parse, panicking on error. Reserved for seed data and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount at fixed scale, e.g. "100.000000".
func (a Amount) String() string {
	return a.d.StringFixed(Scale)
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return New(a.d.Add(b.d))
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return New(a.d.Sub(b.d))
}

// Sign returns -1, 0, or 1.
func (a Amount) Sign() int {
	return a.d.Sign()
}

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool {
	return a.d.Sign() > 0
}

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool {
	return a.d.Sign() < 0
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.d.LessThan(b.d)
}

// GreaterThanOrEqual reports whether a >= b.
func (a Amount) GreaterThanOrEqual(b Amount) bool {
	return a.d.GreaterThanOrEqual(b.d)
}

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// MarshalJSON renders the amount as a JSON string to avoid any float
// round-trip through a JSON number parser on the client side.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements database/sql/driver.Valuer so an Amount can be bound
// directly into a NUMERIC(20,6) column.
func (a Amount) Value() (driver.Value, error) {
	return a.d.StringFixed(Scale), nil
}

// Scan implements sql.Scanner so an Amount can be read back from a
// NUMERIC(20,6) column without an intermediate string/float round-trip in
// caller code.
func (a *Amount) Scan(value interface{}) error {
	if value == nil {
		*a = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("money: scan: %w", err)
	}
	*a = New(d)
	return nil
}
