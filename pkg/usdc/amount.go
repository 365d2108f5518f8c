// Package usdc provides a fixed-point representation of USDC amounts.
//
// Amounts are held as an int64 count of the smallest USDC unit (10^-6 USDC).
// Decimal strings are accepted and produced only at the edges of the system
// (HTTP, storage, events); all arithmetic happens on base units.
package usdc

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits of USDC on every supported chain.
const Decimals = 6

// MaxUnits is the largest amount accepted, in base units.
const MaxUnits int64 = 1_000_000_000_000_000_000

var (
	ErrInvalidAmount   = errors.New("invalid USDC amount")
	ErrNegativeAmount  = errors.New("USDC amount must not be negative")
	ErrTooPrecise      = errors.New("USDC amount has more than 6 decimal places")
	ErrAmountTooLarge  = errors.New("USDC amount exceeds maximum")
	ErrAmountUnderflow = errors.New("USDC amount would become negative")
)

// Amount is a quantity of USDC expressed in base units.
type Amount struct {
	units int64
}

// Zero is the zero amount.
var Zero = Amount{}

// FromUnits builds an amount from base units.
func FromUnits(units int64) Amount {
	return Amount{units: units}
}

// Parse converts a decimal string such as "100" or "0.000123" into an Amount.
// Negative values, values with more than six fractional digits and values
// above MaxUnits are rejected.
func Parse(s string) (Amount, error) {
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants; it panics on invalid input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromDecimal converts a decimal value into base units without rounding.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return Zero, ErrNegativeAmount
	}
	shifted := d.Shift(Decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Zero, ErrTooPrecise
	}
	if shifted.GreaterThan(decimal.NewFromInt(MaxUnits)) {
		return Zero, ErrAmountTooLarge
	}
	return Amount{units: shifted.IntPart()}, nil
}

// Units returns the amount in base units.
func (a Amount) Units() int64 { return a.units }

// Decimal returns the amount as a decimal number of whole USDC.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(a.units, -Decimals)
}

// String renders the canonical decimal form, e.g. "99.9984".
func (a Amount) String() string {
	return a.Decimal().String()
}

func (a Amount) IsZero() bool { return a.units == 0 }

func (a Amount) Cmp(b Amount) int {
	switch {
	case a.units < b.units:
		return -1
	case a.units > b.units:
		return 1
	}
	return 0
}

func (a Amount) LessThan(b Amount) bool { return a.units < b.units }

// Add returns a+b, failing if the result would exceed MaxUnits.
func (a Amount) Add(b Amount) (Amount, error) {
	if b.units > MaxUnits-a.units {
		return Zero, ErrAmountTooLarge
	}
	return Amount{units: a.units + b.units}, nil
}

// Sub returns a-b, failing if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b.units > a.units {
		return Zero, ErrAmountUnderflow
	}
	return Amount{units: a.units - b.units}, nil
}

// MulBasisPoints returns a * bps / 10000, rounded up to the next base unit.
func (a Amount) MulBasisPoints(bps uint64) Amount {
	return a.MulBasisPointsDecimal(decimal.NewFromInt(int64(bps)))
}

// MulBasisPointsDecimal is MulBasisPoints for fractional rates such as 1.3 bps.
// Negative rates yield zero.
func (a Amount) MulBasisPointsDecimal(bps decimal.Decimal) Amount {
	if !bps.IsPositive() || a.units == 0 {
		return Zero
	}
	v := decimal.NewFromInt(a.units).Mul(bps).Div(decimal.NewFromInt(10_000)).Ceil()
	return Amount{units: v.IntPart()}
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.units <= b.units {
		return a
	}
	return b
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: expected decimal string", ErrInvalidAmount)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value stores the amount as a NUMERIC-compatible decimal string.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan reads NUMERIC, text and integer columns.
func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case []byte:
		return a.scanString(string(v))
	case string:
		return a.scanString(v)
	case int64:
		*a = Amount{units: v}
		return nil
	default:
		return fmt.Errorf("usdc: cannot scan %T", src)
	}
}

func (a *Amount) scanString(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
