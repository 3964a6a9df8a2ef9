package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits credit amounts are normalised to.
// It matches the persisted column precision: NUMERIC(24, 12).
const Scale = 12

// Decimal is an exact fixed-scale decimal amount used for every monetary
// field in the ledger: balances, deltas, unit prices and payment amounts.
// Floating point is never used for money — shopspring/decimal backs this
// type with an arbitrary-precision integer coefficient, so 24 significant
// digits at 12 digits of scale never lose precision.
type Decimal struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Decimal{d: decimal.Zero}

// New builds a Decimal from an integer number of whole units.
func New(units int64) Decimal {
	return Decimal{d: decimal.NewFromInt(units)}.normalize()
}

// NewFromFloat builds a Decimal from a float64. Prefer NewFromString for
// values that originate as literals, since float64 cannot exactly represent
// most decimal fractions.
func NewFromFloat(f float64) Decimal {
	return Decimal{d: decimal.NewFromFloat(f)}.normalize()
}

// NewFromString parses a decimal literal such as "0.005" or "-12.340000".
func NewFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("types: parse decimal %q: %w", s, err)
	}
	return Decimal{d: d}.normalize(), nil
}

// MustFromString is like NewFromString but panics on error. Use only for
// hardcoded literals (configuration defaults, test fixtures).
func MustFromString(s string) Decimal {
	d, err := NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) normalize() Decimal {
	return Decimal{d: d.d.Round(Scale)}
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{d: d.d.Add(other.d)}.normalize()
}

// Sub returns d - other.
func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{d: d.d.Sub(other.d)}.normalize()
}

// Mul returns d * other.
func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{d: d.d.Mul(other.d)}.normalize()
}

// MulInt64 returns d * n.
func (d Decimal) MulInt64(n int64) Decimal {
	return Decimal{d: d.d.Mul(decimal.NewFromInt(n))}.normalize()
}

// Div returns d / other. Panics on division by zero.
func (d Decimal) Div(other Decimal) Decimal {
	if other.d.IsZero() {
		panic("types: division by zero")
	}
	return Decimal{d: d.d.DivRound(other.d, Scale)}.normalize()
}

// DivInt64 returns d / n.
func (d Decimal) DivInt64(n int64) Decimal {
	if n == 0 {
		panic("types: division by zero")
	}
	return Decimal{d: d.d.DivRound(decimal.NewFromInt(n), Scale)}.normalize()
}

// Negate returns -d.
func (d Decimal) Negate() Decimal {
	return Decimal{d: d.d.Neg()}
}

// Abs returns the absolute value.
func (d Decimal) Abs() Decimal {
	return Decimal{d: d.d.Abs()}
}

// IsZero reports whether d is exactly zero.
func (d Decimal) IsZero() bool { return d.d.IsZero() }

// IsPositive reports whether d is strictly greater than zero.
func (d Decimal) IsPositive() bool { return d.d.IsPositive() }

// IsNegative reports whether d is strictly less than zero.
func (d Decimal) IsNegative() bool { return d.d.IsNegative() }

// Equal reports whether d and other represent the same value.
func (d Decimal) Equal(other Decimal) bool { return d.d.Equal(other.d) }

// LessThan reports whether d < other.
func (d Decimal) LessThan(other Decimal) bool { return d.d.LessThan(other.d) }

// GreaterThan reports whether d > other.
func (d Decimal) GreaterThan(other Decimal) bool { return d.d.GreaterThan(other.d) }

// GreaterThanOrEqual reports whether d >= other.
func (d Decimal) GreaterThanOrEqual(other Decimal) bool {
	return d.d.GreaterThanOrEqual(other.d)
}

// Min returns the smaller of d and other.
func (d Decimal) Min(other Decimal) Decimal {
	if d.LessThan(other) {
		return d
	}
	return other
}

// Max returns the larger of d and other.
func (d Decimal) Max(other Decimal) Decimal {
	if d.GreaterThan(other) {
		return d
	}
	return other
}

// Float64 converts to a float64. Used only at the edges — display, JSON
// fields mirrored from the original wire contract, never for arithmetic.
func (d Decimal) Float64() float64 {
	f, _ := d.d.Float64()
	return f
}

// String renders the decimal with trailing zeros trimmed, e.g. "0.005".
func (d Decimal) String() string {
	return d.d.String()
}

// MarshalJSON renders the decimal as a JSON number, matching the wire
// contract of the original Python Decimal(...) fields.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return d.d.MarshalJSON()
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	var inner decimal.Decimal
	if err := inner.UnmarshalJSON(data); err != nil {
		return err
	}
	d.d = inner
	*d = d.normalize()
	return nil
}

// Value implements driver.Valuer, storing the canonical decimal string so
// NUMERIC(24,12) columns never round-trip through a float.
func (d Decimal) Value() (driver.Value, error) {
	return d.d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Decimal) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Zero
		return nil
	case string:
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("types: scan decimal %q: %w", v, err)
		}
		d.d = parsed
		*d = d.normalize()
		return nil
	case []byte:
		parsed, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("types: scan decimal %q: %w", string(v), err)
		}
		d.d = parsed
		*d = d.normalize()
		return nil
	case float64:
		d.d = decimal.NewFromFloat(v)
		*d = d.normalize()
		return nil
	case int64:
		d.d = decimal.NewFromInt(v)
		*d = d.normalize()
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Decimal", src)
	}
}

// Sum adds a list of Decimal values, starting from Zero.
func Sum(values ...Decimal) Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
