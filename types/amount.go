package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Decimals is the number of fractional digits of one whole token.
const Decimals = 18

// Arithmetic and parsing errors for Amount.
var (
	ErrOverflow      = errors.New("types: arithmetic overflow")
	ErrUnderflow     = errors.New("types: arithmetic underflow")
	ErrDivByZero     = errors.New("types: division by zero")
	ErrInvalidAmount = errors.New("types: invalid amount")
)

// Amount is a non-negative 256-bit integer in the smallest token unit.
// All arithmetic is checked: operations that would wrap return ErrOverflow
// or ErrUnderflow instead.
//
// Amount is a value type; the zero value is 0 and Amounts compare with ==.
type Amount struct {
	v uint256.Int
}

var (
	// Zero is the zero Amount.
	Zero = Amount{}

	// MaxAmount is the largest representable Amount (2^256 - 1).
	MaxAmount = Amount{v: *new(uint256.Int).SetAllOne()}

	unit = *new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))
)

// NewAmount returns an Amount of n base units.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Tokens returns n whole tokens (n * 10^18 base units). It cannot overflow.
func Tokens(n uint64) Amount {
	var a Amount
	a.v.Mul(uint256.NewInt(n), &unit)
	return a
}

// OneToken is 10^18 base units.
func OneToken() Amount { return Amount{v: unit} }

// FromUint256 copies x into an Amount.
func FromUint256(x *uint256.Int) Amount {
	var a Amount
	a.v.Set(x)
	return a
}

// FromBig converts a non-negative big.Int. Values that do not fit in 256 bits
// return ErrOverflow.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 {
		return Zero, fmt.Errorf("%w: negative or nil", ErrInvalidAmount)
	}
	x, overflow := uint256.FromBig(b)
	if overflow {
		return Zero, ErrOverflow
	}
	return FromUint256(x), nil
}

// ParseAmount parses a base-10 count of base units, e.g. "1000000000000000000".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		if errors.Is(err, uint256.ErrBig256Range) {
			return Zero, fmt.Errorf("%w: %q", ErrOverflow, s)
		}
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	return a, nil
}

// MustParseAmount is like ParseAmount but panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseUnits parses a decimal token quantity such as "10000" or "0.25" and
// scales it by 10^decimals. More fractional digits than decimals is an error.
func ParseUnits(s string, decimals uint8) (Amount, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if whole == "" {
		whole = "0"
	}
	if hasDot && frac == "" {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if len(frac) > int(decimals) {
		return Zero, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, s, decimals)
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", int(decimals)-len(frac)), "0")
	if digits == "" {
		return Zero, nil
	}
	return ParseAmount(digits)
}

// ──────────────────────────────────────────────────
// Arithmetic
// ──────────────────────────────────────────────────

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	var r Amount
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow {
		return Zero, ErrOverflow
	}
	return r, nil
}

// Sub returns a-b or ErrUnderflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var r Amount
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return Zero, ErrUnderflow
	}
	return r, nil
}

// Mul returns a*b or ErrOverflow.
func (a Amount) Mul(b Amount) (Amount, error) {
	var r Amount
	if _, overflow := r.v.MulOverflow(&a.v, &b.v); overflow {
		return Zero, ErrOverflow
	}
	return r, nil
}

// Div returns floor(a/b), or ErrDivByZero.
func (a Amount) Div(b Amount) (Amount, error) {
	if b.IsZero() {
		return Zero, ErrDivByZero
	}
	var r Amount
	r.v.Div(&a.v, &b.v)
	return r, nil
}

// MulDiv returns floor(a*num/den). The intermediate product is checked.
func (a Amount) MulDiv(num, den Amount) (Amount, error) {
	p, err := a.Mul(num)
	if err != nil {
		return Zero, err
	}
	return p.Div(den)
}

// Min returns the smaller of a and b.
func (a Amount) Min(b Amount) Amount {
	if a.v.Lt(&b.v) {
		return a
	}
	return b
}

// ──────────────────────────────────────────────────
// Comparison
// ──────────────────────────────────────────────────

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool { return a.v.Lt(&b.v) }

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.v.Gt(&b.v) }

// Equal reports a == b.
func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }

// IsZero reports whether a is 0.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// IsMax reports whether a is MaxAmount.
func (a Amount) IsMax() bool { return a == MaxAmount }

// IsUint64 reports whether a fits in a uint64.
func (a Amount) IsUint64() bool { return a.v.IsUint64() }

// Uint64 returns the low 64 bits of a.
func (a Amount) Uint64() uint64 { return a.v.Uint64() }

// Uint256 returns a copy of the underlying integer.
func (a Amount) Uint256() *uint256.Int { return a.v.Clone() }

// Big returns a as a big.Int.
func (a Amount) Big() *big.Int { return a.v.ToBig() }

// ──────────────────────────────────────────────────
// Formatting
// ──────────────────────────────────────────────────

// String returns the base-10 count of base units.
func (a Amount) String() string { return a.v.Dec() }

// FormatUnits renders a as a decimal token quantity with the given number of
// decimals, trimming trailing fractional zeros: Tokens(9970) → "9970".
func (a Amount) FormatUnits(decimals uint8) string {
	s := a.v.Dec()
	d := int(decimals)
	if d == 0 {
		return s
	}
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// Float64 approximates a in whole tokens. Intended for metrics only.
func (a Amount) Float64() float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(a.v.ToBig()), new(big.Float).SetInt(unit.ToBig())).Float64()
	return f
}

// MarshalText implements encoding.TextMarshaler as a base-10 string.
func (a Amount) MarshalText() ([]byte, error) { return []byte(a.v.Dec()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a quoted decimal string so that values
// above 2^53 survive JavaScript clients.
func (a Amount) MarshalJSON() ([]byte, error) { return json.Marshal(a.v.Dec()) }

// UnmarshalJSON accepts a quoted or bare decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	return a.UnmarshalText([]byte(s))
}

// Value implements driver.Valuer. Amounts are stored as decimal TEXT.
func (a Amount) Value() (driver.Value, error) { return a.v.Dec(), nil }

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Zero
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: negative %d", ErrInvalidAmount, v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
