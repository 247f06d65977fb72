package types

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the number of bytes in an account address.
const AddressLength = 20

// ErrInvalidAddress is returned when an address string is malformed.
var ErrInvalidAddress = errors.New("types: invalid address")

// Address identifies an account. The canonical form is "0x" followed by 40
// lower-case hex digits. The empty Address and ZeroAddress are both the void
// account used as the source of mints and the destination of burns.
type Address string

// ZeroAddress is the canonical void account.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates s and returns its canonical form.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != AddressLength*2 {
		return "", fmt.Errorf("%w: %q: want %d hex digits", ErrInvalidAddress, s, AddressLength*2)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return Address("0x" + strings.ToLower(raw)), nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes builds an address from its 20 raw bytes.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(b))
	}
	return Address("0x" + hex.EncodeToString(b)), nil
}

// IsZero reports whether a is the void account.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// String returns the canonical string; the void account renders as ZeroAddress.
func (a Address) String() string {
	if a == "" {
		return string(ZeroAddress)
	}
	return string(a)
}

// Short returns an abbreviated form such as "0x1234…abcd" for logs.
func (a Address) Short() string {
	s := a.String()
	if len(s) < 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) { return a.String(), nil }

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ""
		return nil
	case string:
		*a = Address(v)
		return nil
	case []byte:
		*a = Address(string(v))
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Address", src)
	}
}
