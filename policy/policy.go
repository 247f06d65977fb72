// Package policy holds the pure arithmetic behind the token ledger's
// overlays: the two-phase minting cap and the basis-point transfer fee.
//
// Nothing here touches ledger state. Callers pass the current values in and
// get decisions back, which keeps the rules testable in isolation.
package policy

import (
	"errors"
	"fmt"

	"github.com/xraph/tokenledger/types"
)

const (
	// MaxFee is the highest fee, in basis points, the owner can set.
	MaxFee uint64 = 50

	// BasisPointDivisor converts a basis-point fee into a fraction.
	BasisPointDivisor uint64 = 10_000

	initialMintableTokens uint64 = 50_000_000_000
	maxSupplyTokens       uint64 = 100_000_000_000
)

var (
	// MaxSupply is the hard cap once full minting is enabled.
	MaxSupply = types.Tokens(maxSupplyTokens)

	// InitialMintableSupply is the cap before full minting is enabled.
	InitialMintableSupply = types.Tokens(initialMintableTokens)
)

// ErrCapExceeded is returned by CheckMint when the mint would break the cap.
var ErrCapExceeded = errors.New("policy: minting cap exceeded")

// Cap returns the supply ceiling for the given minting phase.
func Cap(canMintMore bool) types.Amount {
	if canMintMore {
		return MaxSupply
	}
	return InitialMintableSupply
}

// CapViolation describes a rejected mint.
type CapViolation struct {
	Supply types.Amount
	Amount types.Amount
	Cap    types.Amount
}

func (v *CapViolation) Error() string {
	return fmt.Sprintf("policy: minting %s on supply %s exceeds cap %s", v.Amount, v.Supply, v.Cap)
}

func (v *CapViolation) Unwrap() error { return ErrCapExceeded }

// CheckMint verifies that supply+amount stays within the phase cap and
// returns the new supply. A sum that overflows 256 bits is reported as a cap
// violation, since no such sum can fit under either cap.
func CheckMint(supply, amount types.Amount, canMintMore bool) (types.Amount, error) {
	limit := Cap(canMintMore)
	next, err := supply.Add(amount)
	if err != nil || next.GreaterThan(limit) {
		return types.Zero, &CapViolation{Supply: supply, Amount: amount, Cap: limit}
	}
	return next, nil
}

// Split is the result of applying a fee to a value.
type Split struct {
	Fee  types.Amount
	Send types.Amount
}

// ComputeFee splits value into fee and send amount, rounding the fee down.
// The multiplication is checked; an overflowing value*feeBps is an error.
func ComputeFee(value types.Amount, feeBps, divisor uint64) (Split, error) {
	if feeBps == 0 || value.IsZero() {
		return Split{Fee: types.Zero, Send: value}, nil
	}
	fee, err := value.MulDiv(types.NewAmount(feeBps), types.NewAmount(divisor))
	if err != nil {
		return Split{}, err
	}
	send, err := value.Sub(fee)
	if err != nil {
		return Split{}, err
	}
	return Split{Fee: fee, Send: send}, nil
}

// ClampFee bounds a requested fee to MaxFee. Any 256-bit input is accepted.
func ClampFee(requested types.Amount) uint64 {
	if requested.GreaterThan(types.NewAmount(MaxFee)) {
		return MaxFee
	}
	return requested.Uint64()
}
