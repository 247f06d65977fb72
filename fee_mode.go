package tokenledger

import "fmt"

// FeeMode decides which balance moves pay the transfer fee.
type FeeMode int

const (
	// FeeModeTransfersOnly charges the fee on account-to-account moves only.
	// Mints credit and burns debit the exact amount requested.
	FeeModeTransfersOnly FeeMode = iota

	// FeeModeAllUpdates charges the fee on every balance move. A mint of v
	// credits v-fee to the recipient and fee to the owner. A burn of v
	// destroys v-fee and moves fee to the owner, so supply drops by v-fee.
	FeeModeAllUpdates
)

func (m FeeMode) String() string {
	switch m {
	case FeeModeTransfersOnly:
		return "transfers-only"
	case FeeModeAllUpdates:
		return "all-updates"
	default:
		return fmt.Sprintf("FeeMode(%d)", int(m))
	}
}

// ParseFeeMode parses "transfers-only" or "all-updates". Empty input yields
// FeeModeTransfersOnly.
func ParseFeeMode(s string) (FeeMode, error) {
	switch s {
	case "", "transfers-only":
		return FeeModeTransfersOnly, nil
	case "all-updates":
		return FeeModeAllUpdates, nil
	default:
		return 0, fmt.Errorf("tokenledger: unknown fee mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m FeeMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FeeMode) UnmarshalText(data []byte) error {
	parsed, err := ParseFeeMode(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
