package tokenledger

import (
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Event is re-exported from event package.
type Event = event.Event

// Re-export constructors
var (
	Tokens       = types.Tokens
	NewAmount    = types.NewAmount
	ParseAddress = types.ParseAddress
	ParseUnits   = types.ParseUnits
)

// ZeroAddress is the void account: the source of mints and the sink of burns.
const ZeroAddress = types.ZeroAddress

// MaxAmount is the largest amount; as an allowance it never decreases.
var MaxAmount = types.MaxAmount
