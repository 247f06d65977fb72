// Package event defines the notification records a token ledger emits.
package event

import (
	"time"

	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

// Kind names a notification type.
type Kind string

const (
	KindTransfer             Kind = "transfer"
	KindApproval             Kind = "approval"
	KindOwnershipTransferred Kind = "ownership_transferred"
	KindFeePercentageChanged Kind = "fee_percentage_changed"
	KindFullMintingEnabled   Kind = "full_minting_enabled"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTransfer, KindApproval, KindOwnershipTransferred,
		KindFeePercentageChanged, KindFullMintingEnabled:
		return true
	}
	return false
}

// Event is one notification produced by a committed operation.
//
// Field meaning depends on Kind:
//
//	transfer                From → To moves Value (From zero on mint, To zero on burn)
//	approval                From is the token holder, To the spender, Value the allowance
//	ownership_transferred   From is the previous owner, To the new owner
//	fee_percentage_changed  Value is the stored (clamped) fee in basis points
//	full_minting_enabled    no payload
type Event struct {
	ID        id.EventID    `json:"id"`
	Seq       uint64        `json:"seq"`
	Index     int           `json:"index"`
	Kind      Kind          `json:"kind"`
	Caller    types.Address `json:"caller"`
	From      types.Address `json:"from,omitempty"`
	To        types.Address `json:"to,omitempty"`
	Value     types.Amount  `json:"value"`
	CreatedAt time.Time     `json:"created_at"`
}

// Involves reports whether account appears as From or To.
func (e *Event) Involves(account types.Address) bool {
	return e.From == account || e.To == account
}

// IsMint reports whether e is a transfer out of the void account.
func (e *Event) IsMint() bool {
	return e.Kind == KindTransfer && e.From.IsZero()
}

// IsBurn reports whether e is a transfer into the void account.
func (e *Event) IsBurn() bool {
	return e.Kind == KindTransfer && e.To.IsZero()
}

// ListOpts filters an event listing. Results are ordered by (Seq, Index).
type ListOpts struct {
	AfterSeq uint64
	Kind     Kind
	Account  types.Address
	Limit    int
	Offset   int
}

// Matches reports whether e passes the Kind, Account and AfterSeq filters.
// Limit and Offset are applied by the caller.
func (o ListOpts) Matches(e *Event) bool {
	if e.Seq <= o.AfterSeq {
		return false
	}
	if o.Kind != "" && e.Kind != o.Kind {
		return false
	}
	if o.Account != "" && !e.Involves(o.Account) {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already filtered, ordered slice.
func (o ListOpts) Page(events []*Event) []*Event {
	if o.Offset > 0 {
		if o.Offset >= len(events) {
			return nil
		}
		events = events[o.Offset:]
	}
	if o.Limit > 0 && o.Limit < len(events) {
		events = events[:o.Limit]
	}
	return events
}
