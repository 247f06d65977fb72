package state

import (
	"slices"
	"strings"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/types"
)

// Overlay stages changes on top of a base State without touching it.
// Discarding an Overlay discards every staged change.
type Overlay struct {
	base       *State
	meta       Meta
	balances   map[types.Address]types.Amount
	allowances map[AllowanceKey]types.Amount
	events     []*event.Event
}

// NewOverlay starts a change on top of base.
func NewOverlay(base *State) *Overlay {
	return &Overlay{
		base:       base,
		meta:       base.Meta,
		balances:   make(map[types.Address]types.Amount),
		allowances: make(map[AllowanceKey]types.Amount),
	}
}

// Meta returns the staged meta for reading and writing.
func (o *Overlay) Meta() *Meta { return &o.meta }

// Balance returns the staged balance of account.
func (o *Overlay) Balance(account types.Address) types.Amount {
	if v, ok := o.balances[account]; ok {
		return v
	}
	return o.base.Balance(account)
}

// SetBalance stages a new balance for account.
func (o *Overlay) SetBalance(account types.Address, v types.Amount) {
	o.balances[account] = v
}

// Allowance returns the staged allowance of spender over owner's balance.
func (o *Overlay) Allowance(owner, spender types.Address) types.Amount {
	key := AllowanceKey{Owner: owner, Spender: spender}
	if v, ok := o.allowances[key]; ok {
		return v
	}
	return o.base.Allowance(owner, spender)
}

// SetAllowance stages a new allowance.
func (o *Overlay) SetAllowance(owner, spender types.Address, v types.Amount) {
	o.allowances[AllowanceKey{Owner: owner, Spender: spender}] = v
}

// Emit queues a notification. Seq and Index are assigned by Changeset.
func (o *Overlay) Emit(e *event.Event) {
	o.events = append(o.events, e)
}

// Events returns the queued notifications.
func (o *Overlay) Events() []*event.Event { return o.events }

// Changeset seals the overlay into the next commit. now stamps the meta and
// every event.
func (o *Overlay) Changeset(now time.Time) *Changeset {
	meta := o.meta
	meta.Seq = o.base.Meta.Seq + 1
	meta.UpdatedAt = now

	for i, e := range o.events {
		if e.ID.IsNil() {
			e.ID = id.NewEventID()
		}
		e.Seq = meta.Seq
		e.Index = i
		e.CreatedAt = now
	}

	return &Changeset{
		Meta:       meta,
		Balances:   o.balances,
		Allowances: o.allowances,
		Events:     o.events,
	}
}

// Changeset is everything one successful operation changed. Stores persist
// it atomically, and State.Apply replays it in memory. A zero amount in
// Balances or Allowances means the entry is removed.
type Changeset struct {
	Meta       Meta
	Balances   map[types.Address]types.Amount
	Allowances map[AllowanceKey]types.Amount
	Events     []*event.Event
}

// BalanceEntry is one row of a changeset's balances.
type BalanceEntry struct {
	Account types.Address
	Amount  types.Amount
}

// AllowanceEntry is one row of a changeset's allowances.
type AllowanceEntry struct {
	AllowanceKey
	Amount types.Amount
}

// SortedBalances returns the touched balances ordered by account.
func (cs *Changeset) SortedBalances() []BalanceEntry {
	out := make([]BalanceEntry, 0, len(cs.Balances))
	for account, amt := range cs.Balances {
		out = append(out, BalanceEntry{Account: account, Amount: amt})
	}
	slices.SortFunc(out, func(a, b BalanceEntry) int {
		return strings.Compare(string(a.Account), string(b.Account))
	})
	return out
}

// SortedAllowances returns the touched allowances ordered by owner, spender.
func (cs *Changeset) SortedAllowances() []AllowanceEntry {
	out := make([]AllowanceEntry, 0, len(cs.Allowances))
	for key, amt := range cs.Allowances {
		out = append(out, AllowanceEntry{AllowanceKey: key, Amount: amt})
	}
	slices.SortFunc(out, func(a, b AllowanceEntry) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}
