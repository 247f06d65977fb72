// Package state models the token ledger's mutable state and the atomic unit
// of change a store commits.
//
// Operations never mutate a State directly. They stage changes on an Overlay,
// turn it into a Changeset, persist that, and only then Apply it.
package state

import (
	"errors"
	"fmt"
	"maps"

	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/policy"
	"github.com/xraph/tokenledger/types"
)

var (
	// ErrSeqMismatch is returned when a changeset does not follow the state it
	// is applied to.
	ErrSeqMismatch = errors.New("state: sequence mismatch")

	// ErrInvariant is returned by CheckInvariants.
	ErrInvariant = errors.New("state: invariant violated")
)

// Meta is the ledger's scalar state.
type Meta struct {
	types.Entity
	LedgerID          id.LedgerID   `json:"ledger_id"`
	Name              string        `json:"name"`
	Symbol            string        `json:"symbol"`
	Decimals          uint8         `json:"decimals"`
	Owner             types.Address `json:"owner"`
	TotalSupply       types.Amount  `json:"total_supply"`
	FeePercentage     uint64        `json:"fee_percentage"`
	CanMintMore       bool          `json:"can_mint_more"`
	BasisPointDivisor uint64        `json:"basis_point_divisor"`
	Seq               uint64        `json:"seq"`
}

// MintCap returns the supply ceiling for the current phase.
func (m *Meta) MintCap() types.Amount { return policy.Cap(m.CanMintMore) }

// AllowanceKey identifies an allowance granted by Owner to Spender.
type AllowanceKey struct {
	Owner   types.Address
	Spender types.Address
}

func (k AllowanceKey) String() string { return k.Owner.String() + ":" + k.Spender.String() }

// State is a complete ledger state. Zero balances and allowances are not
// stored.
type State struct {
	Meta       Meta
	Balances   map[types.Address]types.Amount
	Allowances map[AllowanceKey]types.Amount
}

// New returns an empty state with the given meta.
func New(meta Meta) *State {
	return &State{
		Meta:       meta,
		Balances:   make(map[types.Address]types.Amount),
		Allowances: make(map[AllowanceKey]types.Amount),
	}
}

// Balance returns the balance of account, zero if absent.
func (s *State) Balance(account types.Address) types.Amount {
	return s.Balances[account]
}

// Allowance returns what spender may still move out of owner's balance.
func (s *State) Allowance(owner, spender types.Address) types.Amount {
	return s.Allowances[AllowanceKey{Owner: owner, Spender: spender}]
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	return &State{
		Meta:       s.Meta,
		Balances:   maps.Clone(s.Balances),
		Allowances: maps.Clone(s.Allowances),
	}
}

// Apply writes cs onto s. cs must be the direct successor of s.
func (s *State) Apply(cs *Changeset) error {
	if cs.Meta.Seq != s.Meta.Seq+1 {
		return fmt.Errorf("%w: state at %d, changeset at %d", ErrSeqMismatch, s.Meta.Seq, cs.Meta.Seq)
	}
	s.Meta = cs.Meta
	for account, bal := range cs.Balances {
		setOrDelete(s.Balances, account, bal)
	}
	for key, amt := range cs.Allowances {
		setOrDelete(s.Allowances, key, amt)
	}
	return nil
}

// CheckInvariants verifies the ledger's global invariants: balances sum to
// the total supply, the supply is within the phase cap, and the fee is within
// bounds.
func (s *State) CheckInvariants() error {
	sum := types.Zero
	for account, bal := range s.Balances {
		if account.IsZero() {
			return fmt.Errorf("%w: void account holds %s", ErrInvariant, bal)
		}
		next, err := sum.Add(bal)
		if err != nil {
			return fmt.Errorf("%w: balance sum overflows", ErrInvariant)
		}
		sum = next
	}
	if sum != s.Meta.TotalSupply {
		return fmt.Errorf("%w: balances sum to %s, total supply is %s", ErrInvariant, sum, s.Meta.TotalSupply)
	}
	if limit := s.Meta.MintCap(); s.Meta.TotalSupply.GreaterThan(limit) {
		return fmt.Errorf("%w: total supply %s above cap %s", ErrInvariant, s.Meta.TotalSupply, limit)
	}
	if s.Meta.FeePercentage > policy.MaxFee {
		return fmt.Errorf("%w: fee %d above %d", ErrInvariant, s.Meta.FeePercentage, policy.MaxFee)
	}
	return nil
}

func setOrDelete[K comparable](m map[K]types.Amount, k K, v types.Amount) {
	if v.IsZero() {
		delete(m, k)
		return
	}
	m[k] = v
}
