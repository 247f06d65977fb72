// Package sqlmodel holds the grove row models shared by the SQL stores.
//
// State is kept as history: every commit inserts a tokenledger_commits row
// carrying the full meta, and balance and allowance rows are versioned by
// the seq that wrote them. The commit row is inserted first and claims its
// seq; it is flagged done once every other row is written. Readers only see
// rows at or below the latest done commit.
package sqlmodel

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/state"
	"github.com/xraph/tokenledger/types"
)

// ==================== Commit models ====================

type Commit struct {
	grove.BaseModel `grove:"table:tokenledger_commits"`

	Seq               int64     `grove:"seq,pk"`
	LedgerID          string    `grove:"ledger_id"`
	Name              string    `grove:"name"`
	Symbol            string    `grove:"symbol"`
	Decimals          int       `grove:"decimals"`
	Owner             string    `grove:"owner"`
	TotalSupply       string    `grove:"total_supply"`
	FeePercentage     int64     `grove:"fee_percentage"`
	CanMintMore       bool      `grove:"can_mint_more"`
	BasisPointDivisor int64     `grove:"basis_point_divisor"`
	Done              bool      `grove:"done"`
	StartedAt         int64     `grove:"started_at"`
	CreatedAt         time.Time `grove:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"`
}

func ToCommit(m *state.Meta, startedAt time.Time) *Commit {
	return &Commit{
		Seq:               int64(m.Seq), //nolint:gosec // seq grows by one per commit
		LedgerID:          m.LedgerID.String(),
		Name:              m.Name,
		Symbol:            m.Symbol,
		Decimals:          int(m.Decimals),
		Owner:             m.Owner.String(),
		TotalSupply:       m.TotalSupply.String(),
		FeePercentage:     int64(m.FeePercentage),     //nolint:gosec // clamped to MaxFee
		BasisPointDivisor: int64(m.BasisPointDivisor), //nolint:gosec // constant divisor
		CanMintMore:       m.CanMintMore,
		StartedAt:         startedAt.UnixMilli(),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func FromCommit(c *Commit) (state.Meta, error) {
	lid, err := id.ParseLedgerID(c.LedgerID)
	if err != nil {
		return state.Meta{}, fmt.Errorf("commit %d: %w", c.Seq, err)
	}
	owner, err := types.ParseAddress(c.Owner)
	if err != nil {
		return state.Meta{}, fmt.Errorf("commit %d: owner: %w", c.Seq, err)
	}
	supply, err := types.ParseAmount(c.TotalSupply)
	if err != nil {
		return state.Meta{}, fmt.Errorf("commit %d: total supply: %w", c.Seq, err)
	}
	if c.Seq < 0 || c.FeePercentage < 0 || c.BasisPointDivisor < 0 || c.Decimals < 0 || c.Decimals > 255 {
		return state.Meta{}, fmt.Errorf("commit %d: negative or out of range column", c.Seq)
	}

	return state.Meta{
		Entity: types.Entity{
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		LedgerID:          lid,
		Name:              c.Name,
		Symbol:            c.Symbol,
		Decimals:          uint8(c.Decimals),
		Owner:             owner,
		TotalSupply:       supply,
		FeePercentage:     uint64(c.FeePercentage),
		CanMintMore:       c.CanMintMore,
		BasisPointDivisor: uint64(c.BasisPointDivisor),
		Seq:               uint64(c.Seq),
	}, nil
}

// ==================== Balance models ====================

type Balance struct {
	grove.BaseModel `grove:"table:tokenledger_balances"`

	Account string `grove:"account,pk"`
	Seq     int64  `grove:"seq,pk"`
	Amount  string `grove:"amount"`
}

// ==================== Allowance models ====================

type Allowance struct {
	grove.BaseModel `grove:"table:tokenledger_allowances"`

	Owner   string `grove:"owner,pk"`
	Spender string `grove:"spender,pk"`
	Seq     int64  `grove:"seq,pk"`
	Amount  string `grove:"amount"`
}

// Rows flattens the balance and allowance changes of cs. Zero amounts are
// written too: a later zero row hides the earlier non-zero one.
func Rows(cs *state.Changeset) ([]Balance, []Allowance) {
	seq := int64(cs.Meta.Seq) //nolint:gosec // seq grows by one per commit

	balances := make([]Balance, 0, len(cs.Balances))
	for _, b := range cs.SortedBalances() {
		balances = append(balances, Balance{Account: b.Account.String(), Seq: seq, Amount: b.Amount.String()})
	}

	allowances := make([]Allowance, 0, len(cs.Allowances))
	for _, a := range cs.SortedAllowances() {
		allowances = append(allowances, Allowance{
			Owner:   a.Owner.String(),
			Spender: a.Spender.String(),
			Seq:     seq,
			Amount:  a.Amount.String(),
		})
	}
	return balances, allowances
}

// Fold replays versioned rows, ordered by seq ascending, onto st.
func Fold(st *state.State, balances []Balance, allowances []Allowance) error {
	for i := range balances {
		r := &balances[i]
		amt, err := types.ParseAmount(r.Amount)
		if err != nil {
			return fmt.Errorf("balance of %s at %d: %w", r.Account, r.Seq, err)
		}
		account := types.Address(r.Account)
		if amt.IsZero() {
			delete(st.Balances, account)
			continue
		}
		st.Balances[account] = amt
	}

	for i := range allowances {
		r := &allowances[i]
		amt, err := types.ParseAmount(r.Amount)
		if err != nil {
			return fmt.Errorf("allowance %s/%s at %d: %w", r.Owner, r.Spender, r.Seq, err)
		}
		key := state.AllowanceKey{Owner: types.Address(r.Owner), Spender: types.Address(r.Spender)}
		if amt.IsZero() {
			delete(st.Allowances, key)
			continue
		}
		st.Allowances[key] = amt
	}
	return nil
}

// ==================== Event models ====================

type Event struct {
	grove.BaseModel `grove:"table:tokenledger_events"`

	ID        string    `grove:"id,pk"`
	Seq       int64     `grove:"seq"`
	Idx       int       `grove:"idx"`
	Kind      string    `grove:"kind"`
	Caller    string    `grove:"caller"`
	FromAddr  string    `grove:"from_addr"`
	ToAddr    string    `grove:"to_addr"`
	Value     string    `grove:"value"`
	CreatedAt time.Time `grove:"created_at"`
}

func ToEvents(events []*event.Event) []Event {
	rows := make([]Event, len(events))
	for i, e := range events {
		rows[i] = Event{
			ID:        e.ID.String(),
			Seq:       int64(e.Seq), //nolint:gosec // seq grows by one per commit
			Idx:       e.Index,
			Kind:      string(e.Kind),
			Caller:    e.Caller.String(),
			FromAddr:  e.From.String(),
			ToAddr:    e.To.String(),
			Value:     e.Value.String(),
			CreatedAt: e.CreatedAt,
		}
	}
	return rows
}

func FromEvent(m *Event) (*event.Event, error) {
	eid, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	value, err := types.ParseAmount(m.Value)
	if err != nil {
		return nil, fmt.Errorf("event %s: value: %w", m.ID, err)
	}
	return &event.Event{
		ID:        eid,
		Seq:       uint64(m.Seq), //nolint:gosec // written from a uint64
		Index:     m.Idx,
		Kind:      event.Kind(m.Kind),
		Caller:    types.Address(m.Caller),
		From:      types.Address(m.FromAddr),
		To:        types.Address(m.ToAddr),
		Value:     value,
		CreatedAt: m.CreatedAt,
	}, nil
}
