package mongo

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

type commitModel struct {
	grove.BaseModel `grove:"table:tokenledger_commits"`

	Seq               int64     `grove:"seq,pk"              bson:"_id"`
	LedgerID          string    `grove:"ledger_id"           bson:"ledger_id"`
	Name              string    `grove:"name"                bson:"name"`
	Symbol            string    `grove:"symbol"              bson:"symbol"`
	Decimals          int       `grove:"decimals"            bson:"decimals"`
	Owner             string    `grove:"owner"               bson:"owner"`
	TotalSupply       string    `grove:"total_supply"        bson:"total_supply"`
	FeePercentage     int64     `grove:"fee_percentage"      bson:"fee_percentage"`
	CanMintMore       bool      `grove:"can_mint_more"       bson:"can_mint_more"`
	BasisPointDivisor int64     `grove:"basis_point_divisor" bson:"basis_point_divisor"`
	Done              bool      `grove:"done"                bson:"done"`
	StartedAt         time.Time `grove:"started_at"          bson:"started_at"`
	CreatedAt         time.Time `grove:"created_at"          bson:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"          bson:"updated_at"`
}

func toCommitModel(m *state.Meta, startedAt time.Time) *commitModel {
	return &commitModel{
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
		StartedAt:         startedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func fromCommitModel(c *commitModel) (state.Meta, error) {
	lid, err := id.ParseLedgerID(c.LedgerID)
	if err != nil {
		return state.Meta{}, err
	}
	owner, err := types.ParseAddress(c.Owner)
	if err != nil {
		return state.Meta{}, fmt.Errorf("owner: %w", err)
	}
	supply, err := types.ParseAmount(c.TotalSupply)
	if err != nil {
		return state.Meta{}, fmt.Errorf("total supply: %w", err)
	}
	if c.Seq < 0 || c.FeePercentage < 0 || c.BasisPointDivisor < 0 || c.Decimals < 0 || c.Decimals > 255 {
		return state.Meta{}, fmt.Errorf("commit %d: negative or out of range field", c.Seq)
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

type balanceModel struct {
	grove.BaseModel `grove:"table:tokenledger_balances"`

	ID      string `grove:"id,pk"   bson:"_id"`
	Account string `grove:"account" bson:"account"`
	Seq     int64  `grove:"seq"     bson:"seq"`
	Amount  string `grove:"amount"  bson:"amount"`
}

// ==================== Allowance models ====================

type allowanceModel struct {
	grove.BaseModel `grove:"table:tokenledger_allowances"`

	ID      string `grove:"id,pk"   bson:"_id"`
	Owner   string `grove:"owner"   bson:"owner"`
	Spender string `grove:"spender" bson:"spender"`
	Seq     int64  `grove:"seq"     bson:"seq"`
	Amount  string `grove:"amount"  bson:"amount"`
}

// toRowModels returns the balance and allowance documents of cs as []any,
// ready for InsertMany. Zero amounts are kept: they hide older documents.
func toRowModels(cs *state.Changeset) (balances, allowances []any) {
	seq := int64(cs.Meta.Seq) //nolint:gosec // seq grows by one per commit

	for _, b := range cs.SortedBalances() {
		balances = append(balances, &balanceModel{
			ID:      fmt.Sprintf("%s@%d", b.Account, seq),
			Account: b.Account.String(),
			Seq:     seq,
			Amount:  b.Amount.String(),
		})
	}
	for _, a := range cs.SortedAllowances() {
		allowances = append(allowances, &allowanceModel{
			ID:      fmt.Sprintf("%s/%s@%d", a.Owner, a.Spender, seq),
			Owner:   a.Owner.String(),
			Spender: a.Spender.String(),
			Seq:     seq,
			Amount:  a.Amount.String(),
		})
	}
	return balances, allowances
}

// foldRows replays versioned documents, ordered by seq ascending, onto st.
func foldRows(st *state.State, balances []balanceModel, allowances []allowanceModel) error {
	for i := range balances {
		amt, err := types.ParseAmount(balances[i].Amount)
		if err != nil {
			return fmt.Errorf("balance %s: %w", balances[i].ID, err)
		}
		account := types.Address(balances[i].Account)
		if amt.IsZero() {
			delete(st.Balances, account)
			continue
		}
		st.Balances[account] = amt
	}
	for i := range allowances {
		amt, err := types.ParseAmount(allowances[i].Amount)
		if err != nil {
			return fmt.Errorf("allowance %s: %w", allowances[i].ID, err)
		}
		key := state.AllowanceKey{
			Owner:   types.Address(allowances[i].Owner),
			Spender: types.Address(allowances[i].Spender),
		}
		if amt.IsZero() {
			delete(st.Allowances, key)
			continue
		}
		st.Allowances[key] = amt
	}
	return nil
}

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:tokenledger_events"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Seq       int64     `grove:"seq"        bson:"seq"`
	Index     int       `grove:"idx"        bson:"idx"`
	Kind      string    `grove:"kind"       bson:"kind"`
	Caller    string    `grove:"caller"     bson:"caller"`
	From      string    `grove:"from_addr"  bson:"from"`
	To        string    `grove:"to_addr"    bson:"to"`
	Value     string    `grove:"value"      bson:"value"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func toEventModels(events []*event.Event) []any {
	docs := make([]any, len(events))
	for i, e := range events {
		docs[i] = &eventModel{
			ID:        e.ID.String(),
			Seq:       int64(e.Seq), //nolint:gosec // seq grows by one per commit
			Index:     e.Index,
			Kind:      string(e.Kind),
			Caller:    e.Caller.String(),
			From:      e.From.String(),
			To:        e.To.String(),
			Value:     e.Value.String(),
			CreatedAt: e.CreatedAt,
		}
	}
	return docs
}

func fromEventModel(m *eventModel) (*event.Event, error) {
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
		Index:     m.Index,
		Kind:      event.Kind(m.Kind),
		Caller:    types.Address(m.Caller),
		From:      types.Address(m.From),
		To:        types.Address(m.To),
		Value:     value,
		CreatedAt: m.CreatedAt,
	}, nil
}
