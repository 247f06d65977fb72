// Package storetest holds the behaviour every store.Store adapter must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/policy"
	"github.com/xraph/tokenledger/state"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/types"
)

var (
	Owner = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	Bob   = types.MustParseAddress("0x00000000000000000000000000000000000000b0")
	Carol = types.MustParseAddress("0x00000000000000000000000000000000000000c0")
)

// Run exercises s, which must be empty and migrated.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Ping(ctx))

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, tokenledger.ErrNotFound)

	// Genesis
	base := state.New(state.Meta{})
	ov := state.NewOverlay(base)
	*ov.Meta() = state.Meta{
		Entity:            types.Entity{CreatedAt: now},
		LedgerID:          id.NewLedgerID(),
		Name:              "Test Token",
		Symbol:            "TST",
		Decimals:          types.Decimals,
		Owner:             Owner,
		BasisPointDivisor: policy.BasisPointDivisor,
		FeePercentage:     30,
	}
	ov.Emit(&event.Event{Kind: event.KindOwnershipTransferred, Caller: Owner, From: types.ZeroAddress, To: Owner})
	genesis := ov.Changeset(now)
	require.NoError(t, s.Commit(ctx, genesis))
	require.NoError(t, base.Apply(genesis))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assertMeta(t, base.Meta, loaded.Meta)
	assert.Empty(t, loaded.Balances)

	// Mint, transfer and approve in one changeset.
	ov = state.NewOverlay(base)
	ov.Meta().TotalSupply = types.Tokens(1000)
	ov.Meta().CanMintMore = true
	ov.SetBalance(Owner, types.Tokens(400))
	ov.SetBalance(Bob, types.Tokens(600))
	ov.SetAllowance(Bob, Carol, types.MaxAmount)
	ov.Emit(&event.Event{Kind: event.KindTransfer, Caller: Owner, From: types.ZeroAddress, To: Owner, Value: types.Tokens(1000)})
	ov.Emit(&event.Event{Kind: event.KindTransfer, Caller: Owner, From: Owner, To: Bob, Value: types.Tokens(600)})
	ov.Emit(&event.Event{Kind: event.KindApproval, Caller: Bob, From: Bob, To: Carol, Value: types.MaxAmount})
	second := ov.Changeset(now.Add(time.Minute))
	require.NoError(t, s.Commit(ctx, second))
	require.NoError(t, base.Apply(second))

	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	assertMeta(t, base.Meta, loaded.Meta)
	assert.Equal(t, base.Balances, loaded.Balances)
	assert.Equal(t, base.Allowances, loaded.Allowances)
	require.NoError(t, loaded.CheckInvariants())

	// A stale changeset is rejected and changes nothing.
	stale := state.NewOverlay(state.New(genesis.Meta))
	stale.SetBalance(Carol, types.Tokens(1))
	err = s.Commit(ctx, stale.Changeset(now))
	require.ErrorIs(t, err, tokenledger.ErrSeqConflict)

	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), loaded.Meta.Seq)
	assert.True(t, loaded.Balance(Carol).IsZero())

	// Zeroed balances and allowances disappear.
	ov = state.NewOverlay(base)
	ov.SetBalance(Owner, types.Zero)
	ov.SetBalance(Carol, types.Tokens(400))
	ov.SetAllowance(Bob, Carol, types.Zero)
	ov.Emit(&event.Event{Kind: event.KindTransfer, Caller: Owner, From: Owner, To: Carol, Value: types.Tokens(400)})
	third := ov.Changeset(now.Add(2 * time.Minute))
	require.NoError(t, s.Commit(ctx, third))
	require.NoError(t, base.Apply(third))

	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, base.Balances, loaded.Balances)
	assert.Empty(t, loaded.Allowances)
	require.NoError(t, loaded.CheckInvariants())

	// Events
	all, err := s.ListEvents(ctx, event.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, want := range []event.Kind{
		event.KindOwnershipTransferred,
		event.KindTransfer,
		event.KindTransfer,
		event.KindApproval,
		event.KindTransfer,
	} {
		assert.Equal(t, want, all[i].Kind, "event %d", i)
	}
	assert.Equal(t, second.Events[2].ID.String(), all[3].ID.String())
	assert.Equal(t, types.MaxAmount, all[3].Value)
	assert.Equal(t, uint64(2), all[3].Seq)
	assert.Equal(t, 2, all[3].Index)
	assert.True(t, all[1].From.IsZero())

	transfers, err := s.ListEvents(ctx, event.ListOpts{Kind: event.KindTransfer})
	require.NoError(t, err)
	assert.Len(t, transfers, 3)

	carol, err := s.ListEvents(ctx, event.ListOpts{Account: Carol})
	require.NoError(t, err)
	assert.Len(t, carol, 2)

	after, err := s.ListEvents(ctx, event.ListOpts{AfterSeq: 2})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, uint64(3), after[0].Seq)

	page, err := s.ListEvents(ctx, event.ListOpts{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[1].ID.String(), page[0].ID.String())
	assert.Equal(t, all[2].ID.String(), page[1].ID.String())
}

func assertMeta(t *testing.T, want, got state.Meta) {
	t.Helper()
	assert.Equal(t, want.LedgerID.String(), got.LedgerID.String())
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, want.Decimals, got.Decimals)
	assert.Equal(t, want.Owner, got.Owner)
	assert.Equal(t, want.TotalSupply, got.TotalSupply)
	assert.Equal(t, want.FeePercentage, got.FeePercentage)
	assert.Equal(t, want.CanMintMore, got.CanMintMore)
	assert.Equal(t, want.BasisPointDivisor, got.BasisPointDivisor)
	assert.Equal(t, want.Seq, got.Seq)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %s != %s", want.UpdatedAt, got.UpdatedAt)
}
