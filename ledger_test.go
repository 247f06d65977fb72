package tokenledger_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/policy"
	"github.com/xraph/tokenledger/state"
	"github.com/xraph/tokenledger/store/memory"
	"github.com/xraph/tokenledger/types"
)

var (
	owner = types.MustParseAddress("0x000000000000000000000000000000000000000a")
	alice = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob   = types.MustParseAddress("0x00000000000000000000000000000000000000b0")
	carol = types.MustParseAddress("0x00000000000000000000000000000000000000c0")
)

func newLedger(t *testing.T, opts ...tokenledger.Option) *tokenledger.Ledger {
	t.Helper()
	opts = append([]tokenledger.Option{tokenledger.WithOwner(owner)}, opts...)
	l := tokenledger.New(memory.New(), opts...)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func requireInvariants(t *testing.T, l *tokenledger.Ledger) {
	t.Helper()
	require.NoError(t, l.Snapshot().CheckInvariants())
}

func TestStartGenesis(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, tokenledger.WithTokenMetadata("Ancap", "ANC"))

	assert.Equal(t, owner, l.Owner())
	assert.Equal(t, "Ancap", l.Name())
	assert.Equal(t, "ANC", l.Symbol())
	assert.Equal(t, uint8(18), l.Decimals())
	assert.Zero(t, l.FeePercentage())
	assert.Equal(t, policy.BasisPointDivisor, l.BasisPointDivisor())
	assert.False(t, l.CanMintMore())
	assert.Equal(t, policy.InitialMintableSupply, l.MintCap())
	assert.True(t, l.TotalSupply().IsZero())
	assert.Equal(t, uint64(1), l.Seq())
	assert.False(t, l.LedgerID().IsNil())

	events, err := l.Events(ctx, event.ListOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.KindOwnershipTransferred, events[0].Kind)
	assert.True(t, events[0].From.IsZero())
	assert.Equal(t, owner, events[0].To)
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("owner required", func(t *testing.T) {
		l := tokenledger.New(memory.New())
		require.ErrorIs(t, l.Start(ctx), tokenledger.ErrInvalidAddress)
	})

	t.Run("malformed owner", func(t *testing.T) {
		l := tokenledger.New(memory.New(), tokenledger.WithOwner("0x1234"))
		require.ErrorIs(t, l.Start(ctx), tokenledger.ErrInvalidAddress)
	})

	t.Run("already started", func(t *testing.T) {
		l := newLedger(t)
		require.ErrorIs(t, l.Start(ctx), tokenledger.ErrAlreadyStarted)
	})

	t.Run("not started", func(t *testing.T) {
		l := tokenledger.New(memory.New(), tokenledger.WithOwner(owner))
		require.ErrorIs(t, l.Mint(ctx, owner, alice, types.Tokens(1)), tokenledger.ErrNotStarted)
		_, err := l.Events(ctx, event.ListOpts{})
		require.ErrorIs(t, err, tokenledger.ErrNotStarted)
		assert.True(t, l.TotalSupply().IsZero())
	})

	t.Run("initial fee clamped", func(t *testing.T) {
		l := newLedger(t, tokenledger.WithInitialFeePercentage(400))
		assert.Equal(t, policy.MaxFee, l.FeePercentage())
	})
}

func TestMintInitialCap(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Mint(ctx, owner, alice, policy.InitialMintableSupply))
	assert.Equal(t, policy.InitialMintableSupply, l.TotalSupply())
	assert.Equal(t, policy.InitialMintableSupply, l.BalanceOf(alice))
	seq := l.Seq()

	err := l.Mint(ctx, owner, alice, types.NewAmount(1))
	require.ErrorIs(t, err, tokenledger.ErrExceedsMintingAllowance)
	assert.True(t, tokenledger.IsPolicyError(err))

	var capErr *tokenledger.ExceedsMintingAllowanceError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, policy.InitialMintableSupply, capErr.Supply)
	assert.Equal(t, types.NewAmount(1), capErr.Amount)
	assert.Equal(t, policy.InitialMintableSupply, capErr.Cap)

	assert.Equal(t, seq, l.Seq())
	assert.Equal(t, policy.InitialMintableSupply, l.TotalSupply())
	requireInvariants(t, l)
}

func TestMintFullCap(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Mint(ctx, owner, alice, policy.InitialMintableSupply))
	require.NoError(t, l.EnableFullMinting(ctx, owner))
	assert.True(t, l.CanMintMore())
	assert.Equal(t, policy.MaxSupply, l.MintCap())

	require.NoError(t, l.Mint(ctx, owner, bob, policy.InitialMintableSupply))
	assert.Equal(t, policy.MaxSupply, l.TotalSupply())

	err := l.Mint(ctx, owner, bob, types.NewAmount(1))
	var capErr *tokenledger.ExceedsMintingAllowanceError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, policy.MaxSupply, capErr.Supply)
	assert.Equal(t, policy.MaxSupply, capErr.Cap)
	requireInvariants(t, l)
}

func TestMintEdgeCases(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.Mint(ctx, owner, alice, types.Zero))
	assert.True(t, l.TotalSupply().IsZero())

	require.ErrorIs(t, l.Mint(ctx, owner, types.ZeroAddress, types.Tokens(1)), tokenledger.ErrInvalidAddress)
	require.ErrorIs(t, l.Mint(ctx, owner, alice, types.MaxAmount), tokenledger.ErrExceedsMintingAllowance)

	// Mixed-case input resolves to the canonical account.
	require.NoError(t, l.Mint(ctx, owner, "0x00000000000000000000000000000000000000A1", types.Tokens(1)))
	assert.Equal(t, types.Tokens(1), l.BalanceOf(alice))
}

func TestOwnerOnly(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(100)))
	before := l.Snapshot()

	calls := map[string]func() error{
		"mint":               func() error { return l.Mint(ctx, alice, alice, types.Tokens(1)) },
		"set fee":            func() error { return l.SetFeePercentage(ctx, alice, types.NewAmount(10)) },
		"enable full":        func() error { return l.EnableFullMinting(ctx, alice) },
		"transfer ownership": func() error { return l.TransferOwnership(ctx, alice, alice) },
		"zero caller":        func() error { return l.Mint(ctx, types.ZeroAddress, alice, types.Tokens(1)) },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.ErrorIs(t, err, tokenledger.ErrNotOwner)
			assert.True(t, tokenledger.IsAuthorizationError(err))
			var notOwner *tokenledger.NotOwnerError
			require.True(t, errors.As(err, &notOwner))
		})
	}

	after := l.Snapshot()
	assert.Equal(t, before.Meta, after.Meta)
	assert.Equal(t, before.Balances, after.Balances)
}

func TestTransferFee(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(10_000)))
	require.NoError(t, l.SetFeePercentage(ctx, owner, types.NewAmount(30)))

	require.NoError(t, l.Transfer(ctx, alice, bob, types.Tokens(10_000)))

	assert.True(t, l.BalanceOf(alice).IsZero())
	assert.Equal(t, types.Tokens(9_970), l.BalanceOf(bob))
	assert.Equal(t, types.Tokens(30), l.BalanceOf(owner))
	assert.Equal(t, types.Tokens(10_000), l.TotalSupply())
	requireInvariants(t, l)

	events, err := l.Events(ctx, event.ListOpts{AfterSeq: l.Seq() - 1})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, alice, events[0].From)
	assert.Equal(t, bob, events[0].To)
	assert.Equal(t, types.Tokens(9_970), events[0].Value)
	assert.Equal(t, alice, events[1].From)
	assert.Equal(t, owner, events[1].To)
	assert.Equal(t, types.Tokens(30), events[1].Value)
}

func TestTransferZeroFee(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(10_000)))

	require.NoError(t, l.Transfer(ctx, alice, bob, types.Tokens(10_000)))
	assert.Equal(t, types.Tokens(10_000), l.BalanceOf(bob))
	assert.True(t, l.BalanceOf(owner).IsZero())

	events, err := l.Events(ctx, event.ListOpts{AfterSeq: l.Seq() - 1})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestTransferByOwnerPaysFeeToSelf(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Mint(ctx, owner, owner, types.Tokens(10_000)))
	require.NoError(t, l.SetFeePercentage(ctx, owner, types.NewAmount(50)))

	require.NoError(t, l.Transfer(ctx, owner, bob, types.Tokens(10_000)))
	assert.Equal(t, types.Tokens(9_950), l.BalanceOf(bob))
	assert.Equal(t, types.Tokens(50), l.BalanceOf(owner))
	requireInvariants(t, l)
}

func TestInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(100)))
	require.NoError(t, l.SetFeePercentage(ctx, owner, types.NewAmount(30)))
	before := l.Snapshot()

	err := l.Transfer(ctx, alice, bob, types.Tokens(101))
	require.ErrorIs(t, err, tokenledger.ErrInsufficientBalance)

	var balErr *tokenledger.InsufficientBalanceError
	require.True(t, errors.As(err, &balErr))
	assert.Equal(t, alice, balErr.Account)
	assert.Equal(t, types.Tokens(100), balErr.Balance)
	assert.Equal(t, types.Tokens(101), balErr.Needed)

	require.ErrorIs(t, l.Burn(ctx, bob, types.NewAmount(1)), tokenledger.ErrInsufficientBalance)
	assert.Equal(t, before.Balances, l.Snapshot().Balances)
	assert.Equal(t, before.Meta.Seq, l.Seq())
}

func TestArithmeticOverflow(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(1)))
	require.NoError(t, l.SetFeePercentage(ctx, owner, types.NewAmount(30)))

	err := l.Transfer(ctx, alice, bob, types.MaxAmount)
	require.ErrorIs(t, err, tokenledger.ErrArithmeticOverflow)
	assert.True(t, tokenledger.IsPolicyError(err))
	requireInvariants(t, l)
}

func TestSetFeePercentageClamps(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	tests := []struct {
		in   types.Amount
		want uint64
	}{
		{types.NewAmount(9_999), 50},
		{types.NewAmount(30), 30},
		{types.MaxAmount, 50},
		{types.NewAmount(50), 50},
		{types.Zero, 0},
	}

	for _, tt := range tests {
		require.NoError(t, l.SetFeePercentage(ctx, owner, tt.in))
		assert.Equal(t, tt.want, l.FeePercentage())
		assert.LessOrEqual(t, l.FeePercentage(), policy.MaxFee)

		events, err := l.Events(ctx, event.ListOpts{AfterSeq: l.Seq() - 1})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.KindFeePercentageChanged, events[0].Kind)
		assert.Equal(t, types.NewAmount(tt.want), events[0].Value)
	}
}

func TestEnableFullMintingIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	require.NoError(t, l.EnableFullMinting(ctx, owner))
	require.NoError(t, l.EnableFullMinting(ctx, owner))
	assert.True(t, l.CanMintMore())

	events, err := l.Events(ctx, event.ListOpts{Kind: event.KindFullMintingEnabled})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(10_000)))
	require.NoError(t, l.SetFeePercentage(ctx, owner, types.NewAmount(30)))

	require.ErrorIs(t, l.TransferOwnership(ctx, owner, types.ZeroAddress), tokenledger.ErrInvalidAddress)
	require.NoError(t, l.TransferOwnership(ctx, owner, carol))
	assert.Equal(t, carol, l.Owner())

	require.ErrorIs(t, l.Mint(ctx, owner, alice, types.Tokens(1)), tokenledger.ErrNotOwner)
	require.NoError(t, l.Mint(ctx, carol, alice, types.Tokens(1)))

	// Fees now go to the new owner.
	require.NoError(t, l.Transfer(ctx, alice, bob, types.Tokens(10_000)))
	assert.Equal(t, types.Tokens(30), l.BalanceOf(carol))
	assert.True(t, l.BalanceOf(owner).IsZero())

	events, err := l.Events(ctx, event.ListOpts{Kind: event.KindOwnershipTransferred})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, owner, events[1].From)
	assert.Equal(t, carol, events[1].To)
}

func TestFeeModes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		mode tokenledger.FeeMode

		// after minting 10_000 to alice at 30 bps
		mintAlice, mintOwner, mintSupply types.Amount
		// after alice burns 1_000 at 30 bps
		burnAlice, burnOwner, burnSupply types.Amount
	}{
		{
			mode:       tokenledger.FeeModeTransfersOnly,
			mintAlice:  types.Tokens(10_000),
			mintOwner:  types.Zero,
			mintSupply: types.Tokens(10_000),
			burnAlice:  types.Tokens(9_000),
			burnOwner:  types.Zero,
			burnSupply: types.Tokens(9_000),
		},
		{
			mode:       tokenledger.FeeModeAllUpdates,
			mintAlice:  types.Tokens(9_970),
			mintOwner:  types.Tokens(30),
			mintSupply: types.Tokens(10_000),
			// 997 burned, 3 moved to the owner
			burnAlice:  types.Tokens(8_970),
			burnOwner:  types.Tokens(33),
			burnSupply: types.Tokens(9_003),
		},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			l := newLedger(t, tokenledger.WithFeeMode(tt.mode), tokenledger.WithInitialFeePercentage(30))

			require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(10_000)))
			assert.Equal(t, tt.mintAlice, l.BalanceOf(alice))
			assert.Equal(t, tt.mintOwner, l.BalanceOf(owner))
			assert.Equal(t, tt.mintSupply, l.TotalSupply())
			requireInvariants(t, l)

			require.NoError(t, l.Burn(ctx, alice, types.Tokens(1_000)))
			assert.Equal(t, tt.burnAlice, l.BalanceOf(alice))
			assert.Equal(t, tt.burnOwner, l.BalanceOf(owner))
			assert.Equal(t, tt.burnSupply, l.TotalSupply())
			requireInvariants(t, l)
		})
	}
}

func TestFeeModeAllUpdatesRespectsCap(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, tokenledger.WithFeeMode(tokenledger.FeeModeAllUpdates), tokenledger.WithInitialFeePercentage(50))

	require.NoError(t, l.Mint(ctx, owner, alice, policy.InitialMintableSupply))
	assert.Equal(t, policy.InitialMintableSupply, l.TotalSupply())
	require.ErrorIs(t, l.Mint(ctx, owner, alice, types.NewAmount(1)), tokenledger.ErrExceedsMintingAllowance)
	requireInvariants(t, l)
}

func TestAllowances(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, tokenledger.WithInitialFeePercentage(30))
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(20_000)))

	require.NoError(t, l.Approve(ctx, alice, bob, types.Tokens(10_000)))
	assert.Equal(t, types.Tokens(10_000), l.Allowance(alice, bob))

	require.NoError(t, l.TransferFrom(ctx, bob, alice, carol, types.Tokens(4_000)))
	assert.Equal(t, types.Tokens(6_000), l.Allowance(alice, bob))
	assert.Equal(t, types.Tokens(3_988), l.BalanceOf(carol))
	assert.Equal(t, types.Tokens(12), l.BalanceOf(owner))
	assert.Equal(t, types.Tokens(16_000), l.BalanceOf(alice))

	err := l.TransferFrom(ctx, bob, alice, carol, types.Tokens(6_001))
	require.ErrorIs(t, err, tokenledger.ErrInsufficientAllowance)
	var allowErr *tokenledger.InsufficientAllowanceError
	require.True(t, errors.As(err, &allowErr))
	assert.Equal(t, bob, allowErr.Spender)
	assert.Equal(t, types.Tokens(6_000), allowErr.Allowance)
	assert.Equal(t, types.Tokens(6_001), allowErr.Needed)

	require.NoError(t, l.BurnFrom(ctx, bob, alice, types.Tokens(1_000)))
	assert.Equal(t, types.Tokens(5_000), l.Allowance(alice, bob))
	assert.Equal(t, types.Tokens(15_000), l.BalanceOf(alice))
	assert.Equal(t, types.Tokens(19_000), l.TotalSupply())

	// An unlimited allowance is never spent down.
	require.NoError(t, l.Approve(ctx, alice, carol, types.MaxAmount))
	require.NoError(t, l.TransferFrom(ctx, carol, alice, bob, types.Tokens(1_000)))
	assert.True(t, l.Allowance(alice, carol).IsMax())

	// Allowance spent but balance short: nothing changes.
	require.NoError(t, l.Approve(ctx, bob, carol, types.Tokens(1_000_000)))
	before := l.Snapshot()
	require.ErrorIs(t, l.TransferFrom(ctx, carol, bob, alice, types.Tokens(999_999)), tokenledger.ErrInsufficientBalance)
	assert.Equal(t, types.Tokens(1_000_000), l.Allowance(bob, carol))
	assert.Equal(t, before.Balances, l.Snapshot().Balances)

	approvals, err := l.Events(ctx, event.ListOpts{Kind: event.KindApproval})
	require.NoError(t, err)
	assert.Len(t, approvals, 3)
	requireInvariants(t, l)
}

func TestZeroAddressRejections(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(10)))

	tests := []struct {
		name string
		call func() error
		role string
	}{
		{"transfer to zero", func() error { return l.Transfer(ctx, alice, types.ZeroAddress, types.Tokens(1)) }, tokenledger.RoleReceiver},
		{"transfer from zero", func() error { return l.Transfer(ctx, "", alice, types.Tokens(1)) }, tokenledger.RoleSender},
		{"approve zero spender", func() error { return l.Approve(ctx, alice, types.ZeroAddress, types.Tokens(1)) }, tokenledger.RoleSpender},
		{"approve from zero", func() error { return l.Approve(ctx, types.ZeroAddress, bob, types.Tokens(1)) }, tokenledger.RoleApprover},
		{"transferFrom zero source", func() error { return l.TransferFrom(ctx, bob, types.ZeroAddress, carol, types.Zero) }, tokenledger.RoleSender},
		{"burn by zero", func() error { return l.Burn(ctx, types.ZeroAddress, types.Zero) }, tokenledger.RoleSender},
		{"malformed receiver", func() error { return l.Transfer(ctx, alice, "bogus", types.Tokens(1)) }, tokenledger.RoleReceiver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.ErrorIs(t, err, tokenledger.ErrInvalidAddress)
			var addrErr *tokenledger.InvalidAddressError
			require.True(t, errors.As(err, &addrErr))
			assert.Equal(t, tt.role, addrErr.Role)
		})
	}
	requireInvariants(t, l)
}

// failingStore rejects commits on demand.
type failingStore struct {
	*memory.Store
	fail bool
}

func (s *failingStore) Commit(ctx context.Context, cs *state.Changeset) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.Store.Commit(ctx, cs)
}

func TestCommitFailureIsAtomic(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: memory.New()}
	l := tokenledger.New(fs, tokenledger.WithOwner(owner))
	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(100)))
	before := l.Snapshot()

	fs.fail = true
	err := l.Transfer(ctx, alice, bob, types.Tokens(50))
	require.ErrorIs(t, err, tokenledger.ErrCommitFailed)
	assert.True(t, tokenledger.IsRetryable(err))

	after := l.Snapshot()
	assert.Equal(t, before.Meta, after.Meta)
	assert.Equal(t, before.Balances, after.Balances)

	fs.fail = false
	require.NoError(t, l.Transfer(ctx, alice, bob, types.Tokens(50)))
	assert.Equal(t, types.Tokens(50), l.BalanceOf(bob))

	stored, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, l.Seq(), stored.Meta.Seq)
}

func TestSeqConflictReloads(t *testing.T) {
	ctx := context.Background()
	shared := memory.New()

	a := tokenledger.New(shared, tokenledger.WithOwner(owner))
	require.NoError(t, a.Start(ctx))
	b := tokenledger.New(shared, tokenledger.WithOwner(owner))
	require.NoError(t, b.Start(ctx))

	require.NoError(t, a.Mint(ctx, owner, alice, types.Tokens(5)))

	err := b.Mint(ctx, owner, bob, types.Tokens(5))
	require.ErrorIs(t, err, tokenledger.ErrSeqConflict)
	assert.True(t, tokenledger.IsRetryable(err))

	// b caught up with the store and the retry succeeds.
	assert.Equal(t, types.Tokens(5), b.BalanceOf(alice))
	require.NoError(t, b.Mint(ctx, owner, bob, types.Tokens(5)))
	assert.Equal(t, types.Tokens(10), b.TotalSupply())
}

func TestRestartKeepsState(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	l := tokenledger.New(s, tokenledger.WithOwner(owner))
	require.NoError(t, l.Start(ctx))
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(7)))
	require.NoError(t, l.EnableFullMinting(ctx, owner))
	require.NoError(t, l.Stop())

	s.Reopen()
	restarted := tokenledger.New(s)
	require.NoError(t, restarted.Start(ctx))
	assert.Equal(t, owner, restarted.Owner())
	assert.True(t, restarted.CanMintMore())
	assert.Equal(t, types.Tokens(7), restarted.BalanceOf(alice))
	assert.Equal(t, uint64(3), restarted.Seq())
}

func TestClockStampsCommits(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	l := newLedger(t, tokenledger.WithClock(func() time.Time { return fixed }))

	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(1)))
	snap := l.Snapshot()
	assert.Equal(t, fixed, snap.Meta.UpdatedAt)
	assert.Equal(t, fixed, snap.Meta.CreatedAt)

	events, err := l.Events(ctx, event.ListOpts{Account: alice})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].CreatedAt)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(1, 2))
	accounts := []types.Address{owner, alice, bob, carol}
	pick := func() types.Address { return accounts[rng.IntN(len(accounts))] }
	amount := func() types.Amount { return types.Tokens(rng.Uint64N(5_000)) }

	for _, mode := range []tokenledger.FeeMode{tokenledger.FeeModeTransfersOnly, tokenledger.FeeModeAllUpdates} {
		t.Run(mode.String(), func(t *testing.T) {
			l := newLedger(t, tokenledger.WithFeeMode(mode))
			sawFullMinting := false

			for i := 0; i < 500; i++ {
				switch rng.IntN(9) {
				case 0, 1:
					_ = l.Mint(ctx, pick(), pick(), amount())
				case 2, 3:
					_ = l.Transfer(ctx, pick(), pick(), amount())
				case 4:
					_ = l.Burn(ctx, pick(), amount())
				case 5:
					_ = l.Approve(ctx, pick(), pick(), amount())
				case 6:
					_ = l.TransferFrom(ctx, pick(), pick(), pick(), amount())
				case 7:
					_ = l.SetFeePercentage(ctx, pick(), types.NewAmount(rng.Uint64N(200)))
				case 8:
					if rng.IntN(20) == 0 {
						_ = l.EnableFullMinting(ctx, pick())
					}
				}

				requireInvariants(t, l)
				if sawFullMinting {
					require.True(t, l.CanMintMore(), "full minting switched off")
				}
				sawFullMinting = l.CanMintMore()
			}
		})
	}
}

func TestConcurrentTransfers(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, tokenledger.WithInitialFeePercentage(30))
	for _, a := range []types.Address{alice, bob, carol} {
		require.NoError(t, l.Mint(ctx, owner, a, types.Tokens(1_000)))
	}

	var wg sync.WaitGroup
	for _, pair := range [][2]types.Address{{alice, bob}, {bob, carol}, {carol, alice}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = l.Transfer(ctx, pair[0], pair[1], types.Tokens(3))
			}
		}()
	}
	wg.Wait()

	requireInvariants(t, l)
	assert.Equal(t, types.Tokens(3_000), l.TotalSupply())
}
