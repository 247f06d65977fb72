package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/tokenledger"
	audithook "github.com/xraph/tokenledger/audit_hook"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/store/memory"
	"github.com/xraph/tokenledger/types"
)

var (
	owner = types.MustParseAddress("0x000000000000000000000000000000000000000a")
	alice = types.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob   = types.MustParseAddress("0x00000000000000000000000000000000000000b0")
)

type trail struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (t *trail) Record(_ context.Context, e *audithook.AuditEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	return nil
}

func (t *trail) actions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.events))
	for i, e := range t.events {
		out[i] = e.Action
	}
	return out
}

func (t *trail) last() *audithook.AuditEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events[len(t.events)-1]
}

func startLedger(t *testing.T, ext *audithook.Extension) *tokenledger.Ledger {
	t.Helper()
	l := tokenledger.New(memory.New(),
		tokenledger.WithOwner(owner),
		tokenledger.WithPlugin(ext),
	)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func TestRecordsLedgerActivity(t *testing.T) {
	ctx := context.Background()
	tr := &trail{}
	l := startLedger(t, audithook.New(tr))

	require.NoError(t, l.SetFeePercentage(ctx, owner, types.NewAmount(30)))
	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(10_000)))
	require.NoError(t, l.Transfer(ctx, alice, bob, types.Tokens(10_000)))
	require.NoError(t, l.Approve(ctx, bob, alice, types.Tokens(1)))
	require.NoError(t, l.Burn(ctx, bob, types.Tokens(1)))
	require.NoError(t, l.EnableFullMinting(ctx, owner))
	require.NoError(t, l.TransferOwnership(ctx, owner, alice))

	assert.Equal(t, []string{
		audithook.ActionOwnershipTransferred, // genesis
		audithook.ActionFeeChanged,
		audithook.ActionTokensMinted,
		audithook.ActionTokensTransferred, // send leg
		audithook.ActionTokensTransferred, // fee leg
		audithook.ActionAllowanceApproved,
		audithook.ActionTokensBurned,
		audithook.ActionFullMintingEnabled,
		audithook.ActionOwnershipTransferred,
	}, tr.actions())

	last := tr.last()
	assert.Equal(t, owner.String(), last.Actor)
	assert.Equal(t, alice.String(), last.Metadata["new_owner"])
	assert.Equal(t, audithook.OutcomeSuccess, last.Outcome)
	assert.Equal(t, id.PrefixAudit, last.ID.Prefix())
}

func TestRecordsRejections(t *testing.T) {
	ctx := context.Background()
	tr := &trail{}
	l := startLedger(t, audithook.New(tr, audithook.WithEnabledActions(
		audithook.ActionMintRejected,
		audithook.ActionOperationRejected,
	)))

	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(1)))
	require.Error(t, l.Mint(ctx, owner, alice, types.MaxAmount))
	require.Error(t, l.Mint(ctx, alice, alice, types.Tokens(1)))

	assert.Equal(t, []string{
		audithook.ActionMintRejected,
		audithook.ActionOperationRejected,
		audithook.ActionOperationRejected,
	}, tr.actions())

	last := tr.last()
	assert.Equal(t, audithook.OutcomeFailure, last.Outcome)
	assert.Equal(t, tokenledger.OpMint, last.ResourceID)
	assert.Contains(t, last.Reason, "not the owner")
	assert.Equal(t, alice.String(), last.Actor)
}

func TestDisabledActions(t *testing.T) {
	ctx := context.Background()
	tr := &trail{}
	l := startLedger(t, audithook.New(tr, audithook.WithDisabledActions(
		audithook.ActionTokensMinted,
		audithook.ActionOwnershipTransferred,
	)))

	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(1)))
	require.NoError(t, l.SetFeePercentage(ctx, owner, types.NewAmount(10)))

	assert.Equal(t, []string{audithook.ActionFeeChanged}, tr.actions())
	assert.Equal(t, uint64(10), tr.last().Metadata["fee_bps"])
}

func TestRecorderFailureDoesNotFailLedger(t *testing.T) {
	ctx := context.Background()
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("audit backend down")
	})
	l := startLedger(t, audithook.New(failing))

	require.NoError(t, l.Mint(ctx, owner, alice, types.Tokens(1)))
	assert.Equal(t, types.Tokens(1), l.BalanceOf(alice))
}
