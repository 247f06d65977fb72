package plugin_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/plugin"
	"github.com/xraph/tokenledger/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	name string

	mu    sync.Mutex
	calls []string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) OnInit(context.Context, any) error { r.add("init"); return nil }
func (r *recorder) OnShutdown(context.Context) error  { r.add("shutdown"); return nil }

func (r *recorder) OnTransfer(_ context.Context, e *event.Event) error {
	r.add("transfer:" + e.Value.String())
	return nil
}

func (r *recorder) OnApproval(context.Context, *event.Event) error { r.add("approval"); return nil }

func (r *recorder) OnOwnershipTransferred(context.Context, *event.Event) error {
	r.add("ownership")
	return nil
}

func (r *recorder) OnFeePercentageChanged(context.Context, *event.Event) error {
	r.add("fee")
	return nil
}

func (r *recorder) OnFullMintingEnabled(context.Context, *event.Event) error {
	r.add("full_minting")
	return nil
}

func (r *recorder) OnMintRejected(_ context.Context, _ types.Address, _, amount, _ types.Amount) error {
	r.add("mint_rejected:" + amount.String())
	return nil
}

func (r *recorder) OnOperationRejected(_ context.Context, op string, _ types.Address, _ error) error {
	r.add("rejected:" + op)
	return nil
}

func (r *recorder) OnCommitted(_ context.Context, op string, _ uint64, _ int, _ time.Duration) error {
	r.add("committed:" + op)
	return nil
}

// nameOnly implements no hooks.
type nameOnly struct{}

func (nameOnly) Name() string { return "name-only" }

func TestRegisterDuplicate(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(&recorder{name: "a"}))
	require.Error(t, r.Register(&recorder{name: "a"}))
	require.NoError(t, r.Register(nameOnly{}))

	assert.Equal(t, 2, r.Count())
	assert.NotNil(t, r.Get("a"))
	assert.Nil(t, r.Get("missing"))
	assert.Len(t, r.List(), 2)
}

func TestDispatchByKind(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{name: "rec"}
	r := plugin.NewRegistry()
	require.NoError(t, r.Register(rec))
	require.NoError(t, r.Register(nameOnly{}))

	r.EmitInit(ctx, nil)
	r.EmitEvent(ctx, &event.Event{Kind: event.KindTransfer, Value: types.NewAmount(7)})
	r.EmitEvent(ctx, &event.Event{Kind: event.KindApproval})
	r.EmitEvent(ctx, &event.Event{Kind: event.KindOwnershipTransferred})
	r.EmitEvent(ctx, &event.Event{Kind: event.KindFeePercentageChanged})
	r.EmitEvent(ctx, &event.Event{Kind: event.KindFullMintingEnabled})
	r.EmitMintRejected(ctx, types.ZeroAddress, types.Zero, types.NewAmount(9), types.Zero)
	r.EmitOperationRejected(ctx, "mint", types.ZeroAddress, errors.New("boom"))
	r.EmitCommitted(ctx, "transfer", 1, 2, time.Millisecond)
	r.EmitShutdown(ctx)

	assert.Equal(t, []string{
		"init",
		"transfer:7",
		"approval",
		"ownership",
		"fee",
		"full_minting",
		"mint_rejected:9",
		"rejected:mint",
		"committed:transfer",
		"shutdown",
	}, rec.got())
}

type blocking struct {
	release chan struct{}
}

func (b *blocking) Name() string { return "blocking" }

func (b *blocking) OnTransfer(context.Context, *event.Event) error {
	<-b.release
	return nil
}

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) OnApproval(context.Context, *event.Event) error { return errors.New("approval hook failed") }

func TestPluginFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	b := &blocking{release: make(chan struct{})}
	r := plugin.NewRegistry().WithLogger(logger).WithTimeout(20 * time.Millisecond)
	require.NoError(t, r.Register(b))
	require.NoError(t, r.Register(failing{}))

	start := time.Now()
	r.EmitEvent(context.Background(), &event.Event{Kind: event.KindTransfer})
	assert.Less(t, time.Since(start), time.Second)
	close(b.release)

	r.EmitEvent(context.Background(), &event.Event{Kind: event.KindApproval})

	out := buf.String()
	assert.Contains(t, out, "plugin OnTransfer failed")
	assert.Contains(t, out, "plugin timeout: blocking")
	assert.Contains(t, out, "plugin OnApproval failed")
	assert.Contains(t, out, "approval hook failed")
}

func TestCanceledContext(t *testing.T) {
	var buf bytes.Buffer
	b := &blocking{release: make(chan struct{})}
	r := plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, r.Register(b))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.EmitEvent(ctx, &event.Event{Kind: event.KindTransfer})
	close(b.release)

	assert.Contains(t, buf.String(), context.Canceled.Error())
}
