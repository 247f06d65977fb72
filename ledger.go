package tokenledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/plugin"
	"github.com/xraph/tokenledger/policy"
	"github.com/xraph/tokenledger/state"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/types"
)

// Ledger is the token engine. It serializes every call, stages changes on
// an overlay, commits them through the store and only then applies them.
type Ledger struct {
	mu      sync.Mutex
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	now     func() time.Time

	// nil until Start
	state *state.State

	// Genesis configuration
	owner      types.Address
	name       string
	symbol     string
	initialFee uint64
	feeMode    FeeMode
	migrate    bool
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		name:    "Token",
		symbol:  "TKN",
		migrate: true,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithOwner sets the owner a fresh ledger is created with. It is ignored
// when the store already holds a ledger.
func WithOwner(owner types.Address) Option {
	return func(l *Ledger) {
		l.owner = owner
	}
}

// WithTokenMetadata sets the name and symbol of a fresh ledger.
func WithTokenMetadata(name, symbol string) Option {
	return func(l *Ledger) {
		l.name = name
		l.symbol = symbol
	}
}

// WithInitialFeePercentage sets the fee of a fresh ledger, clamped to
// policy.MaxFee.
func WithInitialFeePercentage(bps uint64) Option {
	return func(l *Ledger) {
		l.initialFee = bps
	}
}

// WithFeeMode selects which balance moves pay the fee.
func WithFeeMode(m FeeMode) Option {
	return func(l *Ledger) {
		l.feeMode = m
	}
}

// WithMigrate controls whether Start runs store migrations. Default true.
func WithMigrate(enabled bool) Option {
	return func(l *Ledger) {
		l.migrate = enabled
	}
}

// WithClock overrides the time source used to stamp commits.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Start migrates the store, loads the ledger or creates it on first run,
// and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.state != nil {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}

	genesis, err := l.open(ctx)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	meta := l.state.Meta
	l.mu.Unlock()

	l.logger.Info("ledger started",
		"ledger_id", meta.LedgerID.String(),
		"owner", meta.Owner.String(),
		"seq", meta.Seq,
		"fee_mode", l.feeMode.String(),
		"genesis", genesis != nil,
	)

	l.plugins.EmitInit(ctx, l)
	if genesis != nil {
		l.notify(ctx, opGenesis, genesis, 0)
	}
	return nil
}

// open loads or creates state. It returns the genesis changeset when one
// was committed. Callers hold l.mu.
func (l *Ledger) open(ctx context.Context) (*state.Changeset, error) {
	if l.migrate {
		if err := l.store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	loaded, err := l.store.Load(ctx)
	switch {
	case err == nil:
		if err := loaded.CheckInvariants(); err != nil {
			return nil, fmt.Errorf("tokenledger: stored state rejected: %w", err)
		}
		l.state = loaded
		return nil, nil
	case !IsNotFound(err):
		return nil, fmt.Errorf("tokenledger: load state: %w", err)
	}

	owner, err := normalize(RoleOwner, l.owner)
	if err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, &InvalidAddressError{Role: RoleOwner, Address: owner}
	}

	empty := state.New(state.Meta{})
	ov := state.NewOverlay(empty)
	*ov.Meta() = state.Meta{
		Entity:            types.Entity{CreatedAt: l.now()},
		LedgerID:          id.NewLedgerID(),
		Name:              l.name,
		Symbol:            l.symbol,
		Decimals:          types.Decimals,
		Owner:             owner,
		TotalSupply:       types.Zero,
		FeePercentage:     policy.ClampFee(types.NewAmount(l.initialFee)),
		BasisPointDivisor: policy.BasisPointDivisor,
	}
	ov.Emit(&event.Event{
		Kind:   event.KindOwnershipTransferred,
		Caller: owner,
		From:   types.ZeroAddress,
		To:     owner,
	})

	cs := ov.Changeset(l.now())
	if err := l.store.Commit(ctx, cs); err != nil {
		return nil, fmt.Errorf("%w: genesis: %w", ErrCommitFailed, err)
	}
	if err := empty.Apply(cs); err != nil {
		return nil, err
	}
	l.state = empty
	return cs, nil
}

// Stop shuts down the Ledger and closes its store.
func (l *Ledger) Stop() error {
	l.mu.Lock()
	started := l.state != nil
	l.state = nil
	l.mu.Unlock()

	if started {
		l.plugins.EmitShutdown(context.Background())
	}
	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Read accessors
// ──────────────────────────────────────────────────

// view runs fn against the current state. Before Start it sees an empty state.
func (l *Ledger) view(fn func(s *state.State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == nil {
		fn(state.New(state.Meta{}))
		return
	}
	fn(l.state)
}

// TotalSupply returns the amount in circulation.
func (l *Ledger) TotalSupply() (supply types.Amount) {
	l.view(func(s *state.State) { supply = s.Meta.TotalSupply })
	return supply
}

// BalanceOf returns the balance of account.
func (l *Ledger) BalanceOf(account types.Address) (bal types.Amount) {
	account, err := normalize(RoleSender, account)
	if err != nil {
		return types.Zero
	}
	l.view(func(s *state.State) { bal = s.Balance(account) })
	return bal
}

// Allowance returns what spender may still move out of owner's balance.
func (l *Ledger) Allowance(owner, spender types.Address) (amt types.Amount) {
	owner, err := normalize(RoleApprover, owner)
	if err != nil {
		return types.Zero
	}
	spender, err = normalize(RoleSpender, spender)
	if err != nil {
		return types.Zero
	}
	l.view(func(s *state.State) { amt = s.Allowance(owner, spender) })
	return amt
}

// FeePercentage returns the transfer fee in basis points.
func (l *Ledger) FeePercentage() (bps uint64) {
	l.view(func(s *state.State) { bps = s.Meta.FeePercentage })
	return bps
}

// BasisPointDivisor returns the fee divisor.
func (l *Ledger) BasisPointDivisor() (d uint64) {
	l.view(func(s *state.State) { d = s.Meta.BasisPointDivisor })
	return d
}

// CanMintMore reports whether full minting is enabled.
func (l *Ledger) CanMintMore() (ok bool) {
	l.view(func(s *state.State) { ok = s.Meta.CanMintMore })
	return ok
}

// MintCap returns the supply ceiling for the current phase.
func (l *Ledger) MintCap() (limit types.Amount) {
	l.view(func(s *state.State) { limit = s.Meta.MintCap() })
	return limit
}

// Owner returns the owner, who also receives fees.
func (l *Ledger) Owner() (owner types.Address) {
	l.view(func(s *state.State) { owner = s.Meta.Owner })
	return owner
}

// Name returns the token name.
func (l *Ledger) Name() (name string) {
	l.view(func(s *state.State) { name = s.Meta.Name })
	return name
}

// Symbol returns the token symbol.
func (l *Ledger) Symbol() (symbol string) {
	l.view(func(s *state.State) { symbol = s.Meta.Symbol })
	return symbol
}

// Decimals returns the number of decimals amounts are scaled by.
func (l *Ledger) Decimals() uint8 { return types.Decimals }

// Seq returns the sequence number of the last commit.
func (l *Ledger) Seq() (seq uint64) {
	l.view(func(s *state.State) { seq = s.Meta.Seq })
	return seq
}

// LedgerID returns the identity assigned at genesis.
func (l *Ledger) LedgerID() (lid id.LedgerID) {
	l.view(func(s *state.State) { lid = s.Meta.LedgerID })
	return lid
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() (snap *state.State) {
	l.view(func(s *state.State) { snap = s.Clone() })
	return snap
}

// Events lists persisted notifications.
func (l *Ledger) Events(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	l.mu.Lock()
	started := l.state != nil
	l.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}
	return l.store.ListEvents(ctx, opts)
}

// ──────────────────────────────────────────────────
// Commit pipeline
// ──────────────────────────────────────────────────

// execute runs one state-changing operation atomically. fn stages changes on
// an overlay; on error nothing is persisted or applied.
func (l *Ledger) execute(ctx context.Context, op string, caller types.Address, fn func(ov *state.Overlay) error) error {
	start := time.Now()

	cs, err := l.commit(ctx, op, fn)
	if err != nil {
		l.reject(ctx, op, caller, err)
		return err
	}

	l.notify(ctx, op, cs, time.Since(start))
	return nil
}

func (l *Ledger) commit(ctx context.Context, op string, fn func(ov *state.Overlay) error) (*state.Changeset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == nil {
		return nil, ErrNotStarted
	}

	ov := state.NewOverlay(l.state)
	if err := fn(ov); err != nil {
		return nil, err
	}

	cs := ov.Changeset(l.now())
	if err := l.store.Commit(ctx, cs); err != nil {
		if errors.Is(err, ErrSeqConflict) {
			l.reload(ctx)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCommitFailed, op, err)
	}

	if err := l.state.Apply(cs); err != nil {
		// The store accepted a changeset the in-memory state cannot take.
		l.reload(ctx)
		return nil, fmt.Errorf("tokenledger: apply %s: %w", op, err)
	}
	return cs, nil
}

// reload replaces the in-memory state with the store's. Callers hold l.mu.
func (l *Ledger) reload(ctx context.Context) {
	loaded, err := l.store.Load(ctx)
	if err != nil {
		l.logger.Error("ledger reload failed", "error", err)
		return
	}
	l.logger.Warn("ledger reloaded from store",
		"from_seq", l.state.Meta.Seq,
		"to_seq", loaded.Meta.Seq,
	)
	l.state = loaded
}

func (l *Ledger) notify(ctx context.Context, op string, cs *state.Changeset, elapsed time.Duration) {
	l.logger.Debug("ledger commit",
		"op", op,
		"seq", cs.Meta.Seq,
		"events", len(cs.Events),
		"elapsed", elapsed,
	)
	for _, e := range cs.Events {
		l.plugins.EmitEvent(ctx, e)
	}
	l.plugins.EmitCommitted(ctx, op, cs.Meta.Seq, len(cs.Events), elapsed)
}

func (l *Ledger) reject(ctx context.Context, op string, caller types.Address, err error) {
	l.logger.Debug("ledger operation rejected",
		"op", op,
		"caller", caller.String(),
		"error", err,
	)
	var capErr *ExceedsMintingAllowanceError
	if errors.As(err, &capErr) {
		l.plugins.EmitMintRejected(ctx, caller, capErr.Supply, capErr.Amount, capErr.Cap)
	}
	l.plugins.EmitOperationRejected(ctx, op, caller, err)
}
