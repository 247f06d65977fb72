package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/types"
)

// DefaultTimeout bounds a single plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onTransfer             []OnTransfer
	onApproval             []OnApproval
	onOwnershipTransferred []OnOwnershipTransferred
	onFeePercentageChanged []OnFeePercentageChanged
	onFullMintingEnabled   []OnFullMintingEnabled
	onMintRejected         []OnMintRejected
	onOperationRejected    []OnOperationRejected
	onCommitted            []OnCommitted
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call plugin timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnApproval); ok {
		r.onApproval = append(r.onApproval, v)
	}
	if v, ok := p.(OnOwnershipTransferred); ok {
		r.onOwnershipTransferred = append(r.onOwnershipTransferred, v)
	}
	if v, ok := p.(OnFeePercentageChanged); ok {
		r.onFeePercentageChanged = append(r.onFeePercentageChanged, v)
	}
	if v, ok := p.(OnFullMintingEnabled); ok {
		r.onFullMintingEnabled = append(r.onFullMintingEnabled, v)
	}
	if v, ok := p.(OnMintRejected); ok {
		r.onMintRejected = append(r.onMintRejected, v)
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
	}
	if v, ok := p.(OnCommitted); ok {
		r.onCommitted = append(r.onCommitted, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeFor[OnInit](), "OnInit"},
	{reflect.TypeFor[OnShutdown](), "OnShutdown"},
	{reflect.TypeFor[OnTransfer](), "OnTransfer"},
	{reflect.TypeFor[OnApproval](), "OnApproval"},
	{reflect.TypeFor[OnOwnershipTransferred](), "OnOwnershipTransferred"},
	{reflect.TypeFor[OnFeePercentageChanged](), "OnFeePercentageChanged"},
	{reflect.TypeFor[OnFullMintingEnabled](), "OnFullMintingEnabled"},
	{reflect.TypeFor[OnMintRejected](), "OnMintRejected"},
	{reflect.TypeFor[OnOperationRejected](), "OnOperationRejected"},
	{reflect.TypeFor[OnCommitted](), "OnCommitted"},
}

// implementedInterfaces returns the hook names a plugin implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// hooks snapshots one cached hook slice under the read lock.
func hooks[T any](r *Registry, field *[]T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *field
}

// dispatch runs fn for every plugin in ps, logging failures.
func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, ps []T, fn func(T) error) {
	for _, p := range ps {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	dispatch(ctx, r, "OnInit", hooks(r, &r.onInit), func(p OnInit) error {
		return p.OnInit(ctx, ledger)
	})
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(ctx, r, "OnShutdown", hooks(r, &r.onShutdown), func(p OnShutdown) error {
		return p.OnShutdown(ctx)
	})
}

// EmitEvent routes a committed notification to the hooks for its kind.
func (r *Registry) EmitEvent(ctx context.Context, e *event.Event) {
	switch e.Kind {
	case event.KindTransfer:
		dispatch(ctx, r, "OnTransfer", hooks(r, &r.onTransfer), func(p OnTransfer) error {
			return p.OnTransfer(ctx, e)
		})
	case event.KindApproval:
		dispatch(ctx, r, "OnApproval", hooks(r, &r.onApproval), func(p OnApproval) error {
			return p.OnApproval(ctx, e)
		})
	case event.KindOwnershipTransferred:
		dispatch(ctx, r, "OnOwnershipTransferred", hooks(r, &r.onOwnershipTransferred), func(p OnOwnershipTransferred) error {
			return p.OnOwnershipTransferred(ctx, e)
		})
	case event.KindFeePercentageChanged:
		dispatch(ctx, r, "OnFeePercentageChanged", hooks(r, &r.onFeePercentageChanged), func(p OnFeePercentageChanged) error {
			return p.OnFeePercentageChanged(ctx, e)
		})
	case event.KindFullMintingEnabled:
		dispatch(ctx, r, "OnFullMintingEnabled", hooks(r, &r.onFullMintingEnabled), func(p OnFullMintingEnabled) error {
			return p.OnFullMintingEnabled(ctx, e)
		})
	default:
		r.logger.Warn("plugin: unknown event kind", "kind", e.Kind, "event_id", e.ID.String())
	}
}

// EmitMintRejected emits a cap violation.
func (r *Registry) EmitMintRejected(ctx context.Context, caller types.Address, supply, amount, limit types.Amount) {
	dispatch(ctx, r, "OnMintRejected", hooks(r, &r.onMintRejected), func(p OnMintRejected) error {
		return p.OnMintRejected(ctx, caller, supply, amount, limit)
	})
}

// EmitOperationRejected emits a failed call.
func (r *Registry) EmitOperationRejected(ctx context.Context, op string, caller types.Address, err error) {
	dispatch(ctx, r, "OnOperationRejected", hooks(r, &r.onOperationRejected), func(p OnOperationRejected) error {
		return p.OnOperationRejected(ctx, op, caller, err)
	})
}

// EmitCommitted emits a successful commit.
func (r *Registry) EmitCommitted(ctx context.Context, op string, seq uint64, events int, elapsed time.Duration) {
	dispatch(ctx, r, "OnCommitted", hooks(r, &r.onCommitted), func(p OnCommitted) error {
		return p.OnCommitted(ctx, op, seq, events, elapsed)
	})
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
