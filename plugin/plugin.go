// Package plugin provides an extensible plugin system for the token ledger.
// Plugins hook into committed notifications, rejections and the ledger
// lifecycle. They observe; they can never veto or roll back a commit.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnTransfer is called for every committed transfer, including mints,
// burns and fee legs.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, e *event.Event) error
}

// OnApproval is called when an allowance is set.
type OnApproval interface {
	Plugin
	OnApproval(ctx context.Context, e *event.Event) error
}

// OnOwnershipTransferred is called when the owner changes.
type OnOwnershipTransferred interface {
	Plugin
	OnOwnershipTransferred(ctx context.Context, e *event.Event) error
}

// OnFeePercentageChanged is called when the owner sets the fee.
type OnFeePercentageChanged interface {
	Plugin
	OnFeePercentageChanged(ctx context.Context, e *event.Event) error
}

// OnFullMintingEnabled is called on every EnableFullMinting call.
type OnFullMintingEnabled interface {
	Plugin
	OnFullMintingEnabled(ctx context.Context, e *event.Event) error
}

// ──────────────────────────────────────────────────
// Operation hooks
// ──────────────────────────────────────────────────

// OnMintRejected is called when a mint would exceed the phase cap.
type OnMintRejected interface {
	Plugin
	OnMintRejected(ctx context.Context, caller types.Address, supply, amount, limit types.Amount) error
}

// OnOperationRejected is called when any state-changing call fails.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, op string, caller types.Address, err error) error
}

// OnCommitted is called after a changeset is persisted and applied.
type OnCommitted interface {
	Plugin
	OnCommitted(ctx context.Context, op string, seq uint64, events int, elapsed time.Duration) error
}
