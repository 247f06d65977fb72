// Package audithook bridges token ledger notifications to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/id"
	"github.com/xraph/tokenledger/plugin"
	"github.com/xraph/tokenledger/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnTransfer             = (*Extension)(nil)
	_ plugin.OnApproval             = (*Extension)(nil)
	_ plugin.OnOwnershipTransferred = (*Extension)(nil)
	_ plugin.OnFeePercentageChanged = (*Extension)(nil)
	_ plugin.OnFullMintingEnabled   = (*Extension)(nil)
	_ plugin.OnMintRejected         = (*Extension)(nil)
	_ plugin.OnOperationRejected    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit trail entry.
type AuditEvent struct {
	ID         id.AuditID     `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger notifications to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Token movement hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer. Mints and burns are recorded under
// their own actions.
func (e *Extension) OnTransfer(ctx context.Context, evt *event.Event) error {
	action, category, account := ActionTokensTransferred, CategoryTransfer, evt.From
	switch {
	case evt.IsMint():
		action, category, account = ActionTokensMinted, CategorySupply, evt.To
	case evt.IsBurn():
		action, category = ActionTokensBurned, CategorySupply
	}

	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceAccount, account.String(), category, evt.Caller, nil,
		"event_id", evt.ID.String(),
		"seq", evt.Seq,
		"from", evt.From.String(),
		"to", evt.To.String(),
		"value", evt.Value.String(),
	)
}

// OnApproval implements plugin.OnApproval.
func (e *Extension) OnApproval(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionAllowanceApproved, SeverityInfo, OutcomeSuccess,
		ResourceAllowance, evt.From.String()+":"+evt.To.String(), CategoryAccess, evt.Caller, nil,
		"event_id", evt.ID.String(),
		"seq", evt.Seq,
		"spender", evt.To.String(),
		"value", evt.Value.String(),
	)
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (e *Extension) OnOwnershipTransferred(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionOwnershipTransferred, SeverityWarning, OutcomeSuccess,
		ResourceLedger, "owner", CategoryAdmin, evt.Caller, nil,
		"event_id", evt.ID.String(),
		"seq", evt.Seq,
		"previous_owner", evt.From.String(),
		"new_owner", evt.To.String(),
	)
}

// OnFeePercentageChanged implements plugin.OnFeePercentageChanged.
func (e *Extension) OnFeePercentageChanged(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionFeeChanged, SeverityInfo, OutcomeSuccess,
		ResourceLedger, "fee_percentage", CategoryAdmin, evt.Caller, nil,
		"event_id", evt.ID.String(),
		"seq", evt.Seq,
		"fee_bps", evt.Value.Uint64(),
	)
}

// OnFullMintingEnabled implements plugin.OnFullMintingEnabled.
func (e *Extension) OnFullMintingEnabled(ctx context.Context, evt *event.Event) error {
	return e.record(ctx, ActionFullMintingEnabled, SeverityWarning, OutcomeSuccess,
		ResourceLedger, "mint_cap", CategoryAdmin, evt.Caller, nil,
		"event_id", evt.ID.String(),
		"seq", evt.Seq,
	)
}

// ──────────────────────────────────────────────────
// Rejection hooks
// ──────────────────────────────────────────────────

// OnMintRejected implements plugin.OnMintRejected.
func (e *Extension) OnMintRejected(ctx context.Context, caller types.Address, supply, amount, limit types.Amount) error {
	return e.record(ctx, ActionMintRejected, SeverityWarning, OutcomeFailure,
		ResourceLedger, "mint_cap", CategorySupply, caller, nil,
		"supply", supply.String(),
		"amount", amount.String(),
		"cap", limit.String(),
	)
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (e *Extension) OnOperationRejected(ctx context.Context, op string, caller types.Address, err error) error {
	return e.record(ctx, ActionOperationRejected, SeverityError, OutcomeFailure,
		ResourceLedger, op, CategoryAccess, caller, err,
		"op", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	actor types.Address,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Actor:      actor.String(),
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
