// Package observability provides a metrics plugin for the token ledger that
// records notification counts, token volumes and commit latency through a
// MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/plugin"
	"github.com/xraph/tokenledger/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnTransfer             = (*MetricsExtension)(nil)
	_ plugin.OnApproval             = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipTransferred = (*MetricsExtension)(nil)
	_ plugin.OnFeePercentageChanged = (*MetricsExtension)(nil)
	_ plugin.OnFullMintingEnabled   = (*MetricsExtension)(nil)
	_ plugin.OnMintRejected         = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected    = (*MetricsExtension)(nil)
	_ plugin.OnCommitted            = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger metrics.
// Register it as a ledger plugin to track token activity.
type MetricsExtension struct {
	factory MetricFactory

	// Movement metrics
	Transfers      Counter
	Mints          Counter
	Burns          Counter
	TransferVolume Counter // whole tokens
	MintedVolume   Counter // whole tokens
	BurnedVolume   Counter // whole tokens
	Approvals      Counter

	// Admin metrics
	OwnershipTransfers Counter
	FeeChanges         Counter
	FeeSetting         Histogram // basis points
	FullMintingEnabled Counter

	// Rejection metrics
	MintRejected       Counter
	OperationsRejected Counter

	// Commit metrics
	Commits         Counter
	CommitLatency   Histogram // milliseconds
	EventsPerCommit Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		Transfers:      factory.Counter("tokenledger.transfers"),
		Mints:          factory.Counter("tokenledger.mints"),
		Burns:          factory.Counter("tokenledger.burns"),
		TransferVolume: factory.Counter("tokenledger.transfer.volume_tokens"),
		MintedVolume:   factory.Counter("tokenledger.mint.volume_tokens"),
		BurnedVolume:   factory.Counter("tokenledger.burn.volume_tokens"),
		Approvals:      factory.Counter("tokenledger.approvals"),

		OwnershipTransfers: factory.Counter("tokenledger.ownership.transfers"),
		FeeChanges:         factory.Counter("tokenledger.fee.changes"),
		FeeSetting:         factory.Histogram("tokenledger.fee.setting_bps"),
		FullMintingEnabled: factory.Counter("tokenledger.minting.full_enabled"),

		MintRejected:       factory.Counter("tokenledger.mint.rejected"),
		OperationsRejected: factory.Counter("tokenledger.operations.rejected"),

		Commits:         factory.Counter("tokenledger.commits"),
		CommitLatency:   factory.Histogram("tokenledger.commit.latency_ms"),
		EventsPerCommit: factory.Histogram("tokenledger.commit.events"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnTransfer implements plugin.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, e *event.Event) error {
	tokens := e.Value.Float64()
	switch {
	case e.IsMint():
		m.Mints.Inc()
		m.MintedVolume.Add(tokens)
	case e.IsBurn():
		m.Burns.Inc()
		m.BurnedVolume.Add(tokens)
	default:
		m.Transfers.Inc()
		m.TransferVolume.Add(tokens)
	}
	return nil
}

// OnApproval implements plugin.OnApproval.
func (m *MetricsExtension) OnApproval(_ context.Context, _ *event.Event) error {
	m.Approvals.Inc()
	return nil
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (m *MetricsExtension) OnOwnershipTransferred(_ context.Context, _ *event.Event) error {
	m.OwnershipTransfers.Inc()
	return nil
}

// OnFeePercentageChanged implements plugin.OnFeePercentageChanged.
func (m *MetricsExtension) OnFeePercentageChanged(_ context.Context, e *event.Event) error {
	m.FeeChanges.Inc()
	m.FeeSetting.Observe(float64(e.Value.Uint64()))
	return nil
}

// OnFullMintingEnabled implements plugin.OnFullMintingEnabled.
func (m *MetricsExtension) OnFullMintingEnabled(_ context.Context, _ *event.Event) error {
	m.FullMintingEnabled.Inc()
	return nil
}

// OnMintRejected implements plugin.OnMintRejected.
func (m *MetricsExtension) OnMintRejected(_ context.Context, _ types.Address, _, _, _ types.Amount) error {
	m.MintRejected.Inc()
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _ string, _ types.Address, _ error) error {
	m.OperationsRejected.Inc()
	return nil
}

// OnCommitted implements plugin.OnCommitted.
func (m *MetricsExtension) OnCommitted(_ context.Context, _ string, _ uint64, events int, elapsed time.Duration) error {
	m.Commits.Inc()
	m.CommitLatency.Observe(float64(elapsed.Microseconds()) / 1000)
	m.EventsPerCommit.Observe(float64(events))
	return nil
}
