// Package store declares the persistence contract a token ledger runs on.
//
// The ledger owns no storage engine. The host supplies a Store, and this
// module ships adapters for the usual hosts: memory, bolt, sqlite, postgres
// and mongo.
package store

import (
	"context"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/state"
)

// Store is the unified storage interface for a token ledger.
type Store interface {
	// State methods
	Load(ctx context.Context) (*state.State, error)
	Commit(ctx context.Context, cs *state.Changeset) error

	// Event methods
	ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ state.Store = Store(nil)
	_ event.Store = Store(nil)
)
