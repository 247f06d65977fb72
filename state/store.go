package state

import "context"

// Store persists ledger state.
//
// Load returns the committed state, or an error matching
// tokenledger.ErrNotFound when the store holds no ledger yet. Commit must
// persist a changeset all-or-nothing; a reader never observes half of one.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Commit(ctx context.Context, cs *Changeset) error
}
