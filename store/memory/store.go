// Package memory provides an in-process store for tests and embedded use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/state"
	"github.com/xraph/tokenledger/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// nil until the genesis commit
	state  *state.State
	events []event.Event
	closed bool
}

func New() *Store {
	return &Store{
		events: make([]event.Event, 0),
	}
}

// State Store implementation
func (s *Store) Load(_ context.Context) (*state.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tokenledger.ErrStoreClosed
	}
	if s.state == nil {
		return nil, tokenledger.ErrNotFound
	}
	return s.state.Clone(), nil
}

func (s *Store) Commit(_ context.Context, cs *state.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}

	next := s.state
	if next == nil {
		next = state.New(state.Meta{})
	} else {
		next = next.Clone()
	}
	if cs.Meta.Seq != next.Meta.Seq+1 {
		return fmt.Errorf("%w: stored seq %d, changeset seq %d",
			tokenledger.ErrSeqConflict, next.Meta.Seq, cs.Meta.Seq)
	}
	if err := next.Apply(cs); err != nil {
		return err
	}

	s.state = next
	for _, e := range cs.Events {
		s.events = append(s.events, *e)
	}
	return nil
}

// Event Store implementation
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tokenledger.ErrStoreClosed
	}

	result := make([]*event.Event, 0)
	for i := range s.events {
		if opts.Matches(&s.events[i]) {
			e := s.events[i]
			result = append(result, &e)
		}
	}
	return opts.Page(result), nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return tokenledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Reopen clears the closed flag, keeping all data. It lets tests simulate a
// process restart against the same backing memory.
func (s *Store) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = false
}
