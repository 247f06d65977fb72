// Package boltdb provides a single-file transactional store on BoltDB.
//
// Every Commit is one bolt read-write transaction, so a changeset is
// persisted whole or not at all.
package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/state"
	"github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/types"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

var (
	metaBucket       = []byte("meta")
	balancesBucket   = []byte("balances")
	allowancesBucket = []byte("allowances")
	eventsBucket     = []byte("events")

	ledgerKey = []byte("ledger")

	allBuckets = [][]byte{metaBucket, balancesBucket, allowancesBucket, eventsBucket}
)

// Store implements store.Store on a bolt database file.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database at path. A file held by another
// process fails after timeout.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("tokenledger/boltdb: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// New wraps an already open bolt database.
func New(db *bolt.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying bolt database.
func (s *Store) DB() *bolt.DB { return s.db }

// Migrate creates the buckets.
func (s *Store) Migrate(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("tokenledger/boltdb: create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Ping checks that the database is open.
func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(*bolt.Tx) error { return nil })
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// State methods
// ──────────────────────────────────────────────────

// Load reads the committed state.
func (s *Store) Load(_ context.Context) (*state.State, error) {
	var st *state.State
	err := s.db.View(func(tx *bolt.Tx) error {
		mb := tx.Bucket(metaBucket)
		if mb == nil {
			return tokenledger.ErrNotFound
		}
		raw := mb.Get(ledgerKey)
		if raw == nil {
			return tokenledger.ErrNotFound
		}

		var meta state.Meta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("tokenledger/boltdb: decode meta: %w", err)
		}
		st = state.New(meta)

		if err := tx.Bucket(balancesBucket).ForEach(func(k, v []byte) error {
			amt, err := types.ParseAmount(string(v))
			if err != nil {
				return fmt.Errorf("tokenledger/boltdb: balance of %s: %w", k, err)
			}
			st.Balances[types.Address(k)] = amt
			return nil
		}); err != nil {
			return err
		}

		return tx.Bucket(allowancesBucket).ForEach(func(k, v []byte) error {
			key, err := decodeAllowanceKey(k)
			if err != nil {
				return err
			}
			amt, err := types.ParseAmount(string(v))
			if err != nil {
				return fmt.Errorf("tokenledger/boltdb: allowance %s: %w", k, err)
			}
			st.Allowances[key] = amt
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Commit persists cs in one transaction. The stored sequence must be
// exactly one behind cs.
func (s *Store) Commit(_ context.Context, cs *state.Changeset) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		mb := tx.Bucket(metaBucket)
		if mb == nil {
			return fmt.Errorf("tokenledger/boltdb: %w: buckets missing, run Migrate", tokenledger.ErrNotFound)
		}

		var stored uint64
		if raw := mb.Get(ledgerKey); raw != nil {
			var meta state.Meta
			if err := json.Unmarshal(raw, &meta); err != nil {
				return fmt.Errorf("tokenledger/boltdb: decode meta: %w", err)
			}
			stored = meta.Seq
		}
		if cs.Meta.Seq != stored+1 {
			return fmt.Errorf("%w: stored seq %d, changeset seq %d",
				tokenledger.ErrSeqConflict, stored, cs.Meta.Seq)
		}

		raw, err := json.Marshal(cs.Meta)
		if err != nil {
			return err
		}
		if err := mb.Put(ledgerKey, raw); err != nil {
			return err
		}

		bb := tx.Bucket(balancesBucket)
		for _, b := range cs.SortedBalances() {
			if err := putOrDelete(bb, []byte(b.Account), b.Amount); err != nil {
				return err
			}
		}

		ab := tx.Bucket(allowancesBucket)
		for _, a := range cs.SortedAllowances() {
			if err := putOrDelete(ab, encodeAllowanceKey(a.AllowanceKey), a.Amount); err != nil {
				return err
			}
		}

		eb := tx.Bucket(eventsBucket)
		for _, e := range cs.Events {
			raw, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := eb.Put(eventKey(e.Seq, e.Index), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// ──────────────────────────────────────────────────
// Event methods
// ──────────────────────────────────────────────────

// ListEvents scans events in (seq, index) order starting after opts.AfterSeq.
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	result := make([]*event.Event, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		eb := tx.Bucket(eventsBucket)
		if eb == nil {
			return nil
		}

		skipped := 0
		c := eb.Cursor()
		for k, v := c.Seek(eventKey(opts.AfterSeq+1, 0)); k != nil; k, v = c.Next() {
			var e event.Event
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("tokenledger/boltdb: decode event %x: %w", k, err)
			}
			if !opts.Matches(&e) {
				continue
			}
			if skipped < opts.Offset {
				skipped++
				continue
			}
			result = append(result, &e)
			if opts.Limit > 0 && len(result) == opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Keys
// ──────────────────────────────────────────────────

// eventKey sorts by seq then index.
func eventKey(seq uint64, index int) []byte {
	k := make([]byte, 12)
	binary.BigEndian.PutUint64(k[:8], seq)
	binary.BigEndian.PutUint32(k[8:], uint32(index)) //nolint:gosec // index is bounded by events per commit
	return k
}

func encodeAllowanceKey(k state.AllowanceKey) []byte {
	return []byte(string(k.Owner) + "/" + string(k.Spender))
}

func decodeAllowanceKey(raw []byte) (state.AllowanceKey, error) {
	owner, spender, ok := bytes.Cut(raw, []byte("/"))
	if !ok {
		return state.AllowanceKey{}, fmt.Errorf("tokenledger/boltdb: malformed allowance key %q", raw)
	}
	return state.AllowanceKey{Owner: types.Address(owner), Spender: types.Address(spender)}, nil
}

func putOrDelete(b *bolt.Bucket, key []byte, amt types.Amount) error {
	if amt.IsZero() {
		return b.Delete(key)
	}
	return b.Put(key, []byte(amt.String()))
}
