// Package mongo implements store.Store on MongoDB through the grove ORM.
//
// The layout mirrors the SQL stores: commit documents keyed by seq claim a
// sequence number and are flagged done last, balance and allowance documents
// are versioned by seq, and readers ignore anything above the latest done
// commit.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/state"
	ledgerstore "github.com/xraph/tokenledger/store"
)

// Collection name constants.
const (
	colCommits    = "tokenledger_commits"
	colBalances   = "tokenledger_balances"
	colAllowances = "tokenledger_allowances"
	colEvents     = "tokenledger_events"
)

// StaleCommitAfter is how long an unfinished commit may hold its seq before
// the next writer discards it.
const StaleCommitAfter = time.Minute

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all token ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tokenledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== State Store ====================

// Load rebuilds the state as of the latest finished commit.
func (s *Store) Load(ctx context.Context) (*state.State, error) {
	head, err := s.head(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := fromCommitModel(head)
	if err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: commit %d: %w", head.Seq, err)
	}
	st := state.New(meta)

	visible := bson.M{"seq": bson.M{"$lte": head.Seq}}
	bySeq := bson.D{{Key: "seq", Value: 1}}

	var balances []balanceModel
	if err := s.mdb.NewFind(&balances).Filter(visible).Sort(bySeq).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("tokenledger/mongo: load balances: %w", err)
	}
	var allowances []allowanceModel
	if err := s.mdb.NewFind(&allowances).Filter(visible).Sort(bySeq).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("tokenledger/mongo: load allowances: %w", err)
	}

	if err := foldRows(st, balances, allowances); err != nil {
		return nil, fmt.Errorf("tokenledger/mongo: %w", err)
	}
	return st, nil
}

// Commit claims cs.Meta.Seq by inserting its commit document, writes the
// versioned documents and events, then marks the commit done.
func (s *Store) Commit(ctx context.Context, cs *state.Changeset) error {
	var stored int64
	head, err := s.head(ctx)
	switch {
	case err == nil:
		stored = head.Seq
	case !errors.Is(err, tokenledger.ErrNotFound):
		return err
	}
	seq := int64(cs.Meta.Seq) //nolint:gosec // seq grows by one per commit
	if seq != stored+1 {
		return fmt.Errorf("%w: stored seq %d, changeset seq %d", tokenledger.ErrSeqConflict, stored, seq)
	}

	if err := s.abort(ctx, seq, now().Add(-StaleCommitAfter)); err != nil {
		return err
	}

	if _, err := s.mdb.NewInsert(toCommitModel(&cs.Meta, now())).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: seq %d claimed by another writer", tokenledger.ErrSeqConflict, seq)
		}
		return fmt.Errorf("tokenledger/mongo: claim seq %d: %w", seq, err)
	}

	if err := s.write(ctx, cs); err != nil {
		// Release the seq so the next writer need not wait it out.
		if aerr := s.abort(ctx, seq, time.Now().Add(time.Hour)); aerr != nil {
			return errors.Join(err, aerr)
		}
		return err
	}
	return nil
}

// write stores the documents of cs and flips its commit to done.
func (s *Store) write(ctx context.Context, cs *state.Changeset) error {
	seq := int64(cs.Meta.Seq) //nolint:gosec // seq grows by one per commit
	balances, allowances := toRowModels(cs)

	for col, docs := range map[string][]any{
		colBalances:   balances,
		colAllowances: allowances,
		colEvents:     toEventModels(cs.Events),
	} {
		if len(docs) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("tokenledger/mongo: write %s: %w", col, err)
		}
	}

	res, err := s.mdb.NewUpdate((*commitModel)(nil)).
		Filter(bson.M{"_id": seq, "done": false}).
		Set("done", true).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: finish seq %d: %w", seq, err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("%w: seq %d discarded before it finished", tokenledger.ErrSeqConflict, seq)
	}
	return nil
}

// ==================== Event Store ====================

// ListEvents returns finished events in (seq, idx) order.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	head, err := s.head(ctx)
	if errors.Is(err, tokenledger.ErrNotFound) {
		return []*event.Event{}, nil
	}
	if err != nil {
		return nil, err
	}

	filter := bson.M{"seq": bson.M{
		"$gt":  int64(opts.AfterSeq), //nolint:gosec // bounded by stored seq
		"$lte": head.Seq,
	}}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Account != "" {
		a := opts.Account.String()
		filter["$or"] = bson.A{bson.M{"from": a}, bson.M{"to": a}}
	}

	var models []eventModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}, {Key: "idx", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("tokenledger/mongo: list events: %w", err)
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		e, err := fromEventModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tokenledger/mongo: %w", err)
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Helpers ====================

// head returns the latest finished commit.
func (s *Store) head(ctx context.Context) (*commitModel, error) {
	var m commitModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"done": true}).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tokenledger.ErrNotFound
		}
		return nil, fmt.Errorf("tokenledger/mongo: read head: %w", err)
	}
	return &m, nil
}

// abort removes an unfinished commit at seq started before startedBefore,
// together with every document it wrote. A finished commit is never touched.
func (s *Store) abort(ctx context.Context, seq int64, startedBefore time.Time) error {
	res, err := s.mdb.NewDelete((*commitModel)(nil)).
		Filter(bson.M{
			"_id":        seq,
			"done":       false,
			"started_at": bson.M{"$lt": startedBefore},
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/mongo: abort seq %d: %w", seq, err)
	}
	if res.DeletedCount() == 0 {
		return nil
	}

	for _, col := range []string{colBalances, colAllowances, colEvents} {
		if _, err := s.mdb.Collection(col).DeleteMany(ctx, bson.M{"seq": seq}); err != nil {
			return fmt.Errorf("tokenledger/mongo: abort seq %d: %w", seq, err)
		}
	}
	return nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all token ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCommits: {
			{Keys: bson.D{{Key: "done", Value: 1}, {Key: "_id", Value: -1}}},
		},
		colBalances: {
			{
				Keys:    bson.D{{Key: "account", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "seq", Value: 1}}},
		},
		colAllowances: {
			{
				Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "spender", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "seq", Value: 1}}},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "seq", Value: 1}, {Key: "idx", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "from", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "to", Value: 1}, {Key: "seq", Value: 1}}},
		},
	}
}
