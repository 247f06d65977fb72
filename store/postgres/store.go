// Package postgres implements store.Store on PostgreSQL through the grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tokenledger"
	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/state"
	ledgerstore "github.com/xraph/tokenledger/store"
	"github.com/xraph/tokenledger/store/internal/sqlmodel"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// StaleCommitAfter is how long an unfinished commit may hold its seq before
// the next writer discards it.
const StaleCommitAfter = time.Minute

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg  *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tokenledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tokenledger/postgres: migration failed: %w", err)
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
	meta, err := sqlmodel.FromCommit(head)
	if err != nil {
		return nil, fmt.Errorf("tokenledger/postgres: %w", err)
	}
	st := state.New(meta)

	var balances []sqlmodel.Balance
	if err := s.pg.NewSelect(&balances).
		Where("seq <= $1", head.Seq).
		OrderExpr("seq ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/postgres: load balances: %w", err)
	}

	var allowances []sqlmodel.Allowance
	if err := s.pg.NewSelect(&allowances).
		Where("seq <= $1", head.Seq).
		OrderExpr("seq ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/postgres: load allowances: %w", err)
	}

	if err := sqlmodel.Fold(st, balances, allowances); err != nil {
		return nil, fmt.Errorf("tokenledger/postgres: %w", err)
	}
	return st, nil
}

// Commit claims cs.Meta.Seq by inserting its commit row, writes the
// versioned rows and events, then marks the commit done.
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

	if err := s.abort(ctx, seq, now().Add(-StaleCommitAfter).UnixMilli()); err != nil {
		return err
	}

	claim := sqlmodel.ToCommit(&cs.Meta, now())
	res, err := s.pg.NewInsert(claim).
		OnConflict("(seq) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/postgres: claim seq %d: %w", seq, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: seq %d claimed by another writer", tokenledger.ErrSeqConflict, seq)
	}

	if err := s.write(ctx, cs); err != nil {
		// Release the seq so the next writer need not wait it out.
		if aerr := s.abort(ctx, seq, math.MaxInt64); aerr != nil {
			return errors.Join(err, aerr)
		}
		return err
	}
	return nil
}

// write stores the rows of cs under its claimed seq and flips the commit
// row to done, which publishes them.
func (s *Store) write(ctx context.Context, cs *state.Changeset) error {
	seq := int64(cs.Meta.Seq) //nolint:gosec // seq grows by one per commit
	balances, allowances := sqlmodel.Rows(cs)
	if len(balances) > 0 {
		if _, err := s.pg.NewInsert(&balances).Exec(ctx); err != nil {
			return fmt.Errorf("tokenledger/postgres: write balances: %w", err)
		}
	}
	if len(allowances) > 0 {
		if _, err := s.pg.NewInsert(&allowances).Exec(ctx); err != nil {
			return fmt.Errorf("tokenledger/postgres: write allowances: %w", err)
		}
	}
	if events := sqlmodel.ToEvents(cs.Events); len(events) > 0 {
		if _, err := s.pg.NewInsert(&events).Exec(ctx); err != nil {
			return fmt.Errorf("tokenledger/postgres: write events: %w", err)
		}
	}

	if _, err := s.pg.NewUpdate((*sqlmodel.Commit)(nil)).
		Set("done = $1", true).
		Where("seq = $2", seq).
		Exec(ctx); err != nil {
		return fmt.Errorf("tokenledger/postgres: finish seq %d: %w", seq, err)
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

	var models []sqlmodel.Event
	q := s.pg.NewSelect(&models).
		Where("seq > $1", int64(opts.AfterSeq)). //nolint:gosec // bounded by stored seq
		Where("seq <= $2", head.Seq)
	argIdx := 3

	if opts.Kind != "" {
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
		argIdx++
	}
	if opts.Account != "" {
		a := opts.Account.String()
		q = q.Where(fmt.Sprintf("(from_addr = $%d OR to_addr = $%d)", argIdx, argIdx+1), a, a)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("seq ASC, idx ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tokenledger/postgres: list events: %w", err)
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		e, err := sqlmodel.FromEvent(&models[i])
		if err != nil {
			return nil, fmt.Errorf("tokenledger/postgres: %w", err)
		}
		result[i] = e
	}
	return result, nil
}

// ==================== Helpers ====================

// head returns the latest finished commit.
func (s *Store) head(ctx context.Context) (*sqlmodel.Commit, error) {
	m := new(sqlmodel.Commit)
	err := s.pg.NewSelect(m).
		Where("done = $1", true).
		OrderExpr("seq DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tokenledger.ErrNotFound
		}
		return nil, fmt.Errorf("tokenledger/postgres: read head: %w", err)
	}
	return m, nil
}

// abort removes an unfinished commit at seq started before startedBefore
// (unix millis), together with every row it wrote. A finished commit is
// never touched.
func (s *Store) abort(ctx context.Context, seq, startedBefore int64) error {
	res, err := s.pg.NewDelete((*sqlmodel.Commit)(nil)).
		Where("seq = $1", seq).
		Where("done = $2", false).
		Where("started_at < $3", startedBefore).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tokenledger/postgres: abort seq %d: %w", seq, err)
	}
	rows, err := res.RowsAffected()
	if err != nil || rows == 0 {
		return err
	}

	models := []any{(*sqlmodel.Balance)(nil), (*sqlmodel.Allowance)(nil), (*sqlmodel.Event)(nil)}
	for _, model := range models {
		if _, err := s.pg.NewDelete(model).Where("seq = $1", seq).Exec(ctx); err != nil {
			return fmt.Errorf("tokenledger/postgres: abort seq %d: %w", seq, err)
		}
	}
	return nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
