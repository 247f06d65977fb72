package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the token ledger store (SQLite).
var Migrations = migrate.NewGroup("tokenledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tokenledger_commits",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokenledger_commits (
    seq                 INTEGER PRIMARY KEY,
    ledger_id           TEXT NOT NULL,
    name                TEXT NOT NULL DEFAULT '',
    symbol              TEXT NOT NULL DEFAULT '',
    decimals            INTEGER NOT NULL DEFAULT 18,
    owner               TEXT NOT NULL,
    total_supply        TEXT NOT NULL DEFAULT '0',
    fee_percentage      INTEGER NOT NULL DEFAULT 0,
    can_mint_more       BOOLEAN NOT NULL DEFAULT FALSE,
    basis_point_divisor INTEGER NOT NULL DEFAULT 10000,
    done                BOOLEAN NOT NULL DEFAULT FALSE,
    started_at          INTEGER NOT NULL DEFAULT 0,
    created_at          TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tokenledger_commits_done ON tokenledger_commits (done, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokenledger_commits`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokenledger_balances",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokenledger_balances (
    account TEXT NOT NULL,
    seq     INTEGER NOT NULL,
    amount  TEXT NOT NULL,
    PRIMARY KEY (account, seq)
);

CREATE INDEX IF NOT EXISTS idx_tokenledger_balances_seq ON tokenledger_balances (seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokenledger_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokenledger_allowances",
			Version: "20260301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokenledger_allowances (
    owner   TEXT NOT NULL,
    spender TEXT NOT NULL,
    seq     INTEGER NOT NULL,
    amount  TEXT NOT NULL,
    PRIMARY KEY (owner, spender, seq)
);

CREATE INDEX IF NOT EXISTS idx_tokenledger_allowances_seq ON tokenledger_allowances (seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokenledger_allowances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tokenledger_events",
			Version: "20260301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tokenledger_events (
    id         TEXT PRIMARY KEY,
    seq        INTEGER NOT NULL,
    idx        INTEGER NOT NULL,
    kind       TEXT NOT NULL,
    caller     TEXT NOT NULL DEFAULT '',
    from_addr  TEXT NOT NULL DEFAULT '',
    to_addr    TEXT NOT NULL DEFAULT '',
    value      TEXT NOT NULL DEFAULT '0',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tokenledger_events_seq_idx ON tokenledger_events (seq, idx);
CREATE INDEX IF NOT EXISTS idx_tokenledger_events_kind ON tokenledger_events (kind, seq);
CREATE INDEX IF NOT EXISTS idx_tokenledger_events_from ON tokenledger_events (from_addr, seq);
CREATE INDEX IF NOT EXISTS idx_tokenledger_events_to ON tokenledger_events (to_addr, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tokenledger_events`)
				return err
			},
		},
	)
}
