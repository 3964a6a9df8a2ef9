package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the credit ledger store (PostgreSQL).
var Migrations = migrate.NewGroup("ledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_ledger_credit",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ledger_credit (
    user_id    TEXT PRIMARY KEY,
    credit     NUMERIC(24,12) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ledger_credit`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_ledger_credit_log",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ledger_credit_log (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL DEFAULT '',
    credit_delta NUMERIC(24,12) NOT NULL DEFAULT 0,
    detail       JSONB NOT NULL DEFAULT '{}',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ledger_credit_log_user ON ledger_credit_log (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_ledger_credit_log_created ON ledger_credit_log (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ledger_credit_log`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_ledger_trade_ticket",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ledger_trade_ticket (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL DEFAULT '',
    amount     NUMERIC(24,12) NOT NULL DEFAULT 0,
    detail     JSONB NOT NULL DEFAULT '{}',
    callback   JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ledger_trade_ticket_created ON ledger_trade_ticket (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ledger_trade_ticket`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_ledger_redemption_code",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS ledger_redemption_code (
    code        TEXT PRIMARY KEY,
    purpose     TEXT NOT NULL DEFAULT '',
    amount      NUMERIC(24,12) NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    expired_at  TIMESTAMPTZ,
    user_id     TEXT,
    received_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ledger_redemption_purpose ON ledger_redemption_code (purpose);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS ledger_redemption_code`)
				return err
			},
		},
	)
}
