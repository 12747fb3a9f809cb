/**
 * @description
 * Startup schema migration. The service owns two tables: users and
 * checklists. Tasks live embedded in the checklist row as a JSONB array —
 * they have no independent lifecycle and are never queried on their own.
 * The UNIQUE (user_id, date) constraint enforces at most one checklist per
 * user per calendar day.
 */
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    telegram_id             BIGINT PRIMARY KEY,
    focus                   TEXT NOT NULL DEFAULT '',
    timezone                TEXT NOT NULL DEFAULT '',
    subscription_status     TEXT NOT NULL DEFAULT 'trial',
    subscription_plan       TEXT NOT NULL DEFAULT 'none',
    subscription_expires_at TIMESTAMPTZ,
    trial_started_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    usage_count             INT NOT NULL DEFAULT 0,
    usage_period_anchor     TIMESTAMPTZ,
    last_check_in_date      DATE,
    has_checked_in_today    BOOLEAN NOT NULL DEFAULT FALSE,
    onboarding_complete     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS checklists (
    id          UUID PRIMARY KEY,
    user_id     BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
    date        DATE NOT NULL,
    weekly_goal TEXT NOT NULL DEFAULT '',
    checked_in  BOOLEAN NOT NULL DEFAULT FALSE,
    tasks       JSONB NOT NULL DEFAULT '[]',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, date)
);
`

// Migrate creates the service's tables if they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
