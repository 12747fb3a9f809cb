/**
 * @description
 * This file implements the data access layer for users. It contains all the
 * SQL queries and logic for reading and mutating user rows, including the
 * bulk updates driven by the scheduler (flag reset, subscription expiry,
 * retention pruning).
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/focusly/coach-service/internal/domain"
)

const userColumns = `telegram_id, focus, timezone, subscription_status, subscription_plan,
    subscription_expires_at, trial_started_at, usage_count, usage_period_anchor,
    last_check_in_date, has_checked_in_today, onboarding_complete, created_at`

// UserRepository handles database operations for users.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.TelegramID,
		&u.Focus,
		&u.Timezone,
		&u.SubscriptionStatus,
		&u.SubscriptionPlan,
		&u.SubscriptionExpiresAt,
		&u.TrialStartedAt,
		&u.UsageCount,
		&u.UsagePeriodAnchor,
		&u.LastCheckInDate,
		&u.HasCheckedInToday,
		&u.OnboardingComplete,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByTelegramID retrieves a user by their Telegram id.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	return scanUser(r.db.QueryRow(ctx, query, telegramID))
}

// FindOrCreate returns the user for the given Telegram id, creating a fresh
// trial user on first contact. The upsert makes first contact idempotent.
func (r *UserRepository) FindOrCreate(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `
        INSERT INTO users (telegram_id)
        VALUES ($1)
        ON CONFLICT (telegram_id) DO UPDATE SET telegram_id = EXCLUDED.telegram_id
        RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, telegramID))
}

// Save persists the mutable fields of a user.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	query := `
        UPDATE users SET
            focus = $2,
            timezone = $3,
            subscription_status = $4,
            subscription_plan = $5,
            subscription_expires_at = $6,
            usage_count = $7,
            usage_period_anchor = $8,
            last_check_in_date = $9,
            has_checked_in_today = $10,
            onboarding_complete = $11
        WHERE telegram_id = $1
    `
	tag, err := r.db.Exec(ctx, query,
		u.TelegramID,
		u.Focus,
		u.Timezone,
		u.SubscriptionStatus,
		u.SubscriptionPlan,
		u.SubscriptionExpiresAt,
		u.UsageCount,
		u.UsagePeriodAnchor,
		u.LastCheckInDate,
		u.HasCheckedInToday,
		u.OnboardingComplete,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListAll returns every user, for scheduler sweeps.
func (r *UserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY telegram_id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ResetCheckInFlags clears the legacy daily check-in flag for all users.
// Runs at the midnight tick.
func (r *UserRepository) ResetCheckInFlags(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET has_checked_in_today = FALSE WHERE has_checked_in_today`)
	return err
}

// ExpireLapsedSubscriptions downgrades active subscriptions whose expiry has
// passed and returns the ids of the affected users.
func (r *UserRepository) ExpireLapsedSubscriptions(ctx context.Context, now time.Time) ([]int64, error) {
	query := `
        UPDATE users
        SET subscription_status = 'expired', subscription_plan = 'none'
        WHERE subscription_status = 'active' AND subscription_expires_at < $1
        RETURNING telegram_id
    `
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCreatedBefore prunes users past the retention window. Checklists are
// removed by the ON DELETE CASCADE on the checklists table.
func (r *UserRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
