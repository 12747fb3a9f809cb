/**
 * @description
 * This file implements the data access layer for checklists. Task lists are
 * stored as a JSONB array in display order; saves are last-write-wins, which
 * is acceptable because a single user drives their own checklist serially
 * through one conversation.
 */
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/focusly/coach-service/internal/domain"
)

// ChecklistRepository handles database operations for checklists.
type ChecklistRepository struct {
	db *pgxpool.Pool
}

// NewChecklistRepository creates a new checklist repository.
func NewChecklistRepository(db *pgxpool.Pool) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

func scanChecklist(row pgx.Row) (*domain.Checklist, error) {
	var (
		c         domain.Checklist
		tasksJSON []byte
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Date, &c.WeeklyGoal, &c.CheckedIn, &tasksJSON, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChecklistNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(tasksJSON, &c.Tasks); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID retrieves a checklist by its id.
func (r *ChecklistRepository) GetByID(ctx context.Context, id string) (*domain.Checklist, error) {
	query := `
        SELECT id, user_id, date, weekly_goal, checked_in, tasks, created_at
        FROM checklists
        WHERE id = $1
    `
	return scanChecklist(r.db.QueryRow(ctx, query, id))
}

// GetByUserAndDate retrieves the checklist for one user and one calendar day.
func (r *ChecklistRepository) GetByUserAndDate(ctx context.Context, userID int64, day time.Time) (*domain.Checklist, error) {
	query := `
        SELECT id, user_id, date, weekly_goal, checked_in, tasks, created_at
        FROM checklists
        WHERE user_id = $1 AND date = $2::date
    `
	return scanChecklist(r.db.QueryRow(ctx, query, userID, day))
}

// Create inserts a new checklist. The UNIQUE (user_id, date) constraint
// guarantees at most one checklist per user per day; on conflict the existing
// row is returned untouched so concurrent creates converge on one document.
func (r *ChecklistRepository) Create(ctx context.Context, c *domain.Checklist) (*domain.Checklist, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	tasksJSON, err := json.Marshal(taskSlice(c.Tasks))
	if err != nil {
		return nil, err
	}

	query := `
        INSERT INTO checklists (id, user_id, date, weekly_goal, checked_in, tasks)
        VALUES ($1, $2, $3::date, $4, $5, $6)
        ON CONFLICT (user_id, date) DO UPDATE SET user_id = EXCLUDED.user_id
        RETURNING id, user_id, date, weekly_goal, checked_in, tasks, created_at
    `
	return scanChecklist(r.db.QueryRow(ctx, query, c.ID, c.UserID, c.Date, c.WeeklyGoal, c.CheckedIn, tasksJSON))
}

// Save persists the mutable fields of a checklist.
func (r *ChecklistRepository) Save(ctx context.Context, c *domain.Checklist) error {
	tasksJSON, err := json.Marshal(taskSlice(c.Tasks))
	if err != nil {
		return err
	}

	query := `
        UPDATE checklists
        SET weekly_goal = $2, checked_in = $3, tasks = $4
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, c.ID, c.WeeklyGoal, c.CheckedIn, tasksJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChecklistNotFound
	}
	return nil
}

// taskSlice normalizes a nil task list to an empty array so the JSONB column
// never stores SQL null.
func taskSlice(tasks []domain.Task) []domain.Task {
	if tasks == nil {
		return []domain.Task{}
	}
	return tasks
}
