/**
 * @description
 * Scheduled job implementations. Each cron tick sweeps the user set and runs
 * the read-decide-send sequence for one user at a time. A failure while
 * processing one user is logged and skipped — it never aborts the sweep.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	users      UserStore
	checklists ChecklistStore
	lifecycle  *ChecklistLifecycle
	dispatcher *Dispatcher
	publisher  EventPublisher
	exchange   string
	retention  time.Duration
	logger     *slog.Logger
}

// NewJobs creates a new jobs runner. publisher may be nil.
func NewJobs(users UserStore, checklists ChecklistStore, lifecycle *ChecklistLifecycle, dispatcher *Dispatcher, publisher EventPublisher, exchange string, retentionDays int, logger *slog.Logger) *Jobs {
	return &Jobs{
		users:      users,
		checklists: checklists,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		publisher:  publisher,
		exchange:   exchange,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
		logger:     logger,
	}
}

// RunTick evaluates the trigger table for every user at the given tick time
// and dispatches whatever is due. Used for all ticks except midnight.
func (j *Jobs) RunTick(now time.Time) {
	ctx := context.Background()

	users, err := j.users.ListAll(ctx)
	if err != nil {
		j.logger.Error("tick sweep failed to list users", "error", err)
		return
	}

	for i := range users {
		user := &users[i]
		if err := j.runUserTick(ctx, user, now); err != nil {
			j.logger.Error("tick processing failed for user",
				"user_id", user.TelegramID, "error", err)
		}
	}
}

func (j *Jobs) runUserTick(ctx context.Context, user *domain.User, now time.Time) error {
	day := j.lifecycle.Day(user, now)
	checklist, err := j.checklists.GetByUserAndDate(ctx, user.TelegramID, day)
	if err != nil {
		if err != domain.ErrChecklistNotFound {
			return err
		}
		checklist = nil
	}

	action := DecideAction(user, checklist, now)
	switch action {
	case ActionNone, ActionResetCheckInFlag:
		// The midnight row is handled in bulk by ResetDailyState.
		return nil
	case ActionGenerateWeeklyChecklist:
		return j.generateWeekly(ctx, user, now)
	default:
		return j.dispatcher.Dispatch(ctx, user, action, DispatchContext{Checklist: checklist})
	}
}

// generateWeekly builds the Monday checklist for a subscribed user: carry
// over what Sunday left unfinished, draft the new tasks, merge, notify.
func (j *Jobs) generateWeekly(ctx context.Context, user *domain.User, now time.Time) error {
	today := j.lifecycle.Day(user, now)
	yesterday := today.AddDate(0, 0, -1)

	if _, err := j.lifecycle.CarryOverIncomplete(ctx, user, yesterday, today); err != nil {
		j.logger.Error("weekly carry-over failed", "user_id", user.TelegramID, "error", err)
	}

	checklist, err := j.lifecycle.GetOrCreateToday(ctx, user, now)
	if err != nil {
		return err
	}

	drafts, _, err := j.lifecycle.GenerateTasks(ctx, user, user.Focus, checklist.IncompleteTexts(), now)
	if err != nil {
		return err
	}
	if _, err := j.lifecycle.MergeTasks(ctx, checklist, drafts); err != nil {
		return err
	}

	return j.dispatcher.Dispatch(ctx, user, ActionGenerateWeeklyChecklist, DispatchContext{Checklist: checklist})
}

// ResetDailyState runs at the midnight tick: clears the legacy check-in flag
// for all users and carries yesterday's incomplete tasks into today.
func (j *Jobs) ResetDailyState(now time.Time) {
	ctx := context.Background()
	j.logger.Info("starting midnight reset")

	if err := j.users.ResetCheckInFlags(ctx); err != nil {
		j.logger.Error("failed to reset check-in flags", "error", err)
	}

	users, err := j.users.ListAll(ctx)
	if err != nil {
		j.logger.Error("midnight sweep failed to list users", "error", err)
		return
	}

	for i := range users {
		user := &users[i]
		today := j.lifecycle.Day(user, now)
		yesterday := today.AddDate(0, 0, -1)
		if _, err := j.lifecycle.CarryOverIncomplete(ctx, user, yesterday, today); err != nil {
			j.logger.Error("carry-over failed for user", "user_id", user.TelegramID, "error", err)
		}
	}

	j.logger.Info("midnight reset finished", "users", len(users))
}

// RunMaintenance expires lapsed subscriptions and prunes users past the
// retention window.
func (j *Jobs) RunMaintenance(now time.Time) {
	ctx := context.Background()
	j.logger.Info("starting maintenance job")

	expired, err := j.users.ExpireLapsedSubscriptions(ctx, now)
	if err != nil {
		j.logger.Error("failed to expire lapsed subscriptions", "error", err)
	} else if len(expired) > 0 {
		j.logger.Info("expired lapsed subscriptions", "count", len(expired))
		if j.publisher != nil {
			for _, id := range expired {
				event := domain.SubscriptionExpiredEvent{UserID: id, ExpiredAt: now}
				if err := j.publisher.Publish(ctx, j.exchange, "subscription.expired", event); err != nil {
					j.logger.Error("failed to publish expiry event", "user_id", id, "error", err)
				}
			}
		}
	}

	pruned, err := j.users.DeleteCreatedBefore(ctx, now.Add(-j.retention))
	if err != nil {
		j.logger.Error("failed to prune retired users", "error", err)
	} else if pruned > 0 {
		j.logger.Info("pruned users past retention window", "count", pruned)
	}

	j.logger.Info("maintenance job finished")
}
