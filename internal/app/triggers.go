/**
 * @description
 * The trigger decision table: a pure function that maps (user, today's
 * checklist, tick time) to the action due at that tick. Wall-clock delivery
 * is the cron scheduler's concern; everything decidable lives here so it can
 * be tested deterministically.
 *
 * Rows are evaluated in table order and the first match wins. The repeated
 * check-in nudges at 15:00, 18:00 and 21:00 are deliberate retry-by-
 * repetition: they fire at every listed tick until the user checks in.
 */
package app

import (
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

// Action is a scheduler decision for one user at one tick.
type Action int

const (
	ActionNone Action = iota
	ActionResetCheckInFlag
	ActionPromptSetFocus
	ActionPromptSubmitTasks
	ActionPromptCheckIn
	ActionGenerateWeeklyChecklist
	ActionWeeklyReflection
)

// String returns the action name for logs.
func (a Action) String() string {
	switch a {
	case ActionResetCheckInFlag:
		return "reset_check_in_flag"
	case ActionPromptSetFocus:
		return "prompt_set_focus"
	case ActionPromptSubmitTasks:
		return "prompt_submit_tasks"
	case ActionPromptCheckIn:
		return "prompt_check_in"
	case ActionGenerateWeeklyChecklist:
		return "generate_weekly_checklist"
	case ActionWeeklyReflection:
		return "weekly_reflection"
	}
	return "none"
}

// DecideAction evaluates the tick table for one user. checklist is today's
// checklist or nil when none exists yet. now is the tick's wall-clock time.
func DecideAction(user *domain.User, checklist *domain.Checklist, now time.Time) Action {
	hour, minute := now.Hour(), now.Minute()
	if minute != 0 {
		return ActionNone
	}

	switch {
	case hour == 0:
		return ActionResetCheckInFlag
	case hour == 8 && checklist == nil:
		return ActionPromptSetFocus
	case hour == 9 && checklist != nil && len(checklist.Tasks) == 0:
		return ActionPromptSubmitTasks
	case (hour == 15 || hour == 18 || hour == 21) && checklist != nil && !checklist.CheckedIn:
		return ActionPromptCheckIn
	case hour == 20 && !user.HasCheckedInToday:
		return ActionPromptCheckIn
	case now.Weekday() == time.Monday && hour == 8 && user.Subscribed():
		return ActionGenerateWeeklyChecklist
	case now.Weekday() == time.Sunday && hour == 9 && user.OnboardingComplete:
		return ActionWeeklyReflection
	}
	return ActionNone
}
