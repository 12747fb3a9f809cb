/**
 * @description
 * This file contains the daily checklist lifecycle: finding or creating the
 * checklist for "today", generating tasks (gated by the access policy),
 * toggling task completion, carrying incomplete tasks over to the next day,
 * and closing a day out with a check-in summary.
 *
 * Key rules:
 * - One checklist per (user, calendar date), date resolved in the user's
 *   configured timezone.
 * - Once checked in, a checklist is frozen: toggles are rejected.
 * - A denied or failed generation never consumes quota; usage is recorded
 *   only after the provider returns a response.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/focusly/coach-service/internal/domain"
	"github.com/focusly/coach-service/pkg/aiclient"
)

// manualFallback is returned when the access policy denies AI generation.
// The user still gets a plan skeleton they can fill in by hand.
var manualFallback = []string{
	"Write down your single most important task for today",
	"Pick two smaller tasks that move your goal forward",
	"Decide on one thing you will explicitly not do today",
}

// emptyResponseFallback is the single line returned when the provider
// answered but nothing in the response looked like a task list.
const emptyResponseFallback = "Plan your top three priorities for today manually — the assistant could not draft them this time"

// ChecklistLifecycle implements the daily check-in state machine.
type ChecklistLifecycle struct {
	users      UserStore
	checklists ChecklistStore
	policy     *AccessPolicy
	ai         Completer
	defaultTZ  *time.Location
	logger     *slog.Logger
}

// NewChecklistLifecycle creates the lifecycle service.
func NewChecklistLifecycle(users UserStore, checklists ChecklistStore, policy *AccessPolicy, ai Completer, defaultTZ *time.Location, logger *slog.Logger) *ChecklistLifecycle {
	if defaultTZ == nil {
		defaultTZ = time.UTC
	}
	return &ChecklistLifecycle{
		users:      users,
		checklists: checklists,
		policy:     policy,
		ai:         ai,
		defaultTZ:  defaultTZ,
		logger:     logger,
	}
}

// Day truncates a moment to the user's calendar day.
func (l *ChecklistLifecycle) Day(user *domain.User, at time.Time) time.Time {
	local := at.In(user.Location(l.defaultTZ))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// GetOrCreateToday finds the checklist for the user's current calendar day,
// creating an empty one (with the weekly goal snapshotted from the user's
// focus) if none exists yet.
func (l *ChecklistLifecycle) GetOrCreateToday(ctx context.Context, user *domain.User, now time.Time) (*domain.Checklist, error) {
	day := l.Day(user, now)

	checklist, err := l.checklists.GetByUserAndDate(ctx, user.TelegramID, day)
	if err == nil {
		return checklist, nil
	}
	if err != domain.ErrChecklistNotFound {
		return nil, err
	}

	return l.checklists.Create(ctx, &domain.Checklist{
		UserID:     user.TelegramID,
		Date:       day,
		WeeklyGoal: user.Focus,
		Tasks:      []domain.Task{},
	})
}

// GenerateTasks produces task drafts for the user and returns the access
// decision the drafts were produced under, so callers render denial notices
// from the same evaluation that gated the call. When the policy denies, a
// fixed manual-planning fallback is returned without touching the provider or
// the quota. When allowed, the provider is called once (the client retries
// internally), the response is parsed into list items, and one unit of quota
// is consumed.
func (l *ChecklistLifecycle) GenerateTasks(ctx context.Context, user *domain.User, goal string, previousIncomplete []string, now time.Time) ([]domain.Task, Decision, error) {
	decision := l.policy.Evaluate(user, now)
	if !decision.Allowed {
		l.logger.Info("ai generation denied, returning manual fallback",
			"user_id", user.TelegramID, "reason", decision.Reason)
		drafts := make([]domain.Task, 0, len(manualFallback))
		for _, text := range manualFallback {
			drafts = append(drafts, domain.Task{Text: text})
		}
		return drafts, decision, nil
	}

	prompt := buildTaskPrompt(goal, previousIncomplete)
	response, err := l.ai.Complete(ctx, prompt, ModelForTier(decision.Tier))
	if err != nil && !errors.Is(err, aiclient.ErrEmptyResponse) {
		return nil, decision, fmt.Errorf("%w: generating tasks for user %d: %v", domain.ErrProvider, user.TelegramID, err)
	}

	// The provider answered, so the call counts against quota even when the
	// answer is empty or unusable.
	l.policy.RecordUsage(user, now)
	if err := l.users.Save(ctx, user); err != nil {
		return nil, decision, fmt.Errorf("recording usage for user %d: %w", user.TelegramID, err)
	}

	lines := parseTaskLines(response)
	if len(lines) == 0 {
		l.logger.Warn("ai response contained no usable task lines", "user_id", user.TelegramID)
		return []domain.Task{{Text: emptyResponseFallback}}, decision, nil
	}

	drafts := make([]domain.Task, 0, len(lines))
	for _, text := range lines {
		drafts = append(drafts, domain.Task{Text: text})
	}
	return drafts, decision, nil
}

// ToggleTask flips the completion state of one task and persists the
// checklist. The flip is not idempotent: each call inverts the state.
func (l *ChecklistLifecycle) ToggleTask(ctx context.Context, checklist *domain.Checklist, taskIndex int) error {
	if checklist.CheckedIn {
		return domain.ErrChecklistFrozen
	}
	if taskIndex < 0 || taskIndex >= len(checklist.Tasks) {
		return domain.ErrTaskNotFound
	}

	checklist.Tasks[taskIndex].Completed = !checklist.Tasks[taskIndex].Completed
	return l.checklists.Save(ctx, checklist)
}

// CarryOverIncomplete moves the incomplete tasks of fromDay into toDay's
// checklist, marking them carried over and resetting completion. Tasks whose
// text already exists in the destination are skipped. Returns the destination
// checklist, or nil when there was nothing to carry.
func (l *ChecklistLifecycle) CarryOverIncomplete(ctx context.Context, user *domain.User, fromDay, toDay time.Time) (*domain.Checklist, error) {
	source, err := l.checklists.GetByUserAndDate(ctx, user.TelegramID, fromDay)
	if err != nil {
		if err == domain.ErrChecklistNotFound {
			return nil, nil
		}
		return nil, err
	}

	incomplete := source.IncompleteTexts()
	if len(incomplete) == 0 {
		return nil, nil
	}

	dest, err := l.checklists.GetByUserAndDate(ctx, user.TelegramID, toDay)
	if err != nil {
		if err != domain.ErrChecklistNotFound {
			return nil, err
		}
		dest, err = l.checklists.Create(ctx, &domain.Checklist{
			UserID:     user.TelegramID,
			Date:       toDay,
			WeeklyGoal: user.Focus,
			Tasks:      []domain.Task{},
		})
		if err != nil {
			return nil, err
		}
	}

	added := 0
	for _, text := range incomplete {
		if dest.HasTaskText(text) {
			continue
		}
		dest.Tasks = append(dest.Tasks, domain.Task{Text: text, CarriedOver: true})
		added++
	}
	if added == 0 {
		return dest, nil
	}

	if err := l.checklists.Save(ctx, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// MergeTasks appends drafts whose text is not already present and persists
// the checklist. Returns how many tasks were added.
func (l *ChecklistLifecycle) MergeTasks(ctx context.Context, checklist *domain.Checklist, drafts []domain.Task) (int, error) {
	if checklist.CheckedIn {
		return 0, domain.ErrChecklistFrozen
	}

	added := 0
	for _, draft := range drafts {
		if checklist.HasTaskText(draft.Text) {
			continue
		}
		checklist.Tasks = append(checklist.Tasks, draft)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, l.checklists.Save(ctx, checklist)
}

// SubmitCheckIn freezes the checklist, stamps the user's check-in state and
// returns a completion summary. Checking in is irreversible for that day.
func (l *ChecklistLifecycle) SubmitCheckIn(ctx context.Context, user *domain.User, checklist *domain.Checklist, now time.Time) (*domain.CheckInSummary, error) {
	if checklist.CheckedIn {
		return nil, domain.ErrAlreadyCheckedIn
	}

	checklist.CheckedIn = true
	if err := l.checklists.Save(ctx, checklist); err != nil {
		checklist.CheckedIn = false
		return nil, err
	}

	day := l.Day(user, now)
	user.LastCheckInDate = &day
	user.HasCheckedInToday = true
	if err := l.users.Save(ctx, user); err != nil {
		l.logger.Error("failed to stamp user check-in state", "user_id", user.TelegramID, "error", err)
	}

	summary := &domain.CheckInSummary{
		Completed: checklist.CompletedCount(),
		Total:     len(checklist.Tasks),
	}
	summary.Message = completionMessage(summary.Completed, summary.Total)
	return summary, nil
}

// completionMessage picks one of four canned tiers purely from the ratio.
func completionMessage(completed, total int) string {
	switch {
	case total == 0:
		return "Checked in with an empty list. Tomorrow, give yourself at least one task to aim at."
	case completed == total:
		return "Everything done — a perfect day. Keep that streak alive tomorrow!"
	case completed >= 1:
		return fmt.Sprintf("You finished %d of %d tasks. Progress over perfection — the rest carries over.", completed, total)
	default:
		return fmt.Sprintf("0 of %d done today. That happens. They'll be waiting for you tomorrow morning.", total)
	}
}

// buildTaskPrompt embeds the goal and any carried-over tasks into the
// generation prompt. The provider is asked for plain list items so
// parseTaskLines can pick them out.
func buildTaskPrompt(goal string, previousIncomplete []string) string {
	var b strings.Builder
	b.WriteString("You are an accountability coach. Draft between 3 and 5 short, imperative daily tasks")
	if goal != "" {
		b.WriteString(" that move this goal forward: ")
		b.WriteString(goal)
	}
	b.WriteString(".\n")
	if len(previousIncomplete) > 0 {
		b.WriteString("Unfinished from yesterday, fold these in where they still matter:\n")
		for _, t := range previousIncomplete {
			b.WriteString("- ")
			b.WriteString(t)
			b.WriteString("\n")
		}
	}
	b.WriteString("Answer with one task per line, each starting with \"- \". No other text.")
	return b.String()
}

// parseTaskLines keeps only lines that look like list items, strips their
// markers and caps the result at five tasks.
func parseTaskLines(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		text, ok := stripListMarker(strings.TrimSpace(line))
		if !ok || text == "" {
			continue
		}
		out = append(out, text)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// stripListMarker recognizes "-", "*", "•" and "1."-style prefixes.
func stripListMarker(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if i > 0 && (r == '.' || r == ')') {
			return strings.TrimSpace(line[i+1:]), true
		}
		break
	}
	return "", false
}
