/**
 * @description
 * Notification dispatch: formats the message for a decided action and sends
 * it over the messaging channel. A send failure is logged and swallowed — it
 * is isolated to that user and must never block the rest of a scheduler
 * sweep.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/focusly/coach-service/internal/domain"
)

// DispatchContext carries the optional state a template can render.
type DispatchContext struct {
	Checklist *domain.Checklist
}

// Dispatcher formats and sends notifications for scheduler actions.
type Dispatcher struct {
	channel MessagingChannel
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channel.
func NewDispatcher(channel MessagingChannel, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{channel: channel, logger: logger}
}

// Dispatch sends the message for one action to one user. Always returns nil;
// failures are logged so the caller's sweep continues.
func (d *Dispatcher) Dispatch(ctx context.Context, user *domain.User, action Action, dctx DispatchContext) error {
	text, keyboard := renderAction(user, action, dctx)
	if text == "" {
		return nil
	}

	if err := d.channel.SendMessage(ctx, user.TelegramID, text, keyboard); err != nil {
		d.logger.Error("failed to send notification",
			"user_id", user.TelegramID, "action", action.String(), "error", err)
	}
	return nil
}

func renderAction(user *domain.User, action Action, dctx DispatchContext) (string, [][]domain.Button) {
	switch action {
	case ActionPromptSetFocus:
		return "Good morning! What's your focus for today? Send /focus followed by your goal and I'll build your checklist around it.", nil
	case ActionPromptSubmitTasks:
		return "Your checklist for today is still empty. Send /generate and I'll draft tasks for your goal, or add your own.", nil
	case ActionPromptCheckIn:
		if dctx.Checklist != nil {
			return "How did today go? Tap the tasks you finished, then check in.", ChecklistKeyboard(dctx.Checklist)
		}
		return "How did today go? Send /checkin to close out your day.", nil
	case ActionGenerateWeeklyChecklist:
		text := "A new week starts now."
		if user.Focus != "" {
			text = fmt.Sprintf("A new week starts now. Your focus: %s.", user.Focus)
		}
		if dctx.Checklist != nil && len(dctx.Checklist.Tasks) > 0 {
			return text + " Here's your plan for today:", ChecklistKeyboard(dctx.Checklist)
		}
		return text + " Send /generate to plan your first day.", nil
	case ActionWeeklyReflection:
		return "Sunday reflection: what moved you closer to your goal this week, and what got in the way? A minute of honesty now makes Monday easier.", nil
	}
	return "", nil
}

// ChecklistKeyboard builds the inline keyboard for a checklist: one toggle
// button per task in display order, then a submit/refresh row.
func ChecklistKeyboard(c *domain.Checklist) [][]domain.Button {
	rows := make([][]domain.Button, 0, len(c.Tasks)+1)
	for i, task := range c.Tasks {
		mark := "☐"
		if task.Completed {
			mark = "✅"
		}
		label := fmt.Sprintf("%s %s", mark, task.Text)
		if task.CarriedOver {
			label += " ↻"
		}
		rows = append(rows, []domain.Button{{
			Label: label,
			Token: domain.EncodeActionToken(domain.VerbToggle, c.ID, i),
		}})
	}
	rows = append(rows, []domain.Button{
		{Label: "✔ Check in", Token: domain.EncodeActionToken(domain.VerbSubmit, c.ID, -1)},
		{Label: "↻ Refresh", Token: domain.EncodeActionToken(domain.VerbRefresh, c.ID, -1)},
	})
	return rows
}
