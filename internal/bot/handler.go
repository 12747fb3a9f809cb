/**
 * @description
 * Telegram update loop and command handling. Updates arrive over long
 * polling and are processed one at a time; every error in a user's
 * processing is converted to a canned reply at that user's boundary and
 * never crashes the loop.
 *
 * Callback queries carry action tokens (verb:checklistID[:taskIndex]) which
 * are decoded here and dispatched synchronously into the checklist
 * lifecycle.
 */
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/focusly/coach-service/internal/app"
	"github.com/focusly/coach-service/internal/domain"
	"github.com/focusly/coach-service/pkg/ratelimit"
)

const (
	replyProviderDown   = "The assistant is unavailable right now. Try /generate again in a bit, or add tasks by sending them as plain messages."
	replyFrozen         = "Today's checklist is already checked in — it's frozen for history. A fresh one starts at midnight."
	replyAlreadyChecked = "You already checked in today. See you tomorrow!"
	replySomethingWrong = "Something went wrong on my end. Please try that again."
)

// Handler processes Telegram updates.
type Handler struct {
	api           *tgbotapi.BotAPI
	users         app.UserStore
	checklists    app.ChecklistStore
	lifecycle     *app.ChecklistLifecycle
	policy        *app.AccessPolicy
	limiter       *ratelimit.Limiter
	generateLimit int
	logger        *slog.Logger
}

// NewHandler creates the update handler. limiter may be nil.
func NewHandler(api *tgbotapi.BotAPI, users app.UserStore, checklists app.ChecklistStore, lifecycle *app.ChecklistLifecycle, policy *app.AccessPolicy, limiter *ratelimit.Limiter, generateLimit int, logger *slog.Logger) *Handler {
	return &Handler{
		api:           api,
		users:         users,
		checklists:    checklists,
		lifecycle:     lifecycle,
		policy:        policy,
		limiter:       limiter,
		generateLimit: generateLimit,
		logger:        logger,
	}
}

// Run consumes updates until the context is cancelled.
func (h *Handler) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := h.api.GetUpdatesChan(cfg)

	h.logger.Info("telegram update loop started", "bot", h.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			h.logger.Info("telegram update loop stopped")
			return
		case update := <-updates:
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user, err := h.users.FindOrCreate(ctx, msg.From.ID)
	if err != nil {
		h.logger.Error("failed to load user", "user_id", msg.From.ID, "error", err)
		h.reply(msg.Chat.ID, replySomethingWrong)
		return
	}

	now := time.Now()
	switch msg.Command() {
	case "start":
		h.reply(msg.Chat.ID, "Welcome to Focusly! I'm your accountability coach. Tell me your current goal with /focus <goal> and I'll build daily checklists around it.")
	case "focus":
		h.handleFocus(ctx, user, msg)
	case "today":
		h.handleToday(ctx, user, msg.Chat.ID, now)
	case "generate":
		h.handleGenerate(ctx, user, msg.Chat.ID, now)
	case "checkin":
		h.handleCheckIn(ctx, user, msg.Chat.ID, now)
	case "status":
		h.handleStatus(user, msg.Chat.ID, now)
	case "":
		h.handleAddTask(ctx, user, msg, now)
	default:
		h.reply(msg.Chat.ID, "I don't know that command. Try /today, /generate, /checkin or /status.")
	}
}

func (h *Handler) handleFocus(ctx context.Context, user *domain.User, msg *tgbotapi.Message) {
	focus := strings.TrimSpace(msg.CommandArguments())
	if focus == "" {
		h.reply(msg.Chat.ID, "Tell me what to hold you to: /focus <your goal>")
		return
	}

	user.Focus = focus
	user.OnboardingComplete = true
	if err := h.users.Save(ctx, user); err != nil {
		h.logger.Error("failed to save focus", "user_id", user.TelegramID, "error", err)
		h.reply(msg.Chat.ID, replySomethingWrong)
		return
	}
	h.reply(msg.Chat.ID, fmt.Sprintf("Locked in: %q. Send /generate and I'll draft today's checklist.", focus))
}

func (h *Handler) handleToday(ctx context.Context, user *domain.User, chatID int64, now time.Time) {
	checklist, err := h.lifecycle.GetOrCreateToday(ctx, user, now)
	if err != nil {
		h.logger.Error("failed to load today's checklist", "user_id", user.TelegramID, "error", err)
		h.reply(chatID, replySomethingWrong)
		return
	}
	h.sendChecklist(chatID, checklist)
}

func (h *Handler) handleGenerate(ctx context.Context, user *domain.User, chatID int64, now time.Time) {
	if count, retryAfter, err := h.limiter.Consume(ctx, "generate", fmt.Sprint(user.TelegramID), h.generateLimit, time.Minute); err != nil {
		h.logger.Error("rate limiter unavailable, allowing request", "user_id", user.TelegramID, "error", err)
	} else if h.generateLimit > 0 && count > h.generateLimit {
		h.reply(chatID, fmt.Sprintf("Easy! Try again in %d seconds.", retryAfter))
		return
	}

	checklist, err := h.lifecycle.GetOrCreateToday(ctx, user, now)
	if err != nil {
		h.logger.Error("failed to load today's checklist", "user_id", user.TelegramID, "error", err)
		h.reply(chatID, replySomethingWrong)
		return
	}
	if checklist.CheckedIn {
		h.reply(chatID, replyFrozen)
		return
	}

	drafts, decision, err := h.lifecycle.GenerateTasks(ctx, user, user.Focus, checklist.IncompleteTexts(), now)
	if err != nil {
		if errors.Is(err, domain.ErrProvider) {
			h.reply(chatID, replyProviderDown)
		} else {
			h.logger.Error("task generation failed", "user_id", user.TelegramID, "error", err)
			h.reply(chatID, replySomethingWrong)
		}
		return
	}

	if _, err := h.lifecycle.MergeTasks(ctx, checklist, drafts); err != nil {
		h.logger.Error("failed to merge generated tasks", "user_id", user.TelegramID, "error", err)
		h.reply(chatID, replySomethingWrong)
		return
	}

	if !decision.Allowed {
		h.sendDeniedNotice(chatID, checklist, decision.Reason)
		return
	}
	h.sendChecklist(chatID, checklist)
}

func (h *Handler) sendDeniedNotice(chatID int64, checklist *domain.Checklist, reason error) {
	var note string
	switch {
	case errors.Is(reason, domain.ErrDailyLimitReached):
		note = "You've used today's AI drafts. Here's a manual planning skeleton instead — or upgrade for more."
	case errors.Is(reason, domain.ErrWeeklyLimitReached):
		note = "You've used this week's AI drafts. Here's a manual planning skeleton instead — premium removes the limit."
	default:
		note = "Your trial has ended. Here's a manual planning skeleton — subscribe to keep the AI coach."
	}

	keyboard := app.ChecklistKeyboard(checklist)
	keyboard = append(keyboard, []domain.Button{{
		Label: "⭐ Subscribe",
		Token: domain.EncodeActionToken(domain.VerbSubscribe, checklist.ID, -1),
	}})
	h.send(chatID, note+"\n\n"+renderChecklistText(checklist), keyboard)
}

func (h *Handler) handleCheckIn(ctx context.Context, user *domain.User, chatID int64, now time.Time) {
	checklist, err := h.lifecycle.GetOrCreateToday(ctx, user, now)
	if err != nil {
		h.logger.Error("failed to load today's checklist", "user_id", user.TelegramID, "error", err)
		h.reply(chatID, replySomethingWrong)
		return
	}

	summary, err := h.lifecycle.SubmitCheckIn(ctx, user, checklist, now)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyCheckedIn) {
			h.reply(chatID, replyAlreadyChecked)
		} else {
			h.logger.Error("check-in failed", "user_id", user.TelegramID, "error", err)
			h.reply(chatID, replySomethingWrong)
		}
		return
	}
	h.reply(chatID, summary.Message)
}

func (h *Handler) handleStatus(user *domain.User, chatID int64, now time.Time) {
	decision := h.policy.Evaluate(user, now)

	var b strings.Builder
	fmt.Fprintf(&b, "Subscription: %s", user.SubscriptionStatus)
	if user.SubscriptionStatus == domain.StatusActive {
		fmt.Fprintf(&b, " (%s plan)", user.SubscriptionPlan)
	}
	if user.SubscriptionExpiresAt != nil {
		fmt.Fprintf(&b, ", renews by %s", user.SubscriptionExpiresAt.Format("Jan 2"))
	}
	b.WriteString("\n")
	if decision.Allowed {
		fmt.Fprintf(&b, "AI drafts used this period: %d", user.UsageCount)
	} else {
		fmt.Fprintf(&b, "AI drafts are unavailable: %v", decision.Reason)
	}
	if user.Focus != "" {
		fmt.Fprintf(&b, "\nCurrent focus: %s", user.Focus)
	}
	h.reply(chatID, b.String())
}

// handleAddTask treats a plain text message as a task for today's checklist.
func (h *Handler) handleAddTask(ctx context.Context, user *domain.User, msg *tgbotapi.Message, now time.Time) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	checklist, err := h.lifecycle.GetOrCreateToday(ctx, user, now)
	if err != nil {
		h.logger.Error("failed to load today's checklist", "user_id", user.TelegramID, "error", err)
		h.reply(msg.Chat.ID, replySomethingWrong)
		return
	}

	added, err := h.lifecycle.MergeTasks(ctx, checklist, []domain.Task{{Text: text}})
	if err != nil {
		if errors.Is(err, domain.ErrChecklistFrozen) {
			h.reply(msg.Chat.ID, replyFrozen)
		} else {
			h.logger.Error("failed to add task", "user_id", user.TelegramID, "error", err)
			h.reply(msg.Chat.ID, replySomethingWrong)
		}
		return
	}
	if added == 0 {
		h.reply(msg.Chat.ID, "That task is already on today's list.")
		return
	}
	h.sendChecklist(msg.Chat.ID, checklist)
}

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	token, err := domain.DecodeActionToken(cq.Data)
	if err != nil {
		h.answer(cq.ID, "That button has expired.")
		return
	}
	if cq.Message == nil {
		h.answer(cq.ID, "")
		return
	}
	chatID, messageID := cq.Message.Chat.ID, cq.Message.MessageID

	if token.Verb == domain.VerbSubscribe {
		h.answer(cq.ID, "")
		h.reply(chatID, "Upgrade at focusly.app/subscribe — basic gives 10 AI drafts a week, premium is unlimited. Your plan activates the moment payment lands.")
		return
	}

	user, err := h.users.GetByTelegramID(ctx, cq.From.ID)
	if err != nil {
		h.answer(cq.ID, replySomethingWrong)
		return
	}

	checklist, err := h.callbackChecklist(ctx, token, user.TelegramID)
	if err != nil {
		h.answer(cq.ID, "That checklist is gone.")
		return
	}

	switch token.Verb {
	case domain.VerbToggle:
		err := h.lifecycle.ToggleTask(ctx, checklist, token.TaskIndex)
		switch {
		case errors.Is(err, domain.ErrChecklistFrozen):
			h.answer(cq.ID, replyAlreadyChecked)
			return
		case errors.Is(err, domain.ErrTaskNotFound):
			h.answer(cq.ID, "That task no longer exists.")
			return
		case err != nil:
			h.logger.Error("toggle failed", "user_id", user.TelegramID, "error", err)
			h.answer(cq.ID, replySomethingWrong)
			return
		}
		h.answer(cq.ID, "")
		h.editChecklist(chatID, messageID, checklist)

	case domain.VerbSubmit:
		summary, err := h.lifecycle.SubmitCheckIn(ctx, user, checklist, time.Now())
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyCheckedIn) {
				h.answer(cq.ID, replyAlreadyChecked)
			} else {
				h.logger.Error("check-in failed", "user_id", user.TelegramID, "error", err)
				h.answer(cq.ID, replySomethingWrong)
			}
			return
		}
		h.answer(cq.ID, "Checked in!")
		edit := tgbotapi.NewEditMessageText(chatID, messageID, summary.Message)
		if _, err := h.api.Send(edit); err != nil {
			h.logger.Error("failed to edit message", "user_id", user.TelegramID, "error", err)
		}

	case domain.VerbRefresh:
		h.answer(cq.ID, "")
		h.editChecklist(chatID, messageID, checklist)
	}
}

// callbackChecklist resolves the checklist a token points at. Callback data
// is attacker-controlled, so a token referencing another user's checklist is
// treated the same as a missing one.
func (h *Handler) callbackChecklist(ctx context.Context, token domain.ActionToken, callerID int64) (*domain.Checklist, error) {
	checklist, err := h.checklists.GetByID(ctx, token.ChecklistID)
	if err != nil {
		return nil, err
	}
	if checklist.UserID != callerID {
		return nil, domain.ErrChecklistNotFound
	}
	return checklist, nil
}

func (h *Handler) sendChecklist(chatID int64, checklist *domain.Checklist) {
	h.send(chatID, renderChecklistText(checklist), app.ChecklistKeyboard(checklist))
}

func (h *Handler) editChecklist(chatID int64, messageID int, checklist *domain.Checklist) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		renderChecklistText(checklist), toInlineKeyboard(app.ChecklistKeyboard(checklist)))
	if _, err := h.api.Send(edit); err != nil {
		h.logger.Error("failed to edit checklist message", "chat_id", chatID, "error", err)
	}
}

func renderChecklistText(c *domain.Checklist) string {
	var b strings.Builder
	b.WriteString("Your checklist for ")
	b.WriteString(c.Date.Format("Monday, Jan 2"))
	if c.WeeklyGoal != "" {
		fmt.Fprintf(&b, "\nFocus: %s", c.WeeklyGoal)
	}
	if len(c.Tasks) == 0 {
		b.WriteString("\n\nNo tasks yet. Send /generate or add your own as a message.")
		return b.String()
	}
	fmt.Fprintf(&b, "\n%d of %d done. Tap a task to toggle it.", c.CompletedCount(), len(c.Tasks))
	return b.String()
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(chatID, text, nil)
}

func (h *Handler) send(chatID int64, text string, keyboard [][]domain.Button) {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(keyboard) > 0 {
		msg.ReplyMarkup = toInlineKeyboard(keyboard)
	}
	if _, err := h.api.Send(msg); err != nil {
		h.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (h *Handler) answer(callbackID, text string) {
	if _, err := h.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		h.logger.Error("failed to answer callback", "error", err)
	}
}
