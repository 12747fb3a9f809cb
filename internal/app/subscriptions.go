/**
 * @description
 * Subscription activation. Invoked by the payment webhook after a verified
 * charge.success event: stamps the plan and a fresh expiry on the user,
 * sends the confirmation message, and publishes an internal event for
 * downstream consumers.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

// SubscriptionService applies subscription state changes.
type SubscriptionService struct {
	users     UserStore
	channel   MessagingChannel
	publisher EventPublisher
	exchange  string
	period    time.Duration
	logger    *slog.Logger
}

// NewSubscriptionService creates the service. publisher may be nil.
func NewSubscriptionService(users UserStore, channel MessagingChannel, publisher EventPublisher, exchange string, periodDays int, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		users:     users,
		channel:   channel,
		publisher: publisher,
		exchange:  exchange,
		period:    time.Duration(periodDays) * 24 * time.Hour,
		logger:    logger,
	}
}

// Activate marks the user's subscription active on the given plan with a
// fresh expiry, persists it, and sends the confirmation exactly once.
func (s *SubscriptionService) Activate(ctx context.Context, userID int64, plan domain.Plan, now time.Time) (*domain.User, error) {
	user, err := s.users.GetByTelegramID(ctx, userID)
	if err != nil {
		return nil, err
	}

	expiry := now.Add(s.period)
	user.SubscriptionStatus = domain.StatusActive
	user.SubscriptionPlan = plan
	user.SubscriptionExpiresAt = &expiry
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Payment received — your %s plan is active until %s. Thank you for staying accountable!",
		plan, expiry.Format("Jan 2, 2006"))
	if err := s.channel.SendMessage(ctx, user.TelegramID, text, nil); err != nil {
		// The subscription is already active; the confirmation is best-effort.
		s.logger.Error("failed to send subscription confirmation", "user_id", user.TelegramID, "error", err)
	}

	if s.publisher != nil {
		event := domain.SubscriptionActivatedEvent{UserID: user.TelegramID, Plan: plan, ExpiresAt: expiry}
		if err := s.publisher.Publish(ctx, s.exchange, "subscription.activated", event); err != nil {
			s.logger.Error("failed to publish activation event", "user_id", user.TelegramID, "error", err)
		}
	}

	s.logger.Info("subscription activated", "user_id", user.TelegramID, "plan", plan)
	return user, nil
}
