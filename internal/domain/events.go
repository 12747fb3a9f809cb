/**
 * @description
 * Event payloads published to the message broker when subscription state
 * changes. Downstream consumers (analytics, billing reconciliation) subscribe
 * to these on the subscription_events topic exchange.
 */
package domain

import "time"

// SubscriptionActivatedEvent is published after a successful payment webhook
// activates or extends a user's plan.
type SubscriptionActivatedEvent struct {
	UserID    int64     `json:"user_id"`
	Plan      Plan      `json:"plan"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubscriptionExpiredEvent is published by the maintenance sweep when an
// active subscription lapses past its expiry.
type SubscriptionExpiredEvent struct {
	UserID    int64     `json:"user_id"`
	ExpiredAt time.Time `json:"expired_at"`
}
