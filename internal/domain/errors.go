/**
 * @description
 * Sentinel errors shared across the service. Handlers and jobs branch on
 * these with errors.Is and convert them to canned user-facing replies at the
 * per-user boundary; they never abort a scheduler sweep or the update loop.
 */
package domain

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrChecklistNotFound = errors.New("checklist not found")
	ErrChecklistFrozen   = errors.New("checklist is frozen after check-in")
	ErrTaskNotFound      = errors.New("task not found")
	ErrAlreadyCheckedIn  = errors.New("checklist already checked in")

	ErrAccessExpired      = errors.New("subscription access expired")
	ErrDailyLimitReached  = errors.New("daily generation limit reached")
	ErrWeeklyLimitReached = errors.New("weekly generation limit reached")

	ErrProvider                = errors.New("ai provider error")
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
)
