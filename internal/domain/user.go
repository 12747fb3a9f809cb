/**
 * @description
 * This file defines the core User model for the coach service. A user is keyed
 * by their Telegram id and carries the subscription and usage state that the
 * access policy evaluates before every AI generation.
 */
package domain

import "time"

// SubscriptionStatus is the lifecycle state of a user's subscription.
type SubscriptionStatus string

const (
	StatusTrial   SubscriptionStatus = "trial"
	StatusActive  SubscriptionStatus = "active"
	StatusExpired SubscriptionStatus = "expired"
)

// Plan is the paid plan a user is on. Only meaningful while the status is active.
type Plan string

const (
	PlanNone    Plan = "none"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

// Tier is the AI completion quality level a subscription entitles the user to.
type Tier string

const (
	TierHigh     Tier = "high"
	TierStandard Tier = "standard"
)

// ParsePlan maps a raw plan label (e.g. from payment metadata) to a Plan.
func ParsePlan(s string) (Plan, bool) {
	switch Plan(s) {
	case PlanBasic, PlanPremium:
		return Plan(s), true
	}
	return PlanNone, false
}

// User represents a Telegram user of the accountability coach.
type User struct {
	TelegramID            int64
	Focus                 string
	Timezone              string
	SubscriptionStatus    SubscriptionStatus
	SubscriptionPlan      Plan
	SubscriptionExpiresAt *time.Time
	TrialStartedAt        time.Time
	UsageCount            int
	UsagePeriodAnchor     *time.Time
	LastCheckInDate       *time.Time
	HasCheckedInToday     bool
	OnboardingComplete    bool
	CreatedAt             time.Time
}

// Location resolves the user's configured timezone, falling back to the
// service default when the field is empty or unparseable.
func (u *User) Location(fallback *time.Location) *time.Location {
	if u.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// Subscribed reports whether the user is on any tier that receives the
// weekly checklist generation: an unexpired trial or an active paid plan.
func (u *User) Subscribed() bool {
	switch u.SubscriptionStatus {
	case StatusTrial:
		return true
	case StatusActive:
		return u.SubscriptionPlan == PlanBasic || u.SubscriptionPlan == PlanPremium
	}
	return false
}
