/**
 * @description
 * This file contains the access policy: the rules that decide whether a user
 * may invoke AI generation right now, and at which tier. Premium subscribers
 * are never limited; basic subscribers get a weekly allowance; trial users
 * get a daily allowance inside a fixed trial window.
 *
 * Usage accounting lives here too. Evaluate resets the rolling counter when
 * the anchor has left the current period (day or ISO week), and RecordUsage
 * must be called exactly once per successful AI response — never before the
 * call, so a failed generation does not consume quota.
 */
package app

import (
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

// Decision is the outcome of an access evaluation.
type Decision struct {
	Allowed bool
	Tier    domain.Tier
	Reason  error
}

// AccessPolicy evaluates subscription and usage rules.
type AccessPolicy struct {
	TrialWindow      time.Duration
	TrialDailyLimit  int
	BasicWeeklyLimit int
	DefaultTZ        *time.Location
}

// NewAccessPolicy builds a policy with the given knobs. A nil timezone
// defaults to UTC.
func NewAccessPolicy(trialWindowDays, trialDailyLimit, basicWeeklyLimit int, tz *time.Location) *AccessPolicy {
	if tz == nil {
		tz = time.UTC
	}
	return &AccessPolicy{
		TrialWindow:      time.Duration(trialWindowDays) * 24 * time.Hour,
		TrialDailyLimit:  trialDailyLimit,
		BasicWeeklyLimit: basicWeeklyLimit,
		DefaultTZ:        tz,
	}
}

// Evaluate applies the access rules in order. It may reset the usage counter
// on the passed user when the period has rolled over; the caller is
// responsible for persisting the user afterwards.
func (p *AccessPolicy) Evaluate(user *domain.User, now time.Time) Decision {
	loc := user.Location(p.DefaultTZ)

	if user.SubscriptionStatus == domain.StatusActive && user.SubscriptionPlan == domain.PlanPremium {
		return Decision{Allowed: true, Tier: domain.TierHigh}
	}

	if user.SubscriptionStatus == domain.StatusActive && user.SubscriptionPlan == domain.PlanBasic {
		if user.UsagePeriodAnchor == nil || !sameISOWeek(*user.UsagePeriodAnchor, now, loc) {
			user.UsageCount = 0
		}
		if user.UsageCount < p.BasicWeeklyLimit {
			return Decision{Allowed: true, Tier: domain.TierStandard}
		}
		return Decision{Reason: domain.ErrWeeklyLimitReached}
	}

	if user.SubscriptionStatus == domain.StatusTrial && now.Before(user.TrialStartedAt.Add(p.TrialWindow)) {
		if user.UsagePeriodAnchor == nil || !sameDay(*user.UsagePeriodAnchor, now, loc) {
			user.UsageCount = 0
		}
		if user.UsageCount < p.TrialDailyLimit {
			return Decision{Allowed: true, Tier: domain.TierHigh}
		}
		return Decision{Reason: domain.ErrDailyLimitReached}
	}

	return Decision{Reason: domain.ErrAccessExpired}
}

// RecordUsage consumes one unit of quota and stamps the period anchor.
func (p *AccessPolicy) RecordUsage(user *domain.User, now time.Time) {
	user.UsageCount++
	anchor := now
	user.UsagePeriodAnchor = &anchor
}

// ModelForTier maps an access tier to the Gemini model it buys.
func ModelForTier(tier domain.Tier) string {
	if tier == domain.TierHigh {
		return "gemini-1.5-pro"
	}
	return "gemini-1.5-flash"
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return a.In(loc).Format(domain.DayFormat) == b.In(loc).Format(domain.DayFormat)
}

func sameISOWeek(a, b time.Time, loc *time.Location) bool {
	ay, aw := a.In(loc).ISOWeek()
	by, bw := b.In(loc).ISOWeek()
	return ay == by && aw == bw
}
