package app

import (
	"errors"
	"testing"
	"time"

	"github.com/focusly/coach-service/internal/domain"
)

func testPolicy() *AccessPolicy {
	return NewAccessPolicy(14, 5, 10, time.UTC)
}

func trialUser(startedAt time.Time) *domain.User {
	return &domain.User{
		TelegramID:         1,
		SubscriptionStatus: domain.StatusTrial,
		SubscriptionPlan:   domain.PlanNone,
		TrialStartedAt:     startedAt,
	}
}

func TestEvaluatePremiumAlwaysAllowed(t *testing.T) {
	policy := testPolicy()
	user := &domain.User{
		TelegramID:         1,
		SubscriptionStatus: domain.StatusActive,
		SubscriptionPlan:   domain.PlanPremium,
		UsageCount:         1000,
	}

	d := policy.Evaluate(user, time.Now())
	if !d.Allowed {
		t.Fatal("premium user must always be allowed")
	}
	if d.Tier != domain.TierHigh {
		t.Errorf("expected high tier for premium, got %q", d.Tier)
	}
}

func TestEvaluateBasicWeeklyWindow(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) // Wednesday, ISO week 2

	user := &domain.User{
		TelegramID:         1,
		SubscriptionStatus: domain.StatusActive,
		SubscriptionPlan:   domain.PlanBasic,
		UsageCount:         10,
	}

	// Anchor in the previous ISO week: the counter resets and access resumes.
	lastWeek := now.AddDate(0, 0, -7)
	user.UsagePeriodAnchor = &lastWeek
	d := policy.Evaluate(user, now)
	if !d.Allowed {
		t.Fatal("expected access after weekly rollover")
	}
	if user.UsageCount != 0 {
		t.Errorf("expected counter reset on rollover, got %d", user.UsageCount)
	}
	if d.Tier != domain.TierStandard {
		t.Errorf("expected standard tier for basic, got %q", d.Tier)
	}

	// Same week at the limit: denied, counter untouched.
	user.UsageCount = 10
	user.UsagePeriodAnchor = &now
	d = policy.Evaluate(user, now)
	if d.Allowed {
		t.Fatal("expected denial at the weekly limit")
	}
	if !errors.Is(d.Reason, domain.ErrWeeklyLimitReached) {
		t.Errorf("expected WeeklyLimitReached, got %v", d.Reason)
	}
	if user.UsageCount != 10 {
		t.Errorf("mid-period evaluation must not reset the counter, got %d", user.UsageCount)
	}
}

func TestEvaluateTrialDailyWindow(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	user := trialUser(now.AddDate(0, 0, -2))

	// Anchor yesterday: daily counter resets.
	yesterday := now.AddDate(0, 0, -1)
	user.UsageCount = 5
	user.UsagePeriodAnchor = &yesterday
	d := policy.Evaluate(user, now)
	if !d.Allowed {
		t.Fatal("expected access after daily rollover")
	}
	if user.UsageCount != 0 {
		t.Errorf("expected counter reset on rollover, got %d", user.UsageCount)
	}
	if d.Tier != domain.TierHigh {
		t.Errorf("trial rides the high tier, got %q", d.Tier)
	}

	// At the daily limit today: denied.
	user.UsageCount = 5
	user.UsagePeriodAnchor = &now
	d = policy.Evaluate(user, now)
	if d.Allowed {
		t.Fatal("expected denial at the daily limit")
	}
	if !errors.Is(d.Reason, domain.ErrDailyLimitReached) {
		t.Errorf("expected DailyLimitReached, got %v", d.Reason)
	}
}

func TestEvaluateTrialWindowExpiry(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)

	user := trialUser(now.AddDate(0, 0, -15))
	d := policy.Evaluate(user, now)
	if d.Allowed {
		t.Fatal("expected denial past the trial window")
	}
	if !errors.Is(d.Reason, domain.ErrAccessExpired) {
		t.Errorf("expected AccessExpired, got %v", d.Reason)
	}

	expired := &domain.User{TelegramID: 2, SubscriptionStatus: domain.StatusExpired}
	if d := policy.Evaluate(expired, now); !errors.Is(d.Reason, domain.ErrAccessExpired) {
		t.Errorf("expected AccessExpired for expired status, got %v", d.Reason)
	}
}

func TestRecordUsageCountsWithinPeriod(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	user := trialUser(now.AddDate(0, 0, -1))

	for i := 0; i < 3; i++ {
		policy.RecordUsage(user, now.Add(time.Duration(i)*time.Hour))
	}
	if user.UsageCount != 3 {
		t.Errorf("expected usage count 3, got %d", user.UsageCount)
	}
	if user.UsagePeriodAnchor == nil {
		t.Fatal("expected usage anchor to be stamped")
	}

	// Evaluations inside the same period never reset the counter.
	policy.Evaluate(user, now.Add(4*time.Hour))
	if user.UsageCount != 3 {
		t.Errorf("same-period evaluate reset the counter to %d", user.UsageCount)
	}
}

func TestTrialFifthCallExhaustsQuota(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	user := trialUser(now.AddDate(0, 0, -1))
	user.UsageCount = 4
	user.UsagePeriodAnchor = &now

	d := policy.Evaluate(user, now)
	if !d.Allowed || d.Tier != domain.TierHigh {
		t.Fatalf("expected allowed/high at usage 4, got %+v", d)
	}

	policy.RecordUsage(user, now)
	if user.UsageCount != 5 {
		t.Fatalf("expected usage 5 after recording, got %d", user.UsageCount)
	}

	d = policy.Evaluate(user, now.Add(time.Hour))
	if d.Allowed {
		t.Fatal("expected denial on the next same-day call")
	}
	if !errors.Is(d.Reason, domain.ErrDailyLimitReached) {
		t.Errorf("expected DailyLimitReached, got %v", d.Reason)
	}
}

func TestEvaluateNeverAllowsAtLimit(t *testing.T) {
	policy := testPolicy()
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		user *domain.User
	}{
		{"trial at daily limit", func() *domain.User {
			u := trialUser(now.AddDate(0, 0, -1))
			u.UsageCount = 5
			u.UsagePeriodAnchor = &now
			return u
		}()},
		{"basic at weekly limit", func() *domain.User {
			u := &domain.User{SubscriptionStatus: domain.StatusActive, SubscriptionPlan: domain.PlanBasic, UsageCount: 10}
			u.UsagePeriodAnchor = &now
			return u
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if d := policy.Evaluate(tc.user, now); d.Allowed {
				t.Fatal("policy allowed a user at their limit")
			}
		})
	}
}
