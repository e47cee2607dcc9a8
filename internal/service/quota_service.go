package service

import (
	"context"
	"time"

	"proposta/internal/models"
	"proposta/internal/observability"
	"proposta/internal/plans"
	"proposta/internal/repository"
)

// QuotaService owns the server-side plan and monthly proposal counters.
type QuotaService struct {
	store repository.Store
	now   func() time.Time
}

// Usage is the quota snapshot shown to the user.
type Usage struct {
	Plan        plans.Plan `json:"plan"`
	Used        int        `json:"used"`
	Limit       int        `json:"limit"`
	Remaining   int        `json:"remaining"`
	Unlimited   bool       `json:"unlimited"`
	CanCreate   bool       `json:"can_create"`
	PeriodMonth int        `json:"period_month"`
	PeriodYear  int        `json:"period_year"`
}

func NewQuotaService(store repository.Store) *QuotaService {
	return &QuotaService{store: store, now: time.Now}
}

func usageOf(sub *models.Subscription) *Usage {
	plan := plans.Lookup(plans.Plan(sub.Plan)).ID
	limit := plans.QuotaFor(plan)
	return &Usage{
		Plan:        plan,
		Used:        sub.UsedProposals,
		Limit:       limit,
		Remaining:   plans.Remaining(plan, sub.UsedProposals),
		Unlimited:   limit == plans.Unlimited,
		CanCreate:   plans.CanCreate(plan, sub.UsedProposals),
		PeriodMonth: sub.PeriodMonth,
		PeriodYear:  sub.PeriodYear,
	}
}

// rollover resets the counter when now is in a later month than the stored marker.
func rollover(sub *models.Subscription, now time.Time) bool {
	marker := plans.Period{Year: sub.PeriodYear, Month: time.Month(sub.PeriodMonth)}
	next, reset := marker.Advance(now)
	if !reset {
		return false
	}
	sub.UsedProposals = 0
	sub.PeriodYear = next.Year
	sub.PeriodMonth = int(next.Month)
	return true
}

// Usage returns the current counters, applying a pending monthly reset.
func (s *QuotaService) Usage(ctx context.Context, userID uint) (*Usage, error) {
	var usage *Usage
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		sub, err := tx.Subscriptions().GetForUpdate(ctx, userID, s.now())
		if err != nil {
			return err
		}
		if rollover(sub, s.now()) {
			if err := tx.Subscriptions().Save(ctx, sub); err != nil {
				return err
			}
		}
		usage = usageOf(sub)
		return nil
	})
	return usage, err
}

// Consume takes one proposal from the user's monthly quota. It must run inside
// the caller's transaction so a rolled back creation does not count.
func (s *QuotaService) Consume(ctx context.Context, tx repository.Store, userID uint) (*Usage, error) {
	sub, err := tx.Subscriptions().GetForUpdate(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	rollover(sub, s.now())

	plan := plans.Lookup(plans.Plan(sub.Plan)).ID
	if !plans.CanCreate(plan, sub.UsedProposals) {
		observability.QuotaRejections.WithLabelValues(string(plan)).Inc()
		return nil, models.NewQuotaExceededError(string(plan), plans.QuotaFor(plan))
	}
	sub.UsedProposals++
	if err := tx.Subscriptions().Save(ctx, sub); err != nil {
		return nil, err
	}
	return usageOf(sub), nil
}

// ChangePlan switches the user's plan. Usage in the current month is kept.
func (s *QuotaService) ChangePlan(ctx context.Context, userID uint, plan string) (*Usage, error) {
	p, err := plans.Parse(plan)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var usage *Usage
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		sub, err := tx.Subscriptions().GetForUpdate(ctx, userID, s.now())
		if err != nil {
			return err
		}
		rollover(sub, s.now())
		sub.Plan = string(p)
		if err := tx.Subscriptions().Save(ctx, sub); err != nil {
			return err
		}
		usage = usageOf(sub)
		return nil
	})
	return usage, err
}

// HasFeature reports whether the user's current plan unlocks f.
func (s *QuotaService) HasFeature(ctx context.Context, userID uint, f plans.Feature) (bool, error) {
	usage, err := s.Usage(ctx, userID)
	if err != nil {
		return false, err
	}
	return plans.HasFeature(usage.Plan, f), nil
}
