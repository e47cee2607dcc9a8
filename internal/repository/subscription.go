package repository

import (
	"context"
	"time"

	"proposta/internal/models"
	"proposta/internal/plans"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRepository defines data operations for per-user plan and usage counters.
type SubscriptionRepository interface {
	GetForUpdate(ctx context.Context, userID uint, now time.Time) (*models.Subscription, error)
	Save(ctx context.Context, sub *models.Subscription) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetForUpdate makes sure the user has a row (free plan, current period) and
// returns it locked for the rest of the transaction.
func (r *subscriptionRepository) GetForUpdate(ctx context.Context, userID uint, now time.Time) (*models.Subscription, error) {
	period := plans.PeriodOf(now)
	seed := models.Subscription{
		UserID:      userID,
		Plan:        string(plans.Free),
		PeriodMonth: int(period.Month),
		PeriodYear:  period.Year,
	}
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, models.NewPersistenceError("initialize subscription", err)
	}

	var sub models.Subscription
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "user_id = ?", userID).Error; err != nil {
		return nil, readError("Subscription", userID, "lock subscription", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		return models.NewPersistenceError("save subscription", err)
	}
	return nil
}
