package repository

import (
	"context"
	"time"

	"proposta/internal/models"

	"gorm.io/gorm"
)

// ProposalRepository defines data operations for proposals and their items.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	GetByID(ctx context.Context, id uint) (*models.Proposal, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Proposal, int64, error)
	Totals(ctx context.Context, userID uint, since time.Time) (ProposalTotals, error)
	Update(ctx context.Context, proposal *models.Proposal) error
	Delete(ctx context.Context, id uint) error
}

// ProposalTotals aggregates a user's live proposals. Recent counts the
// proposals created at or after the given cutoff.
type ProposalTotals struct {
	Count      int64
	TotalCents int64
	Recent     int64
}

type proposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &proposalRepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("proposal_items.id ASC")
}

func (r *proposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	if err := r.db.WithContext(ctx).Create(proposal).Error; err != nil {
		return writeError("create proposal", err)
	}
	return nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id uint) (*models.Proposal, error) {
	var p models.Proposal
	if err := r.db.WithContext(ctx).Preload("Items", orderedItems).First(&p, id).Error; err != nil {
		return nil, readError("Proposal", id, "load proposal", err)
	}
	return &p, nil
}

func (r *proposalRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Proposal, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Proposal{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, models.NewPersistenceError("count proposals", err)
	}

	var proposals []models.Proposal
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Items", orderedItems).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&proposals).Error; err != nil {
		return nil, 0, models.NewPersistenceError("list proposals", err)
	}
	return proposals, total, nil
}

func (r *proposalRepository) Totals(ctx context.Context, userID uint, since time.Time) (ProposalTotals, error) {
	var totals ProposalTotals
	err := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_cents), 0) AS total_cents, "+
			"COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS recent", since).
		Where("user_id = ?", userID).
		Scan(&totals).Error
	if err != nil {
		return ProposalTotals{}, models.NewPersistenceError("aggregate proposals", err)
	}
	return totals, nil
}

// Update saves scalar fields and replaces the item list.
func (r *proposalRepository) Update(ctx context.Context, proposal *models.Proposal) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("proposal_id = ?", proposal.ID).Delete(&models.ProposalItem{}).Error; err != nil {
		return models.NewPersistenceError("replace proposal items", err)
	}
	for i := range proposal.Items {
		proposal.Items[i].ID = 0
		proposal.Items[i].ProposalID = proposal.ID
	}
	if err := db.Session(&gorm.Session{FullSaveAssociations: true}).Save(proposal).Error; err != nil {
		return writeError("update proposal", err)
	}
	return nil
}

func (r *proposalRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Proposal{}, id)
	if res.Error != nil {
		return models.NewPersistenceError("delete proposal", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Proposal", id)
	}
	return nil
}
