package repository

import (
	"context"

	"proposta/internal/models"

	"gorm.io/gorm"
)

// ContractRepository defines data operations for contracts.
type ContractRepository interface {
	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id uint) (*models.Contract, error)
	ListByProposal(ctx context.Context, proposalID uint) ([]models.Contract, error)
	UpdateStatus(ctx context.Context, id uint, status models.ContractStatus) error
}

type contractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *gorm.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, contract *models.Contract) error {
	if err := r.db.WithContext(ctx).Create(contract).Error; err != nil {
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("Proposal", contract.ProposalID)
		}
		return writeError("create contract", err)
	}
	return nil
}

// GetByID loads the contract with its proposal, including soft-deleted ones,
// since signed contracts outlive the proposal listing.
func (r *contractRepository) GetByID(ctx context.Context, id uint) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Preload("Proposal", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&contract, id).Error
	if err != nil {
		return nil, readError("Contract", id, "load contract", err)
	}
	return &contract, nil
}

func (r *contractRepository) ListByProposal(ctx context.Context, proposalID uint) ([]models.Contract, error) {
	var contracts []models.Contract
	if err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("created_at DESC, id DESC").
		Find(&contracts).Error; err != nil {
		return nil, models.NewPersistenceError("list contracts", err)
	}
	return contracts, nil
}

func (r *contractRepository) UpdateStatus(ctx context.Context, id uint, status models.ContractStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return models.NewPersistenceError("update contract status", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Contract", id)
	}
	return nil
}
