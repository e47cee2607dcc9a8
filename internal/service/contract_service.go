package service

import (
	"context"
	"strings"

	"proposta/internal/models"
	"proposta/internal/repository"
)

type ContractService struct {
	store repository.Store
}

func NewContractService(store repository.Store) *ContractService {
	return &ContractService{store: store}
}

// Create stores content as a draft contract of a proposal owned by userID.
// Content is kept as given; rendering happens elsewhere.
func (s *ContractService) Create(ctx context.Context, userID, proposalID uint, content string) (*models.Contract, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("content is required")
	}
	if len(content) > maxContractLen {
		return nil, models.NewValidationError("content is too long")
	}
	if err := s.checkProposalOwner(ctx, userID, proposalID); err != nil {
		return nil, err
	}

	contract := &models.Contract{
		ProposalID: proposalID,
		Content:    content,
		Status:     models.ContractStatusDraft,
	}
	if err := s.store.Contracts().Create(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *ContractService) Get(ctx context.Context, userID, id uint) (*models.Contract, error) {
	contract, err := s.store.Contracts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.Proposal == nil || contract.Proposal.UserID != userID {
		return nil, models.NewForbiddenError("You can only access your own contracts")
	}
	return contract, nil
}

func (s *ContractService) ListByProposal(ctx context.Context, userID, proposalID uint) ([]models.Contract, error) {
	if err := s.checkProposalOwner(ctx, userID, proposalID); err != nil {
		return nil, err
	}
	return s.store.Contracts().ListByProposal(ctx, proposalID)
}

func (s *ContractService) checkProposalOwner(ctx context.Context, userID, proposalID uint) error {
	p, err := s.store.Proposals().GetByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return models.NewForbiddenError("You can only access your own proposals")
	}
	return nil
}
