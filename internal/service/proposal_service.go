package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"proposta/internal/models"
	"proposta/internal/repository"
)

const (
	defaultProposalTemplate = "modern"
	maxProposalItems        = 100
	maxContractLen          = 200000

	metricsWindowDays   = 30
	recentProposalLimit = 5
)

// Recency labels shown next to a dashboard proposal.
const (
	RecencyNew    = "nova"
	RecencyRecent = "recente"
	RecencyOlder  = "anterior"
)

type ProposalService struct {
	store repository.Store
	quota *QuotaService

	now func() time.Time
}

type ProposalItemInput struct {
	Name       string `json:"name"`
	ValueCents int64  `json:"value_cents"`
}

type ProposalInput struct {
	ClientName      string              `json:"client_name"`
	Description     string              `json:"description"`
	Items           []ProposalItemInput `json:"items"`
	DeliveryDate    *time.Time          `json:"delivery_date"`
	ValidUntil      *time.Time          `json:"valid_until"`
	AdditionalNotes string              `json:"additional_notes"`
	Template        string              `json:"template"`
	IncludeContract bool                `json:"include_contract"`
	ContractContent string              `json:"contract_content"`
}

// CreatedProposal is a new proposal and the draft contract created with it, if any.
type CreatedProposal struct {
	Proposal *models.Proposal `json:"proposal"`
	Contract *models.Contract `json:"contract,omitempty"`
	Usage    *Usage           `json:"usage"`
}

// ProposalMetrics is the dashboard summary of a user's proposals. Money is
// in cents; the average is truncated and zero when there are no proposals.
type ProposalMetrics struct {
	TotalCount        int64            `json:"total_count"`
	TotalValueCents   int64            `json:"total_value_cents"`
	RecentCount       int64            `json:"recent_count"`
	AverageValueCents int64            `json:"average_value_cents"`
	Recent            []RecentProposal `json:"recent"`
}

// RecentProposal is a proposal with its recency label.
type RecentProposal struct {
	models.Proposal
	StatusLabel string `json:"status_label"`
}

func NewProposalService(store repository.Store, quota *QuotaService) *ProposalService {
	return &ProposalService{store: store, quota: quota, now: time.Now}
}

func (in ProposalInput) validate() error {
	if strings.TrimSpace(in.ClientName) == "" {
		return models.NewValidationError("client_name is required")
	}
	if utf8.RuneCountInString(in.ClientName) > 200 {
		return models.NewValidationError("client_name must be at most 200 characters")
	}
	if len(in.Items) == 0 {
		return models.NewValidationError("at least one item is required")
	}
	if len(in.Items) > maxProposalItems {
		return models.NewValidationError("too many items")
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			return models.NewValidationError("every item needs a name")
		}
		if it.ValueCents < 0 {
			return models.NewValidationError("item values cannot be negative")
		}
	}
	if len(in.Template) > 50 {
		return models.NewValidationError("template name is too long")
	}
	if in.IncludeContract && strings.TrimSpace(in.ContractContent) == "" {
		return models.NewValidationError("contract_content is required when include_contract is set")
	}
	if len(in.ContractContent) > maxContractLen {
		return models.NewValidationError("contract_content is too long")
	}
	return nil
}

func (in ProposalInput) apply(p *models.Proposal) {
	p.ClientName = strings.TrimSpace(in.ClientName)
	p.Description = in.Description
	p.DeliveryDate = in.DeliveryDate
	p.ValidUntil = in.ValidUntil
	p.AdditionalNotes = in.AdditionalNotes
	p.Template = strings.TrimSpace(in.Template)
	if p.Template == "" {
		p.Template = defaultProposalTemplate
	}
	p.IncludeContract = in.IncludeContract

	p.Items = make([]models.ProposalItem, 0, len(in.Items))
	for _, it := range in.Items {
		p.Items = append(p.Items, models.ProposalItem{Name: strings.TrimSpace(it.Name), ValueCents: it.ValueCents})
	}
	p.TotalCents = models.SumItems(p.Items)
}

// Create stores a proposal against the user's monthly quota. Quota, proposal
// and optional draft contract commit together.
func (s *ProposalService) Create(ctx context.Context, userID uint, in ProposalInput) (*CreatedProposal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	out := &CreatedProposal{Proposal: &models.Proposal{UserID: userID}}
	in.apply(out.Proposal)

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		usage, err := s.quota.Consume(ctx, tx, userID)
		if err != nil {
			return err
		}
		out.Usage = usage

		if err := tx.Proposals().Create(ctx, out.Proposal); err != nil {
			return err
		}
		if !in.IncludeContract {
			return nil
		}
		out.Contract = &models.Contract{
			ProposalID: out.Proposal.ID,
			Content:    in.ContractContent,
			Status:     models.ContractStatusDraft,
		}
		return tx.Contracts().Create(ctx, out.Contract)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProposalService) Get(ctx context.Context, userID, id uint) (*models.Proposal, error) {
	p, err := s.store.Proposals().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, models.NewForbiddenError("You can only access your own proposals")
	}
	return p, nil
}

func (s *ProposalService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Proposal, int64, error) {
	return s.store.Proposals().ListByUser(ctx, userID, limit, offset)
}

// Update replaces the proposal fields and items. Quota is not charged again.
func (s *ProposalService) Update(ctx context.Context, userID, id uint, in ProposalInput) (*models.Proposal, error) {
	in.ContractContent = ""
	in.IncludeContract = false
	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated *models.Proposal
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Proposals().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return models.NewForbiddenError("You can only update your own proposals")
		}
		include := p.IncludeContract
		in.apply(p)
		p.IncludeContract = include
		if err := tx.Proposals().Update(ctx, p); err != nil {
			return err
		}
		updated, err = tx.Proposals().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes the proposal; its contracts and signature history remain.
func (s *ProposalService) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Proposals().Delete(ctx, id)
}

// Metrics summarizes the user's proposals: totals over all of them, how many
// were created in the last 30 days, and the five newest with recency labels.
func (s *ProposalService) Metrics(ctx context.Context, userID uint) (*ProposalMetrics, error) {
	now := s.now().UTC()
	totals, err := s.store.Proposals().Totals(ctx, userID, now.AddDate(0, 0, -metricsWindowDays))
	if err != nil {
		return nil, err
	}
	newest, _, err := s.store.Proposals().ListByUser(ctx, userID, recentProposalLimit, 0)
	if err != nil {
		return nil, err
	}

	m := &ProposalMetrics{
		TotalCount:      totals.Count,
		TotalValueCents: totals.TotalCents,
		RecentCount:     totals.Recent,
		Recent:          make([]RecentProposal, 0, len(newest)),
	}
	if totals.Count > 0 {
		m.AverageValueCents = totals.TotalCents / totals.Count
	}
	for _, p := range newest {
		m.Recent = append(m.Recent, RecentProposal{Proposal: p, StatusLabel: recencyLabel(now.Sub(p.CreatedAt))})
	}
	return m, nil
}

// recencyLabel buckets a proposal's age in whole days.
func recencyLabel(age time.Duration) string {
	switch days := int(age / (24 * time.Hour)); {
	case days < 1:
		return RecencyNew
	case days < 7:
		return RecencyRecent
	default:
		return RecencyOlder
	}
}
