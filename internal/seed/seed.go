package seed

import (
	"context"
	"fmt"
	"log/slog"

	"proposta/internal/models"
	"proposta/internal/observability"
	"proposta/internal/plans"
	"proposta/internal/repository"
	"proposta/internal/service"

	"gorm.io/gorm"
)

// Options controls how much demo data Run creates.
type Options struct {
	Users            int
	FirstUserID      uint
	ProposalsPerUser int
	Seed             int64
}

// Summary counts what Run created.
type Summary struct {
	Profiles          int
	Proposals         int
	Contracts         int
	SignatureRequests int
	Responses         int
}

// Run creates profiles, proposals, contracts and signature requests through
// the regular services, so quotas, tokens and audit trails are real.
// Audit events are append-only, so Run never deletes.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.Users <= 0 {
		opts.Users = 3
	}
	if opts.FirstUserID == 0 {
		opts.FirstUserID = 1
	}
	if opts.ProposalsPerUser <= 0 {
		opts.ProposalsPerUser = 2
	}

	store := repository.NewStore(db)
	quota := service.NewQuotaService(store)
	proposals := service.NewProposalService(store, quota)
	signatures := service.NewSignatureService(store, nil, nil, service.NewSignatureImageProcessor(512, 600), nil)
	f := NewFactory(opts.Seed)
	sum := &Summary{}

	tiers := []plans.Plan{plans.Professional, plans.Intermediate, plans.Free}
	for i := 0; i < opts.Users; i++ {
		userID := opts.FirstUserID + uint(i)
		if err := store.Profiles().Upsert(ctx, f.Profile(userID)); err != nil {
			return sum, fmt.Errorf("seed profile %d: %w", userID, err)
		}
		sum.Profiles++
		if _, err := quota.ChangePlan(ctx, userID, string(tiers[i%len(tiers)])); err != nil {
			return sum, fmt.Errorf("seed plan %d: %w", userID, err)
		}

		for j := 0; j < opts.ProposalsPerUser; j++ {
			created, err := proposals.Create(ctx, userID, f.Proposal(j%2 == 0))
			if models.IsCode(err, models.CodeQuotaExceeded) {
				break
			}
			if err != nil {
				return sum, fmt.Errorf("seed proposal for %d: %w", userID, err)
			}
			sum.Proposals++
			if created.Contract == nil {
				continue
			}
			sum.Contracts++

			req, err := signatures.CreateSignatureRequest(ctx, service.CreateSignatureRequestInput{
				UserID:      userID,
				ContractID:  created.Contract.ID,
				Signatories: f.Signatories(1 + j%3),
			})
			if err != nil {
				return sum, fmt.Errorf("seed signature request: %w", err)
			}
			sum.SignatureRequests++

			for _, sig := range req.Signatories {
				status := f.Response()
				if status == models.SignatoryStatusPending {
					continue
				}
				_, err := signatures.UpdateSignatureStatus(ctx, service.UpdateSignatureStatusInput{
					SignatoryID: sig.ID,
					Status:      status,
					IPAddress:   "127.0.0.1",
				})
				if models.IsCode(err, models.CodeRequestExpiredOrCancelled) {
					break
				}
				if err != nil {
					return sum, fmt.Errorf("seed response: %w", err)
				}
				sum.Responses++
			}
		}
	}

	observability.GlobalLogger.InfoContext(ctx, "seed complete",
		slog.Int("profiles", sum.Profiles),
		slog.Int("proposals", sum.Proposals),
		slog.Int("signature_requests", sum.SignatureRequests),
	)
	return sum, nil
}
