package service

import (
	"context"
	"strings"

	"proposta/internal/cache"
	"proposta/internal/models"
	"proposta/internal/repository"

	"github.com/redis/go-redis/v9"
)

// ProfileService reads sender profiles through a Redis cache.
type ProfileService struct {
	store repository.Store
	rdb   *redis.Client
}

type UpdateProfileInput struct {
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	CompanyLogo string `json:"company_logo"`
	Location    string `json:"location"`
}

func NewProfileService(store repository.Store, rdb *redis.Client) *ProfileService {
	return &ProfileService{store: store, rdb: rdb}
}

// Get returns the profile of userID; a user without a stored profile gets an empty one.
func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := cache.CacheAside(ctx, s.rdb, cache.ProfileKey(userID), &profile, cache.ProfileTTL, func() error {
		p, err := s.store.Profiles().GetByID(ctx, userID)
		if models.IsCode(err, models.CodeNotFound) {
			profile = models.Profile{ID: userID}
			return nil
		}
		if err != nil {
			return err
		}
		profile = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uint, in UpdateProfileInput) (*models.Profile, error) {
	if len(in.Name) > 200 || len(in.CompanyName) > 200 || len(in.Location) > 200 {
		return nil, models.NewValidationError("profile fields must be at most 200 characters")
	}
	if in.CompanyLogo != "" && !strings.HasPrefix(in.CompanyLogo, "https://") && !strings.HasPrefix(in.CompanyLogo, "data:image/") {
		return nil, models.NewValidationError("company_logo must be an https URL or an image data URL")
	}

	profile := &models.Profile{
		ID:          userID,
		Name:        strings.TrimSpace(in.Name),
		CompanyName: strings.TrimSpace(in.CompanyName),
		CompanyLogo: in.CompanyLogo,
		Location:    strings.TrimSpace(in.Location),
	}
	if err := s.store.Profiles().Upsert(ctx, profile); err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, s.rdb, cache.ProfileKey(userID))
	return s.store.Profiles().GetByID(ctx, userID)
}
