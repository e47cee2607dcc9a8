// Package bootstrap connects infrastructure and wires the application services.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"proposta/internal/cache"
	"proposta/internal/config"
	"proposta/internal/database"
	"proposta/internal/featureflags"
	"proposta/internal/notifications"
	"proposta/internal/observability"
	"proposta/internal/repository"
	"proposta/internal/seed"
	"proposta/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
// Redis is optional: a nil client is returned when it is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)

	if opts.SeedDemo {
		if cfg.IsProduction() {
			return nil, nil, fmt.Errorf("refusing to seed demo data in %q", cfg.Env)
		}
		if _, err := seed.Run(ctx, db, seed.Options{}); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

// Services is the wired application layer shared by the API and the CLIs.
type Services struct {
	Store        repository.Store
	Quota        *service.QuotaService
	Proposals    *service.ProposalService
	Contracts    *service.ContractService
	Profiles     *service.ProfileService
	Signatures   *service.SignatureService
	Dispatcher   *notifications.SignatureDispatcher
	Notifier     *notifications.Notifier
	FeatureFlags *featureflags.Manager
}

// NewServices wires services over db and an optional Redis client.
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Services {
	store := repository.NewStore(db)
	quota := service.NewQuotaService(store)

	s := &Services{
		Store:        store,
		Quota:        quota,
		Proposals:    service.NewProposalService(store, quota),
		Contracts:    service.NewContractService(store),
		Profiles:     service.NewProfileService(store, rdb),
		Dispatcher:   notifications.NewSignatureDispatcher(store, rdb, cfg.MailOutboxKey, cfg.SignatureLink),
		FeatureFlags: featureflags.NewManager(cfg.FeatureFlags),
	}

	var realtime service.RealtimePublisher
	if rdb != nil {
		s.Notifier = notifications.NewNotifier(rdb)
		realtime = s.Notifier
	} else {
		observability.GlobalLogger.Warn("redis unavailable, realtime updates disabled",
			slog.String("env", cfg.Env))
	}

	images := service.NewSignatureImageProcessor(cfg.SignatureImageMaxKB, cfg.SignatureImageMaxWidth)
	s.Signatures = service.NewSignatureService(store, s.Dispatcher, realtime, images, cfg.SignatureLink)
	return s
}
