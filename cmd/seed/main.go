// Command seed fills a development database with demo proposals and signature requests.
package main

import (
	"context"
	"flag"
	"log"

	"proposta/internal/config"
	"proposta/internal/database"
	"proposta/internal/seed"
)

func main() {
	users := flag.Int("users", 3, "Number of demo users")
	firstUser := flag.Uint("first-user", 1, "ID of the first demo user")
	proposals := flag.Int("proposals", 2, "Proposals to create per user")
	seedValue := flag.Int64("seed", 0, "Faker seed (0 picks a random one)")
	flag.Parse()

	_ = config.LoadDotEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatalf("Refusing to seed demo data in %q", cfg.Env)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.Run(ctx, db, seed.Options{
		Users:            *users,
		FirstUserID:      uint(*firstUser),
		ProposalsPerUser: *proposals,
		Seed:             *seedValue,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d profiles, %d proposals, %d contracts, %d signature requests, %d responses",
		summary.Profiles, summary.Proposals, summary.Contracts, summary.SignatureRequests, summary.Responses)
}
