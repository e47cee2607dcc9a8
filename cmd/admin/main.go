// Command admin provides operator utilities for signature requests and plans.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"proposta/internal/bootstrap"
	"proposta/internal/config"
)

const expireBatchSize = 500

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin expire-requests          - Persist expiry for overdue pending requests")
	fmt.Println("  go run ./cmd/admin reconcile <request_id>   - Recompute a signature request status")
	fmt.Println("  go run ./cmd/admin set-plan <user_id> <plan> - Change a user's subscription plan")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	_ = config.LoadDotEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	svc := bootstrap.NewServices(cfg, db, rdb)

	switch os.Args[1] {
	case "expire-requests":
		total := 0
		for {
			n, err := svc.Signatures.ExpireOverdue(ctx, expireBatchSize)
			if err != nil {
				log.Fatalf("Expiry sweep failed: %v", err)
			}
			total += n
			if n < expireBatchSize {
				break
			}
		}
		fmt.Printf("Expired %d signature requests\n", total)

	case "reconcile":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		id := parseID(os.Args[2])
		status, err := svc.Signatures.Reconcile(ctx, id)
		if err != nil {
			log.Fatalf("Reconcile failed: %v", err)
		}
		fmt.Printf("Signature request %d is %s\n", id, status)

	case "set-plan":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		userID := parseID(os.Args[2])
		usage, err := svc.Quota.ChangePlan(ctx, userID, os.Args[3])
		if err != nil {
			log.Fatalf("Failed to change plan: %v", err)
		}
		fmt.Printf("User %d is now on %s (%d proposals used this period)\n", userID, usage.Plan, usage.Used)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func parseID(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		log.Fatalf("Invalid ID %q", raw)
	}
	return uint(id)
}
