// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle, so a service
// can run several of them inside a single transaction.
type Store interface {
	Signatures() SignatureRepository
	Contracts() ContractRepository
	Proposals() ProposalRepository
	Subscriptions() SubscriptionRepository
	Profiles() ProfileRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Signatures() SignatureRepository       { return NewSignatureRepository(s.db) }
func (s *gormStore) Contracts() ContractRepository         { return NewContractRepository(s.db) }
func (s *gormStore) Proposals() ProposalRepository         { return NewProposalRepository(s.db) }
func (s *gormStore) Subscriptions() SubscriptionRepository { return NewSubscriptionRepository(s.db) }
func (s *gormStore) Profiles() ProfileRepository           { return NewProfileRepository(s.db) }

// Transaction runs fn against a Store bound to one database transaction.
// Any error returned by fn rolls everything back.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
