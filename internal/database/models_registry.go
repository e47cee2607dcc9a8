package database

import "proposta/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Subscription{},
		&models.Proposal{},
		&models.ProposalItem{},
		&models.Contract{},
		&models.SignatureRequest{},
		&models.Signatory{},
		&models.AuditEvent{},
	}
}
