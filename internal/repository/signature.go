package repository

import (
	"context"
	"time"

	"proposta/internal/models"
	"proposta/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignatoryResolution is the single write a pending signatory receives.
type SignatoryResolution struct {
	Status         models.SignatoryStatus
	SignedAt       time.Time
	IPAddress      string
	SignatureImage *string
}

// SignatureRepository defines data operations for signature requests,
// their signatories and the audit trail.
type SignatureRepository interface {
	CreateRequest(ctx context.Context, req *models.SignatureRequest) error
	GetRequest(ctx context.Context, id uint) (*models.SignatureRequest, error)
	LockRequest(ctx context.Context, id uint) (*models.SignatureRequest, error)
	// ListRequestsByCreator pages the requests created by userID. A non-zero
	// contractID narrows the list to that contract.
	ListRequestsByCreator(ctx context.Context, userID, contractID uint, limit, offset int) ([]models.SignatureRequest, int64, error)
	TransitionRequest(ctx context.Context, id uint, from, to models.SignatureRequestStatus) (bool, error)
	ListOverdueRequests(ctx context.Context, now time.Time, limit int) ([]models.SignatureRequest, error)

	GetSignatory(ctx context.Context, id uint) (*models.Signatory, error)
	GetSignatoryByToken(ctx context.Context, token string) (*models.Signatory, error)
	ResolveSignatory(ctx context.Context, id uint, res SignatoryResolution) (bool, error)
	ListSignatoryStatuses(ctx context.Context, requestID uint) ([]models.SignatoryStatus, error)

	AppendAuditEvent(ctx context.Context, event *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, requestID uint) ([]models.AuditEvent, error)
}

type signatureRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewSignatureRepository creates a new signature repository
func NewSignatureRepository(db *gorm.DB) SignatureRepository {
	return &signatureRepository{db: db, log: observability.NewRepoLogger("signature_requests")}
}

func orderedSignatories(db *gorm.DB) *gorm.DB {
	return db.Order("signatories.id ASC")
}

// CreateRequest inserts the request and its signatories. Callers wanting
// all-or-nothing semantics run it inside Store.Transaction.
func (r *signatureRepository) CreateRequest(ctx context.Context, req *models.SignatureRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		if isForeignKeyViolation(err) {
			return models.NewNotFoundError("Contract", req.ContractID)
		}
		return writeError("create signature request", err)
	}
	r.log.LogCreate(ctx, map[string]any{
		"signature_request_id": req.ID,
		"contract_id":          req.ContractID,
		"signatories":          len(req.Signatories),
	})
	return nil
}

func (r *signatureRepository) GetRequest(ctx context.Context, id uint) (*models.SignatureRequest, error) {
	var req models.SignatureRequest
	if err := r.db.WithContext(ctx).Preload("Signatories", orderedSignatories).First(&req, id).Error; err != nil {
		return nil, readError("SignatureRequest", id, "load signature request", err)
	}
	return &req, nil
}

// LockRequest loads the request row with FOR UPDATE so responders to the
// same request serialize on it.
func (r *signatureRepository) LockRequest(ctx context.Context, id uint) (*models.SignatureRequest, error) {
	var req models.SignatureRequest
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error; err != nil {
		return nil, readError("SignatureRequest", id, "lock signature request", err)
	}
	return &req, nil
}

func (r *signatureRepository) ListRequestsByCreator(ctx context.Context, userID, contractID uint, limit, offset int) ([]models.SignatureRequest, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("created_by = ?", userID)
		if contractID != 0 {
			db = db.Where("contract_id = ?", contractID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.SignatureRequest{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, models.NewPersistenceError("count signature requests", err)
	}

	var reqs []models.SignatureRequest
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Preload("Signatories", orderedSignatories).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&reqs).Error; err != nil {
		return nil, 0, models.NewPersistenceError("list signature requests", err)
	}
	return reqs, total, nil
}

// TransitionRequest moves a request to `to` only if it is still in `from`.
func (r *signatureRepository) TransitionRequest(ctx context.Context, id uint, from, to models.SignatureRequestStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SignatureRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "transition")
		return false, models.NewPersistenceError("update signature request status", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.log.LogUpdate(ctx, map[string]any{"signature_request_id": id, "from": from, "to": to})
	return true, nil
}

// ListOverdueRequests returns pending requests whose expiry passed before now,
// locked for the caller's transaction.
func (r *signatureRepository) ListOverdueRequests(ctx context.Context, now time.Time, limit int) ([]models.SignatureRequest, error) {
	var reqs []models.SignatureRequest
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND expires_at < ?", models.SignatureRequestStatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&reqs).Error; err != nil {
		return nil, models.NewPersistenceError("list overdue signature requests", err)
	}
	return reqs, nil
}

func (r *signatureRepository) GetSignatory(ctx context.Context, id uint) (*models.Signatory, error) {
	var s models.Signatory
	if err := r.db.WithContext(ctx).Preload("SignatureRequest").First(&s, id).Error; err != nil {
		return nil, readError("Signatory", id, "load signatory", err)
	}
	return &s, nil
}

// GetSignatoryByToken matches the token exactly. The token never appears in errors.
func (r *signatureRepository) GetSignatoryByToken(ctx context.Context, token string) (*models.Signatory, error) {
	var s models.Signatory
	if err := r.db.WithContext(ctx).
		Preload("SignatureRequest").
		Where("verification_token = ?", token).
		First(&s).Error; err != nil {
		return nil, readError("Signatory", "<token>", "load signatory by token", err)
	}
	return &s, nil
}

// ResolveSignatory records a response only while the signatory is still
// pending. It reports false when another response got there first.
func (r *signatureRepository) ResolveSignatory(ctx context.Context, id uint, res SignatoryResolution) (bool, error) {
	updates := map[string]any{
		"status":     res.Status,
		"signed_at":  res.SignedAt,
		"ip_address": nil,
	}
	if res.IPAddress != "" {
		updates["ip_address"] = res.IPAddress
	}
	if res.SignatureImage != nil {
		updates["signature_image"] = *res.SignatureImage
	}

	result := r.db.WithContext(ctx).
		Model(&models.Signatory{}).
		Where("id = ? AND status = ?", id, models.SignatoryStatusPending).
		Updates(updates)
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "resolve_signatory")
		return false, models.NewPersistenceError("update signatory", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	r.log.LogUpdate(ctx, map[string]any{"signatory_id": id, "status": res.Status})
	return true, nil
}

func (r *signatureRepository) ListSignatoryStatuses(ctx context.Context, requestID uint) ([]models.SignatoryStatus, error) {
	var statuses []models.SignatoryStatus
	if err := r.db.WithContext(ctx).
		Model(&models.Signatory{}).
		Where("signature_request_id = ?", requestID).
		Order("id ASC").
		Pluck("status", &statuses).Error; err != nil {
		return nil, models.NewPersistenceError("list signatory statuses", err)
	}
	return statuses, nil
}

func (r *signatureRepository) AppendAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.log.LogError(ctx, err, "audit")
		return models.NewPersistenceError("append audit event", err)
	}
	return nil
}

func (r *signatureRepository) ListAuditEvents(ctx context.Context, requestID uint) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	if err := r.db.WithContext(ctx).
		Where("signature_request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, models.NewPersistenceError("list audit events", err)
	}
	return events, nil
}
