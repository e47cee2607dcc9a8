package service

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"proposta/internal/models"
	"proposta/internal/observability"
	"proposta/internal/repository"
	"proposta/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/blake2b"
)

// Realtime event types pushed to request creators.
const (
	EventSignatureRequestUpdated = "signature_request_updated"
)

// Reconciliation causes recorded in audit data and metrics.
const (
	causeSignatoryRejected = "signatory_rejected"
	causeAllSigned         = "all_signatories_signed"
	causeOwnerCancelled    = "cancelled_by_owner"
	causeExpirySweep       = "expiry_sweep"
)

// SignatoryNotifier delivers the signing link for one signatory.
type SignatoryNotifier interface {
	NotifySignatory(ctx context.Context, signatoryID uint, resend bool) error
}

// RealtimePublisher pushes an event to a connected user.
type RealtimePublisher interface {
	PublishEvent(ctx context.Context, userID uint, eventType string, payload any) error
}

// SignatureService runs the e-signature workflow for contracts.
type SignatureService struct {
	store    repository.Store
	notifier SignatoryNotifier
	realtime RealtimePublisher
	images   *SignatureImageProcessor
	linkFor  func(token string) string

	now    func() time.Time
	tokens func() (string, error)
}

type SignatoryInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CreateSignatureRequestInput struct {
	UserID      uint
	ContractID  uint
	Signatories []SignatoryInput
}

type UpdateSignatureStatusInput struct {
	SignatoryID    uint
	Status         models.SignatoryStatus
	SignatureImage string
	Comment        string
	IPAddress      string
}

// SigningView is what the public signing page needs.
type SigningView struct {
	Signatory       *models.Signatory             `json:"signatory"`
	RequestID       uint                          `json:"signature_request_id"`
	RequestStatus   models.SignatureRequestStatus `json:"request_status"`
	ExpiresAt       time.Time                     `json:"expires_at"`
	ContractContent string                        `json:"contract_content"`
	ClientName      string                        `json:"client_name"`
	SenderName      string                        `json:"sender_name"`
}

// NewSignatureService wires a SignatureService with the real clock and token source.
func NewSignatureService(
	store repository.Store,
	notifier SignatoryNotifier,
	realtime RealtimePublisher,
	images *SignatureImageProcessor,
	linkFor func(token string) string,
) *SignatureService {
	return &SignatureService{
		store:    store,
		notifier: notifier,
		realtime: realtime,
		images:   images,
		linkFor:  linkFor,
		now:      time.Now,
		tokens:   NewVerificationToken,
	}
}

func validateSignatories(in []SignatoryInput) ([]SignatoryInput, error) {
	if len(in) == 0 {
		return nil, models.NewValidationError("at least one signatory is required")
	}
	if len(in) > validation.MaxSignatories {
		return nil, models.NewValidationError("too many signatories")
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]SignatoryInput, 0, len(in))
	for i, s := range in {
		name := strings.TrimSpace(s.Name)
		email := strings.TrimSpace(s.Email)
		if err := validation.ValidateSignatoryName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		key := validation.NormalizeEmail(email)
		if _, dup := seen[key]; dup {
			return nil, models.NewValidationError("signatory " + strconv.Itoa(i+1) + " repeats an email address")
		}
		seen[key] = struct{}{}
		out = append(out, SignatoryInput{Name: name, Email: email})
	}
	return out, nil
}

// CreateSignatureRequest stores a pending request with one signatory per input
// and notifies each signatory after the transaction commits.
func (s *SignatureService) CreateSignatureRequest(ctx context.Context, in CreateSignatureRequestInput) (req *models.SignatureRequest, err error) {
	ctx, span := observability.StartSpan(ctx, "signature.create",
		attribute.Int64("contract.id", int64(in.ContractID)),
		attribute.Int("signatory.count", len(in.Signatories)),
	)
	defer func() { observability.EndSpan(span, err) }()

	signatories, err := validateSignatories(in.Signatories)
	if err != nil {
		return nil, err
	}
	if err := s.checkContractOwner(ctx, s.store, in.UserID, in.ContractID); err != nil {
		return nil, err
	}

	tokens, err := newTokenSet(len(signatories), s.tokens)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	now := s.now().UTC()
	req = &models.SignatureRequest{
		ContractID: in.ContractID,
		CreatedBy:  in.UserID,
		Status:     models.SignatureRequestStatusPending,
		ExpiresAt:  now.Add(models.SignatureRequestTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i, sig := range signatories {
		req.Signatories = append(req.Signatories, models.Signatory{
			Name:              sig.Name,
			Email:             sig.Email,
			Status:            models.SignatoryStatusPending,
			VerificationToken: tokens[i],
			CreatedAt:         now,
		})
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Signatures().CreateRequest(ctx, req); err != nil {
			return err
		}
		if err := tx.Contracts().UpdateStatus(ctx, in.ContractID, models.ContractStatusSent); err != nil {
			return err
		}
		return tx.Signatures().AppendAuditEvent(ctx, &models.AuditEvent{
			SignatureRequestID: req.ID,
			EventType:          models.AuditSignatureRequestCreated,
			EventData: map[string]any{
				"created_by":      in.UserID,
				"signatory_count": len(req.Signatories),
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	observability.SignatureRequestsCreated.Inc()

	for i := range req.Signatories {
		s.dispatch(ctx, req.ID, &req.Signatories[i], false)
	}

	s.attachLinks(req)
	return req, nil
}

func (s *SignatureService) checkContractOwner(ctx context.Context, store repository.Store, userID, contractID uint) error {
	contract, err := store.Contracts().GetByID(ctx, contractID)
	if err != nil {
		return err
	}
	if contract.Proposal == nil || contract.Proposal.UserID != userID {
		return models.NewForbiddenError("You can only request signatures for your own contracts")
	}
	return nil
}

// GetSignatoryByToken resolves a signing link. The parent request must still
// be actionable at the time of the call.
func (s *SignatureService) GetSignatoryByToken(ctx context.Context, token string) (*models.Signatory, error) {
	if !validation.LooksLikeVerificationToken(token) {
		return nil, models.NewNotFoundError("Signatory", "<token>")
	}
	sig, err := s.store.Signatures().GetSignatoryByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sig.SignatureRequest == nil {
		return nil, models.NewNotFoundError("SignatureRequest", sig.SignatureRequestID)
	}
	if err := sig.SignatureRequest.CheckAccessible(s.now()); err != nil {
		observability.SignatureAccessDenied.WithLabelValues(string(sig.SignatureRequest.EffectiveStatus(s.now()))).Inc()
		return nil, err
	}
	return sig, nil
}

// GetSigningView resolves a token and gathers the document shown to the signatory.
func (s *SignatureService) GetSigningView(ctx context.Context, token string) (*SigningView, error) {
	sig, err := s.GetSignatoryByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	req := sig.SignatureRequest

	view := &SigningView{
		Signatory:     sig,
		RequestID:     req.ID,
		RequestStatus: req.EffectiveStatus(s.now()),
		ExpiresAt:     req.ExpiresAt,
	}
	contract, err := s.store.Contracts().GetByID(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	view.ContractContent = contract.Content
	if contract.Proposal != nil {
		view.ClientName = contract.Proposal.ClientName
	}

	profile, err := s.store.Profiles().GetByID(ctx, req.CreatedBy)
	switch {
	case err == nil:
		view.SenderName = profile.DisplayName()
	case !models.IsCode(err, models.CodeNotFound):
		return nil, err
	}

	sig.SignatureRequest = nil
	return view, nil
}

// UpdateSignatureStatus records a signatory's response and reconciles the
// parent request in the same transaction.
func (s *SignatureService) UpdateSignatureStatus(ctx context.Context, in UpdateSignatureStatusInput) (sig *models.Signatory, err error) {
	ctx, span := observability.StartSpan(ctx, "signature.respond",
		attribute.Int64("signatory.id", int64(in.SignatoryID)),
		attribute.String("signatory.status", string(in.Status)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if !in.Status.Valid() {
		return nil, models.NewValidationError("status must be signed or rejected")
	}
	if err := validation.ValidateComment(in.Comment); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var image *string
	if in.Status == models.SignatoryStatusSigned && strings.TrimSpace(in.SignatureImage) != "" {
		normalized, err := s.images.Normalize(in.SignatureImage)
		if err != nil {
			return nil, err
		}
		image = &normalized
	}

	var (
		req        *models.SignatureRequest
		reconciled models.SignatureRequestStatus
	)
	now := s.now().UTC()

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := tx.Signatures().GetSignatory(ctx, in.SignatoryID)
		if err != nil {
			return err
		}
		req, err = tx.Signatures().LockRequest(ctx, current.SignatureRequestID)
		if err != nil {
			return err
		}
		if err := req.CheckAccessible(now); err != nil {
			return err
		}

		resolved, err := tx.Signatures().ResolveSignatory(ctx, current.ID, repository.SignatoryResolution{
			Status:         in.Status,
			SignedAt:       now,
			IPAddress:      in.IPAddress,
			SignatureImage: image,
		})
		if err != nil {
			return err
		}
		if !resolved {
			return models.NewPreconditionError("signatory has already responded")
		}

		data := map[string]any{"email": current.Email}
		if in.Comment != "" {
			data["comment"] = in.Comment
		}
		eventType := models.AuditSignatureRejected
		if in.Status == models.SignatoryStatusSigned {
			eventType = models.AuditSignatureSigned
			contract, err := tx.Contracts().GetByID(ctx, req.ContractID)
			if err != nil {
				return err
			}
			data["document_hash"] = documentHash(contract.Content)
		}
		if err := tx.Signatures().AppendAuditEvent(ctx, &models.AuditEvent{
			SignatureRequestID: req.ID,
			SignatoryID:        &current.ID,
			EventType:          eventType,
			EventData:          data,
			IPAddress:          optionalString(in.IPAddress),
			CreatedAt:          now,
		}); err != nil {
			return err
		}

		reconciled, err = s.reconcileLocked(ctx, tx, req, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.SignatoryResponses.WithLabelValues(string(in.Status)).Inc()

	s.publish(ctx, req.CreatedBy, map[string]any{
		"signature_request_id": req.ID,
		"signatory_id":         in.SignatoryID,
		"signatory_status":     in.Status,
		"request_status":       reconciled,
	})

	return s.store.Signatures().GetSignatory(ctx, in.SignatoryID)
}

// reconcileLocked recomputes the request status from its full signatory set.
// Only a pending request moves; the caller holds the request row lock.
func (s *SignatureService) reconcileLocked(ctx context.Context, tx repository.Store, req *models.SignatureRequest, now time.Time) (models.SignatureRequestStatus, error) {
	if req.Status != models.SignatureRequestStatusPending {
		return req.Status, nil
	}
	statuses, err := tx.Signatures().ListSignatoryStatuses(ctx, req.ID)
	if err != nil {
		return "", err
	}
	target := models.ReconcileStatus(statuses)
	if target == models.SignatureRequestStatusPending {
		return target, nil
	}

	moved, err := tx.Signatures().TransitionRequest(ctx, req.ID, models.SignatureRequestStatusPending, target)
	if err != nil {
		return "", err
	}
	if !moved {
		return req.Status, nil
	}
	if target == models.SignatureRequestStatusCompleted {
		if err := tx.Contracts().UpdateStatus(ctx, req.ContractID, models.ContractStatusSigned); err != nil {
			return "", err
		}
	}

	cause := causeAllSigned
	eventType := models.AuditSignatureRequestCompleted
	if target == models.SignatureRequestStatusCancelled {
		cause = causeSignatoryRejected
		eventType = models.AuditSignatureRequestCancelled
	}
	if err := tx.Signatures().AppendAuditEvent(ctx, &models.AuditEvent{
		SignatureRequestID: req.ID,
		EventType:          eventType,
		EventData:          map[string]any{"cause": cause},
		CreatedAt:          now,
	}); err != nil {
		return "", err
	}
	observability.SignatureRequestTransitions.WithLabelValues(string(target), cause).Inc()
	req.Status = target
	return target, nil
}

// Reconcile re-runs reconciliation for one request. Readers call it when a
// pending request has only resolved signatories.
func (s *SignatureService) Reconcile(ctx context.Context, requestID uint) (models.SignatureRequestStatus, error) {
	var status models.SignatureRequestStatus
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		req, err := tx.Signatures().LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		status, err = s.reconcileLocked(ctx, tx, req, s.now().UTC())
		return err
	})
	return status, err
}

// ResendSignatureRequest dispatches the signing link again. It reports
// whether the dispatcher accepted the message; dispatch failures are logged.
func (s *SignatureService) ResendSignatureRequest(ctx context.Context, userID, signatoryID uint) (bool, error) {
	sig, err := s.store.Signatures().GetSignatory(ctx, signatoryID)
	if err != nil {
		return false, err
	}
	req := sig.SignatureRequest
	if req == nil {
		return false, models.NewNotFoundError("SignatureRequest", sig.SignatureRequestID)
	}
	if req.CreatedBy != userID {
		return false, models.NewForbiddenError("You can only resend your own signature requests")
	}
	if err := req.CheckAccessible(s.now()); err != nil {
		return false, err
	}
	if sig.Status != models.SignatoryStatusPending {
		return false, models.NewPreconditionError("signatory has already responded")
	}

	return s.dispatch(ctx, req.ID, sig, true), nil
}

// CancelSignatureRequest cancels a pending request owned by userID.
// Signatory rows are left untouched.
func (s *SignatureService) CancelSignatureRequest(ctx context.Context, userID, requestID uint) (*models.SignatureRequest, error) {
	now := s.now().UTC()
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		req, err := tx.Signatures().LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req.CreatedBy != userID {
			return models.NewForbiddenError("You can only cancel your own signature requests")
		}
		if err := req.CheckAccessible(now); err != nil {
			return err
		}
		if req.Status != models.SignatureRequestStatusPending {
			return models.NewPreconditionError("only pending signature requests can be cancelled")
		}

		moved, err := tx.Signatures().TransitionRequest(ctx, req.ID, models.SignatureRequestStatusPending, models.SignatureRequestStatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			return models.NewPreconditionError("signature request is no longer pending")
		}
		return tx.Signatures().AppendAuditEvent(ctx, &models.AuditEvent{
			SignatureRequestID: req.ID,
			EventType:          models.AuditSignatureRequestCancelled,
			EventData:          map[string]any{"cancelled_by": userID, "cause": causeOwnerCancelled},
			CreatedAt:          now,
		})
	})
	if err != nil {
		return nil, err
	}
	observability.SignatureRequestTransitions.WithLabelValues(string(models.SignatureRequestStatusCancelled), causeOwnerCancelled).Inc()

	req, err := s.store.Signatures().GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, userID, map[string]any{
		"signature_request_id": req.ID,
		"request_status":       req.Status,
	})
	s.attachLinks(req)
	return req, nil
}

// GetSignatureRequest returns one request of userID with its signatories.
func (s *SignatureService) GetSignatureRequest(ctx context.Context, userID, requestID uint) (*models.SignatureRequest, error) {
	req, err := s.store.Signatures().GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != userID {
		return nil, models.NewForbiddenError("You can only view your own signature requests")
	}
	if err := s.repairIfStale(ctx, req); err != nil {
		return nil, err
	}
	s.present(req)
	return req, nil
}

// ListSignatureRequests returns the requests created by userID, newest first.
// A non-zero contractID restricts the list to that contract.
func (s *SignatureService) ListSignatureRequests(ctx context.Context, userID, contractID uint, limit, offset int) ([]models.SignatureRequest, int64, error) {
	reqs, total, err := s.store.Signatures().ListRequestsByCreator(ctx, userID, contractID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range reqs {
		if err := s.repairIfStale(ctx, &reqs[i]); err != nil {
			return nil, 0, err
		}
		s.present(&reqs[i])
	}
	return reqs, total, nil
}

// ListAuditEvents returns the audit trail of a request owned by userID.
func (s *SignatureService) ListAuditEvents(ctx context.Context, userID, requestID uint) ([]models.AuditEvent, error) {
	req, err := s.store.Signatures().GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != userID {
		return nil, models.NewForbiddenError("You can only view your own signature requests")
	}
	return s.store.Signatures().ListAuditEvents(ctx, requestID)
}

// ExpireOverdue persists the expired status for pending requests past their
// expiry. It uses the same predicate as every read path.
func (s *SignatureService) ExpireOverdue(ctx context.Context, batch int) (int, error) {
	now := s.now().UTC()
	var expired []models.SignatureRequest
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		overdue, err := tx.Signatures().ListOverdueRequests(ctx, now, batch)
		if err != nil {
			return err
		}
		for _, req := range overdue {
			if !req.IsExpired(now) {
				continue
			}
			moved, err := tx.Signatures().TransitionRequest(ctx, req.ID, models.SignatureRequestStatusPending, models.SignatureRequestStatusExpired)
			if err != nil {
				return err
			}
			if !moved {
				continue
			}
			if err := tx.Signatures().AppendAuditEvent(ctx, &models.AuditEvent{
				SignatureRequestID: req.ID,
				EventType:          models.AuditSignatureRequestExpired,
				EventData:          map[string]any{"expires_at": req.ExpiresAt, "cause": causeExpirySweep},
				CreatedAt:          now,
			}); err != nil {
				return err
			}
			expired = append(expired, req)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, req := range expired {
		observability.SignatureRequestTransitions.WithLabelValues(string(models.SignatureRequestStatusExpired), causeExpirySweep).Inc()
		s.publish(ctx, req.CreatedBy, map[string]any{
			"signature_request_id": req.ID,
			"request_status":       models.SignatureRequestStatusExpired,
		})
	}
	return len(expired), nil
}

// repairIfStale reconciles a pending request whose signatories have all
// responded, which only happens if an earlier write was interrupted.
func (s *SignatureService) repairIfStale(ctx context.Context, req *models.SignatureRequest) error {
	if req.Status != models.SignatureRequestStatusPending || len(req.Signatories) == 0 {
		return nil
	}
	statuses := make([]models.SignatoryStatus, len(req.Signatories))
	for i, sig := range req.Signatories {
		statuses[i] = sig.Status
	}
	if models.ReconcileStatus(statuses) == models.SignatureRequestStatusPending {
		return nil
	}

	observability.GlobalLogger.WarnContext(ctx, "reconciling stale signature request",
		slog.Uint64("signature_request_id", uint64(req.ID)),
	)
	status, err := s.Reconcile(ctx, req.ID)
	if err != nil {
		return err
	}
	req.Status = status
	return nil
}

// present applies the derived expiry and adds signing links for the creator.
func (s *SignatureService) present(req *models.SignatureRequest) {
	req.Status = req.EffectiveStatus(s.now())
	s.attachLinks(req)
}

func (s *SignatureService) attachLinks(req *models.SignatureRequest) {
	if s.linkFor == nil {
		return
	}
	for i := range req.Signatories {
		req.Signatories[i].SigningLink = s.linkFor(req.Signatories[i].VerificationToken)
	}
}

// dispatch notifies one signatory and records the email event on success.
func (s *SignatureService) dispatch(ctx context.Context, requestID uint, sig *models.Signatory, resend bool) bool {
	kind, eventType := "initial", models.AuditSignatureEmailSent
	if resend {
		kind, eventType = "resend", models.AuditSignatureEmailResent
	}
	if s.notifier == nil {
		observability.NotificationDispatches.WithLabelValues(kind, "skipped").Inc()
		return false
	}

	if err := s.notifier.NotifySignatory(ctx, sig.ID, resend); err != nil {
		observability.NotificationDispatches.WithLabelValues(kind, "failed").Inc()
		observability.GlobalLogger.WarnContext(ctx, "signatory notification failed",
			slog.Uint64("signature_request_id", uint64(requestID)),
			slog.Uint64("signatory_id", uint64(sig.ID)),
			slog.Bool("resend", resend),
			slog.String("error", err.Error()),
		)
		return false
	}
	observability.NotificationDispatches.WithLabelValues(kind, "sent").Inc()

	data := map[string]any{"email": sig.Email}
	if resend {
		data["signatory_id"] = sig.ID
		data["resend"] = true
	}
	if err := s.store.Signatures().AppendAuditEvent(ctx, &models.AuditEvent{
		SignatureRequestID: requestID,
		SignatoryID:        &sig.ID,
		EventType:          eventType,
		EventData:          data,
		CreatedAt:          s.now().UTC(),
	}); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to record notification audit event",
			slog.Uint64("signatory_id", uint64(sig.ID)),
			slog.String("error", err.Error()),
		)
	}
	return true
}

func (s *SignatureService) publish(ctx context.Context, userID uint, payload map[string]any) {
	if s.realtime == nil {
		return
	}
	if err := s.realtime.PublishEvent(ctx, userID, EventSignatureRequestUpdated, payload); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to publish signature update",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}

// documentHash fingerprints the contract text a signatory saw.
func documentHash(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
