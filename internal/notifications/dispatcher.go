package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"proposta/internal/models"
	"proposta/internal/observability"
	"proposta/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MailMessage is the job an external mail worker pops from the outbox list.
type MailMessage struct {
	ID                 string    `json:"id"`
	Kind               string    `json:"kind"`
	To                 string    `json:"to"`
	ToName             string    `json:"to_name"`
	Subject            string    `json:"subject"`
	Text               string    `json:"text"`
	SignatureRequestID uint      `json:"signature_request_id"`
	SignatoryID        uint      `json:"signatory_id"`
	Resend             bool      `json:"resend"`
	ExpiresAt          time.Time `json:"expires_at"`
	QueuedAt           time.Time `json:"queued_at"`
}

// SignatureDispatcher composes signing invitations and queues them on a Redis list.
type SignatureDispatcher struct {
	store     repository.Store
	rdb       *redis.Client
	outboxKey string
	linkFor   func(token string) string
	now       func() time.Time
}

// NewSignatureDispatcher creates a dispatcher. With a nil client messages are
// only logged, with the link redacted.
func NewSignatureDispatcher(store repository.Store, rdb *redis.Client, outboxKey string, linkFor func(token string) string) *SignatureDispatcher {
	return &SignatureDispatcher{
		store:     store,
		rdb:       rdb,
		outboxKey: outboxKey,
		linkFor:   linkFor,
		now:       time.Now,
	}
}

// NotifySignatory looks up the signatory, sender and contract and queues the invitation.
func (d *SignatureDispatcher) NotifySignatory(ctx context.Context, signatoryID uint, resend bool) error {
	sig, err := d.store.Signatures().GetSignatory(ctx, signatoryID)
	if err != nil {
		return err
	}
	req := sig.SignatureRequest
	if req == nil {
		return models.NewNotFoundError("SignatureRequest", sig.SignatureRequestID)
	}
	contract, err := d.store.Contracts().GetByID(ctx, req.ContractID)
	if err != nil {
		return err
	}
	sender, err := d.store.Profiles().GetByID(ctx, req.CreatedBy)
	if err != nil {
		if !models.IsCode(err, models.CodeNotFound) {
			return err
		}
		sender = nil
	}

	link := d.linkFor(sig.VerificationToken)
	msg := composeInvitation(sig, req, contract, sender, link, resend)
	msg.ID = uuid.NewString()
	msg.QueuedAt = d.now().UTC()

	if d.rdb == nil {
		observability.GlobalLogger.InfoContext(ctx, "mail outbox disabled, signature invitation not queued",
			slog.Uint64("signatory_id", uint64(sig.ID)),
			slog.String("to", sig.Email),
			slog.String("link", strings.ReplaceAll(link, sig.VerificationToken, "<redacted>")),
		)
		return nil
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}
	if err := d.rdb.LPush(ctx, d.outboxKey, raw).Err(); err != nil {
		observability.RedisErrors.WithLabelValues("lpush").Inc()
		return fmt.Errorf("queue signature invitation: %w", err)
	}
	return nil
}

func composeInvitation(sig *models.Signatory, req *models.SignatureRequest, contract *models.Contract, sender *models.Profile, link string, resend bool) *MailMessage {
	senderName := sender.DisplayName()
	if senderName == "" {
		senderName = "Proposta"
	}
	client := ""
	if contract.Proposal != nil {
		client = contract.Proposal.ClientName
	}

	subject := fmt.Sprintf("%s solicitou sua assinatura", senderName)
	if resend {
		subject = "Lembrete: " + subject
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Olá %s,\n\n", sig.Name)
	if client != "" {
		fmt.Fprintf(&b, "%s enviou o contrato referente a %s para sua assinatura.\n\n", senderName, client)
	} else {
		fmt.Fprintf(&b, "%s enviou um contrato para sua assinatura.\n\n", senderName)
	}
	fmt.Fprintf(&b, "Acesse o link abaixo para revisar e assinar:\n%s\n\n", link)
	fmt.Fprintf(&b, "O link é pessoal e expira em %s.\n", req.ExpiresAt.UTC().Format("02/01/2006 15:04 UTC"))

	kind := "signature_invitation"
	if resend {
		kind = "signature_reminder"
	}
	return &MailMessage{
		Kind:               kind,
		To:                 sig.Email,
		ToName:             sig.Name,
		Subject:            subject,
		Text:               b.String(),
		SignatureRequestID: req.ID,
		SignatoryID:        sig.ID,
		Resend:             resend,
		ExpiresAt:          req.ExpiresAt,
	}
}
