package models

import "time"

// SignatureRequestTTL is how long signatories have to respond after a request is created.
const SignatureRequestTTL = 7 * 24 * time.Hour

// SignatureRequestStatus defines lifecycle states for signature requests.
type SignatureRequestStatus string

const (
	// SignatureRequestStatusPending indicates signatories are still responding.
	SignatureRequestStatusPending SignatureRequestStatus = "pending"
	// SignatureRequestStatusCompleted indicates every signatory signed.
	SignatureRequestStatusCompleted SignatureRequestStatus = "completed"
	// SignatureRequestStatusCancelled indicates a rejection or an explicit cancel.
	SignatureRequestStatusCancelled SignatureRequestStatus = "cancelled"
	// SignatureRequestStatusExpired indicates expires_at passed while pending.
	SignatureRequestStatusExpired SignatureRequestStatus = "expired"
)

// SignatoryStatus defines the response state of a single signatory.
type SignatoryStatus string

const (
	SignatoryStatusPending  SignatoryStatus = "pending"
	SignatoryStatusSigned   SignatoryStatus = "signed"
	SignatoryStatusRejected SignatoryStatus = "rejected"
)

// Valid reports whether s is a response a signatory may submit.
func (s SignatoryStatus) Valid() bool {
	return s == SignatoryStatusSigned || s == SignatoryStatusRejected
}

// SignatureRequest groups the signatories asked to sign one contract.
type SignatureRequest struct {
	ID          uint                   `gorm:"primaryKey" json:"id"`
	ContractID  uint                   `gorm:"not null;index" json:"contract_id"`
	Contract    *Contract              `gorm:"foreignKey:ContractID" json:"contract,omitempty"`
	CreatedBy   uint                   `gorm:"not null;index:idx_signature_requests_creator,priority:1" json:"created_by"`
	Status      SignatureRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ExpiresAt   time.Time              `gorm:"not null;index" json:"expires_at"`
	Signatories []Signatory            `gorm:"foreignKey:SignatureRequestID" json:"signatories,omitempty"`
	CreatedAt   time.Time              `gorm:"index:idx_signature_requests_creator,priority:2" json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// IsExpired reports whether a still-pending request has outlived its expiry.
// The persisted status is not consulted beyond "pending".
func (r *SignatureRequest) IsExpired(now time.Time) bool {
	return r.Status == SignatureRequestStatusPending && now.After(r.ExpiresAt)
}

// EffectiveStatus is the status every read path must present and check.
func (r *SignatureRequest) EffectiveStatus(now time.Time) SignatureRequestStatus {
	if r.IsExpired(now) {
		return SignatureRequestStatusExpired
	}
	return r.Status
}

// CheckAccessible fails when the request is cancelled or expired at now.
func (r *SignatureRequest) CheckAccessible(now time.Time) error {
	switch status := r.EffectiveStatus(now); status {
	case SignatureRequestStatusCancelled, SignatureRequestStatusExpired:
		return NewRequestExpiredOrCancelledError(status)
	}
	return nil
}

// Signatory is one recipient invited to sign a request.
type Signatory struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	SignatureRequestID uint              `gorm:"not null;index" json:"signature_request_id"`
	SignatureRequest   *SignatureRequest `gorm:"foreignKey:SignatureRequestID" json:"signature_request,omitempty"`
	Name               string            `gorm:"size:200;not null" json:"name"`
	Email              string            `gorm:"size:320;not null" json:"email"`
	Status             SignatoryStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	SignedAt           *time.Time        `json:"signed_at"`
	VerificationToken  string            `gorm:"size:64;not null;uniqueIndex" json:"-"`
	SignatureImage     *string           `gorm:"type:text" json:"signature_image,omitempty"`
	IPAddress          *string           `gorm:"size:64" json:"ip_address,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`

	// SigningLink is filled only for the request creator.
	SigningLink string `gorm:"-" json:"signing_link,omitempty"`
}

// ReconcileStatus derives a request status from its full signatory set:
// all signed completes it, any rejection cancels it, anything else keeps it pending.
func ReconcileStatus(statuses []SignatoryStatus) SignatureRequestStatus {
	if len(statuses) == 0 {
		return SignatureRequestStatusPending
	}
	allSigned := true
	for _, s := range statuses {
		if s == SignatoryStatusRejected {
			return SignatureRequestStatusCancelled
		}
		if s != SignatoryStatusSigned {
			allSigned = false
		}
	}
	if allSigned {
		return SignatureRequestStatusCompleted
	}
	return SignatureRequestStatusPending
}

// AuditEventType names an entry in a request's audit trail.
type AuditEventType string

const (
	AuditSignatureRequestCreated   AuditEventType = "signature_request_created"
	AuditSignatureEmailSent        AuditEventType = "signature_email_sent"
	AuditSignatureEmailResent      AuditEventType = "signature_email_resent"
	AuditSignatureSigned           AuditEventType = "signature_signed"
	AuditSignatureRejected         AuditEventType = "signature_rejected"
	AuditSignatureRequestCancelled AuditEventType = "signature_request_cancelled"
	AuditSignatureRequestCompleted AuditEventType = "signature_request_completed"
	AuditSignatureRequestExpired   AuditEventType = "signature_request_expired"
)

// AuditEvent is an append-only record of an action on a request.
type AuditEvent struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	SignatureRequestID uint           `gorm:"not null;index:idx_audit_events_request,priority:1" json:"signature_request_id"`
	SignatoryID        *uint          `gorm:"index" json:"signatory_id,omitempty"`
	EventType          AuditEventType `gorm:"type:varchar(64);not null" json:"event_type"`
	EventData          map[string]any `gorm:"serializer:json;type:jsonb" json:"event_data"`
	IPAddress          *string        `gorm:"size:64" json:"ip_address,omitempty"`
	CreatedAt          time.Time      `gorm:"index:idx_audit_events_request,priority:2" json:"created_at"`
}
