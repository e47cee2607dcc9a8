package models

import (
	"time"

	"gorm.io/gorm"
)

// Proposal is a commercial offer sent to a client.
type Proposal struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	ClientName      string         `gorm:"size:200;not null" json:"client_name"`
	Description     string         `gorm:"type:text" json:"description"`
	Items           []ProposalItem `gorm:"foreignKey:ProposalID;constraint:OnDelete:CASCADE" json:"items"`
	TotalCents      int64          `gorm:"not null;default:0" json:"total_cents"`
	DeliveryDate    *time.Time     `json:"delivery_date,omitempty"`
	ValidUntil      *time.Time     `json:"valid_until,omitempty"`
	AdditionalNotes string         `gorm:"type:text" json:"additional_notes"`
	Template        string         `gorm:"size:50;not null;default:'modern'" json:"template"`
	IncludeContract bool           `gorm:"not null;default:false" json:"include_contract"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// ProposalItem is one priced line of a proposal.
type ProposalItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ProposalID uint   `gorm:"not null;index" json:"proposal_id"`
	Name       string `gorm:"size:200;not null" json:"name"`
	ValueCents int64  `gorm:"not null" json:"value_cents"`
}

// SumItems returns the proposal total in cents.
func SumItems(items []ProposalItem) int64 {
	var total int64
	for _, it := range items {
		total += it.ValueCents
	}
	return total
}

// ContractStatus defines lifecycle states of a contract document.
type ContractStatus string

const (
	ContractStatusDraft  ContractStatus = "draft"
	ContractStatusSent   ContractStatus = "sent"
	ContractStatusSigned ContractStatus = "signed"
)

// Contract is the text blob a signature request refers to.
type Contract struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ProposalID uint           `gorm:"not null;index" json:"proposal_id"`
	Proposal   *Proposal      `gorm:"foreignKey:ProposalID" json:"proposal,omitempty"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Status     ContractStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Profile holds the sender details shown on proposals and signature emails.
// ID is the identity provider's user ID.
type Profile struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string    `gorm:"size:200" json:"name"`
	CompanyName string    `gorm:"size:200" json:"company_name"`
	CompanyLogo string    `gorm:"type:text" json:"company_logo,omitempty"`
	Location    string    `gorm:"size:200" json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName prefers the company name, falling back to the person's name.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.CompanyName != "" {
		return p.CompanyName
	}
	return p.Name
}

// Subscription is the server-side plan and monthly usage counter of a user.
type Subscription struct {
	UserID        uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Plan          string    `gorm:"size:32;not null;default:'free'" json:"plan"`
	UsedProposals int       `gorm:"not null;default:0" json:"used_proposals"`
	PeriodMonth   int       `gorm:"not null" json:"period_month"`
	PeriodYear    int       `gorm:"not null" json:"period_year"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
