package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/pricing"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the caller did not
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ProposalStatus represents the commercial state of a proposal
type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusSent     ProposalStatus = "sent"
	ProposalStatusAccepted ProposalStatus = "accepted"
)

// Proposal is a priced, multi-service offer for one client event.
// The Total* fields are derived state written only by the pricing engine.
type Proposal struct {
	BaseModel
	UserID     string         `gorm:"type:varchar(100);index"`
	UniqueHash string         `gorm:"type:varchar(64);uniqueIndex"`
	ClientName string         `gorm:"type:varchar(200);not null"`
	EventDate  *time.Time     `gorm:"type:date"`
	Pax        int            `gorm:"not null;default:0"`
	Status     ProposalStatus `gorm:"type:varchar(20);not null;default:'draft';index"`

	// nil means no manual discount is set
	ManualDiscountPercentage *decimal.Decimal `gorm:"type:decimal(5,2);column:discount_percentage"`
	ManualDiscountReason     string           `gorm:"type:varchar(255);column:discount_reason"`

	TotalBase             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalVAT              decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;column:total_vat"`
	TotalFinal            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalCost             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalMargin           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MarginPercentage      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	VolumeDiscountApplied bool            `gorm:"not null;default:false"`
	LastCalculatedAt      *time.Time

	Services []Service `gorm:"foreignKey:ProposalID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns the ID and the public share hash
func (p *Proposal) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if p.UniqueHash == "" {
		p.UniqueHash = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return nil
}

// HasManualDiscount reports whether a non-zero manual discount is stored
func (p *Proposal) HasManualDiscount() bool {
	return p.ManualDiscountPercentage != nil && !p.ManualDiscountPercentage.IsZero()
}

// ServiceType represents the kind of service offered in a proposal
type ServiceType string

const (
	ServiceTypeGastronomy ServiceType = "gastronomy"
	ServiceTypeLogistics  ServiceType = "logistics"
	ServiceTypeStaff      ServiceType = "staff"
	ServiceTypeOther      ServiceType = "other"
)

// IsValid checks if the service type is known
func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTypeGastronomy, ServiceTypeLogistics, ServiceTypeStaff, ServiceTypeOther:
		return true
	}
	return false
}

// DefaultVATCategory returns the VAT category implied by the service type:
// gastronomy is taxed as food, everything else as a service
func (t ServiceType) DefaultVATCategory() pricing.VATCategory {
	if t == ServiceTypeGastronomy {
		return pricing.VATCategoryFood
	}
	return pricing.VATCategoryService
}

// Service groups the options offered for one need (venue, menu, staff...)
type Service struct {
	BaseModel
	ProposalID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	Title         string              `gorm:"type:varchar(200);not null"`
	Type          ServiceType         `gorm:"type:varchar(20);not null"`
	VATCategory   pricing.VATCategory `gorm:"type:varchar(20);not null;column:vat_category"`
	DisplayOrder  int                 `gorm:"not null;default:0"`
	IsMultichoice bool                `gorm:"not null;default:false"`
	Options       []ServiceOption     `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for Service
func (Service) TableName() string {
	return "proposal_services"
}

// BeforeCreate derives the VAT category from the service type when unset
func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if !s.Type.IsValid() {
		return fmt.Errorf("unknown service type %q", s.Type)
	}
	if s.VATCategory == "" {
		s.VATCategory = s.Type.DefaultVATCategory()
	}
	if !s.VATCategory.IsValid() {
		return fmt.Errorf("unknown VAT category %q", s.VATCategory)
	}
	return nil
}

// ServiceOption carries the per-attendee commercial terms of a service
type ServiceOption struct {
	BaseModel
	ServiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(200);not null"`
	PricePax    decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	DiscountPax decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	CostPax     decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	Description string          `gorm:"type:text"`
	Items       []ProposalItem  `gorm:"foreignKey:OptionID;constraint:OnDelete:CASCADE"`
}

// ProposalItem is the atomic unit the pricing engine prices
type ProposalItem struct {
	BaseModel
	OptionID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Description string    `gorm:"type:text"`
}

// VolumeDiscountTier maps an attendee range to an automatic discount.
// MaxPax nil means unbounded.
type VolumeDiscountTier struct {
	BaseModel
	MinPax             int             `gorm:"not null"`
	MaxPax             *int            `gorm:""`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Description        string          `gorm:"type:varchar(255)"`
	IsActive           bool            `gorm:"not null;default:true"`
}

// ToPricingTier converts the stored tier to the calculation type
func (t *VolumeDiscountTier) ToPricingTier() (pricing.Tier, error) {
	pct, err := pricing.NewPercentage(t.DiscountPercentage)
	if err != nil {
		return pricing.Tier{}, err
	}
	return pricing.Tier{
		MinPax:             t.MinPax,
		MaxPax:             t.MaxPax,
		DiscountPercentage: pct,
		Active:             t.IsActive,
	}, nil
}

// PriceChangeType represents the kind of price-affecting event
type PriceChangeType string

const (
	PriceChangeRecalculation  PriceChangeType = "recalculation"
	PriceChangeDiscountUpdate PriceChangeType = "discount_update"
	PriceChangePaxUpdate      PriceChangeType = "pax_update"
)

// SystemActorID identifies changes not triggered by a user
const SystemActorID = "system"

// PriceAuditEntry is one immutable row of the price change ledger.
// Rows are only ever inserted.
type PriceAuditEntry struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement"`
	ProposalID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ActorID     string          `gorm:"type:varchar(100);not null"`
	ActorName   string          `gorm:"type:varchar(200)"`
	ChangeType  PriceChangeType `gorm:"type:varchar(30);not null;index"`
	EntityType  string          `gorm:"type:varchar(50);not null"`
	EntityID    *uuid.UUID      `gorm:"type:uuid"`
	OldValue    string          `gorm:"type:varchar(50)"`
	NewValue    string          `gorm:"type:varchar(50)"`
	Description string          `gorm:"type:text"`
	Metadata    string          `gorm:"type:text"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName returns the table name for PriceAuditEntry
func (PriceAuditEntry) TableName() string {
	return "price_audit_log"
}
