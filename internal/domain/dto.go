package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API responses

// LineBreakdownDTO is one priced item. Amounts are before the proposal-level discount.
type LineBreakdownDTO struct {
	ItemID           uuid.UUID `json:"itemId"`
	ServiceID        uuid.UUID `json:"serviceId"`
	ServiceTitle     string    `json:"serviceTitle"`
	OptionName       string    `json:"optionName"`
	Name             string    `json:"name"`
	VATCategory      string    `json:"vatCategory"`
	VATRate          float64   `json:"vatRate"`
	NetPerAttendee   float64   `json:"netPerAttendee"`
	Base             float64   `json:"base"`
	VAT              float64   `json:"vat"`
	Cost             float64   `json:"cost"`
	Margin           float64   `json:"margin"`
	MarginPercentage float64   `json:"marginPercentage"`
}

// TotalsDTO is the full result of a price calculation
type TotalsDTO struct {
	ProposalID               uuid.UUID           `json:"proposalId"`
	Pax                      int                 `json:"pax"`
	RateTableVersion         string              `json:"rateTableVersion"`
	TotalBase                float64             `json:"totalBase"`
	TotalDiscount            float64             `json:"totalDiscount"`
	TotalBaseAfterDiscount   float64             `json:"totalBaseAfterDiscount"`
	TotalVATServices         float64             `json:"totalVatServices"`
	TotalVATFood             float64             `json:"totalVatFood"`
	TotalVAT                 float64             `json:"totalVat"`
	TotalFinal               float64             `json:"totalFinal"`
	TotalCost                float64             `json:"totalCost"`
	TotalMargin              float64             `json:"totalMargin"`
	MarginPercentage         float64             `json:"marginPercentage"`
	DiscountSource           string              `json:"discountSource"`
	VolumeDiscountApplied    bool                `json:"volumeDiscountApplied"`
	VolumeDiscountPercentage float64             `json:"volumeDiscountPercentage"`
	ManualDiscountPercentage float64             `json:"manualDiscountPercentage"`
	Persisted                bool                `json:"persisted"`
	CalculatedAt             string              `json:"calculatedAt"` // ISO 8601
	Lines                    []LineBreakdownDTO  `json:"lines"`
	Formatted                *FormattedTotalsDTO `json:"formatted,omitempty"`
}

// FormattedTotalsDTO carries display strings in es-ES currency format ("1.234,56 €")
type FormattedTotalsDTO struct {
	TotalBase              string `json:"totalBase"`
	TotalDiscount          string `json:"totalDiscount"`
	TotalBaseAfterDiscount string `json:"totalBaseAfterDiscount"`
	TotalVAT               string `json:"totalVat"`
	TotalFinal             string `json:"totalFinal"`
	TotalCost              string `json:"totalCost"`
	TotalMargin            string `json:"totalMargin"`
	MarginPercentage       string `json:"marginPercentage"`
}

// ServiceMarginDTO is the margin of one service before the proposal-level discount
type ServiceMarginDTO struct {
	ServiceID        uuid.UUID `json:"serviceId"`
	Title            string    `json:"title"`
	Type             string    `json:"type"`
	Revenue          float64   `json:"revenue"`
	Cost             float64   `json:"cost"`
	Margin           float64   `json:"margin"`
	MarginPercentage float64   `json:"marginPercentage"`
}

// MarginSummaryDTO aggregates the whole proposal after discount
type MarginSummaryDTO struct {
	TotalRevenue     float64 `json:"totalRevenue"`
	TotalCost        float64 `json:"totalCost"`
	TotalMargin      float64 `json:"totalMargin"`
	MarginPercentage float64 `json:"marginPercentage"`
}

type MarginAnalysisDTO struct {
	ProposalID uuid.UUID          `json:"proposalId"`
	Services   []ServiceMarginDTO `json:"services"`
	Summary    MarginSummaryDTO   `json:"summary"`
}

type PriceAuditEntryDTO struct {
	ID          uint64                 `json:"id"`
	ProposalID  uuid.UUID              `json:"proposalId"`
	ActorID     string                 `json:"actorId"`
	ActorName   string                 `json:"actorName,omitempty"`
	ChangeType  PriceChangeType        `json:"changeType"`
	EntityType  string                 `json:"entityType"`
	EntityID    *uuid.UUID             `json:"entityId,omitempty"`
	OldValue    string                 `json:"oldValue,omitempty"`
	NewValue    string                 `json:"newValue,omitempty"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   string                 `json:"createdAt"` // ISO 8601
}

type VolumeDiscountTierDTO struct {
	ID                 uuid.UUID `json:"id"`
	MinPax             int       `json:"minPax"`
	MaxPax             *int      `json:"maxPax,omitempty"`
	DiscountPercentage float64   `json:"discountPercentage"`
	Description        string    `json:"description,omitempty"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          string    `json:"createdAt"` // ISO 8601
	UpdatedAt          string    `json:"updatedAt"` // ISO 8601
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// API Response wrapper
type APIResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
}

// Request DTOs

// ApplyDiscountRequest sets the manual discount. A zero percentage clears it.
// Percentages decode exactly from JSON numbers or strings; the range is checked by the service.
type ApplyDiscountRequest struct {
	DiscountPercentage *decimal.Decimal `json:"discountPercentage" validate:"required" swaggertype:"number"`
	Reason             string           `json:"reason" validate:"max=255"`
}

type UpdatePaxRequest struct {
	Pax *int `json:"pax" validate:"required,gte=0"`
}

type CreateVolumeDiscountTierRequest struct {
	MinPax             *int             `json:"minPax" validate:"required,gte=0"`
	MaxPax             *int             `json:"maxPax,omitempty" validate:"omitempty,gte=0"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage" validate:"required" swaggertype:"number"`
	Description        string           `json:"description,omitempty" validate:"max=255"`
	IsActive           *bool            `json:"isActive,omitempty"`
}

// UpdateVolumeDiscountTierRequest patches a tier; nil fields are left unchanged.
// ClearMaxPax makes the tier unbounded.
type UpdateVolumeDiscountTierRequest struct {
	MinPax             *int             `json:"minPax,omitempty" validate:"omitempty,gte=0"`
	MaxPax             *int             `json:"maxPax,omitempty" validate:"omitempty,gte=0"`
	ClearMaxPax        bool             `json:"clearMaxPax,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty" swaggertype:"number"`
	Description        *string          `json:"description,omitempty" validate:"omitempty,max=255"`
	IsActive           *bool            `json:"isActive,omitempty"`
}
