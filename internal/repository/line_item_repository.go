package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/domain"
	"gorm.io/gorm"
)

// LineItemRow is one proposal item joined with its option and service
type LineItemRow struct {
	ItemID       uuid.UUID
	ItemName     string
	OptionName   string
	ServiceID    uuid.UUID
	ServiceTitle string
	ServiceType  domain.ServiceType
	VATCategory  string
	PricePax     decimal.Decimal
	DiscountPax  decimal.Decimal
	CostPax      decimal.Decimal
}

// LineItemRepository reads the flattened item view used for pricing
type LineItemRepository struct {
	db *gorm.DB
}

// NewLineItemRepository creates a new line item repository
func NewLineItemRepository(db *gorm.DB) *LineItemRepository {
	return &LineItemRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *LineItemRepository) WithTx(tx *gorm.DB) *LineItemRepository {
	return &LineItemRepository{db: tx}
}

// ListByProposal returns every item of the proposal in display order.
// A proposal without items yields an empty, non-nil slice.
func (r *LineItemRepository) ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]LineItemRow, error) {
	rows := make([]LineItemRow, 0)
	err := r.db.WithContext(ctx).
		Table("proposal_items AS pi").
		Select(`pi.id AS item_id,
			pi.name AS item_name,
			so.name AS option_name,
			ps.id AS service_id,
			ps.title AS service_title,
			ps.type AS service_type,
			ps.vat_category AS vat_category,
			so.price_pax AS price_pax,
			so.discount_pax AS discount_pax,
			so.cost_pax AS cost_pax`).
		Joins("JOIN service_options so ON pi.option_id = so.id").
		Joins("JOIN proposal_services ps ON so.service_id = ps.id").
		Where("ps.proposal_id = ?", proposalID).
		Order("ps.display_order ASC").
		Order("ps.created_at ASC").
		Order("so.created_at ASC").
		Order("pi.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
