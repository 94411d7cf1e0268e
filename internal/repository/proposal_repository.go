package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/pricing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProposalRepository handles proposal data access
type ProposalRepository struct {
	db *gorm.DB
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *gorm.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ProposalRepository) WithTx(tx *gorm.DB) *ProposalRepository {
	return &ProposalRepository{db: tx}
}

// Create inserts a proposal together with any nested services, options and items
func (r *ProposalRepository) Create(ctx context.Context, proposal *domain.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

// GetByID retrieves a proposal without its services
func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	var proposal domain.Proposal
	err := r.db.WithContext(ctx).First(&proposal, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &proposal, nil
}

// GetByIDForUpdate retrieves a proposal and locks its row until the surrounding
// transaction ends. Databases without row locks (sqlite) fall back to a plain read.
func (r *ProposalRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Proposal, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var proposal domain.Proposal
	if err := query.First(&proposal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

// UpdatePax sets the attendee count
func (r *ProposalRepository) UpdatePax(ctx context.Context, id uuid.UUID, pax int) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"pax":        pax,
		"updated_at": time.Now(),
	})
}

// UpdateManualDiscount stores the manual discount. A nil percentage clears it.
func (r *ProposalRepository) UpdateManualDiscount(ctx context.Context, id uuid.UUID, percentage *decimal.Decimal, reason string) error {
	updates := map[string]interface{}{
		"discount_percentage": nil,
		"discount_reason":     reason,
		"updated_at":          time.Now(),
	}
	if percentage != nil {
		updates["discount_percentage"] = *percentage
	}
	return r.updateColumns(ctx, id, updates)
}

// UpdateTotals overwrites the derived totals and stamps the calculation time
func (r *ProposalRepository) UpdateTotals(ctx context.Context, id uuid.UUID, snap pricing.Snapshot, calculatedAt time.Time) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"total_base":              snap.TotalBase,
		"total_vat":               snap.TotalVAT,
		"total_final":             snap.TotalFinal,
		"total_cost":              snap.TotalCost,
		"total_margin":            snap.TotalMargin,
		"margin_percentage":       snap.MarginPercentage,
		"volume_discount_applied": snap.VolumeDiscountApplied,
		"last_calculated_at":      calculatedAt,
		"updated_at":              calculatedAt,
	})
}

// ListStaleIDs returns proposals never calculated or last calculated before the cutoff.
// Never-calculated proposals come first on every dialect, then the oldest calculations.
// Ids in skip are left out.
func (r *ProposalRepository) ListStaleIDs(ctx context.Context, before time.Time, limit int, skip []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).
		Model(&domain.Proposal{}).
		Where("(last_calculated_at IS NULL OR last_calculated_at < ?)", before)
	if len(skip) > 0 {
		query = query.Where("id NOT IN ?", skip)
	}
	err := query.
		Order("CASE WHEN last_calculated_at IS NULL THEN 0 ELSE 1 END").
		Order("last_calculated_at ASC").
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *ProposalRepository) updateColumns(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Proposal{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
