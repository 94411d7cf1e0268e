package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/proposal-api/internal/domain"
	"gorm.io/gorm"
)

// PriceAuditRepository handles the price change ledger.
// It only inserts and reads; entries are never updated or deleted.
type PriceAuditRepository struct {
	db *gorm.DB
}

// NewPriceAuditRepository creates a new price audit repository
func NewPriceAuditRepository(db *gorm.DB) *PriceAuditRepository {
	return &PriceAuditRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *PriceAuditRepository) WithTx(tx *gorm.DB) *PriceAuditRepository {
	return &PriceAuditRepository{db: tx}
}

// Create appends an entry
func (r *PriceAuditRepository) Create(ctx context.Context, entry *domain.PriceAuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByProposal returns the proposal's entries newest first, by insertion sequence.
func (r *PriceAuditRepository) ListByProposal(ctx context.Context, proposalID uuid.UUID, page, pageSize int) ([]domain.PriceAuditEntry, int64, error) {
	var entries []domain.PriceAuditEntry
	var total int64

	page, pageSize = normalizePagination(page, pageSize)

	if err := r.db.WithContext(ctx).
		Model(&domain.PriceAuditEntry{}).
		Where("proposal_id = ?", proposalID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", proposalID).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	return entries, total, err
}
