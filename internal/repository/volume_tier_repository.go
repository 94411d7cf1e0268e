package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/proposal-api/internal/domain"
	"gorm.io/gorm"
)

// VolumeTierRepository handles volume discount tier data access
type VolumeTierRepository struct {
	db *gorm.DB
}

// NewVolumeTierRepository creates a new volume tier repository
func NewVolumeTierRepository(db *gorm.DB) *VolumeTierRepository {
	return &VolumeTierRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *VolumeTierRepository) WithTx(tx *gorm.DB) *VolumeTierRepository {
	return &VolumeTierRepository{db: tx}
}

// LockForWrite serializes tier-set writers for the rest of the transaction.
// Readers are not blocked. On dialects without table locks it is a no-op.
func (r *VolumeTierRepository) LockForWrite(ctx context.Context) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.WithContext(ctx).Exec("LOCK TABLE volume_discount_tiers IN SHARE ROW EXCLUSIVE MODE").Error
}

// Create inserts a tier
func (r *VolumeTierRepository) Create(ctx context.Context, tier *domain.VolumeDiscountTier) error {
	return r.db.WithContext(ctx).Create(tier).Error
}

// GetByID retrieves a tier by ID
func (r *VolumeTierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.VolumeDiscountTier, error) {
	var tier domain.VolumeDiscountTier
	err := r.db.WithContext(ctx).First(&tier, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// List returns all tiers ordered by MinPax. activeOnly limits the result to active tiers.
func (r *VolumeTierRepository) List(ctx context.Context, activeOnly bool) ([]domain.VolumeDiscountTier, error) {
	var tiers []domain.VolumeDiscountTier
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("min_pax ASC").Find(&tiers).Error
	return tiers, err
}

// Update saves every field of the tier
func (r *VolumeTierRepository) Update(ctx context.Context, tier *domain.VolumeDiscountTier) error {
	return r.db.WithContext(ctx).Save(tier).Error
}
