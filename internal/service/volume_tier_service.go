package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/straye-as/proposal-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VolumeTierService manages the volume discount ladder. Every write is
// checked against the whole tier set so active tiers never overlap.
type VolumeTierService struct {
	tierRepo *repository.VolumeTierRepository
	db       *gorm.DB
	logger   *zap.Logger
}

// NewVolumeTierService creates a new volume tier service
func NewVolumeTierService(tierRepo *repository.VolumeTierRepository, db *gorm.DB, logger *zap.Logger) *VolumeTierService {
	return &VolumeTierService{
		tierRepo: tierRepo,
		db:       db,
		logger:   logger,
	}
}

// List returns every tier, active or not, ordered by MinPax
func (s *VolumeTierService) List(ctx context.Context) ([]domain.VolumeDiscountTier, error) {
	tiers, err := s.tierRepo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list volume discount tiers: %w", err)
	}
	return tiers, nil
}

// Create adds a tier
func (s *VolumeTierService) Create(ctx context.Context, req *domain.CreateVolumeDiscountTierRequest) (*domain.VolumeDiscountTier, error) {
	if req.MinPax == nil || req.DiscountPercentage == nil {
		return nil, invalidInput(errors.New("minPax and discountPercentage are required"))
	}
	pct, err := tierPercentage(*req.DiscountPercentage)
	if err != nil {
		return nil, err
	}

	tier := &domain.VolumeDiscountTier{
		MinPax:             *req.MinPax,
		MaxPax:             req.MaxPax,
		DiscountPercentage: pct,
		Description:        req.Description,
		IsActive:           true,
	}
	if req.IsActive != nil {
		tier.IsActive = *req.IsActive
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tierRepo.WithTx(tx)
		if err := repo.LockForWrite(ctx); err != nil {
			return fmt.Errorf("failed to lock volume discount tiers: %w", err)
		}
		existing, err := repo.List(ctx, false)
		if err != nil {
			return fmt.Errorf("failed to load volume discount tiers: %w", err)
		}
		if err := s.validate(append(existing, *tier)); err != nil {
			return err
		}
		if err := repo.Create(ctx, tier); err != nil {
			return fmt.Errorf("failed to create volume discount tier: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("volume discount tier created",
		zap.String("tier_id", tier.ID.String()),
		zap.Int("min_pax", tier.MinPax),
		zap.String("discount_percentage", tier.DiscountPercentage.String()),
	)
	return tier, nil
}

// Update patches a tier
func (s *VolumeTierService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateVolumeDiscountTierRequest) (*domain.VolumeDiscountTier, error) {
	var tier *domain.VolumeDiscountTier
	var pct *decimal.Decimal
	if req.DiscountPercentage != nil {
		rounded, err := tierPercentage(*req.DiscountPercentage)
		if err != nil {
			return nil, err
		}
		pct = &rounded
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.tierRepo.WithTx(tx)
		if err := repo.LockForWrite(ctx); err != nil {
			return fmt.Errorf("failed to lock volume discount tiers: %w", err)
		}
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTierNotFound
			}
			return fmt.Errorf("failed to get volume discount tier: %w", err)
		}

		applyTierUpdate(current, req, pct)

		all, err := repo.List(ctx, false)
		if err != nil {
			return fmt.Errorf("failed to load volume discount tiers: %w", err)
		}
		for i := range all {
			if all[i].ID == current.ID {
				all[i] = *current
			}
		}
		if err := s.validate(all); err != nil {
			return err
		}

		if err := repo.Update(ctx, current); err != nil {
			return fmt.Errorf("failed to update volume discount tier: %w", err)
		}
		tier = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("volume discount tier updated",
		zap.String("tier_id", tier.ID.String()),
		zap.Bool("is_active", tier.IsActive),
	)
	return tier, nil
}

// tierPercentage range-checks the requested value as given, then rounds it for storage
func tierPercentage(d decimal.Decimal) (decimal.Decimal, error) {
	if _, err := pricing.NewPercentage(d); err != nil {
		return decimal.Decimal{}, invalidInput(err)
	}
	return d.Round(pricing.MoneyPlaces), nil
}

func applyTierUpdate(tier *domain.VolumeDiscountTier, req *domain.UpdateVolumeDiscountTierRequest, pct *decimal.Decimal) {
	if req.MinPax != nil {
		tier.MinPax = *req.MinPax
	}
	if req.ClearMaxPax {
		tier.MaxPax = nil
	} else if req.MaxPax != nil {
		tier.MaxPax = req.MaxPax
	}
	if pct != nil {
		tier.DiscountPercentage = *pct
	}
	if req.Description != nil {
		tier.Description = *req.Description
	}
	if req.IsActive != nil {
		tier.IsActive = *req.IsActive
	}
}

// validate rejects malformed tiers and overlapping active tiers in the candidate set
func (s *VolumeTierService) validate(rows []domain.VolumeDiscountTier) error {
	tiers := make([]pricing.Tier, 0, len(rows))
	for i := range rows {
		tier, err := rows[i].ToPricingTier()
		if err != nil {
			return invalidInput(err)
		}
		tiers = append(tiers, tier)
	}

	if err := pricing.ValidateTiers(tiers); err != nil {
		if errors.Is(err, pricing.ErrOverlappingTiers) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return invalidInput(err)
	}
	return nil
}
