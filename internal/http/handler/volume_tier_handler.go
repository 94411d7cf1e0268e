package handler

import (
	"net/http"

	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/mapper"
	"github.com/straye-as/proposal-api/internal/service"
	"go.uber.org/zap"
)

type VolumeTierHandler struct {
	tierService *service.VolumeTierService
	logger      *zap.Logger
}

func NewVolumeTierHandler(tierService *service.VolumeTierService, logger *zap.Logger) *VolumeTierHandler {
	return &VolumeTierHandler{
		tierService: tierService,
		logger:      logger,
	}
}

// List godoc
// @Summary List volume discount tiers
// @Tags Volume Discounts
// @Produce json
// @Success 200 {array} domain.VolumeDiscountTierDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /volume-discounts [get]
func (h *VolumeTierHandler) List(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.tierService.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "list volume discount tiers")
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToVolumeDiscountTierDTOs(tiers))
}

// Create godoc
// @Summary Create a volume discount tier
// @Description Active tiers may not overlap
// @Tags Volume Discounts
// @Accept json
// @Produce json
// @Param request body domain.CreateVolumeDiscountTierRequest true "Tier"
// @Success 201 {object} domain.VolumeDiscountTierDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /volume-discounts [post]
func (h *VolumeTierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateVolumeDiscountTierRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tier, err := h.tierService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create volume discount tier")
		return
	}
	respondJSON(w, http.StatusCreated, mapper.ToVolumeDiscountTierDTO(tier))
}

// Update godoc
// @Summary Update a volume discount tier
// @Tags Volume Discounts
// @Accept json
// @Produce json
// @Param tierId path string true "Tier ID"
// @Param request body domain.UpdateVolumeDiscountTierRequest true "Changes"
// @Success 200 {object} domain.VolumeDiscountTierDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /volume-discounts/{tierId} [put]
func (h *VolumeTierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "tierId", "tier")
	if !ok {
		return
	}

	var req domain.UpdateVolumeDiscountTierRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tier, err := h.tierService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update volume discount tier")
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToVolumeDiscountTierDTO(tier))
}
