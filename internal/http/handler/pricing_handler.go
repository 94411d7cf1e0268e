package handler

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/proposal-api/internal/auth"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/mapper"
	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/straye-as/proposal-api/internal/repository"
	"github.com/straye-as/proposal-api/internal/service"
	"go.uber.org/zap"
)

// PricingHandler exposes the pricing engine for a single proposal
type PricingHandler struct {
	pricingService *service.PricingService
	logger         *zap.Logger
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(pricingService *service.PricingService, logger *zap.Logger) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		logger:         logger,
	}
}

// PersistenceErrorResponse is returned when totals were computed but could
// not be saved. The totals are still usable for display.
type PersistenceErrorResponse struct {
	domain.APIError
	Totals domain.TotalsDTO `json:"totals"`
}

// Calculate godoc
// @Summary Recalculate and save proposal totals
// @Description Prices every item, applies the volume or manual discount, stores the totals and appends a recalculation audit entry
// @Tags Pricing
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} domain.TotalsDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} PersistenceErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals/{id}/calculate [post]
func (h *PricingHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}

	totals, err := h.pricingService.Compute(r.Context(), id, service.ComputeOptions{Persist: true, Actor: actor})
	h.respondTotals(w, id, totals, err, true, "calculate proposal totals")
}

// GetTotals godoc
// @Summary Preview proposal totals
// @Description Prices the proposal without writing anything
// @Tags Pricing
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} domain.TotalsDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals/{id}/totals [get]
func (h *PricingHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.authorize(w, r)
	if !ok {
		return
	}

	totals, err := h.pricingService.Compute(r.Context(), id, service.ComputeOptions{Persist: false})
	h.respondTotals(w, id, totals, err, false, "preview proposal totals")
}

// ApplyDiscount godoc
// @Summary Set the manual discount
// @Description Sets the proposal-level manual discount. A manual discount replaces any volume discount; 0 removes it.
// @Tags Pricing
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param request body domain.ApplyDiscountRequest true "Discount"
// @Success 200 {object} domain.TotalsDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} PersistenceErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals/{id}/discount [put]
func (h *PricingHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "proposal")
	if !ok {
		return
	}

	var req domain.ApplyDiscountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, ok := h.checkAccess(w, r, id)
	if !ok {
		return
	}

	totals, err := h.pricingService.ApplyManualDiscount(r.Context(), id, actor, *req.DiscountPercentage, req.Reason)
	h.respondTotals(w, id, totals, err, true, "apply manual discount")
}

// RemoveDiscount godoc
// @Summary Remove the manual discount
// @Description Clears the manual discount so volume discounts apply again
// @Tags Pricing
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} domain.TotalsDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} PersistenceErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals/{id}/discount [delete]
func (h *PricingHandler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.authorize(w, r)
	if !ok {
		return
	}

	totals, err := h.pricingService.RemoveManualDiscount(r.Context(), id, actor)
	h.respondTotals(w, id, totals, err, true, "remove manual discount")
}

// UpdatePax godoc
// @Summary Change the attendee count
// @Description Stores the new attendee count and recalculates the totals
// @Tags Pricing
// @Accept json
// @Produce json
// @Param id path string true "Proposal ID"
// @Param request body domain.UpdatePaxRequest true "Attendees"
// @Success 200 {object} domain.TotalsDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 500 {object} PersistenceErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals/{id}/pax [put]
func (h *PricingHandler) UpdatePax(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id", "proposal")
	if !ok {
		return
	}

	var req domain.UpdatePaxRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	actor, ok := h.checkAccess(w, r, id)
	if !ok {
		return
	}

	totals, err := h.pricingService.SetPax(r.Context(), id, actor, *req.Pax)
	h.respondTotals(w, id, totals, err, true, "update attendee count")
}

// MarginAnalysis godoc
// @Summary Margin analysis
// @Description Revenue, cost and margin per service plus the discounted proposal summary. Never writes.
// @Tags Pricing
// @Produce json
// @Param id path string true "Proposal ID"
// @Success 200 {object} domain.MarginAnalysisDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals/{id}/margin-analysis [get]
func (h *PricingHandler) MarginAnalysis(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.authorize(w, r)
	if !ok {
		return
	}

	analysis, err := h.pricingService.MarginAnalysis(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "compute margin analysis")
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToMarginAnalysisDTO(analysis))
}

// AuditLog godoc
// @Summary Price change history
// @Description Lists the proposal's price audit entries, newest first
// @Tags Pricing
// @Produce json
// @Param id path string true "Proposal ID"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 200)"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.PriceAuditEntryDTO}
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /proposals/{id}/audit-log [get]
func (h *PricingHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	id, _, ok := h.authorize(w, r)
	if !ok {
		return
	}

	page := parseIntQuery(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := parseIntQuery(r, "pageSize", repository.DefaultPageSize)
	if pageSize < 1 {
		pageSize = repository.DefaultPageSize
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}

	entries, total, err := h.pricingService.ListAudit(r.Context(), id, page, pageSize)
	if err != nil {
		respondServiceError(w, h.logger, err, "list price audit entries")
		return
	}

	respondJSON(w, http.StatusOK, domain.PaginatedResponse{
		Data:       mapper.ToPriceAuditEntryDTOs(entries),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// authorize parses the proposal id and checks the caller may access it
func (h *PricingHandler) authorize(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.Actor, bool) {
	id, ok := parseUUIDParam(w, r, "id", "proposal")
	if !ok {
		return uuid.Nil, domain.Actor{}, false
	}
	actor, ok := h.checkAccess(w, r, id)
	return id, actor, ok
}

func (h *PricingHandler) checkAccess(w http.ResponseWriter, r *http.Request, id uuid.UUID) (domain.Actor, bool) {
	actor := auth.ActorFromContext(r.Context())
	if err := h.pricingService.CheckAccess(r.Context(), id, actor); err != nil {
		respondServiceError(w, h.logger, err, "check proposal access")
		return domain.Actor{}, false
	}
	return actor, true
}

func (h *PricingHandler) respondTotals(w http.ResponseWriter, id uuid.UUID, totals *pricing.Totals, err error, persist bool, action string) {
	now := time.Now()
	if err != nil {
		if errors.Is(err, service.ErrPersistence) && totals != nil {
			respondJSON(w, http.StatusInternalServerError, PersistenceErrorResponse{
				APIError: domain.APIError{
					Type:   domain.ErrorTypePersistence,
					Title:  http.StatusText(http.StatusInternalServerError),
					Status: http.StatusInternalServerError,
					Detail: "Totals were calculated but could not be saved",
				},
				Totals: mapper.ToTotalsDTO(id, totals, false, now),
			})
			return
		}
		respondServiceError(w, h.logger, err, action)
		return
	}

	respondJSON(w, http.StatusOK, mapper.ToTotalsDTO(id, totals, persist, now))
}
