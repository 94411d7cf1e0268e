package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/config"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/logger"
	"github.com/straye-as/proposal-api/internal/metrics"
	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/straye-as/proposal-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DiscountRemovedReason is recorded when a manual discount is cleared without a reason
const DiscountRemovedReason = "Manual discount removed"

const (
	minReasonLength = 3
	maxReasonLength = 255

	auditEntityProposal = "proposal"
)

// ComputeOptions controls a calculation. Without Persist the call never writes.
// A zero Actor is recorded as the system actor.
type ComputeOptions struct {
	Persist bool
	Actor   domain.Actor
}

// ServiceMargin is the margin of one service before the proposal-level discount
type ServiceMargin struct {
	ServiceID        uuid.UUID
	Title            string
	Type             string
	Revenue          decimal.Decimal
	Cost             decimal.Decimal
	Margin           decimal.Decimal
	MarginPercentage decimal.Decimal
}

// MarginAnalysis is a read-only projection of a proposal's profitability.
// The summary is after the proposal-level discount; per-service rows are before it.
type MarginAnalysis struct {
	ProposalID       uuid.UUID
	Totals           *pricing.Totals
	Services         []ServiceMargin
	TotalRevenue     decimal.Decimal
	TotalCost        decimal.Decimal
	TotalMargin      decimal.Decimal
	MarginPercentage decimal.Decimal
}

// PricingService computes proposal totals and records every persisted price change
type PricingService struct {
	proposalRepo *repository.ProposalRepository
	itemRepo     *repository.LineItemRepository
	tierRepo     *repository.VolumeTierRepository
	auditRepo    *repository.PriceAuditRepository
	pricingCfg   *config.PricingConfig
	metrics      *metrics.Metrics
	db           *gorm.DB
	logger       *zap.Logger
	now          func() time.Time

	// staleFailures holds when each proposal last failed stale recalculation
	staleMu       sync.Mutex
	staleFailures map[uuid.UUID]time.Time
}

// NewPricingService creates a new pricing service
func NewPricingService(
	proposalRepo *repository.ProposalRepository,
	itemRepo *repository.LineItemRepository,
	tierRepo *repository.VolumeTierRepository,
	auditRepo *repository.PriceAuditRepository,
	pricingCfg *config.PricingConfig,
	m *metrics.Metrics,
	db *gorm.DB,
	logger *zap.Logger,
) *PricingService {
	return &PricingService{
		proposalRepo:  proposalRepo,
		itemRepo:      itemRepo,
		tierRepo:      tierRepo,
		auditRepo:     auditRepo,
		pricingCfg:    pricingCfg,
		metrics:       m,
		db:            db,
		logger:        logger,
		staleFailures: make(map[uuid.UUID]time.Time),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// CheckAccess verifies the proposal exists and the actor may work on it
func (s *PricingService) CheckAccess(ctx context.Context, proposalID uuid.UUID, actor domain.Actor) error {
	proposal, err := s.getProposal(ctx, s.proposalRepo, proposalID)
	if err != nil {
		return err
	}
	if !actor.CanAccess(proposal.UserID) {
		return ErrForbidden
	}
	return nil
}

// Compute prices the proposal. With Persist the totals and a "recalculation"
// audit entry are written in one transaction. When that write fails the
// computed totals are still returned together with a *PersistenceError.
func (s *PricingService) Compute(ctx context.Context, proposalID uuid.UUID, opts ComputeOptions) (*pricing.Totals, error) {
	start := time.Now()

	var (
		totals *pricing.Totals
		err    error
	)
	if opts.Persist {
		totals, err = s.recalculate(ctx, proposalID, actorOrSystem(opts.Actor))
	} else {
		totals, err = s.preview(ctx, proposalID)
	}

	s.metrics.ObserveRecalculation(opts.Persist, outcome(err), time.Since(start))
	return totals, err
}

// ApplyManualDiscount sets (or, with 0, clears) the proposal's manual discount,
// recalculates and persists the totals, and appends both a "recalculation"
// and a "discount_update" entry. All writes share one transaction.
func (s *PricingService) ApplyManualDiscount(ctx context.Context, proposalID uuid.UUID, actor domain.Actor, percentage decimal.Decimal, reason string) (*pricing.Totals, error) {
	pct, reason, err := validateManualDiscount(percentage, reason)
	if err != nil {
		return nil, err
	}
	actor = actorOrSystem(actor)
	start := time.Now()

	var totals *pricing.Totals
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposal, err := s.lockProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}

		previous := decimal.Zero
		if proposal.ManualDiscountPercentage != nil {
			previous = *proposal.ManualDiscountPercentage
		}

		proposal.ManualDiscountPercentage = nil
		proposal.ManualDiscountReason = ""
		if !pct.IsZero() {
			stored := pct.Decimal()
			proposal.ManualDiscountPercentage = &stored
			proposal.ManualDiscountReason = reason
		}

		totals, err = s.price(ctx, s.itemRepo.WithTx(tx), s.tierRepo.WithTx(tx), proposal)
		if err != nil {
			return err
		}

		proposalRepo := s.proposalRepo.WithTx(tx)
		if err := proposalRepo.UpdateManualDiscount(ctx, proposal.ID, proposal.ManualDiscountPercentage, proposal.ManualDiscountReason); err != nil {
			return fmt.Errorf("failed to update manual discount: %w", err)
		}
		if err := s.persistTotals(ctx, tx, proposal, totals, actor); err != nil {
			return err
		}

		metadata := map[string]interface{}{
			"reason":                  reason,
			"previous_percentage":     previous.StringFixed(pricing.MoneyPlaces),
			"new_percentage":          pct.Decimal().StringFixed(pricing.MoneyPlaces),
			"volume_discount_applied": totals.VolumeDiscountApplied,
			"total_final":             totals.TotalFinal.StringFixed(pricing.MoneyPlaces),
		}
		return s.appendAudit(ctx, tx, &domain.PriceAuditEntry{
			ProposalID:  proposal.ID,
			ActorID:     actor.ID,
			ActorName:   actor.Name,
			ChangeType:  domain.PriceChangeDiscountUpdate,
			EntityType:  auditEntityProposal,
			EntityID:    &proposal.ID,
			OldValue:    previous.StringFixed(pricing.MoneyPlaces),
			NewValue:    pct.Decimal().StringFixed(pricing.MoneyPlaces),
			Description: reason,
		}, metadata)
	})

	if err != nil {
		err = s.persistenceFailure(proposalID, totals, err)
		s.metrics.ObserveRecalculation(true, outcome(err), time.Since(start))
		return totals, err
	}

	s.metrics.ObserveRecalculation(true, metrics.OutcomeSuccess, time.Since(start))
	s.metrics.IncDiscountUpdate(pct.IsZero())
	s.metrics.IncAuditEntry(string(domain.PriceChangeRecalculation))
	s.metrics.IncAuditEntry(string(domain.PriceChangeDiscountUpdate))

	logger.WithProposal(s.logger, proposalID, actor.ID).Info("manual discount updated",
		zap.String("discount_percentage", pct.String()),
		zap.Bool("volume_discount_applied", totals.VolumeDiscountApplied),
		zap.String("final_total", totals.TotalFinal.StringFixed(pricing.MoneyPlaces)),
	)
	return totals, nil
}

// RemoveManualDiscount clears the manual discount, making the proposal
// eligible for volume discounts again
func (s *PricingService) RemoveManualDiscount(ctx context.Context, proposalID uuid.UUID, actor domain.Actor) (*pricing.Totals, error) {
	return s.ApplyManualDiscount(ctx, proposalID, actor, decimal.Zero, DiscountRemovedReason)
}

// SetPax changes the attendee count and persists the recalculated totals.
// The change itself is recorded as a "pax_update" entry.
func (s *PricingService) SetPax(ctx context.Context, proposalID uuid.UUID, actor domain.Actor, pax int) (*pricing.Totals, error) {
	if pax < 0 {
		return nil, invalidInput(fmt.Errorf("%w: got %d", pricing.ErrInvalidPax, pax))
	}
	actor = actorOrSystem(actor)
	start := time.Now()

	var totals *pricing.Totals
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposal, err := s.lockProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		previous := proposal.Pax
		proposal.Pax = pax

		totals, err = s.price(ctx, s.itemRepo.WithTx(tx), s.tierRepo.WithTx(tx), proposal)
		if err != nil {
			return err
		}

		if err := s.proposalRepo.WithTx(tx).UpdatePax(ctx, proposal.ID, pax); err != nil {
			return fmt.Errorf("failed to update pax: %w", err)
		}
		if err := s.persistTotals(ctx, tx, proposal, totals, actor); err != nil {
			return err
		}
		return s.appendAudit(ctx, tx, &domain.PriceAuditEntry{
			ProposalID:  proposal.ID,
			ActorID:     actor.ID,
			ActorName:   actor.Name,
			ChangeType:  domain.PriceChangePaxUpdate,
			EntityType:  auditEntityProposal,
			EntityID:    &proposal.ID,
			OldValue:    fmt.Sprint(previous),
			NewValue:    fmt.Sprint(pax),
			Description: fmt.Sprintf("Attendees changed from %d to %d", previous, pax),
		}, nil)
	})

	if err != nil {
		err = s.persistenceFailure(proposalID, totals, err)
		s.metrics.ObserveRecalculation(true, outcome(err), time.Since(start))
		return totals, err
	}

	s.metrics.ObserveRecalculation(true, metrics.OutcomeSuccess, time.Since(start))
	s.metrics.IncAuditEntry(string(domain.PriceChangeRecalculation))
	s.metrics.IncAuditEntry(string(domain.PriceChangePaxUpdate))
	return totals, nil
}

// MarginAnalysis computes the totals without persisting and groups revenue
// and cost by service
func (s *PricingService) MarginAnalysis(ctx context.Context, proposalID uuid.UUID) (*MarginAnalysis, error) {
	totals, err := s.Compute(ctx, proposalID, ComputeOptions{Persist: false})
	if err != nil {
		return nil, err
	}

	services := make([]ServiceMargin, 0, len(totals.Services))
	for _, svc := range totals.Services {
		services = append(services, ServiceMargin{
			ServiceID:        svc.ServiceID,
			Title:            svc.ServiceTitle,
			Type:             svc.ServiceType,
			Revenue:          svc.Base,
			Cost:             svc.Cost,
			Margin:           svc.Margin,
			MarginPercentage: svc.MarginPercentage,
		})
	}

	return &MarginAnalysis{
		ProposalID:       proposalID,
		Totals:           totals,
		Services:         services,
		TotalRevenue:     totals.BaseAfterDiscount,
		TotalCost:        totals.TotalCost,
		TotalMargin:      totals.TotalMargin,
		MarginPercentage: totals.MarginPercentage,
	}, nil
}

// ListAudit returns the proposal's price history newest first
func (s *PricingService) ListAudit(ctx context.Context, proposalID uuid.UUID, page, pageSize int) ([]domain.PriceAuditEntry, int64, error) {
	if _, err := s.getProposal(ctx, s.proposalRepo, proposalID); err != nil {
		return nil, 0, err
	}

	entries, total, err := s.auditRepo.ListByProposal(ctx, proposalID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list price audit entries: %w", err)
	}
	return entries, total, nil
}

// RecalculateStale persists fresh totals, as the system actor, for proposals
// never calculated or last calculated more than staleAfter ago. A failing
// proposal is logged and skipped, and is not retried until staleAfter has
// passed since its failure so it cannot hold the batch.
func (s *PricingService) RecalculateStale(ctx context.Context, staleAfter time.Duration, limit int) (recalculated, failed int, err error) {
	cutoff := s.now().Add(-staleAfter)

	ids, err := s.proposalRepo.ListStaleIDs(ctx, cutoff, limit, s.recentStaleFailures(cutoff))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list stale proposals: %w", err)
	}

	for _, id := range ids {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return recalculated, failed, ctxErr
		}
		if _, err := s.Compute(ctx, id, ComputeOptions{Persist: true, Actor: domain.SystemActor()}); err != nil {
			failed++
			s.markStaleResult(id, false)
			s.logger.Warn("stale recalculation failed",
				zap.String("proposal_id", id.String()),
				zap.Error(err),
			)
			continue
		}
		s.markStaleResult(id, true)
		recalculated++
	}

	s.metrics.SetStaleBatch(recalculated)
	return recalculated, failed, nil
}

// recentStaleFailures returns proposals that failed after the cutoff and prunes older entries
func (s *PricingService) recentStaleFailures(cutoff time.Time) []uuid.UUID {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()

	skip := make([]uuid.UUID, 0, len(s.staleFailures))
	for id, failedAt := range s.staleFailures {
		if failedAt.After(cutoff) {
			skip = append(skip, id)
			continue
		}
		delete(s.staleFailures, id)
	}
	return skip
}

func (s *PricingService) markStaleResult(id uuid.UUID, ok bool) {
	s.staleMu.Lock()
	defer s.staleMu.Unlock()

	if ok {
		delete(s.staleFailures, id)
		return
	}
	s.staleFailures[id] = s.now()
}

func (s *PricingService) preview(ctx context.Context, proposalID uuid.UUID) (*pricing.Totals, error) {
	proposal, err := s.getProposal(ctx, s.proposalRepo, proposalID)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, s.itemRepo, s.tierRepo, proposal)
}

func (s *PricingService) recalculate(ctx context.Context, proposalID uuid.UUID, actor domain.Actor) (*pricing.Totals, error) {
	var totals *pricing.Totals
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		proposal, err := s.lockProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		totals, err = s.price(ctx, s.itemRepo.WithTx(tx), s.tierRepo.WithTx(tx), proposal)
		if err != nil {
			return err
		}
		return s.persistTotals(ctx, tx, proposal, totals, actor)
	})
	if err != nil {
		return totals, s.persistenceFailure(proposalID, totals, err)
	}

	s.metrics.IncAuditEntry(string(domain.PriceChangeRecalculation))
	logger.WithProposal(s.logger, proposalID, actor.ID).Info("proposal totals recalculated",
		zap.String("discount_source", string(totals.DiscountSource)),
		zap.String("final_total", totals.TotalFinal.StringFixed(pricing.MoneyPlaces)),
	)
	return totals, nil
}

// price loads the line items and rate table and runs the pure calculation
func (s *PricingService) price(ctx context.Context, itemRepo *repository.LineItemRepository, tierRepo *repository.VolumeTierRepository, proposal *domain.Proposal) (*pricing.Totals, error) {
	rows, err := itemRepo.ListByProposal(ctx, proposal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}

	table, err := s.rateTable(ctx, tierRepo)
	if err != nil {
		return nil, err
	}

	var manual *pricing.Percentage
	if proposal.HasManualDiscount() {
		pct, err := pricing.NewPercentage(*proposal.ManualDiscountPercentage)
		if err != nil {
			return nil, fmt.Errorf("stored manual discount: %w", err)
		}
		manual = &pct
	}

	items := make([]pricing.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, pricing.LineItem{
			ItemID:              row.ItemID,
			ServiceID:           row.ServiceID,
			ServiceTitle:        row.ServiceTitle,
			ServiceType:         string(row.ServiceType),
			OptionName:          row.OptionName,
			Name:                row.ItemName,
			PricePerAttendee:    row.PricePax,
			DiscountPerAttendee: row.DiscountPax,
			CostPerAttendee:     row.CostPax,
			Category:            pricing.VATCategory(row.VATCategory),
		})
	}

	totals, err := pricing.Calculate(pricing.Input{
		Pax:            proposal.Pax,
		Items:          items,
		ManualDiscount: manual,
	}, table)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate totals: %w", err)
	}
	return totals, nil
}

// rateTable builds the versioned rate table from configured VAT rates and active tiers
func (s *PricingService) rateTable(ctx context.Context, tierRepo *repository.VolumeTierRepository) (*pricing.RateTable, error) {
	rows, err := tierRepo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load volume discount tiers: %w", err)
	}

	tiers := make([]pricing.Tier, 0, len(rows))
	for i := range rows {
		tier, err := rows[i].ToPricingTier()
		if err != nil {
			return nil, fmt.Errorf("volume discount tier %s: %w", rows[i].ID, err)
		}
		tiers = append(tiers, tier)
	}

	table, err := s.pricingCfg.RateTable(tiers)
	if err != nil {
		return nil, fmt.Errorf("invalid rate table: %w", err)
	}
	return table, nil
}

// persistTotals writes the snapshot and the matching "recalculation" entry
func (s *PricingService) persistTotals(ctx context.Context, tx *gorm.DB, proposal *domain.Proposal, totals *pricing.Totals, actor domain.Actor) error {
	now := s.now()
	if err := s.proposalRepo.WithTx(tx).UpdateTotals(ctx, proposal.ID, totals.Snapshot(), now); err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}

	oldFinal := proposal.TotalFinal.StringFixed(pricing.MoneyPlaces)
	newFinal := totals.TotalFinal.StringFixed(pricing.MoneyPlaces)
	return s.appendAudit(ctx, tx, &domain.PriceAuditEntry{
		ProposalID:  proposal.ID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		ChangeType:  domain.PriceChangeRecalculation,
		EntityType:  auditEntityProposal,
		EntityID:    &proposal.ID,
		OldValue:    oldFinal,
		NewValue:    newFinal,
		Description: fmt.Sprintf("Totals recalculated: %s -> %s", oldFinal, newFinal),
		CreatedAt:   now,
	}, totals.Metadata())
}

func (s *PricingService) appendAudit(ctx context.Context, tx *gorm.DB, entry *domain.PriceAuditEntry, metadata map[string]interface{}) error {
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		entry.Metadata = string(raw)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := s.auditRepo.WithTx(tx).Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to append %s audit entry: %w", entry.ChangeType, err)
	}
	return nil
}

func (s *PricingService) getProposal(ctx context.Context, repo *repository.ProposalRepository, id uuid.UUID) (*domain.Proposal, error) {
	proposal, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return proposal, nil
}

func (s *PricingService) lockProposal(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Proposal, error) {
	proposal, err := s.proposalRepo.WithTx(tx).GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("failed to lock proposal: %w", err)
	}
	return proposal, nil
}

// persistenceFailure wraps a failed write in a *PersistenceError when totals
// had already been computed
func (s *PricingService) persistenceFailure(proposalID uuid.UUID, totals *pricing.Totals, err error) error {
	if totals == nil {
		return err
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		perr = &PersistenceError{Totals: totals, Err: err}
	}
	s.logger.Error("failed to persist proposal totals",
		zap.String("proposal_id", proposalID.String()),
		zap.String("final_total", totals.TotalFinal.StringFixed(pricing.MoneyPlaces)),
		zap.Error(perr.Err),
	)
	return perr
}

// validateManualDiscount checks the request before any I/O. The percentage is
// rounded to the two decimals the proposal record stores.
func validateManualDiscount(percentage decimal.Decimal, reason string) (pricing.Percentage, string, error) {
	if _, err := pricing.NewPercentage(percentage); err != nil {
		return pricing.Percentage{}, "", invalidInput(err)
	}
	pct, err := pricing.NewPercentage(percentage.Round(pricing.MoneyPlaces))
	if err != nil {
		return pricing.Percentage{}, "", invalidInput(err)
	}

	reason = strings.TrimSpace(reason)
	length := utf8.RuneCountInString(reason)
	if length > maxReasonLength {
		return pricing.Percentage{}, "", invalidInput(fmt.Errorf("reason must be at most %d characters", maxReasonLength))
	}
	if pct.IsZero() {
		if reason == "" {
			reason = DiscountRemovedReason
		}
		return pct, reason, nil
	}
	if length < minReasonLength {
		return pricing.Percentage{}, "", invalidInput(fmt.Errorf("reason of at least %d characters is required when a discount is set", minReasonLength))
	}
	return pct, reason, nil
}

func actorOrSystem(actor domain.Actor) domain.Actor {
	if actor.IsZero() {
		return domain.SystemActor()
	}
	return actor
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrInvalidInput):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, ErrPersistence):
		return metrics.OutcomePersistenceError
	default:
		return metrics.OutcomeError
	}
}
