package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/proposal-api/internal/config"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/metrics"
	"github.com/straye-as/proposal-api/internal/repository"
	"github.com/straye-as/proposal-api/internal/service"
	"github.com/straye-as/proposal-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var salesActor = domain.Actor{ID: "user-1", Name: "Ana Sales"}

func createTestPricingService(t *testing.T) (*service.PricingService, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	cfg := &config.PricingConfig{ServiceVATRate: "10", FoodVATRate: "21", RateTableVersion: "test"}
	svc := service.NewPricingService(
		repository.NewProposalRepository(db),
		repository.NewLineItemRepository(db),
		repository.NewVolumeTierRepository(db),
		repository.NewPriceAuditRepository(db),
		cfg,
		metrics.New(),
		db,
		zap.NewNop(),
	)
	return svc, db
}

func reloadProposal(t *testing.T, db *gorm.DB, id uuid.UUID) *domain.Proposal {
	var p domain.Proposal
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}

func listAudit(t *testing.T, svc *service.PricingService, id uuid.UUID) []domain.PriceAuditEntry {
	entries, _, err := svc.ListAudit(context.Background(), id, 1, 100)
	require.NoError(t, err)
	return entries
}

func assertDecimal(t *testing.T, want string, got interface{ String() string }, field string) {
	t.Helper()
	assert.Equal(t, testutil.Dec(want).String(), testutil.Dec(got.String()).String(), field)
}

func TestPricingService_ComputePreviewDoesNotWrite(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := testutil.CreateDualVATProposal(t, db, 150)

	totals, err := svc.Compute(context.Background(), proposal.ID, service.ComputeOptions{Persist: false})
	require.NoError(t, err)

	assertDecimal(t, "6450", totals.TotalBase, "total base")
	assertDecimal(t, "120", totals.ServiceVAT, "service VAT")
	assertDecimal(t, "1102.5", totals.FoodVAT, "food VAT")
	assertDecimal(t, "7672.5", totals.TotalFinal, "total final")
	assertDecimal(t, "37.21", totals.MarginPercentage, "margin %")
	assert.Len(t, totals.Lines, 2)

	stored := reloadProposal(t, db, proposal.ID)
	assert.True(t, stored.TotalFinal.IsZero())
	assert.Nil(t, stored.LastCalculatedAt)
	assert.Empty(t, listAudit(t, svc, proposal.ID))
}

func TestPricingService_ComputePreviewIsIdempotent(t *testing.T) {
	svc, db := createTestPricingService(t)
	testutil.SeedDefaultTiers(t, db)
	proposal := testutil.CreateDualVATProposal(t, db, 150)
	ctx := context.Background()

	first, err := svc.Compute(ctx, proposal.ID, service.ComputeOptions{})
	require.NoError(t, err)
	second, err := svc.Compute(ctx, proposal.ID, service.ComputeOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPricingService_ComputeNotFound(t *testing.T) {
	svc, _ := createTestPricingService(t)

	for _, persist := range []bool{false, true} {
		totals, err := svc.Compute(context.Background(), uuid.New(), service.ComputeOptions{Persist: persist})
		assert.Nil(t, totals)
		assert.True(t, errors.Is(err, service.ErrNotFound), "persist=%v", persist)
		assert.True(t, errors.Is(err, service.ErrProposalNotFound))
	}
}

func TestPricingService_ComputeZeroItems(t *testing.T) {
	svc, db := createTestPricingService(t)
	testutil.SeedDefaultTiers(t, db)
	proposal := testutil.CreateTestProposal(t, db, 50)

	totals, err := svc.Compute(context.Background(), proposal.ID, service.ComputeOptions{Persist: true})
	require.NoError(t, err)

	assert.True(t, totals.TotalFinal.IsZero())
	assert.True(t, totals.TotalDiscount.IsZero())
	assert.True(t, totals.MarginPercentage.IsZero())
	assert.Empty(t, totals.Lines)
	assert.NotNil(t, reloadProposal(t, db, proposal.ID).LastCalculatedAt)
}

func TestPricingService_ComputePersist(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := testutil.CreateDualVATProposal(t, db, 150)

	totals, err := svc.Compute(context.Background(), proposal.ID, service.ComputeOptions{Persist: true, Actor: salesActor})
	require.NoError(t, err)
	assertDecimal(t, "7672.5", totals.TotalFinal, "total final")

	stored := reloadProposal(t, db, proposal.ID)
	assertDecimal(t, "6450", stored.TotalBase, "stored base")
	assertDecimal(t, "1222.5", stored.TotalVAT, "stored VAT")
	assertDecimal(t, "7672.5", stored.TotalFinal, "stored final")
	assertDecimal(t, "4050", stored.TotalCost, "stored cost")
	assertDecimal(t, "2400", stored.TotalMargin, "stored margin")
	assertDecimal(t, "37.21", stored.MarginPercentage, "stored margin %")
	assert.False(t, stored.VolumeDiscountApplied)
	require.NotNil(t, stored.LastCalculatedAt)

	entries := listAudit(t, svc, proposal.ID)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, domain.PriceChangeRecalculation, entry.ChangeType)
	assert.Equal(t, "user-1", entry.ActorID)
	assert.Equal(t, "0.00", entry.OldValue)
	assert.Equal(t, "7672.50", entry.NewValue)
	assert.Contains(t, entry.Metadata, `"total_final":"7672.50"`)
}

func TestPricingService_ComputePersistDefaultsToSystemActor(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := testutil.CreateDualVATProposal(t, db, 10)

	_, err := svc.Compute(context.Background(), proposal.ID, service.ComputeOptions{Persist: true})
	require.NoError(t, err)

	entries := listAudit(t, svc, proposal.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SystemActorID, entries[0].ActorID)
}

func TestPricingService_AuditIsAppendOnlyNewestFirst(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := testutil.CreateDualVATProposal(t, db, 150)
	ctx := context.Background()

	const runs = 3
	for i := 0; i < runs; i++ {
		_, err := svc.Compute(ctx, proposal.ID, service.ComputeOptions{Persist: true, Actor: salesActor})
		require.NoError(t, err)
	}

	entries := listAudit(t, svc, proposal.ID)
	require.Len(t, entries, runs)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i-1].ID, entries[i].ID, "entries must be newest first")
	}
	for _, e := range entries {
		assert.Equal(t, domain.PriceChangeRecalculation, e.ChangeType)
		assert.Equal(t, "7672.50", e.NewValue)
	}
	// the oldest entry still records the transition from the unpriced state
	assert.Equal(t, "0.00", entries[runs-1].OldValue)
	assert.Equal(t, "7672.50", entries[0].OldValue)
}

func TestPricingService_VolumeTierAndManualDiscountExclusive(t *testing.T) {
	svc, db := createTestPricingService(t)
	testutil.SeedDefaultTiers(t, db)
	proposal := testutil.CreateDualVATProposal(t, db, 150)
	ctx := context.Background()

	volume, err := svc.Compute(ctx, proposal.ID, service.ComputeOptions{Persist: true, Actor: salesActor})
	require.NoError(t, err)
	assert.True(t, volume.VolumeDiscountApplied)
	assertDecimal(t, "322.5", volume.TotalDiscount, "volume discount")
	assertDecimal(t, "7288.88", volume.TotalFinal, "volume final")

	manual, err := svc.ApplyManualDiscount(ctx, proposal.ID, salesActor, testutil.Dec("10"), "VIP client")
	require.NoError(t, err)
	assert.False(t, manual.VolumeDiscountApplied)
	assertDecimal(t, "645", manual.TotalDiscount, "manual discount")
	assertDecimal(t, "6905.25", manual.TotalFinal, "manual final")

	stored := reloadProposal(t, db, proposal.ID)
	require.NotNil(t, stored.ManualDiscountPercentage)
	assertDecimal(t, "10", stored.ManualDiscountPercentage, "stored percentage")
	assert.Equal(t, "VIP client", stored.ManualDiscountReason)
	assert.False(t, stored.VolumeDiscountApplied)
	assertDecimal(t, "6905.25", stored.TotalFinal, "stored final")
}

func TestPricingService_ManualDiscountRoundTrip(t *testing.T) {
	svc, db := createTestPricingService(t)
	testutil.SeedDefaultTiers(t, db)
	proposal := testutil.CreateDualVATProposal(t, db, 150)
	ctx := context.Background()

	never, err := svc.Compute(ctx, proposal.ID, service.ComputeOptions{})
	require.NoError(t, err)

	_, err = svc.ApplyManualDiscount(ctx, proposal.ID, salesActor, testutil.Dec("10"), "VIP")
	require.NoError(t, err)
	removed, err := svc.ApplyManualDiscount(ctx, proposal.ID, salesActor, testutil.Dec("0"), "removed")
	require.NoError(t, err)

	assert.Equal(t, never.VolumeDiscountApplied, removed.VolumeDiscountApplied)
	assert.True(t, never.TotalDiscount.Equal(removed.TotalDiscount))
	assert.True(t, never.TotalVAT.Equal(removed.TotalVAT))
	assert.True(t, never.TotalFinal.Equal(removed.TotalFinal))
	assert.True(t, never.TotalMargin.Equal(removed.TotalMargin))

	stored := reloadProposal(t, db, proposal.ID)
	assert.Nil(t, stored.ManualDiscountPercentage, "a zero discount is stored as no discount")
	assert.True(t, stored.VolumeDiscountApplied)

	entries := listAudit(t, svc, proposal.ID)
	require.Len(t, entries, 4)
	assert.Equal(t, domain.PriceChangeDiscountUpdate, entries[0].ChangeType)
	assert.Equal(t, "10.00", entries[0].OldValue)
	assert.Equal(t, "0.00", entries[0].NewValue)
	assert.Equal(t, "removed", entries[0].Description)
	assert.Equal(t, domain.PriceChangeRecalculation, entries[1].ChangeType)
	assert.Equal(t, domain.PriceChangeDiscountUpdate, entries[2].ChangeType)
	assert.Equal(t, "0.00", entries[2].OldValue)
	assert.Equal(t, "10.00", entries[2].NewValue)
	assert.Equal(t, "VIP", entries[2].Description)
	assert.Equal(t, domain.PriceChangeRecalculation, entries[3].ChangeType)
}

func TestPricingService_NearFullDiscountIsStored(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := testutil.CreateTestProposal(t, db, 150,
		testutil.OptionSpec{Type: domain.ServiceTypeGastronomy, Title: "Menu", Price: "35", Cost: "22"},
	)

	totals, err := svc.ApplyManualDiscount(context.Background(), proposal.ID, salesActor, testutil.Dec("99.99"), "Charity gala")
	require.NoError(t, err)
	assertDecimal(t, "-628471.43", totals.MarginPercentage, "margin %")

	stored := reloadProposal(t, db, proposal.ID)
	require.NotNil(t, stored.ManualDiscountPercentage)
	assertDecimal(t, "99.99", stored.ManualDiscountPercentage, "stored discount")
	assertDecimal(t, "-628471.43", stored.MarginPercentage, "stored margin %")
	assert.True(t, testutil.FitsDecimalColumn(t, db, &domain.Proposal{}, "MarginPercentage", stored.MarginPercentage))
	assert.NotNil(t, stored.LastCalculatedAt)
}

func TestPricingService_RemoveManualDiscount(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := testutil.CreateDualVATProposal(t, db, 150)
	ctx := context.Background()

	_, err := svc.ApplyManualDiscount(ctx, proposal.ID, salesActor, testutil.Dec("12.5"), "Loyal customer")
	require.NoError(t, err)

	totals, err := svc.RemoveManualDiscount(ctx, proposal.ID, salesActor)
	require.NoError(t, err)
	assert.True(t, totals.TotalDiscount.IsZero())
	assertDecimal(t, "7672.5", totals.TotalFinal, "final")

	entries := listAudit(t, svc, proposal.ID)
	require.NotEmpty(t, entries)
	assert.Equal(t, service.DiscountRemovedReason, entries[0].Description)
}

func TestPricingService_InvalidInputRejectedBeforeIO(t *testing.T) {
	svc, _ := createTestPricingService(t)
	ctx := context.Background()
	missing := uuid.New()

	tests := []struct {
		name    string
		pct     string
		reason  string
		wantErr error
	}{
		{"above 100", "150", "too generous", service.ErrInvalidInput},
		{"negative", "-5", "negative", service.ErrInvalidInput},
		{"just above 100 before rounding", "100.004", "rounds to 100", service.ErrInvalidInput},
		{"just below zero before rounding", "-0.004", "rounds to zero", service.ErrInvalidInput},
		{"reason missing", "10", "", service.ErrInvalidInput},
		{"reason too short", "10", "ok", service.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the proposal does not exist, so NotFound would mean I/O happened first
			_, err := svc.ApplyManualDiscount(ctx, missing, salesActor, testutil.Dec(tt.pct), tt.reason)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.False(t, errors.Is(err, service.ErrNotFound))
		})
	}

	_, err := svc.SetPax(ctx, missing, salesActor, -1)
	assert.True(t, errors.Is(err, service.ErrInvalidInput))
}

func TestPricingService_ApplyManualDiscountNotFound(t *testing.T) {
	svc, _ := createTestPricingService(t)

	_, err := svc.ApplyManualDiscount(context.Background(), uuid.New(), salesActor, testutil.Dec("10"), "VIP client")
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestPricingService_PersistenceFailureReturnsTotals(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := testutil.CreateDualVATProposal(t, db, 150)

	require.NoError(t, db.Migrator().DropTable(&domain.PriceAuditEntry{}))

	totals, err := svc.Compute(context.Background(), proposal.ID, service.ComputeOptions{Persist: true, Actor: salesActor})
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrPersistence))

	var perr *service.PersistenceError
	require.True(t, errors.As(err, &perr))
	require.NotNil(t, perr.Totals)
	require.NotNil(t, totals)
	assertDecimal(t, "7672.5", totals.TotalFinal, "returned final")

	// the totals update was rolled back with the failed audit insert
	stored := reloadProposal(t, db, proposal.ID)
	assert.True(t, stored.TotalFinal.IsZero())
	assert.Nil(t, stored.LastCalculatedAt)
}

func TestPricingService_DiscountPersistenceFailureKeepsStoredDiscount(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := testutil.CreateDualVATProposal(t, db, 150)

	require.NoError(t, db.Migrator().DropTable(&domain.PriceAuditEntry{}))

	totals, err := svc.ApplyManualDiscount(context.Background(), proposal.ID, salesActor, testutil.Dec("10"), "VIP client")
	assert.True(t, errors.Is(err, service.ErrPersistence))
	require.NotNil(t, totals)
	assertDecimal(t, "6905.25", totals.TotalFinal, "returned final")

	stored := reloadProposal(t, db, proposal.ID)
	assert.Nil(t, stored.ManualDiscountPercentage)
}

func TestPricingService_MarginAnalysis(t *testing.T) {
	svc, db := createTestPricingService(t)
	testutil.SeedDefaultTiers(t, db)
	proposal := testutil.CreateDualVATProposal(t, db, 150)

	analysis, err := svc.MarginAnalysis(context.Background(), proposal.ID)
	require.NoError(t, err)

	require.Len(t, analysis.Services, 2)
	transport := analysis.Services[0]
	assert.Equal(t, "Transport", transport.Title)
	assert.Equal(t, "logistics", transport.Type)
	assertDecimal(t, "1200", transport.Revenue, "transport revenue")
	assertDecimal(t, "750", transport.Cost, "transport cost")
	assertDecimal(t, "450", transport.Margin, "transport margin")
	assertDecimal(t, "37.5", transport.MarginPercentage, "transport margin %")

	menu := analysis.Services[1]
	assert.Equal(t, "Menu", menu.Title)
	assertDecimal(t, "5250", menu.Revenue, "menu revenue")
	assertDecimal(t, "37.14", menu.MarginPercentage, "menu margin %")

	assertDecimal(t, "6127.5", analysis.TotalRevenue, "summary revenue")
	assertDecimal(t, "4050", analysis.TotalCost, "summary cost")
	assertDecimal(t, "2077.5", analysis.TotalMargin, "summary margin")
	assertDecimal(t, "33.9", analysis.MarginPercentage, "summary margin %")

	assert.Empty(t, listAudit(t, svc, proposal.ID), "margin analysis never writes")
}

func TestPricingService_SetPax(t *testing.T) {
	svc, db := createTestPricingService(t)
	testutil.SeedDefaultTiers(t, db)
	proposal := testutil.CreateDualVATProposal(t, db, 150)

	totals, err := svc.SetPax(context.Background(), proposal.ID, salesActor, 200)
	require.NoError(t, err)

	assertDecimal(t, "8600", totals.TotalBase, "base")
	assertDecimal(t, "688", totals.TotalDiscount, "8% tier discount")
	assert.True(t, totals.VolumeDiscountApplied)

	stored := reloadProposal(t, db, proposal.ID)
	assert.Equal(t, 200, stored.Pax)
	assertDecimal(t, "7912", stored.TotalBase, "stored base after discount")

	entries := listAudit(t, svc, proposal.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.PriceChangePaxUpdate, entries[0].ChangeType)
	assert.Equal(t, "150", entries[0].OldValue)
	assert.Equal(t, "200", entries[0].NewValue)
	assert.Equal(t, domain.PriceChangeRecalculation, entries[1].ChangeType)
}

func TestPricingService_ListAuditNotFound(t *testing.T) {
	svc, _ := createTestPricingService(t)

	_, _, err := svc.ListAudit(context.Background(), uuid.New(), 1, 20)
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestPricingService_RecalculateStale(t *testing.T) {
	svc, db := createTestPricingService(t)
	ctx := context.Background()
	fresh := testutil.CreateDualVATProposal(t, db, 150)
	stale := testutil.CreateDualVATProposal(t, db, 100)

	_, err := svc.Compute(ctx, fresh.ID, service.ComputeOptions{Persist: true, Actor: salesActor})
	require.NoError(t, err)

	recalculated, failed, err := svc.RecalculateStale(ctx, time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, recalculated)
	assert.Equal(t, 0, failed)

	entries := listAudit(t, svc, stale.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SystemActorID, entries[0].ActorID)
	assert.Len(t, listAudit(t, svc, fresh.ID), 1)
}

func TestPricingService_RecalculateStaleSkipsRecentFailures(t *testing.T) {
	svc, db := createTestPricingService(t)
	ctx := context.Background()

	broken := testutil.CreateDualVATProposal(t, db, 150)
	require.NoError(t, db.Exec("UPDATE proposal_services SET vat_category = ? WHERE proposal_id = ?", "unknown", broken.ID).Error)

	recalculated, failed, err := svc.RecalculateStale(ctx, time.Hour, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, recalculated)
	assert.Equal(t, 1, failed)

	// the failing proposal no longer takes the only slot in the batch
	healthy := testutil.CreateDualVATProposal(t, db, 100)
	recalculated, failed, err = svc.RecalculateStale(ctx, time.Hour, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, recalculated)
	assert.Equal(t, 0, failed)
	assert.NotNil(t, reloadProposal(t, db, healthy.ID).LastCalculatedAt)

	recalculated, failed, err = svc.RecalculateStale(ctx, time.Hour, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, recalculated)
	assert.Equal(t, 0, failed)
	assert.Nil(t, reloadProposal(t, db, broken.ID).LastCalculatedAt)
}

func TestPricingService_CheckAccess(t *testing.T) {
	svc, db := createTestPricingService(t)
	proposal := &domain.Proposal{ClientName: "Owned", UserID: "owner-1", Pax: 10}
	require.NoError(t, db.Create(proposal).Error)
	ctx := context.Background()

	assert.NoError(t, svc.CheckAccess(ctx, proposal.ID, domain.Actor{ID: "owner-1"}))
	assert.NoError(t, svc.CheckAccess(ctx, proposal.ID, domain.SystemActor()))
	assert.ErrorIs(t, svc.CheckAccess(ctx, proposal.ID, domain.Actor{ID: "someone-else"}), service.ErrForbidden)
	assert.ErrorIs(t, svc.CheckAccess(ctx, uuid.New(), domain.Actor{ID: "owner-1"}), service.ErrNotFound)
}
