package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/straye-as/proposal-api/internal/repository"
	"github.com/straye-as/proposal-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestProposalRepository_UpdateTotals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewProposalRepository(db)
	ctx := context.Background()
	proposal := testutil.CreateDualVATProposal(t, db, 100)

	calculatedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := repo.UpdateTotals(ctx, proposal.ID, pricing.Snapshot{
		TotalBase:             testutil.Dec("4085"),
		TotalVAT:              testutil.Dec("774.25"),
		TotalFinal:            testutil.Dec("4859.25"),
		TotalCost:             testutil.Dec("2700"),
		TotalMargin:           testutil.Dec("1385"),
		MarginPercentage:      testutil.Dec("33.9"),
		VolumeDiscountApplied: true,
	}, calculatedAt)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, proposal.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalFinal.Equal(testutil.Dec("4859.25")))
	assert.True(t, stored.TotalVAT.Equal(testutil.Dec("774.25")))
	assert.True(t, stored.VolumeDiscountApplied)
	require.NotNil(t, stored.LastCalculatedAt)
	assert.True(t, stored.LastCalculatedAt.Equal(calculatedAt))
}

func TestProposalRepository_UpdatesReturnNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewProposalRepository(db)
	ctx := context.Background()
	missing := uuid.New()

	assert.True(t, errors.Is(repo.UpdatePax(ctx, missing, 10), gorm.ErrRecordNotFound))
	assert.True(t, errors.Is(repo.UpdateTotals(ctx, missing, pricing.Snapshot{}, time.Now()), gorm.ErrRecordNotFound))
	assert.True(t, errors.Is(repo.UpdateManualDiscount(ctx, missing, nil, ""), gorm.ErrRecordNotFound))

	_, err := repo.GetByID(ctx, missing)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestProposalRepository_UpdateManualDiscount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewProposalRepository(db)
	ctx := context.Background()
	proposal := testutil.CreateDualVATProposal(t, db, 10)

	pct := testutil.Dec("7.5")
	require.NoError(t, repo.UpdateManualDiscount(ctx, proposal.ID, &pct, "Repeat client"))

	stored, err := repo.GetByID(ctx, proposal.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ManualDiscountPercentage)
	assert.True(t, stored.ManualDiscountPercentage.Equal(pct))
	assert.True(t, stored.HasManualDiscount())

	require.NoError(t, repo.UpdateManualDiscount(ctx, proposal.ID, nil, ""))
	stored, err = repo.GetByID(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ManualDiscountPercentage)
	assert.False(t, stored.HasManualDiscount())
}

func TestProposalRepository_ListStaleIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewProposalRepository(db)
	ctx := context.Background()

	never := testutil.CreateTestProposal(t, db, 10)
	old := testutil.CreateTestProposal(t, db, 10)
	fresh := testutil.CreateTestProposal(t, db, 10)

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateTotals(ctx, old.ID, pricing.Snapshot{}, now.Add(-48*time.Hour)))
	require.NoError(t, repo.UpdateTotals(ctx, fresh.ID, pricing.Snapshot{}, now))

	ids, err := repo.ListStaleIDs(ctx, now.Add(-24*time.Hour), 10, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{never.ID, old.ID}, ids)

	limited, err := repo.ListStaleIDs(ctx, now.Add(-24*time.Hour), 1, nil)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestProposalRepository_ListStaleIDsNeverCalculatedFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewProposalRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	old := testutil.CreateTestProposal(t, db, 10)
	require.NoError(t, repo.UpdateTotals(ctx, old.ID, pricing.Snapshot{}, now.Add(-72*time.Hour)))
	never := testutil.CreateTestProposal(t, db, 10)

	ids, err := repo.ListStaleIDs(ctx, now.Add(-24*time.Hour), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{never.ID}, ids)

	ids, err = repo.ListStaleIDs(ctx, now.Add(-24*time.Hour), 10, []uuid.UUID{never.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{old.ID}, ids)
}

func TestProposalRepository_ListStaleIDsOrderingOnPostgres(t *testing.T) {
	db, statements := testutil.DryRunPostgres(t)
	repo := repository.NewProposalRepository(db)

	_, err := repo.ListStaleIDs(context.Background(), time.Now(), 5, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	require.Len(t, *statements, 1)

	sql := (*statements)[0]
	assert.Contains(t, sql, "ORDER BY CASE WHEN last_calculated_at IS NULL THEN 0 ELSE 1 END,last_calculated_at ASC,created_at ASC")
	assert.Contains(t, sql, "id NOT IN")
}

func TestProposalRepository_MarginColumnHoldsExtremeSnapshots(t *testing.T) {
	db, _ := testutil.DryRunPostgres(t)
	table, err := pricing.NewRateTable("test", pricing.MustPercentage("10"), pricing.MustPercentage("21"), nil)
	require.NoError(t, err)

	nearFull := pricing.MustPercentage("99.99")
	totals, err := pricing.Calculate(pricing.Input{
		Pax: 150,
		Items: []pricing.LineItem{{
			ItemID:           uuid.New(),
			ServiceID:        uuid.New(),
			PricePerAttendee: testutil.Dec("35"),
			CostPerAttendee:  testutil.Dec("22"),
			Category:         pricing.VATCategoryFood,
		}},
		ManualDiscount: &nearFull,
	}, table)
	require.NoError(t, err)

	snap := totals.Snapshot()
	assert.Equal(t, "-628471.43", snap.MarginPercentage.StringFixed(2))
	assert.True(t, testutil.FitsDecimalColumn(t, db, &domain.Proposal{}, "MarginPercentage", snap.MarginPercentage))

	assert.True(t, testutil.FitsDecimalColumn(t, db, &domain.Proposal{}, "MarginPercentage", pricing.StoredMarginLimit.Neg()))
	assert.False(t, testutil.FitsDecimalColumn(t, db, &domain.Proposal{}, "MarginPercentage", pricing.StoredMarginLimit.Add(testutil.Dec("0.01"))))
}
