package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/straye-as/proposal-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposal_BeforeCreateAssignsShareHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := testutil.CreateTestProposal(t, db, 10)
	b := testutil.CreateTestProposal(t, db, 10)

	assert.Len(t, a.UniqueHash, 32)
	assert.NotEqual(t, a.UniqueHash, b.UniqueHash)
}

func TestService_BeforeCreateDerivesVATCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	proposal := testutil.CreateDualVATProposal(t, db, 10)

	require.Len(t, proposal.Services, 2)
	assert.Equal(t, pricing.VATCategoryService, proposal.Services[0].VATCategory)
	assert.Equal(t, pricing.VATCategoryFood, proposal.Services[1].VATCategory)
}

func TestService_BeforeCreateRejectsUnknownType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	proposal := testutil.CreateTestProposal(t, db, 10)

	err := db.Create(&domain.Service{ProposalID: proposal.ID, Title: "Fireworks", Type: "pyrotechnics"}).Error
	assert.Error(t, err)
}

func TestProposal_HasManualDiscount(t *testing.T) {
	zero := decimal.Zero
	ten := decimal.NewFromInt(10)

	assert.False(t, (&domain.Proposal{}).HasManualDiscount())
	assert.False(t, (&domain.Proposal{ManualDiscountPercentage: &zero}).HasManualDiscount())
	assert.True(t, (&domain.Proposal{ManualDiscountPercentage: &ten}).HasManualDiscount())
}
