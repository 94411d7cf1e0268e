package mapper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEUR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0,00\u00a0€"},
		{"7.5", "7,50\u00a0€"},
		{"1234.56", "1234,56\u00a0€"},
		{"12345.678", "12.345,68\u00a0€"},
		{"1234567.8", "1.234.567,80\u00a0€"},
		{"-98765.4", "-98.765,40\u00a0€"},
		{"123456", "123.456,00\u00a0€"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEUR(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "37,21\u00a0%", FormatPercent(decimal.RequireFromString("37.21")))
}

func TestToTotalsDTO(t *testing.T) {
	proposalID := uuid.New()
	totals := &pricing.Totals{
		RateTableVersion:  "2024-01",
		Pax:               150,
		TotalBase:         decimal.RequireFromString("6450"),
		TotalDiscount:     decimal.RequireFromString("322.5"),
		BaseAfterDiscount: decimal.RequireFromString("6127.5"),
		ServiceVAT:        decimal.RequireFromString("120"),
		FoodVAT:           decimal.RequireFromString("1102.5"),
		TotalVAT:          decimal.RequireFromString("1161.38"),
		TotalFinal:        decimal.RequireFromString("7288.88"),
		TotalCost:         decimal.RequireFromString("4050"),
		TotalMargin:       decimal.RequireFromString("2077.5"),
		MarginPercentage:  decimal.RequireFromString("33.9"),
		DiscountSource:    pricing.DiscountSourceVolume,
		Lines: []pricing.LineBreakdown{{
			Name:     "Menu item",
			Category: pricing.VATCategoryFood,
			VATRate:  decimal.RequireFromString("21"),
			Base:     decimal.RequireFromString("5250"),
		}},
		VolumeDiscountApplied:    true,
		VolumeDiscountPercentage: decimal.RequireFromString("5"),
	}
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	dto := ToTotalsDTO(proposalID, totals, true, at)

	assert.Equal(t, proposalID, dto.ProposalID)
	assert.Equal(t, 7288.88, dto.TotalFinal)
	assert.Equal(t, 1102.5, dto.TotalVATFood)
	assert.Equal(t, 6127.5, dto.TotalBaseAfterDiscount)
	assert.Equal(t, "volume", dto.DiscountSource)
	assert.True(t, dto.Persisted)
	assert.Equal(t, "2024-05-01T10:30:00Z", dto.CalculatedAt)
	require.Len(t, dto.Lines, 1)
	assert.Equal(t, "food", dto.Lines[0].VATCategory)
	assert.Equal(t, 21.0, dto.Lines[0].VATRate)
	require.NotNil(t, dto.Formatted)
	assert.Equal(t, "7288,88\u00a0€", dto.Formatted.TotalFinal)
	assert.Equal(t, "33,90\u00a0%", dto.Formatted.MarginPercentage)
}

func TestToPriceAuditEntryDTO(t *testing.T) {
	entry := &domain.PriceAuditEntry{
		ID:         7,
		ProposalID: uuid.New(),
		ActorID:    "user-1",
		ChangeType: domain.PriceChangeDiscountUpdate,
		OldValue:   "0.00",
		NewValue:   "10.00",
		Metadata:   `{"reason":"VIP","volume_discount_applied":false}`,
		CreatedAt:  time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
	}

	dto := ToPriceAuditEntryDTO(entry)
	assert.Equal(t, uint64(7), dto.ID)
	assert.Equal(t, "VIP", dto.Metadata["reason"])
	assert.Equal(t, false, dto.Metadata["volume_discount_applied"])

	entry.Metadata = "not json"
	assert.Nil(t, ToPriceAuditEntryDTO(entry).Metadata)
}
