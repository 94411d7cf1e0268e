package mapper

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/proposal-api/internal/domain"
	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/straye-as/proposal-api/internal/service"
)

const timestampLayout = "2006-01-02T15:04:05Z"

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// ToLineBreakdownDTO converts one priced line
func ToLineBreakdownDTO(line pricing.LineBreakdown) domain.LineBreakdownDTO {
	return domain.LineBreakdownDTO{
		ItemID:           line.ItemID,
		ServiceID:        line.ServiceID,
		ServiceTitle:     line.ServiceTitle,
		OptionName:       line.OptionName,
		Name:             line.Name,
		VATCategory:      string(line.Category),
		VATRate:          toFloat(line.VATRate),
		NetPerAttendee:   toFloat(line.NetPerAttendee),
		Base:             toFloat(line.Base),
		VAT:              toFloat(line.VAT),
		Cost:             toFloat(line.Cost),
		Margin:           toFloat(line.Margin),
		MarginPercentage: toFloat(line.MarginPercentage),
	}
}

// ToTotalsDTO converts calculation totals. persisted tells the client whether
// the proposal record now holds these values.
func ToTotalsDTO(proposalID uuid.UUID, totals *pricing.Totals, persisted bool, calculatedAt time.Time) domain.TotalsDTO {
	lines := make([]domain.LineBreakdownDTO, 0, len(totals.Lines))
	for _, line := range totals.Lines {
		lines = append(lines, ToLineBreakdownDTO(line))
	}

	return domain.TotalsDTO{
		ProposalID:               proposalID,
		Pax:                      totals.Pax,
		RateTableVersion:         totals.RateTableVersion,
		TotalBase:                toFloat(totals.TotalBase),
		TotalDiscount:            toFloat(totals.TotalDiscount),
		TotalBaseAfterDiscount:   toFloat(totals.BaseAfterDiscount),
		TotalVATServices:         toFloat(totals.ServiceVAT),
		TotalVATFood:             toFloat(totals.FoodVAT),
		TotalVAT:                 toFloat(totals.TotalVAT),
		TotalFinal:               toFloat(totals.TotalFinal),
		TotalCost:                toFloat(totals.TotalCost),
		TotalMargin:              toFloat(totals.TotalMargin),
		MarginPercentage:         toFloat(totals.MarginPercentage),
		DiscountSource:           string(totals.DiscountSource),
		VolumeDiscountApplied:    totals.VolumeDiscountApplied,
		VolumeDiscountPercentage: toFloat(totals.VolumeDiscountPercentage),
		ManualDiscountPercentage: toFloat(totals.ManualDiscountPercentage),
		Persisted:                persisted,
		CalculatedAt:             calculatedAt.UTC().Format(timestampLayout),
		Lines:                    lines,
		Formatted:                ToFormattedTotalsDTO(totals),
	}
}

// ToFormattedTotalsDTO renders the headline amounts for display
func ToFormattedTotalsDTO(totals *pricing.Totals) *domain.FormattedTotalsDTO {
	return &domain.FormattedTotalsDTO{
		TotalBase:              FormatEUR(totals.TotalBase),
		TotalDiscount:          FormatEUR(totals.TotalDiscount),
		TotalBaseAfterDiscount: FormatEUR(totals.BaseAfterDiscount),
		TotalVAT:               FormatEUR(totals.TotalVAT),
		TotalFinal:             FormatEUR(totals.TotalFinal),
		TotalCost:              FormatEUR(totals.TotalCost),
		TotalMargin:            FormatEUR(totals.TotalMargin),
		MarginPercentage:       FormatPercent(totals.MarginPercentage),
	}
}

// ToMarginAnalysisDTO converts a margin analysis
func ToMarginAnalysisDTO(analysis *service.MarginAnalysis) domain.MarginAnalysisDTO {
	services := make([]domain.ServiceMarginDTO, 0, len(analysis.Services))
	for _, svc := range analysis.Services {
		services = append(services, domain.ServiceMarginDTO{
			ServiceID:        svc.ServiceID,
			Title:            svc.Title,
			Type:             svc.Type,
			Revenue:          toFloat(svc.Revenue),
			Cost:             toFloat(svc.Cost),
			Margin:           toFloat(svc.Margin),
			MarginPercentage: toFloat(svc.MarginPercentage),
		})
	}

	return domain.MarginAnalysisDTO{
		ProposalID: analysis.ProposalID,
		Services:   services,
		Summary: domain.MarginSummaryDTO{
			TotalRevenue:     toFloat(analysis.TotalRevenue),
			TotalCost:        toFloat(analysis.TotalCost),
			TotalMargin:      toFloat(analysis.TotalMargin),
			MarginPercentage: toFloat(analysis.MarginPercentage),
		},
	}
}

// ToPriceAuditEntryDTO converts an audit entry. Metadata that is not valid
// JSON is dropped rather than failing the listing.
func ToPriceAuditEntryDTO(entry *domain.PriceAuditEntry) domain.PriceAuditEntryDTO {
	dto := domain.PriceAuditEntryDTO{
		ID:          entry.ID,
		ProposalID:  entry.ProposalID,
		ActorID:     entry.ActorID,
		ActorName:   entry.ActorName,
		ChangeType:  entry.ChangeType,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt.UTC().Format(timestampLayout),
	}

	if entry.Metadata != "" {
		var metadata map[string]interface{}
		if err := json.Unmarshal([]byte(entry.Metadata), &metadata); err == nil {
			dto.Metadata = metadata
		}
	}

	return dto
}

// ToPriceAuditEntryDTOs converts a page of audit entries
func ToPriceAuditEntryDTOs(entries []domain.PriceAuditEntry) []domain.PriceAuditEntryDTO {
	dtos := make([]domain.PriceAuditEntryDTO, 0, len(entries))
	for i := range entries {
		dtos = append(dtos, ToPriceAuditEntryDTO(&entries[i]))
	}
	return dtos
}

// ToVolumeDiscountTierDTO converts a volume discount tier
func ToVolumeDiscountTierDTO(tier *domain.VolumeDiscountTier) domain.VolumeDiscountTierDTO {
	return domain.VolumeDiscountTierDTO{
		ID:                 tier.ID,
		MinPax:             tier.MinPax,
		MaxPax:             tier.MaxPax,
		DiscountPercentage: toFloat(tier.DiscountPercentage),
		Description:        tier.Description,
		IsActive:           tier.IsActive,
		CreatedAt:          tier.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:          tier.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToVolumeDiscountTierDTOs converts a tier list
func ToVolumeDiscountTierDTOs(tiers []domain.VolumeDiscountTier) []domain.VolumeDiscountTierDTO {
	dtos := make([]domain.VolumeDiscountTierDTO, 0, len(tiers))
	for i := range tiers {
		dtos = append(dtos, ToVolumeDiscountTierDTO(&tiers[i]))
	}
	return dtos
}
