package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimals every exposed amount is rounded to.
const MoneyPlaces = 2

// round rounds half away from zero to MoneyPlaces.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// LineBreakdown is the per-item view of a calculation. Amounts are before
// the proposal-level discount.
type LineBreakdown struct {
	ItemID           uuid.UUID
	ServiceID        uuid.UUID
	ServiceTitle     string
	ServiceType      string
	OptionName       string
	Name             string
	Category         VATCategory
	NetPerAttendee   decimal.Decimal
	VATRate          decimal.Decimal
	Base             decimal.Decimal
	VAT              decimal.Decimal
	Cost             decimal.Decimal
	Margin           decimal.Decimal
	MarginPercentage decimal.Decimal
}

// ServiceBreakdown aggregates the lines of one service before the
// proposal-level discount.
type ServiceBreakdown struct {
	ServiceID        uuid.UUID
	ServiceTitle     string
	ServiceType      string
	Base             decimal.Decimal
	Cost             decimal.Decimal
	Margin           decimal.Decimal
	MarginPercentage decimal.Decimal
}

// Totals is the result of a calculation. All amounts are rounded to
// MoneyPlaces; intermediate sums are kept at full precision.
//
// ServiceVAT and FoodVAT are the per-category buckets before the discount.
// TotalVAT is the blended VAT after the discount.
type Totals struct {
	RateTableVersion string
	Pax              int

	TotalBase         decimal.Decimal
	TotalDiscount     decimal.Decimal
	BaseAfterDiscount decimal.Decimal

	ServiceVAT decimal.Decimal
	FoodVAT    decimal.Decimal
	TotalVAT   decimal.Decimal
	TotalFinal decimal.Decimal

	TotalCost        decimal.Decimal
	TotalMargin      decimal.Decimal
	MarginPercentage decimal.Decimal

	DiscountSource           DiscountSource
	VolumeDiscountApplied    bool
	VolumeDiscountPercentage decimal.Decimal
	ManualDiscountPercentage decimal.Decimal

	Lines    []LineBreakdown
	Services []ServiceBreakdown
}

// Snapshot is the subset of Totals stored on the proposal record.
type Snapshot struct {
	TotalBase             decimal.Decimal
	TotalVAT              decimal.Decimal
	TotalFinal            decimal.Decimal
	TotalCost             decimal.Decimal
	TotalMargin           decimal.Decimal
	MarginPercentage      decimal.Decimal
	VolumeDiscountApplied bool
}

// StoredMarginLimit is the largest magnitude the proposal's DECIMAL(12,2)
// margin_percentage column holds.
var StoredMarginLimit = decimal.RequireFromString("9999999999.99")

// Snapshot returns the persisted view. The stored base is the base after
// discount. The margin percentage is clamped to ±StoredMarginLimit; a
// near-zero base after discount makes the exact figure unbounded, and the
// audit metadata keeps it unclamped.
func (t *Totals) Snapshot() Snapshot {
	return Snapshot{
		TotalBase:             t.BaseAfterDiscount,
		TotalVAT:              t.TotalVAT,
		TotalFinal:            t.TotalFinal,
		TotalCost:             t.TotalCost,
		TotalMargin:           t.TotalMargin,
		MarginPercentage:      clampStoredMargin(t.MarginPercentage),
		VolumeDiscountApplied: t.VolumeDiscountApplied,
	}
}

func clampStoredMargin(pct decimal.Decimal) decimal.Decimal {
	if pct.GreaterThan(StoredMarginLimit) {
		return StoredMarginLimit
	}
	if limit := StoredMarginLimit.Neg(); pct.LessThan(limit) {
		return limit
	}
	return pct
}

// Metadata flattens the totals for audit storage.
func (t *Totals) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"rate_table_version":         t.RateTableVersion,
		"pax":                        t.Pax,
		"total_base":                 t.TotalBase.StringFixed(MoneyPlaces),
		"total_discount":             t.TotalDiscount.StringFixed(MoneyPlaces),
		"total_base_after_discount":  t.BaseAfterDiscount.StringFixed(MoneyPlaces),
		"total_vat_services":         t.ServiceVAT.StringFixed(MoneyPlaces),
		"total_vat_food":             t.FoodVAT.StringFixed(MoneyPlaces),
		"total_vat":                  t.TotalVAT.StringFixed(MoneyPlaces),
		"total_final":                t.TotalFinal.StringFixed(MoneyPlaces),
		"total_cost":                 t.TotalCost.StringFixed(MoneyPlaces),
		"total_margin":               t.TotalMargin.StringFixed(MoneyPlaces),
		"margin_percentage":          t.MarginPercentage.StringFixed(MoneyPlaces),
		"discount_source":            string(t.DiscountSource),
		"volume_discount_applied":    t.VolumeDiscountApplied,
		"volume_discount_percentage": t.VolumeDiscountPercentage.String(),
		"manual_discount_percentage": t.ManualDiscountPercentage.String(),
		"line_count":                 len(t.Lines),
	}
}
