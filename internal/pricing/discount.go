package pricing

import "github.com/shopspring/decimal"

// DiscountSource records which rule produced the proposal-level discount.
type DiscountSource string

const (
	DiscountSourceNone   DiscountSource = "none"
	DiscountSourceVolume DiscountSource = "volume"
	DiscountSourceManual DiscountSource = "manual"
)

// DiscountResolution is the outcome of DiscountPolicy.Resolve.
type DiscountResolution struct {
	TotalDiscount            decimal.Decimal
	Source                   DiscountSource
	VolumeDiscountApplied    bool
	VolumeDiscountPercentage decimal.Decimal
	ManualDiscountPercentage decimal.Decimal
}

// DiscountPolicy decides the proposal-level discount. Volume and manual
// discounts never stack: a manual discount above zero replaces the volume
// tier entirely.
type DiscountPolicy struct {
	table *RateTable
}

// NewDiscountPolicy returns a policy reading tiers from table.
func NewDiscountPolicy(table *RateTable) DiscountPolicy {
	return DiscountPolicy{table: table}
}

// Resolve computes the discount on totalBase. A nil manual discount and a
// manual discount of exactly 0 both leave the volume tier eligible.
func (p DiscountPolicy) Resolve(totalBase decimal.Decimal, pax int, manual *Percentage) DiscountResolution {
	if manual != nil && !manual.IsZero() {
		return DiscountResolution{
			TotalDiscount:            manual.Of(totalBase),
			Source:                   DiscountSourceManual,
			ManualDiscountPercentage: manual.Decimal(),
			VolumeDiscountPercentage: zero,
		}
	}

	if p.table != nil {
		if tier, ok := p.table.TierFor(pax); ok {
			return DiscountResolution{
				TotalDiscount:            tier.DiscountPercentage.Of(totalBase),
				Source:                   DiscountSourceVolume,
				VolumeDiscountApplied:    true,
				VolumeDiscountPercentage: tier.DiscountPercentage.Decimal(),
				ManualDiscountPercentage: zero,
			}
		}
	}

	return DiscountResolution{
		TotalDiscount:            zero,
		Source:                   DiscountSourceNone,
		VolumeDiscountPercentage: zero,
		ManualDiscountPercentage: zero,
	}
}
