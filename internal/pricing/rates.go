package pricing

import (
	"fmt"
	"sort"
)

// VATCategory classifies a line item for dual-rate VAT.
type VATCategory string

const (
	VATCategoryService VATCategory = "service"
	VATCategoryFood    VATCategory = "food"
)

// IsValid reports whether c is one of the known categories.
func (c VATCategory) IsValid() bool {
	return c == VATCategoryService || c == VATCategoryFood
}

// Tier maps an attendee range to an automatic discount.
// MaxPax nil means the range is unbounded above.
type Tier struct {
	MinPax             int
	MaxPax             *int
	DiscountPercentage Percentage
	Active             bool
}

// Contains reports whether pax falls in [MinPax, MaxPax].
func (t Tier) Contains(pax int) bool {
	if pax < t.MinPax {
		return false
	}
	return t.MaxPax == nil || pax <= *t.MaxPax
}

func (t Tier) overlaps(o Tier) bool {
	if t.MaxPax != nil && *t.MaxPax < o.MinPax {
		return false
	}
	if o.MaxPax != nil && *o.MaxPax < t.MinPax {
		return false
	}
	return true
}

func (t Tier) validate() error {
	if t.MinPax < 0 {
		return fmt.Errorf("%w: minPax %d is negative", ErrInvalidTier, t.MinPax)
	}
	if t.MaxPax != nil && *t.MaxPax < t.MinPax {
		return fmt.Errorf("%w: maxPax %d is below minPax %d", ErrInvalidTier, *t.MaxPax, t.MinPax)
	}
	return nil
}

// RateTable is the read-only configuration a calculation runs against:
// the two VAT rates and the volume discount tiers.
type RateTable struct {
	Version    string
	ServiceVAT Percentage
	FoodVAT    Percentage
	tiers      []Tier
}

// NewRateTable validates the tiers and returns a table with the active
// tiers sorted by MinPax descending.
func NewRateTable(version string, serviceVAT, foodVAT Percentage, tiers []Tier) (*RateTable, error) {
	if err := ValidateTiers(tiers); err != nil {
		return nil, err
	}

	active := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		if t.Active {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].MinPax > active[j].MinPax
	})

	return &RateTable{
		Version:    version,
		ServiceVAT: serviceVAT,
		FoodVAT:    foodVAT,
		tiers:      active,
	}, nil
}

// ValidateTiers checks every tier and rejects overlapping active ranges.
func ValidateTiers(tiers []Tier) error {
	for i, t := range tiers {
		if err := t.validate(); err != nil {
			return err
		}
		if !t.Active {
			continue
		}
		for _, o := range tiers[i+1:] {
			if o.Active && t.overlaps(o) {
				return fmt.Errorf("%w: [%s] and [%s]", ErrOverlappingTiers, t.rangeString(), o.rangeString())
			}
		}
	}
	return nil
}

func (t Tier) rangeString() string {
	if t.MaxPax == nil {
		return fmt.Sprintf("%d-", t.MinPax)
	}
	return fmt.Sprintf("%d-%d", t.MinPax, *t.MaxPax)
}

// VATRate returns the rate for a category as a percentage.
func (r *RateTable) VATRate(c VATCategory) (Percentage, error) {
	switch c {
	case VATCategoryService:
		return r.ServiceVAT, nil
	case VATCategoryFood:
		return r.FoodVAT, nil
	default:
		return Percentage{}, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
}

// TierFor returns the active tier containing pax with the highest MinPax.
func (r *RateTable) TierFor(pax int) (Tier, bool) {
	for _, t := range r.tiers {
		if t.Contains(pax) {
			return t, true
		}
	}
	return Tier{}, false
}

// Tiers returns a copy of the active tiers, highest MinPax first.
func (r *RateTable) Tiers() []Tier {
	out := make([]Tier, len(r.tiers))
	copy(out, r.tiers)
	return out
}
