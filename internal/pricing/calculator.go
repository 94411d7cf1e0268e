// Package pricing converts a proposal's flattened line items into final
// prices: dual-rate VAT, proposal-level discount, cost and margin. It does
// no I/O; callers load the inputs and decide whether to store the result.
package pricing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is the flattened, per-attendee view of one proposal item.
type LineItem struct {
	ItemID              uuid.UUID
	ServiceID           uuid.UUID
	ServiceTitle        string
	ServiceType         string
	OptionName          string
	Name                string
	PricePerAttendee    decimal.Decimal
	DiscountPerAttendee decimal.Decimal
	CostPerAttendee     decimal.Decimal
	Category            VATCategory
}

// Input is everything a calculation depends on besides the rate table.
// ManualDiscount nil means no manual discount is set.
type Input struct {
	Pax            int
	Items          []LineItem
	ManualDiscount *Percentage
}

// Calculate prices in against table.
//
// The discount is applied to the summed base and VAT is scaled by the same
// ratio, which keeps the blended rate of the undiscounted mix.
func Calculate(in Input, table *RateTable) (*Totals, error) {
	if table == nil {
		return nil, errors.New("pricing: rate table is required")
	}
	if in.Pax < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPax, in.Pax)
	}

	pax := decimal.NewFromInt(int64(in.Pax))
	totalBase := zero
	totalCost := zero
	serviceVAT := zero
	foodVAT := zero

	lines := make([]LineBreakdown, 0, len(in.Items))
	services := newServiceAccumulator()
	for _, item := range in.Items {
		rate, err := table.VATRate(item.Category)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ItemID, err)
		}

		net := item.PricePerAttendee.Sub(item.DiscountPerAttendee)
		lineBase := net.Mul(pax)
		lineCost := item.CostPerAttendee.Mul(pax)
		lineVAT := rate.Of(lineBase)

		totalBase = totalBase.Add(lineBase)
		totalCost = totalCost.Add(lineCost)
		if item.Category == VATCategoryFood {
			foodVAT = foodVAT.Add(lineVAT)
		} else {
			serviceVAT = serviceVAT.Add(lineVAT)
		}

		services.add(item, lineBase, lineCost)

		lineMargin := lineBase.Sub(lineCost)
		lines = append(lines, LineBreakdown{
			ItemID:           item.ItemID,
			ServiceID:        item.ServiceID,
			ServiceTitle:     item.ServiceTitle,
			ServiceType:      item.ServiceType,
			OptionName:       item.OptionName,
			Name:             item.Name,
			Category:         item.Category,
			NetPerAttendee:   round(net),
			VATRate:          rate.Decimal(),
			Base:             round(lineBase),
			VAT:              round(lineVAT),
			Cost:             round(lineCost),
			Margin:           round(lineMargin),
			MarginPercentage: round(MarginPercentage(lineMargin, lineBase)),
		})
	}

	discount := NewDiscountPolicy(table).Resolve(totalBase, in.Pax, in.ManualDiscount)

	baseAfterDiscount := totalBase.Sub(discount.TotalDiscount)
	vatAfterDiscount := zero
	if totalBase.IsPositive() {
		vatAfterDiscount = serviceVAT.Add(foodVAT).Mul(baseAfterDiscount).Div(totalBase)
	}
	final := baseAfterDiscount.Add(vatAfterDiscount)
	margin := baseAfterDiscount.Sub(totalCost)

	return &Totals{
		RateTableVersion:         table.Version,
		Pax:                      in.Pax,
		TotalBase:                round(totalBase),
		TotalDiscount:            round(discount.TotalDiscount),
		BaseAfterDiscount:        round(baseAfterDiscount),
		ServiceVAT:               round(serviceVAT),
		FoodVAT:                  round(foodVAT),
		TotalVAT:                 round(vatAfterDiscount),
		TotalFinal:               round(final),
		TotalCost:                round(totalCost),
		TotalMargin:              round(margin),
		MarginPercentage:         round(MarginPercentage(margin, baseAfterDiscount)),
		DiscountSource:           discount.Source,
		VolumeDiscountApplied:    discount.VolumeDiscountApplied,
		VolumeDiscountPercentage: discount.VolumeDiscountPercentage,
		ManualDiscountPercentage: discount.ManualDiscountPercentage,
		Lines:                    lines,
		Services:                 services.breakdown(),
	}, nil
}

// MarginPercentage returns margin/revenue*100, or 0 when revenue is not
// positive.
func MarginPercentage(margin, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return zero
	}
	return margin.Mul(hundred).Div(revenue)
}

type serviceSums struct {
	first      LineItem
	base, cost decimal.Decimal
}

// serviceAccumulator sums lines per service in first-seen order.
type serviceAccumulator struct {
	order []uuid.UUID
	sums  map[uuid.UUID]*serviceSums
}

func newServiceAccumulator() *serviceAccumulator {
	return &serviceAccumulator{sums: make(map[uuid.UUID]*serviceSums)}
}

func (a *serviceAccumulator) add(item LineItem, base, cost decimal.Decimal) {
	sums, ok := a.sums[item.ServiceID]
	if !ok {
		sums = &serviceSums{first: item, base: zero, cost: zero}
		a.sums[item.ServiceID] = sums
		a.order = append(a.order, item.ServiceID)
	}
	sums.base = sums.base.Add(base)
	sums.cost = sums.cost.Add(cost)
}

func (a *serviceAccumulator) breakdown() []ServiceBreakdown {
	out := make([]ServiceBreakdown, 0, len(a.order))
	for _, id := range a.order {
		sums := a.sums[id]
		margin := sums.base.Sub(sums.cost)
		out = append(out, ServiceBreakdown{
			ServiceID:        id,
			ServiceTitle:     sums.first.ServiceTitle,
			ServiceType:      sums.first.ServiceType,
			Base:             round(sums.base),
			Cost:             round(sums.cost),
			Margin:           round(margin),
			MarginPercentage: round(MarginPercentage(margin, sums.base)),
		})
	}
	return out
}
