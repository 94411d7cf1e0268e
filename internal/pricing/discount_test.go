package pricing_test

import (
	"testing"

	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/stretchr/testify/assert"
)

func TestDiscountPolicy_Resolve(t *testing.T) {
	table := newTable(t, defaultTiers()...)
	policy := pricing.NewDiscountPolicy(table)
	base := dec("1000")
	ten := pricing.MustPercentage("10")
	zeroPct := pricing.MustPercentage("0")

	tests := []struct {
		name         string
		pax          int
		manual       *pricing.Percentage
		wantDiscount string
		wantSource   pricing.DiscountSource
		wantVolume   bool
	}{
		{name: "no tier no manual", pax: 10, wantDiscount: "0", wantSource: pricing.DiscountSourceNone},
		{name: "volume tier", pax: 150, wantDiscount: "50", wantSource: pricing.DiscountSourceVolume, wantVolume: true},
		{name: "manual overrides tier", pax: 150, manual: &ten, wantDiscount: "100", wantSource: pricing.DiscountSourceManual},
		{name: "manual without tier", pax: 10, manual: &ten, wantDiscount: "100", wantSource: pricing.DiscountSourceManual},
		{name: "manual zero keeps tier", pax: 600, manual: &zeroPct, wantDiscount: "100", wantSource: pricing.DiscountSourceVolume, wantVolume: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Resolve(base, tt.pax, tt.manual)
			assertAmount(t, tt.wantDiscount, got.TotalDiscount, "discount")
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantVolume, got.VolumeDiscountApplied)
		})
	}
}

func TestDiscountPolicy_NilTable(t *testing.T) {
	got := pricing.NewDiscountPolicy(nil).Resolve(dec("1000"), 150, nil)
	assert.True(t, got.TotalDiscount.IsZero())
	assert.Equal(t, pricing.DiscountSourceNone, got.Source)
}
