package mapper

import (
	"strings"

	"github.com/shopspring/decimal"
)

// es-ES separates the currency and percent signs with a no-break space
const nbsp = "\u00a0"

// FormatEUR renders an amount the way es-ES formats euros: "12.345,67 €".
// Integer parts below five digits are not grouped ("1234,56 €").
func FormatEUR(d decimal.Decimal) string {
	return formatNumber(d) + nbsp + "€"
}

// FormatPercent renders a percentage as "37,21 %"
func FormatPercent(d decimal.Decimal) string {
	return formatNumber(d) + nbsp + "%"
}

func formatNumber(d decimal.Decimal) string {
	s := d.StringFixed(2)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	if len(intPart) >= 5 {
		intPart = group(intPart)
	}

	out := intPart + "," + fracPart
	if negative {
		out = "-" + out
	}
	return out
}

func group(digits string) string {
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
