package pricing

import "errors"

var (
	// ErrInvalidPax is returned when the attendee count is negative.
	ErrInvalidPax = errors.New("pax must be zero or greater")

	// ErrInvalidPercentage is returned when a percentage falls outside [0, 100].
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")

	// ErrInvalidTier is returned when a volume discount tier is malformed.
	ErrInvalidTier = errors.New("invalid volume discount tier")

	// ErrOverlappingTiers is returned when two active tiers cover the same pax.
	ErrOverlappingTiers = errors.New("active volume discount tiers overlap")

	// ErrUnknownCategory is returned for a line item without a known VAT category.
	ErrUnknownCategory = errors.New("unknown VAT category")
)
