package core

const (
	// NearestUnit rounds a purchase up to the next whole currency unit.
	// A purchase that is already a whole unit produces a zero round-up,
	// not a full unit.
	NearestUnit RoundupMethod = "nearest_unit"
	// NearestMultiple rounds up to the next multiple of a configured step.
	NearestMultiple RoundupMethod = "nearest_multiple"
	// Fixed contributes a flat amount regardless of purchase size.
	Fixed RoundupMethod = "fixed"
	// Percentage contributes a configured fraction of the purchase amount.
	Percentage RoundupMethod = "percentage"
)

type (
	RoundupMethod string

	// RoundupConfig selects the rule a purchase round-up is computed with.
	// Only the parameter matching the method is consulted.
	RoundupConfig struct {
		Method RoundupMethod
		// MultipleCents is the step for NearestMultiple, in cents (e.g. 1000
		// rounds to the next $10).
		MultipleCents int64
		// FixedCents is the flat amount for Fixed, in cents. Negative values
		// are clamped to zero.
		FixedCents int64
		// RateBasisPoints is the rate for Percentage, in basis points
		// (100 = 1%).
		RateBasisPoints int64
	}
)

// DefaultRoundupConfig rounds to the nearest whole unit, matching the
// product default.
func DefaultRoundupConfig() RoundupConfig {
	return RoundupConfig{Method: NearestUnit}
}

// IsValid returns true if the method is one of the supported rules.
func (m RoundupMethod) IsValid() bool {
	switch m {
	case NearestUnit, NearestMultiple, Fixed, Percentage:
		return true
	default:
		return false
	}
}

// Validate checks that the config's method is supported and its parameter
// is usable.
func (c RoundupConfig) Validate() error {
	if !c.Method.IsValid() {
		return ErrUnsupportedRoundupMethod
	}
	if c.Method == NearestMultiple && c.MultipleCents <= 0 {
		return ErrInvalidAmount
	}
	if c.Method == Percentage && c.RateBasisPoints < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ComputeRoundup produces the non-negative round-up amount for a purchase.
// Pure function, no side effects. Fails with ErrInvalidAmount for negative
// purchase amounts and ErrUnsupportedRoundupMethod for unknown methods.
func ComputeRoundup(amount Money, cfg RoundupConfig) (Money, error) {
	if amount.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	if err := cfg.Validate(); err != nil {
		return Money{}, err
	}

	switch cfg.Method {
	case NearestUnit:
		return roundUpToStep(amount.Cents, 100), nil
	case NearestMultiple:
		return roundUpToStep(amount.Cents, cfg.MultipleCents), nil
	case Fixed:
		if cfg.FixedCents < 0 {
			return Money{}, nil
		}
		return Money{Cents: cfg.FixedCents}, nil
	case Percentage:
		// Half-up rounding to cent precision.
		return Money{Cents: (amount.Cents*cfg.RateBasisPoints + 5000) / 10000}, nil
	default:
		return Money{}, ErrUnsupportedRoundupMethod
	}
}

// roundUpToStep returns the distance from cents to the next multiple of
// step. An exact multiple yields zero.
func roundUpToStep(cents, step int64) Money {
	rem := cents % step
	if rem == 0 {
		return Money{}
	}
	return Money{Cents: step - rem}
}
