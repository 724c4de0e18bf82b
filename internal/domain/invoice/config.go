package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationMode is the configured validation_mode option.
type ValidationMode string

const (
	ModePartsBased     ValidationMode = "parts_based"
	ModeThresholdBased ValidationMode = "threshold_based"
)

// DefaultPricePrecision is the number of decimal places prices are compared at.
const DefaultPricePrecision = 4

// DefaultThreshold is the threshold_value used when none is configured.
var DefaultThreshold = decimal.RequireFromString("0.30")

// ParseValidationMode maps a validation_mode option value onto a mode.
func ParseValidationMode(s string) (ValidationMode, error) {
	switch ValidationMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePartsBased:
		return ModePartsBased, nil
	case ModeThresholdBased:
		return ModeThresholdBased, nil
	default:
		return "", &Error{
			Kind:   KindValidationConfiguration,
			Reason: fmt.Sprintf("unknown validation mode %q", s),
		}
	}
}

// ValidationConfiguration is fixed for a run.
type ValidationConfiguration struct {
	Mode           ValidationMode
	ThresholdValue *decimal.Decimal
	PricePrecision int32
}

// PartsBasedConfig returns a parts-based configuration at the default precision.
func PartsBasedConfig() ValidationConfiguration {
	return ValidationConfiguration{Mode: ModePartsBased, PricePrecision: DefaultPricePrecision}
}

// ThresholdConfig returns a threshold-based configuration at the default precision.
func ThresholdConfig(threshold decimal.Decimal) ValidationConfiguration {
	return ValidationConfiguration{
		Mode:           ModeThresholdBased,
		ThresholdValue: &threshold,
		PricePrecision: DefaultPricePrecision,
	}
}

// Strategy is the closed set of comparison strategies. Only PartsBased and
// ThresholdBased implement it.
type Strategy interface {
	strategy()
}

// PartsBased compares each rate to the authorized price of its part.
type PartsBased struct{}

// ThresholdBased compares each rate to one flat ceiling.
type ThresholdBased struct {
	Threshold decimal.Decimal
}

func (PartsBased) strategy()     {}
func (ThresholdBased) strategy() {}

// Precision returns the number of decimal places prices are compared at.
// Zero compares whole units; PartsBasedConfig and ThresholdConfig start at
// DefaultPricePrecision.
func (c ValidationConfiguration) Precision() int32 {
	return c.PricePrecision
}

// Strategy resolves the configuration into a strategy. It fails with a
// validation configuration error when the mode is unknown or when threshold
// mode has no threshold value.
func (c ValidationConfiguration) Strategy() (Strategy, error) {
	if c.PricePrecision < 0 {
		return nil, &Error{
			Kind:   KindValidationConfiguration,
			Reason: fmt.Sprintf("price precision must not be negative, got %d", c.PricePrecision),
		}
	}

	switch c.Mode {
	case ModePartsBased:
		return PartsBased{}, nil
	case ModeThresholdBased:
		if c.ThresholdValue == nil {
			return nil, &Error{
				Kind:   KindValidationConfiguration,
				Reason: "threshold_based mode requires threshold_value",
			}
		}
		if c.ThresholdValue.IsNegative() {
			return nil, &Error{
				Kind:   KindValidationConfiguration,
				Reason: fmt.Sprintf("threshold_value must not be negative, got %s", c.ThresholdValue),
			}
		}
		return ThresholdBased{Threshold: *c.ThresholdValue}, nil
	default:
		return nil, &Error{
			Kind:   KindValidationConfiguration,
			Reason: fmt.Sprintf("unknown validation mode %q", c.Mode),
		}
	}
}
