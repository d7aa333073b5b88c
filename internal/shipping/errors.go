package shipping

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPostalCode signals an empty or too-short destination postal code.
	ErrInvalidPostalCode = errors.New("shipping: invalid postal code")
	// ErrEmptyCart is returned when a quote is requested for a cart without lines.
	ErrEmptyCart = errors.New("shipping: empty cart")
	// ErrWeightExceeded is returned when the chargeable mass is above the configured maximum.
	ErrWeightExceeded = errors.New("shipping: weight exceeded")
	// ErrInvalidRateConfig reports rate configuration that fails load-time validation.
	ErrInvalidRateConfig = errors.New("shipping: invalid rate configuration")
	// ErrUnknownTariff is returned when a carrier, service level or rate area is not in the table.
	ErrUnknownTariff = errors.New("shipping: unknown tariff")
)

// WeightExceededError carries the masses involved in a WeightExceeded rejection so callers
// can tell the customer how far over the limit the cart is.
type WeightExceededError struct {
	ChargeableGrams int64
	MaxGrams        int64
	ChargedByVolume bool
}

func (e *WeightExceededError) Error() string {
	return fmt.Sprintf("%s: chargeable %.1fkg above maximum %.1fkg", ErrWeightExceeded.Error(), float64(e.ChargeableGrams)/1000, float64(e.MaxGrams)/1000)
}

// Unwrap lets errors.Is match ErrWeightExceeded.
func (e *WeightExceededError) Unwrap() error { return ErrWeightExceeded }

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRateConfig, fmt.Sprintf(format, args...))
}
