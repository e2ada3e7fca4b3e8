package fees

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError indicates a fee input outside the allowed range
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is implements the errors.Is interface for ValidationError
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	// An empty target field matches any ValidationError
	if t.Field == "" {
		return true
	}
	return e.Field == t.Field
}

// Breakdown is the fee split for one booking payment.
// All amounts are in cents/minor units.
type Breakdown struct {
	ServiceAmount    int64 `json:"service_amount"`
	BasePlatformFee  int64 `json:"base_platform_fee"`
	GuestSurcharge   int64 `json:"guest_surcharge"`
	TotalPlatformFee int64 `json:"total_platform_fee"`
	ProviderPayout   int64 `json:"provider_payout"`
	TotalAmount      int64 `json:"total_amount"`
}

// Calculator computes fee breakdowns from configured percentages.
// Percentages may be fractional (e.g. 2.9); results are always integer
// minor units rounded half-up.
type Calculator struct {
	platformFeePercent    decimal.Decimal
	guestSurchargePercent decimal.Decimal
}

// NewCalculator validates the configured percentages and returns a calculator
func NewCalculator(platformFeePercent, guestSurchargePercent float64) (*Calculator, error) {
	if platformFeePercent < 0 || platformFeePercent > 100 {
		return nil, &ValidationError{Field: "platform_fee_percent", Reason: "must be between 0 and 100"}
	}
	if guestSurchargePercent < 0 || guestSurchargePercent > 100 {
		return nil, &ValidationError{Field: "guest_surcharge_percent", Reason: "must be between 0 and 100"}
	}

	return &Calculator{
		platformFeePercent:    decimal.NewFromFloat(platformFeePercent),
		guestSurchargePercent: decimal.NewFromFloat(guestSurchargePercent),
	}, nil
}

// Calculate returns the fee breakdown for a service amount.
// The guest surcharge is paid by the customer on top of the service amount
// and never reduces the provider payout.
func (c *Calculator) Calculate(serviceAmount int64, guestCheckout bool) (Breakdown, error) {
	if serviceAmount < 0 {
		return Breakdown{}, &ValidationError{Field: "service_amount", Reason: "must not be negative"}
	}

	basePlatformFee := percentOf(serviceAmount, c.platformFeePercent)

	var guestSurcharge int64
	if guestCheckout {
		guestSurcharge = percentOf(serviceAmount, c.guestSurchargePercent)
	}

	return Breakdown{
		ServiceAmount:    serviceAmount,
		BasePlatformFee:  basePlatformFee,
		GuestSurcharge:   guestSurcharge,
		TotalPlatformFee: basePlatformFee + guestSurcharge,
		ProviderPayout:   serviceAmount - basePlatformFee,
		TotalAmount:      serviceAmount + guestSurcharge,
	}, nil
}

var oneHundred = decimal.NewFromInt(100)

// percentOf computes amount*percent/100 in minor units, rounded half-up.
// Both operands are non-negative, so decimal's half-away-from-zero rounding
// is exactly half-up here.
func percentOf(amount int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(percent).Div(oneHundred).Round(0).IntPart()
}
