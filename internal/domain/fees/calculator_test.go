package fees

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalculator(t *testing.T) {
	t.Run("Valid percentages", func(t *testing.T) {
		calc, err := NewCalculator(10, 5)
		require.NoError(t, err)
		assert.NotNil(t, calc)
	})

	t.Run("Fractional percentages", func(t *testing.T) {
		calc, err := NewCalculator(2.9, 1.5)
		require.NoError(t, err)
		assert.NotNil(t, calc)
	})

	t.Run("Negative platform fee percent", func(t *testing.T) {
		calc, err := NewCalculator(-1, 5)
		assert.Nil(t, calc)
		assert.True(t, errors.Is(err, &ValidationError{Field: "platform_fee_percent"}))
	})

	t.Run("Platform fee percent above 100", func(t *testing.T) {
		calc, err := NewCalculator(100.1, 5)
		assert.Nil(t, calc)
		assert.True(t, errors.Is(err, &ValidationError{}))
	})

	t.Run("Guest surcharge percent out of range", func(t *testing.T) {
		calc, err := NewCalculator(10, 101)
		assert.Nil(t, calc)
		assert.True(t, errors.Is(err, &ValidationError{Field: "guest_surcharge_percent"}))
	})
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name                  string
		platformFeePercent    float64
		guestSurchargePercent float64
		serviceAmount         int64
		guestCheckout         bool
		want                  Breakdown
	}{
		{
			name:                  "Member checkout",
			platformFeePercent:    10,
			guestSurchargePercent: 5,
			serviceAmount:         10000,
			guestCheckout:         false,
			want: Breakdown{
				ServiceAmount:    10000,
				BasePlatformFee:  1000,
				GuestSurcharge:   0,
				TotalPlatformFee: 1000,
				ProviderPayout:   9000,
				TotalAmount:      10000,
			},
		},
		{
			name:                  "Guest checkout adds surcharge on top",
			platformFeePercent:    10,
			guestSurchargePercent: 5,
			serviceAmount:         10000,
			guestCheckout:         true,
			want: Breakdown{
				ServiceAmount:    10000,
				BasePlatformFee:  1000,
				GuestSurcharge:   500,
				TotalPlatformFee: 1500,
				ProviderPayout:   9000,
				TotalAmount:      10500,
			},
		},
		{
			name:                  "Half cent rounds up",
			platformFeePercent:    15,
			guestSurchargePercent: 0,
			serviceAmount:         50,
			guestCheckout:         false,
			want: Breakdown{
				ServiceAmount:    50,
				BasePlatformFee:  8, // 7.5 rounds half-up
				GuestSurcharge:   0,
				TotalPlatformFee: 8,
				ProviderPayout:   42,
				TotalAmount:      50,
			},
		},
		{
			name:                  "Fraction below half rounds down",
			platformFeePercent:    10,
			guestSurchargePercent: 0,
			serviceAmount:         33,
			guestCheckout:         false,
			want: Breakdown{
				ServiceAmount:    33,
				BasePlatformFee:  3, // 3.3
				GuestSurcharge:   0,
				TotalPlatformFee: 3,
				ProviderPayout:   30,
				TotalAmount:      33,
			},
		},
		{
			name:                  "Fractional percent",
			platformFeePercent:    2.9,
			guestSurchargePercent: 0,
			serviceAmount:         9999,
			guestCheckout:         false,
			want: Breakdown{
				ServiceAmount:    9999,
				BasePlatformFee:  290, // 289.971
				GuestSurcharge:   0,
				TotalPlatformFee: 290,
				ProviderPayout:   9709,
				TotalAmount:      9999,
			},
		},
		{
			name:                  "Zero amount",
			platformFeePercent:    10,
			guestSurchargePercent: 5,
			serviceAmount:         0,
			guestCheckout:         true,
			want:                  Breakdown{},
		},
		{
			name:                  "Zero percentages",
			platformFeePercent:    0,
			guestSurchargePercent: 0,
			serviceAmount:         12345,
			guestCheckout:         true,
			want: Breakdown{
				ServiceAmount:    12345,
				BasePlatformFee:  0,
				GuestSurcharge:   0,
				TotalPlatformFee: 0,
				ProviderPayout:   12345,
				TotalAmount:      12345,
			},
		},
		{
			name:                  "Full platform fee",
			platformFeePercent:    100,
			guestSurchargePercent: 0,
			serviceAmount:         500,
			guestCheckout:         false,
			want: Breakdown{
				ServiceAmount:    500,
				BasePlatformFee:  500,
				GuestSurcharge:   0,
				TotalPlatformFee: 500,
				ProviderPayout:   0,
				TotalAmount:      500,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := NewCalculator(tt.platformFeePercent, tt.guestSurchargePercent)
			require.NoError(t, err)

			got, err := calc.Calculate(tt.serviceAmount, tt.guestCheckout)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculateNegativeAmount(t *testing.T) {
	calc, err := NewCalculator(10, 5)
	require.NoError(t, err)

	_, err = calc.Calculate(-1, false)
	assert.True(t, errors.Is(err, &ValidationError{Field: "service_amount"}))
}

func TestBreakdownIdentities(t *testing.T) {
	amounts := []int64{0, 1, 33, 50, 99, 101, 10000, 999999, 123456789}
	percents := []struct{ platform, surcharge float64 }{
		{0, 0},
		{2.9, 1.5},
		{10, 5},
		{12.5, 7.25},
		{33.33, 0.01},
		{100, 100},
	}

	for _, p := range percents {
		calc, err := NewCalculator(p.platform, p.surcharge)
		require.NoError(t, err)

		for _, amount := range amounts {
			for _, guest := range []bool{false, true} {
				got, err := calc.Calculate(amount, guest)
				require.NoError(t, err)

				assert.Equal(t, amount, got.BasePlatformFee+got.ProviderPayout,
					"base fee plus payout must equal service amount")
				assert.Equal(t, got.TotalAmount, got.TotalPlatformFee+got.ProviderPayout,
					"total fee plus payout must equal total amount")
				assert.Equal(t, got.BasePlatformFee+got.GuestSurcharge, got.TotalPlatformFee)
				assert.Equal(t, amount+got.GuestSurcharge, got.TotalAmount)
			}
		}
	}
}

func TestCalculateDeterministic(t *testing.T) {
	calc, err := NewCalculator(2.9, 1.5)
	require.NoError(t, err)

	first, err := calc.Calculate(987654321, true)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		again, err := calc.Calculate(987654321, true)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
