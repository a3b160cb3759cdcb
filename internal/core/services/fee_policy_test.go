package services_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/core/services"
	"github.com/mzwallet/mz_wallet_backend/internal/platform/config"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPercentFeePolicy_Quote(t *testing.T) {
	// 1.5% clamped to [5, 150]
	policy := services.NewPercentFeePolicy(d("1.5"), d("5"), d("150"), d("60"))

	testCases := []struct {
		name     string
		amount   string
		expected string
	}{
		{"below minimum clamps up", "100", "5"},     // 1.5 -> 5
		{"inside range", "1000", "15"},              // 1.5%
		{"above maximum clamps down", "20000", "150"}, // 300 -> 150
		{"exactly at maximum", "10000", "150"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fee, err := policy.Quote(d(tc.amount))
			require.NoError(t, err)
			assert.True(t, fee.Equal(d(tc.expected)), "got %s, want %s", fee, tc.expected)
		})
	}
}

func TestPercentFeePolicy_RejectsNonPositive(t *testing.T) {
	policy := services.NewPercentFeePolicy(d("1.5"), d("5"), d("150"), d("60"))

	for _, amount := range []string{"0", "-10"} {
		_, err := policy.Quote(d(amount))
		assert.ErrorIs(t, err, apperrors.ErrAmountOutOfRange)
	}
}

func TestTieredFeePolicy_QuoteAndSplit(t *testing.T) {
	policy, err := services.NewFeePolicyFromConfig(&config.Config{
		FeeStrategy: "tiered",
		FeeTiers:    "1:100:3,101:500:7,501:5000:25",
		FeeOwnerPct: d("60"),
	})
	require.NoError(t, err)

	fee, err := policy.Quote(d("250"))
	require.NoError(t, err)
	assert.True(t, fee.Equal(d("7")))

	// 60/40 split of a 7.00 fee
	ownerShare, agentShare := policy.Split(fee)
	assert.True(t, ownerShare.Equal(d("4.2")), "owner share: %s", ownerShare)
	assert.True(t, agentShare.Equal(d("2.8")), "agent share: %s", agentShare)
	assert.True(t, ownerShare.Add(agentShare).Equal(fee))
}

func TestTieredFeePolicy_BandBoundaries(t *testing.T) {
	policy, err := services.NewFeePolicyFromConfig(&config.Config{
		FeeStrategy: "tiered",
		FeeTiers:    "1:100:3,101:500:7",
		FeeOwnerPct: d("60"),
	})
	require.NoError(t, err)

	// Bounds are inclusive on both ends.
	fee, err := policy.Quote(d("100"))
	require.NoError(t, err)
	assert.True(t, fee.Equal(d("3")))

	fee, err = policy.Quote(d("101"))
	require.NoError(t, err)
	assert.True(t, fee.Equal(d("7")))

	_, err = policy.Quote(d("501"))
	assert.ErrorIs(t, err, apperrors.ErrAmountOutOfRange)

	_, err = policy.Quote(d("0.5"))
	assert.ErrorIs(t, err, apperrors.ErrAmountOutOfRange)
}

func TestSplit_SharesAlwaysSumToFee(t *testing.T) {
	policy := services.NewPercentFeePolicy(d("1.5"), d("5"), d("150"), d("33.33"))

	for _, raw := range []string{"5", "7.77", "149.99", "0.01"} {
		fee := d(raw)
		ownerShare, agentShare := policy.Split(fee)
		assert.True(t, ownerShare.Add(agentShare).Equal(fee), "fee %s split %s + %s", fee, ownerShare, agentShare)
	}
}

func TestNewFeePolicyFromConfig_Invalid(t *testing.T) {
	_, err := services.NewFeePolicyFromConfig(&config.Config{FeeStrategy: "tiered", FeeTiers: ""})
	assert.Error(t, err)

	_, err = services.NewFeePolicyFromConfig(&config.Config{FeeStrategy: "tiered", FeeTiers: "10:1:5"})
	assert.Error(t, err)

	_, err = services.NewFeePolicyFromConfig(&config.Config{FeeStrategy: "flat"})
	assert.Error(t, err)
}
