package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/coinselect/internal/config"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

func TestDefaults(t *testing.T) {
	require.NoError(t, config.Validate())

	feeRate, err := config.GetFeeRate()
	require.NoError(t, err)
	require.Equal(t, domain.FeeRate(1000), feeRate)

	maxFeeRate, err := config.GetMaxConsolidationFeeRate()
	require.NoError(t, err)
	require.Equal(t, domain.FeeRate(5000), maxFeeRate)

	strategy, err := config.GetDefaultStrategy()
	require.NoError(t, err)
	require.Equal(t, domain.StrategyMinimizeFee, strategy)

	policy, err := config.GetPrivacyPolicy()
	require.NoError(t, err)
	require.Equal(t, domain.PrivacyPolicyGroupByAddress, policy)

	require.Equal(t, 546, config.GetInt(config.DustAmountKey))
	require.Equal(t, []string{"log"}, config.GetStringSlice(config.EventSinksKey))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
	}{
		{config.DatadirKey, ""},
		{config.DatabaseTypeKey, "mysql"},
		{config.FeeEstimatorKey, "exact"},
		{config.EventSinksKey, []string{"log", "kafka"}},
		{config.DustAmountKey, 0},
		{config.MaxConsolidationInputsKey, -1},
		{config.FeeRateKey, "one"},
		{config.FeeRateKey, "-1"},
		{config.FeeRateKey, "0"},
		{config.FeeRateKey, "0.05"},
		{config.MaxConsolidationFeeRateKey, "five"},
		{config.DefaultStrategyKey, "random"},
		{config.PrivacyPolicyKey, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			prev := config.GetString(tt.key)
			if tt.key == config.EventSinksKey {
				defer config.Set(tt.key, config.GetStringSlice(tt.key))
			} else if tt.key == config.DustAmountKey || tt.key == config.MaxConsolidationInputsKey {
				defer config.Set(tt.key, config.GetInt(tt.key))
			} else {
				defer config.Set(tt.key, prev)
			}

			config.Set(tt.key, tt.value)
			require.Error(t, config.Validate())
		})
	}

	require.NoError(t, config.Validate())
}
