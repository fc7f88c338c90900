package coinselector_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	coinselector "github.com/vulpemventures/coinselect/internal/infrastructure/coin-selector"
)

func TestMinimizeFee(t *testing.T) {
	utxos := []domain.Utxo{
		newUtxo(1, 10000, 1, ""),
		newUtxo(2, 20000, 1, ""),
		newUtxo(3, 100000, 1, ""),
	}
	selector := coinselector.NewMinimizeFeeCoinSelector(coinselector.Options{})

	sel := requireSelection(t, selector.SelectUtxos(utxos, 30000, feeRate, dustAmount))
	require.Equal(t, []domain.UtxoKey{utxos[2].Key()}, sel.Keys())
}

func TestMinimizeChange(t *testing.T) {
	utxos := []domain.Utxo{
		newUtxo(1, 100000, 1, ""),
		newUtxo(2, 20000, 1, ""),
		// 20000 + 10178 = target + fee of a 2-inputs 1-output tx.
		newUtxo(3, 10178, 1, ""),
		newUtxo(4, 5000, 1, ""),
	}
	selector := coinselector.NewMinimizeChangeCoinSelector(coinselector.Options{})

	sel := requireSelection(t, selector.SelectUtxos(utxos, 30000, feeRate, dustAmount))
	require.Equal(t, []domain.UtxoKey{utxos[1].Key(), utxos[2].Key()}, sel.Keys())
	require.Equal(t, uint64(178), sel.FeeAmount)
	require.Zero(t, sel.ChangeAmount)

	t.Run("with more candidates than searchable", func(t *testing.T) {
		utxos := make([]domain.Utxo, 0, 40)
		for i := 1; i <= 40; i++ {
			utxos = append(utxos, newUtxo(i, uint64(i)*1000, 1, ""))
		}
		sel := requireSelection(
			t, selector.SelectUtxos(utxos, 300000, feeRate, dustAmount),
		)
		require.NoError(t, sel.Validate(dustAmount))
	})
}

func TestOldestFirst(t *testing.T) {
	utxos := []domain.Utxo{
		newUtxo(1, 100000, 1, ""),
		newUtxo(2, 20000, 50, ""),
		newUtxo(3, 40000, 10, ""),
	}
	selector := coinselector.NewOldestFirstCoinSelector(coinselector.Options{})

	sel := requireSelection(t, selector.SelectUtxos(utxos, 30000, feeRate, dustAmount))
	require.Equal(t, []domain.UtxoKey{utxos[1].Key(), utxos[2].Key()}, sel.Keys())
	require.Equal(t, uint64(209), sel.FeeAmount)
	require.Equal(t, uint64(29791), sel.ChangeAmount)
}

func TestPrivacyFocused(t *testing.T) {
	utxos := []domain.Utxo{
		newUtxo(1, 30000, 1, "A"),
		newUtxo(2, 30000, 1, "A"),
		newUtxo(3, 45000, 1, "B"),
		newUtxo(4, 200000, 1, "C"),
	}
	selector := coinselector.NewPrivacyFocusedCoinSelector(coinselector.Options{})

	tests := []struct {
		name         string
		targetAmount uint64
		expectedKeys []domain.UtxoKey
	}{
		{
			name:         "smallest address covering the target",
			targetAmount: 40000,
			expectedKeys: []domain.UtxoKey{utxos[2].Key()},
		},
		{
			name:         "multiple utxos of the same address",
			targetAmount: 50000,
			expectedKeys: []domain.UtxoKey{utxos[0].Key(), utxos[1].Key()},
		},
		{
			name:         "no single address covers the target",
			targetAmount: 250000,
			expectedKeys: []domain.UtxoKey{
				utxos[3].Key(), utxos[2].Key(), utxos[0].Key(),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := requireSelection(
				t, selector.SelectUtxos(utxos, tt.targetAmount, feeRate, dustAmount),
			)
			require.Equal(t, tt.expectedKeys, sel.Keys())
		})
	}
}

func TestMaximizePrivacy(t *testing.T) {
	t.Run("unconfirmed utxos of the same address are not spent", func(t *testing.T) {
		utxos := []domain.Utxo{
			newUtxo(1, 10000, 0, "X"),
			newUtxo(2, 50000, 6, "X"),
		}
		selector := coinselector.NewMaximizePrivacyCoinSelector(coinselector.Options{})

		sel := requireSelection(
			t, selector.SelectUtxos(utxos, 30000, feeRate, dustAmount),
		)
		require.Equal(t, []domain.UtxoKey{utxos[1].Key()}, sel.Keys())
		require.Equal(t, uint64(19859), sel.ChangeAmount)
	})

	utxos := []domain.Utxo{
		newUtxo(1, 10000, 1, "A"),
		newUtxo(2, 50000, 1, "A"),
		newUtxo(3, 35000, 1, "B"),
	}

	tests := []struct {
		name         string
		policy       domain.PrivacyPolicy
		targetAmount uint64
		expectedKeys []domain.UtxoKey
	}{
		{
			name:         "group by address single group",
			policy:       domain.PrivacyPolicyGroupByAddress,
			targetAmount: 30000,
			expectedKeys: []domain.UtxoKey{utxos[2].Key()},
		},
		{
			name:         "group by address spends whole group",
			policy:       domain.PrivacyPolicyGroupByAddress,
			targetAmount: 40000,
			expectedKeys: []domain.UtxoKey{utxos[1].Key(), utxos[0].Key()},
		},
		{
			name:         "group by address merges groups",
			policy:       domain.PrivacyPolicyGroupByAddress,
			targetAmount: 90000,
			expectedKeys: []domain.UtxoKey{
				utxos[1].Key(), utxos[0].Key(), utxos[2].Key(),
			},
		},
		{
			name:         "minimize linkage spends part of group",
			policy:       domain.PrivacyPolicyMinimizeLinkage,
			targetAmount: 40000,
			expectedKeys: []domain.UtxoKey{utxos[1].Key()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector := coinselector.NewMaximizePrivacyCoinSelector(
				coinselector.Options{PrivacyPolicy: tt.policy},
			)
			sel := requireSelection(
				t, selector.SelectUtxos(utxos, tt.targetAmount, feeRate, dustAmount),
			)
			require.Equal(t, tt.expectedKeys, sel.Keys())
		})
	}
}

func TestConsolidate(t *testing.T) {
	utxos := []domain.Utxo{
		newUtxo(1, 100000, 1, ""),
		newUtxo(2, 5000, 1, ""),
		newUtxo(3, 3000, 1, ""),
		newUtxo(4, 2000, 1, ""),
	}

	tests := []struct {
		name              string
		opts              coinselector.Options
		feeRate           domain.FeeRate
		expectedNumInputs int
		expectedFee       uint64
		expectedChange    uint64
	}{
		{
			name:              "low fee rate consolidates all utxos",
			feeRate:           feeRate,
			expectedNumInputs: 4,
			expectedFee:       345,
			expectedChange:    105655,
		},
		{
			name:              "max inputs",
			opts:              coinselector.Options{MaxConsolidationInputs: 3},
			feeRate:           feeRate,
			expectedNumInputs: 3,
			expectedFee:       277,
			expectedChange:    5723,
		},
		{
			name:              "high fee rate selects only needed utxos",
			feeRate:           domain.FeeRate(10000),
			expectedNumInputs: 3,
			expectedFee:       2770,
			expectedChange:    3230,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector := coinselector.NewConsolidateCoinSelector(tt.opts)
			sel := requireSelection(
				t, selector.SelectUtxos(utxos, 4000, tt.feeRate, dustAmount),
			)
			require.Len(t, sel.Utxos, tt.expectedNumInputs)
			require.Equal(t, tt.expectedFee, sel.FeeAmount)
			require.Equal(t, tt.expectedChange, sel.ChangeAmount)
			// Smallest first.
			require.Equal(t, utxos[3].Key(), sel.Utxos[0].Key())
		})
	}
}

func TestAvoidChange(t *testing.T) {
	selector := coinselector.NewAvoidChangeCoinSelector(coinselector.Options{})

	t.Run("dust remainder", func(t *testing.T) {
		utxos := []domain.Utxo{
			newUtxo(1, 100000, 1, ""),
			// target + fee of a 1-input 1-output tx + 50.
			newUtxo(2, 30160, 1, ""),
		}
		sel := requireSelection(
			t, selector.SelectUtxos(utxos, 30000, feeRate, dustAmount),
		)
		require.Equal(t, []domain.UtxoKey{utxos[1].Key()}, sel.Keys())
		require.Zero(t, sel.ChangeAmount)
		require.Equal(t, uint64(110+50), sel.FeeAmount)
	})

	t.Run("no changeless combination", func(t *testing.T) {
		utxos := []domain.Utxo{
			newUtxo(1, 100000, 1, ""),
			newUtxo(2, 60000, 1, ""),
		}
		sel := requireSelection(
			t, selector.SelectUtxos(utxos, 30000, feeRate, dustAmount),
		)
		require.Equal(t, []domain.UtxoKey{utxos[0].Key()}, sel.Keys())
		require.True(t, sel.HasChange())
	})
}

func requireSelection(
	t *testing.T, res domain.SelectionResult,
) *domain.Selection {
	sel, ok := res.(*domain.Selection)
	require.True(t, ok, "expected selection, got %#v", res)
	require.NoError(t, sel.Validate(dustAmount))
	return sel
}

func TestUneconomicalUtxosAreSkipped(t *testing.T) {
	// Every 50 sats utxo costs more than its value to be spent at 1 sat/vB,
	// and the older ones come first for the oldest-first strategy.
	utxos := []domain.Utxo{newUtxo(1, 50000, 1, "")}
	for i := 2; i <= 11; i++ {
		utxos = append(utxos, newUtxo(i, 50, 100, ""))
	}

	for strategy, factory := range factories {
		t.Run(strategy.String(), func(t *testing.T) {
			sel := requireSelection(
				t, factory(coinselector.Options{}).SelectUtxos(
					utxos, 49800, feeRate, dustAmount,
				),
			)
			require.Equal(t, []domain.UtxoKey{utxos[0].Key()}, sel.Keys())
			require.Equal(t, uint64(200), sel.FeeAmount)
			require.Zero(t, sel.ChangeAmount)
		})
	}
}
