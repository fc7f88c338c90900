package coinselector_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
	coinselector "github.com/vulpemventures/coinselect/internal/infrastructure/coin-selector"
)

const dustAmount = uint64(546)

var (
	feeRate = domain.FeeRate(1000)

	factories = map[domain.Strategy]func(coinselector.Options) ports.CoinSelector{
		domain.StrategyMinimizeFee:     coinselector.NewMinimizeFeeCoinSelector,
		domain.StrategyMinimizeChange:  coinselector.NewMinimizeChangeCoinSelector,
		domain.StrategyOldestFirst:     coinselector.NewOldestFirstCoinSelector,
		domain.StrategyPrivacyFocused:  coinselector.NewPrivacyFocusedCoinSelector,
		domain.StrategyMaximizePrivacy: coinselector.NewMaximizePrivacyCoinSelector,
		domain.StrategyConsolidate:     coinselector.NewConsolidateCoinSelector,
		domain.StrategyAvoidChange:     coinselector.NewAvoidChangeCoinSelector,
	}
)

func TestSingleUtxoSelection(t *testing.T) {
	utxos := []domain.Utxo{newUtxo(1, 100000, 10, "")}

	for strategy, factory := range factories {
		t.Run(strategy.String(), func(t *testing.T) {
			selector := factory(coinselector.Options{})
			require.Equal(t, strategy, selector.Strategy())

			res := selector.SelectUtxos(utxos, 50000, feeRate, dustAmount)
			sel, ok := res.(*domain.Selection)
			require.True(t, ok)
			require.Len(t, sel.Utxos, 1)
			require.Equal(t, uint64(141), sel.FeeAmount)
			require.Equal(t, uint64(100000-50000-141), sel.ChangeAmount)
			require.NoError(t, sel.Validate(dustAmount))
		})
	}
}

func TestInsufficientFunds(t *testing.T) {
	utxos := []domain.Utxo{
		newUtxo(1, 20000, 3, ""),
		newUtxo(2, 20000, 5, "addr1"),
		frozen(newUtxo(3, 1000000, 10, "")),
		newUtxo(4, 500000, 0, ""),
	}

	for strategy, factory := range factories {
		t.Run(strategy.String(), func(t *testing.T) {
			res := factory(coinselector.Options{}).SelectUtxos(
				utxos, 50000, feeRate, dustAmount,
			)
			insufficient, ok := res.(*domain.InsufficientFunds)
			require.True(t, ok)
			require.False(t, res.IsSuccess())
			require.Equal(t, strategy, insufficient.Strategy)
			require.Equal(t, uint64(40000), insufficient.Available)
			// 2 inputs and 1 output: 11 + 2*68 + 31 vbytes.
			require.Equal(t, uint64(50000+178), insufficient.Required)
			require.Equal(t, uint64(10178), insufficient.Missing())
		})
	}
}

func TestEligibility(t *testing.T) {
	t.Run("frozen and unconfirmed utxos are excluded", func(t *testing.T) {
		utxos := []domain.Utxo{
			frozen(newUtxo(1, 1000000, 10, "")),
			newUtxo(2, 500000, 0, ""),
			change(newUtxo(3, 400000, 0, "")),
			newUtxo(4, 60000, 1, ""),
		}
		for strategy, factory := range factories {
			t.Run(strategy.String(), func(t *testing.T) {
				res := factory(coinselector.Options{}).SelectUtxos(
					utxos, 50000, feeRate, dustAmount,
				)
				sel, ok := res.(*domain.Selection)
				require.True(t, ok)
				require.Equal(t, []domain.UtxoKey{utxos[3].Key()}, sel.Keys())
			})
		}
	})

	t.Run("unconfirmed change is spendable if enabled", func(t *testing.T) {
		utxos := []domain.Utxo{
			newUtxo(1, 500000, 0, ""),
			change(newUtxo(2, 400000, 0, "")),
		}
		opts := coinselector.Options{SpendUnconfirmedChange: true}
		for strategy, factory := range factories {
			t.Run(strategy.String(), func(t *testing.T) {
				res := factory(opts).SelectUtxos(utxos, 50000, feeRate, dustAmount)
				sel, ok := res.(*domain.Selection)
				require.True(t, ok)
				require.Equal(t, []domain.UtxoKey{utxos[1].Key()}, sel.Keys())
			})
		}
	})
}

func TestSelectionProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	opts := coinselector.Options{}

	for i := 0; i < 50; i++ {
		utxos := randomUtxos(rnd, 1+rnd.Intn(30))
		targetAmount := uint64(1 + rnd.Intn(1000000))
		rate := domain.FeeRate(1000 * (1 + rnd.Intn(20)))

		eligibleTotal, eligibleCount := uint64(0), 0
		for _, u := range utxos {
			if !u.Frozen && u.Confirmations > 0 {
				eligibleTotal += u.Value
				eligibleCount++
			}
		}
		required := targetAmount + rate.FeeForSize(uint64(42+68*eligibleCount))

		for strategy, factory := range factories {
			res := factory(opts).SelectUtxos(utxos, targetAmount, rate, dustAmount)

			if eligibleTotal < required {
				insufficient, ok := res.(*domain.InsufficientFunds)
				require.True(t, ok, strategy.String())
				require.Equal(t, eligibleTotal, insufficient.Available)
				require.Equal(t, required, insufficient.Required)
				continue
			}

			sel, ok := res.(*domain.Selection)
			require.True(t, ok, strategy.String())
			require.NoError(t, sel.Validate(dustAmount), strategy.String())
			require.Equal(t, targetAmount, sel.TargetAmount)
			require.Equal(t, strategy, sel.Strategy)
			require.Equal(
				t, sel.TotalAmount(), sel.TargetAmount+sel.FeeAmount+sel.ChangeAmount,
			)
			minFee := rate.FeeForSize(uint64(42 + 68*len(sel.Utxos)))
			require.GreaterOrEqual(t, sel.FeeAmount, minFee, strategy.String())
			if sel.HasChange() {
				require.GreaterOrEqual(t, sel.ChangeAmount, dustAmount)
			}
			for _, u := range sel.Utxos {
				require.False(t, u.Frozen)
				require.NotZero(t, u.Confirmations)
				require.Contains(t, utxos, u)
			}
		}
	}
}

func TestFinalize(t *testing.T) {
	t.Run("dust remainder is absorbed into the fee", func(t *testing.T) {
		// 30000 target + 110 fee without change + 50 remainder.
		utxos := []domain.Utxo{newUtxo(1, 30160, 1, "")}
		res := coinselector.Finalize(
			domain.StrategyAvoidChange, utxos, 30000, feeRate, dustAmount, nil,
		)
		sel, ok := res.(*domain.Selection)
		require.True(t, ok)
		require.Zero(t, sel.ChangeAmount)
		require.Equal(t, uint64(160), sel.FeeAmount)
		require.NoError(t, sel.Validate(dustAmount))
	})

	t.Run("change above dust is kept", func(t *testing.T) {
		utxos := []domain.Utxo{newUtxo(1, 31000, 1, "")}
		res := coinselector.Finalize(
			domain.StrategyMinimizeFee, utxos, 30000, feeRate, dustAmount, nil,
		)
		sel, ok := res.(*domain.Selection)
		require.True(t, ok)
		require.Equal(t, uint64(141), sel.FeeAmount)
		require.Equal(t, uint64(859), sel.ChangeAmount)
	})

	t.Run("insufficient", func(t *testing.T) {
		utxos := []domain.Utxo{newUtxo(1, 30000, 1, "")}
		res := coinselector.Finalize(
			domain.StrategyMinimizeFee, utxos, 30000, feeRate, dustAmount, nil,
		)
		insufficient, ok := res.(*domain.InsufficientFunds)
		require.True(t, ok)
		require.Equal(t, uint64(30000), insufficient.Available)
		require.Equal(t, uint64(30110), insufficient.Required)
	})

	t.Run("huge target doesn't wrap around", func(t *testing.T) {
		utxos := []domain.Utxo{newUtxo(1, 100000, 1, "")}
		res := coinselector.Finalize(
			domain.StrategyMinimizeFee, utxos, math.MaxUint64-50, feeRate,
			dustAmount, nil,
		)
		insufficient, ok := res.(*domain.InsufficientFunds)
		require.True(t, ok)
		require.Equal(t, uint64(100000), insufficient.Available)
		require.Equal(t, uint64(math.MaxUint64), insufficient.Required)
	})
}

func newUtxo(i int, value uint64, confirmations uint32, address string) domain.Utxo {
	return domain.Utxo{
		UtxoKey:       domain.UtxoKey{TxID: fmt.Sprintf("%064x", i), VOut: uint32(i % 4)},
		Value:         value,
		Confirmations: confirmations,
		Address:       address,
	}
}

func frozen(u domain.Utxo) domain.Utxo {
	u.Frozen = true
	return u
}

func change(u domain.Utxo) domain.Utxo {
	u.IsChange = true
	return u
}

func randomUtxos(rnd *rand.Rand, n int) []domain.Utxo {
	addresses := []string{"", "addr1", "addr2", "addr3"}
	utxos := make([]domain.Utxo, 0, n)
	for i := 0; i < n; i++ {
		u := newUtxo(
			i+1, uint64(30000+rnd.Intn(500000)), uint32(rnd.Intn(10)),
			addresses[rnd.Intn(len(addresses))],
		)
		if rnd.Intn(10) == 0 {
			u = frozen(u)
		}
		utxos = append(utxos, u)
	}
	return utxos
}
