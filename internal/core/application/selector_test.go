package application_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/coinselect/internal/core/application"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	coinselector "github.com/vulpemventures/coinselect/internal/infrastructure/coin-selector"
)

const (
	targetAmount = uint64(50000)
	dustAmount   = uint64(546)
	feeRate      = domain.FeeRate(1000)
)

func TestSelector(t *testing.T) {
	selector := application.NewSelector(coinselector.Options{})
	utxos := []domain.Utxo{newUtxo(1, 100000, 1)}

	t.Run("valid", func(t *testing.T) {
		for _, strategy := range domain.Strategies() {
			strategy := strategy
			t.Run(strategy.String(), func(t *testing.T) {
				sink := newMockedEventSink(nil)

				result, err := selector.Select(
					utxos, strategy, targetAmount, feeRate, dustAmount, sink,
				)
				require.NoError(t, err)
				require.True(t, result.IsSuccess())

				selection := result.(*domain.Selection)
				require.Equal(t, strategy, selection.Strategy)
				require.Len(t, selection.Utxos, 1)
				require.Equal(t, uint64(141), selection.FeeAmount)
				require.Equal(t, uint64(49859), selection.ChangeAmount)

				events := sink.events()
				require.Len(t, events, 2)
				require.Equal(t, domain.SelectionAttempted, events[0].Type)
				require.Equal(t, domain.SelectionSucceeded, events[1].Type)
				require.Equal(t, events[0].ID, events[1].ID)
				require.Equal(t, strategy.String(), events[1].Strategy)
				require.False(t, events[1].CoinControl)
				require.Equal(t, 1, events[1].NumInputs)
				require.Equal(t, selection.FeeAmount, events[1].FeeAmount)
				require.Equal(t, selection.ChangeAmount, events[1].ChangeAmount)
			})
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		sink := newMockedEventSink(nil)
		poor := []domain.Utxo{newUtxo(2, 40000, 1)}

		result, err := selector.Select(
			poor, domain.StrategyMinimizeFee, targetAmount, feeRate, dustAmount, sink,
		)
		require.NoError(t, err)
		require.False(t, result.IsSuccess())

		insufficient := result.(*domain.InsufficientFunds)
		require.Equal(t, uint64(40000), insufficient.Available)
		require.Equal(t, uint64(50110), insufficient.Required)

		events := sink.events()
		require.Len(t, events, 2)
		require.Equal(t, domain.SelectionFailed, events[1].Type)
		require.Equal(t, insufficient.Available, events[1].Available)
		require.Equal(t, insufficient.Required, events[1].Required)
		require.NotEmpty(t, events[1].Error)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name         string
			strategy     domain.Strategy
			targetAmount uint64
			feeRate      domain.FeeRate
			dustAmount   uint64
			expectedErr  error
		}{
			{
				name:         "zero target amount",
				strategy:     domain.StrategyMinimizeFee,
				targetAmount: 0,
				feeRate:      feeRate,
				dustAmount:   dustAmount,
				expectedErr:  domain.ErrInvalidTargetAmount,
			},
			{
				name:         "target amount wrapping around",
				strategy:     domain.StrategyMinimizeFee,
				targetAmount: math.MaxUint64 - 50,
				feeRate:      feeRate,
				dustAmount:   dustAmount,
				expectedErr:  domain.ErrInvalidTargetAmount,
			},
			{
				name:         "target amount above max supply",
				strategy:     domain.StrategyMinimizeFee,
				targetAmount: domain.MaxAmount + 1,
				feeRate:      feeRate,
				dustAmount:   dustAmount,
				expectedErr:  domain.ErrInvalidTargetAmount,
			},
			{
				name:         "zero dust amount",
				strategy:     domain.StrategyMinimizeFee,
				targetAmount: targetAmount,
				feeRate:      feeRate,
				dustAmount:   0,
				expectedErr:  domain.ErrInvalidDustAmount,
			},
			{
				name:         "fee rate too low",
				strategy:     domain.StrategyMinimizeFee,
				targetAmount: targetAmount,
				feeRate:      domain.FeeRate(99),
				dustAmount:   dustAmount,
				expectedErr:  domain.ErrFeeRateTooLow,
			},
			{
				name:         "unknown strategy",
				strategy:     domain.Strategy(42),
				targetAmount: targetAmount,
				feeRate:      feeRate,
				dustAmount:   dustAmount,
				expectedErr:  domain.ErrUnknownStrategy,
			},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				sink := newMockedEventSink(nil)

				result, err := selector.Select(
					utxos, tt.strategy, tt.targetAmount, tt.feeRate, tt.dustAmount, sink,
				)
				require.ErrorIs(t, err, tt.expectedErr)
				require.Nil(t, result)

				events := sink.events()
				require.Len(t, events, 2)
				require.Equal(t, domain.SelectionAttempted, events[0].Type)
				require.Equal(t, domain.SelectionFailed, events[1].Type)
				require.Equal(t, err.Error(), events[1].Error)
			})
		}
	})

	t.Run("utxo value above max supply", func(t *testing.T) {
		huge := []domain.Utxo{newUtxo(1, math.MaxUint64-50, 1)}

		result, err := selector.Select(
			huge, domain.StrategyMinimizeFee, targetAmount, feeRate, dustAmount, nil,
		)
		require.ErrorIs(t, err, domain.ErrInvalidUtxoValue)
		require.Nil(t, result)

		result, err = selector.SelectCoinControl(
			huge, targetAmount, feeRate, dustAmount, nil,
		)
		require.ErrorIs(t, err, domain.ErrInvalidUtxoValue)
		require.Nil(t, result)
	})

	t.Run("faulty sink", func(t *testing.T) {
		failing := newMockedEventSink(fmt.Errorf("connection refused"))

		result, err := selector.Select(
			utxos, domain.StrategyMinimizeFee, targetAmount, feeRate, dustAmount,
			failing,
		)
		require.NoError(t, err)
		require.True(t, result.IsSuccess())
		failing.AssertNumberOfCalls(t, "PublishSelectionEvent", 2)

		result, err = selector.Select(
			utxos, domain.StrategyMinimizeFee, targetAmount, feeRate, dustAmount,
			panickingEventSink{},
		)
		require.NoError(t, err)
		require.True(t, result.IsSuccess())
	})

	t.Run("no sink", func(t *testing.T) {
		result, err := selector.Select(
			utxos, domain.StrategyMinimizeFee, targetAmount, feeRate, dustAmount, nil,
		)
		require.NoError(t, err)
		require.True(t, result.IsSuccess())
	})
}

func TestSelectorCoinControl(t *testing.T) {
	selector := application.NewSelector(coinselector.Options{})

	t.Run("valid", func(t *testing.T) {
		utxos := []domain.Utxo{
			newUtxo(1, 30000, 1), newUtxo(2, 20000, 0), newUtxo(3, 10000, 1),
		}
		sink := newMockedEventSink(nil)

		result, err := selector.SelectCoinControl(
			utxos, targetAmount, feeRate, dustAmount, sink,
		)
		require.NoError(t, err)
		require.True(t, result.IsSuccess())

		// Every given utxo is spent, confirmed or not.
		selection := result.(*domain.Selection)
		require.Equal(t, keysOf(utxos...), selection.Keys())
		require.Equal(t, domain.StrategyCoinControl, selection.Strategy)
		require.Equal(t, uint64(277), selection.FeeAmount)
		require.Equal(t, uint64(9723), selection.ChangeAmount)
		require.NoError(t, selection.Validate(dustAmount))

		events := sink.events()
		require.Len(t, events, 2)
		require.True(t, events[0].CoinControl)
		require.Equal(t, "coin-control", events[0].Strategy)
		require.Equal(t, domain.SelectionSucceeded, events[1].Type)
		require.Equal(t, len(utxos), events[1].NumInputs)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		utxos := []domain.Utxo{newUtxo(1, 30000, 1)}

		result, err := selector.SelectCoinControl(
			utxos, targetAmount, feeRate, dustAmount, nil,
		)
		require.NoError(t, err)
		require.False(t, result.IsSuccess())

		insufficient := result.(*domain.InsufficientFunds)
		require.Equal(t, domain.StrategyCoinControl, insufficient.Strategy)
		require.Equal(t, uint64(30000), insufficient.Available)
		require.Equal(t, uint64(50110), insufficient.Required)
	})

	t.Run("invalid", func(t *testing.T) {
		sink := newMockedEventSink(nil)

		result, err := selector.SelectCoinControl(
			nil, targetAmount, feeRate, dustAmount, sink,
		)
		require.ErrorIs(t, err, domain.ErrMissingUtxos)
		require.Nil(t, result)

		events := sink.events()
		require.Len(t, events, 2)
		require.Equal(t, domain.SelectionFailed, events[1].Type)

		result, err = selector.SelectCoinControl(
			[]domain.Utxo{newUtxo(1, 100000, 1)}, 0, feeRate, dustAmount, nil,
		)
		require.ErrorIs(t, err, domain.ErrInvalidTargetAmount)
		require.Nil(t, result)
	})
}

func TestSelectorCoinControlMatchesStrategies(t *testing.T) {
	selector := application.NewSelector(coinselector.Options{})
	utxos := []domain.Utxo{
		newUtxo(1, 100000, 1), newUtxo(2, 5000, 1), newUtxo(3, 3000, 1),
		newUtxo(4, 2000, 1), newUtxo(5, 60000, 1), newUtxo(6, 25000, 1),
	}
	utxos[0].Address = utxos[4].Address

	for _, strategy := range domain.Strategies() {
		strategy := strategy
		t.Run(strategy.String(), func(t *testing.T) {
			for _, rate := range []domain.FeeRate{feeRate, domain.FeeRate(12500)} {
				result, err := selector.Select(
					utxos, strategy, targetAmount, rate, dustAmount, nil,
				)
				require.NoError(t, err)
				selection, ok := result.(*domain.Selection)
				require.True(t, ok)
				if strategy == domain.StrategyConsolidate && rate == feeRate {
					// More inputs than needed are spent at low rates.
					require.Len(t, selection.Utxos, len(utxos))
				}

				result, err = selector.SelectCoinControl(
					selection.Utxos, targetAmount, rate, dustAmount, nil,
				)
				require.NoError(t, err)
				spent, ok := result.(*domain.Selection)
				require.True(t, ok)
				require.Equal(t, selection.Keys(), spent.Keys())
				require.Equal(t, selection.FeeAmount, spent.FeeAmount)
				require.Equal(t, selection.ChangeAmount, spent.ChangeAmount)
			}
		})
	}
}
