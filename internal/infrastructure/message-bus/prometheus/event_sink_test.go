package prometheusbus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

func TestEventSink(t *testing.T) {
	registry := prometheus.NewRegistry()
	sink, err := NewEventSink(registry)
	require.NoError(t, err)

	strategy := domain.StrategyMinimizeFee.String()
	attempted := domain.NewSelectionAttemptedEvent(
		"id", strategy, false, 50000, domain.FeeRate(1000), 546,
	)
	events := []domain.SelectionEvent{
		attempted,
		attempted.Outcome(&domain.Selection{
			Utxos: make([]domain.Utxo, 2), FeeAmount: 209, ChangeAmount: 29791,
		}, nil),
		attempted,
		attempted.Outcome(&domain.InsufficientFunds{
			Available: 40000, Required: 50110,
		}, nil),
		attempted,
		attempted.Outcome(nil, domain.ErrFeeRateTooLow),
	}
	for _, event := range events {
		require.NoError(t, sink.PublishSelectionEvent(event))
	}

	require.Equal(t, float64(3), testutil.ToFloat64(sink.attempts.WithLabelValues(strategy)))
	require.Equal(t, float64(1), testutil.ToFloat64(
		sink.outcomes.WithLabelValues(strategy, outcomeSucceeded),
	))
	require.Equal(t, float64(1), testutil.ToFloat64(
		sink.outcomes.WithLabelValues(strategy, outcomeInsufficientFunds),
	))
	require.Equal(t, float64(1), testutil.ToFloat64(
		sink.outcomes.WithLabelValues(strategy, outcomeRejected),
	))
	require.Equal(t, 1, testutil.CollectAndCount(sink.feeAmounts))
	require.Equal(t, 1, testutil.CollectAndCount(sink.numInputs))

	// Registering twice with the same registry fails.
	_, err = NewEventSink(registry)
	require.Error(t, err)
}
