package ports

import "github.com/vulpemventures/coinselect/internal/core/domain"

// FeeEstimator is the abstraction for any kind of service intended to
// estimate the fee amount of a transaction spending the given inputs and
// creating the given number of outputs.
// Estimations are approximations of the final transaction weight, not exact
// values: the coin selectors depend only on this interface so that a more
// precise estimator can replace a simpler one without changing them.
type FeeEstimator interface {
	// EstimateFees returns the fee amount for a tx spending the given utxos
	// into numOutputs outputs at the given rate.
	EstimateFees(
		inputs []domain.Utxo, numOutputs int, feeRate domain.FeeRate,
	) uint64
}
