package ports

import "github.com/vulpemventures/coinselect/internal/core/domain"

// CoinSelector is the abstraction for any kind of service intended to return
// a subset of the given utxos covering the target amount plus fees, based on
// a specific strategy.
// Implementations must be stateless and safe for concurrent use: they
// receive their own copy of the candidates and must not retain it.
type CoinSelector interface {
	// Strategy returns the strategy implemented by the selector.
	Strategy() domain.Strategy
	// SelectUtxos implements a certain coin selection strategy.
	// The candidates are filtered by the selector itself: frozen utxos are
	// always excluded, unconfirmed ones depending on the strategy options.
	// It returns either a *domain.Selection or a *domain.InsufficientFunds.
	SelectUtxos(
		utxos []domain.Utxo, targetAmount uint64,
		feeRate domain.FeeRate, dustAmount uint64,
	) domain.SelectionResult
}
