package coinselector

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type minimizeFeeSelector struct {
	opts Options
}

// NewMinimizeFeeCoinSelector returns a coin selector that spends the largest
// utxos first, so that the target is covered with as few inputs as possible.
func NewMinimizeFeeCoinSelector(opts Options) ports.CoinSelector {
	return &minimizeFeeSelector{opts.withDefaults()}
}

func (s *minimizeFeeSelector) Strategy() domain.Strategy {
	return domain.StrategyMinimizeFee
}

func (s *minimizeFeeSelector) SelectUtxos(
	utxos []domain.Utxo, targetAmount uint64,
	feeRate domain.FeeRate, dustAmount uint64,
) domain.SelectionResult {
	args := selectionArgs{
		s.Strategy(), targetAmount, feeRate, dustAmount, s.opts.FeeEstimator,
	}
	pool := eligibleUtxos(utxos, s.opts.SpendUnconfirmedChange)
	return args.accumulate(sortedByValueDesc(pool))
}
