package coinselector

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type avoidChangeSelector struct {
	opts Options
}

// NewAvoidChangeCoinSelector returns a coin selector that prefers
// combinations of utxos not requiring a change output, either because they
// match the target plus fees or because the remainder is dust.
// If none exists, it behaves like the minimize-fee strategy.
func NewAvoidChangeCoinSelector(opts Options) ports.CoinSelector {
	return &avoidChangeSelector{opts.withDefaults()}
}

func (s *avoidChangeSelector) Strategy() domain.Strategy {
	return domain.StrategyAvoidChange
}

func (s *avoidChangeSelector) SelectUtxos(
	utxos []domain.Utxo, targetAmount uint64,
	feeRate domain.FeeRate, dustAmount uint64,
) domain.SelectionResult {
	args := selectionArgs{
		s.Strategy(), targetAmount, feeRate, dustAmount, s.opts.FeeEstimator,
	}
	pool := eligibleUtxos(utxos, s.opts.SpendUnconfirmedChange)
	if sel := args.bestCombination(pool, acceptChangeless); sel != nil {
		return sel
	}
	return args.accumulate(sortedByValueDesc(pool))
}
