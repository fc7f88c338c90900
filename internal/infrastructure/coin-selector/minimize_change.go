package coinselector

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type minimizeChangeSelector struct {
	opts Options
}

// NewMinimizeChangeCoinSelector returns a coin selector that looks for the
// combination of utxos whose total is the closest to the target plus fees,
// falling back to accumulating the utxos closest to the target if the search
// doesn't find any.
func NewMinimizeChangeCoinSelector(opts Options) ports.CoinSelector {
	return &minimizeChangeSelector{opts.withDefaults()}
}

func (s *minimizeChangeSelector) Strategy() domain.Strategy {
	return domain.StrategyMinimizeChange
}

func (s *minimizeChangeSelector) SelectUtxos(
	utxos []domain.Utxo, targetAmount uint64,
	feeRate domain.FeeRate, dustAmount uint64,
) domain.SelectionResult {
	args := selectionArgs{
		s.Strategy(), targetAmount, feeRate, dustAmount, s.opts.FeeEstimator,
	}
	pool := eligibleUtxos(utxos, s.opts.SpendUnconfirmedChange)
	if sel := args.bestCombination(pool, acceptAny); sel != nil {
		return sel
	}
	return args.accumulate(sortedByCloseness(pool, targetAmount))
}
