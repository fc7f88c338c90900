package coinselector

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type privacyFocusedSelector struct {
	opts Options
}

// NewPrivacyFocusedCoinSelector returns a coin selector that avoids linking
// different addresses in the same tx: it pays from the smallest group of
// utxos locked to a single address able to cover the target plus fees.
// If no single address can pay on its own, the utxos are accumulated
// largest-first regardless of their address.
func NewPrivacyFocusedCoinSelector(opts Options) ports.CoinSelector {
	return &privacyFocusedSelector{opts.withDefaults()}
}

func (s *privacyFocusedSelector) Strategy() domain.Strategy {
	return domain.StrategyPrivacyFocused
}

func (s *privacyFocusedSelector) SelectUtxos(
	utxos []domain.Utxo, targetAmount uint64,
	feeRate domain.FeeRate, dustAmount uint64,
) domain.SelectionResult {
	args := selectionArgs{
		s.Strategy(), targetAmount, feeRate, dustAmount, s.opts.FeeEstimator,
	}
	pool := eligibleUtxos(utxos, s.opts.SpendUnconfirmedChange)
	if sel := args.selectFromSingleGroup(groupByAddress(pool), false); sel != nil {
		return sel
	}
	return args.accumulate(sortedByValueDesc(pool))
}
