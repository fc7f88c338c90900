package coinselector

import (
	"sort"

	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type oldestFirstSelector struct {
	opts Options
}

// NewOldestFirstCoinSelector returns a coin selector that spends the utxos
// with the most confirmations first.
func NewOldestFirstCoinSelector(opts Options) ports.CoinSelector {
	return &oldestFirstSelector{opts.withDefaults()}
}

func (s *oldestFirstSelector) Strategy() domain.Strategy {
	return domain.StrategyOldestFirst
}

func (s *oldestFirstSelector) SelectUtxos(
	utxos []domain.Utxo, targetAmount uint64,
	feeRate domain.FeeRate, dustAmount uint64,
) domain.SelectionResult {
	args := selectionArgs{
		s.Strategy(), targetAmount, feeRate, dustAmount, s.opts.FeeEstimator,
	}
	pool := eligibleUtxos(utxos, s.opts.SpendUnconfirmedChange)
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Confirmations != pool[j].Confirmations {
			return pool[i].Confirmations > pool[j].Confirmations
		}
		return pool[i].Key().Less(pool[j].Key())
	})
	return args.accumulate(pool)
}
