package coinselector

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type consolidateSelector struct {
	opts Options
}

// NewConsolidateCoinSelector returns a coin selector that spends the
// smallest utxos first. When the fee rate is not above the configured
// threshold, it keeps adding small utxos beyond what's needed, as long as each
// of them is worth more than the fee for spending it, to reduce the size of
// the utxo set.
func NewConsolidateCoinSelector(opts Options) ports.CoinSelector {
	return &consolidateSelector{opts.withDefaults()}
}

func (s *consolidateSelector) Strategy() domain.Strategy {
	return domain.StrategyConsolidate
}

func (s *consolidateSelector) SelectUtxos(
	utxos []domain.Utxo, targetAmount uint64,
	feeRate domain.FeeRate, dustAmount uint64,
) domain.SelectionResult {
	args := selectionArgs{
		s.Strategy(), targetAmount, feeRate, dustAmount, s.opts.FeeEstimator,
	}
	pool := sortedByValueAsc(eligibleUtxos(utxos, s.opts.SpendUnconfirmedChange))

	sel, rest := args.accumulateEconomical(pool)
	if sel == nil {
		return args.insufficientFunds(pool)
	}
	if feeRate > s.opts.MaxConsolidationFeeRate {
		return sel
	}

	selected := sel.Utxos
	total := sel.TotalAmount()
	for _, u := range rest {
		if len(selected) >= s.opts.MaxConsolidationInputs {
			break
		}
		if u.Value <= args.marginalFee(selected, u, 2) {
			continue
		}
		candidate := append(copyUtxos(selected), u)
		next, _ := args.finalize(candidate, total+u.Value)
		if next == nil {
			continue
		}
		selected, total, sel = candidate, total+u.Value, next
	}
	return sel
}
