package coinselector

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

type maximizePrivacySelector struct {
	opts Options
}

// NewMaximizePrivacyCoinSelector returns a coin selector that minimizes the
// on-chain linkage between addresses according to the configured policy:
//   - group-by-address: utxos of the same address are always spent together,
//     so that no address is left with a partially spent history. The fewest
//     groups are selected, preferring the smallest single group that covers
//     the target.
//   - minimize-linkage: the fewest addresses are involved in the tx, without
//     necessarily spending all their utxos.
func NewMaximizePrivacyCoinSelector(opts Options) ports.CoinSelector {
	return &maximizePrivacySelector{opts.withDefaults()}
}

func (s *maximizePrivacySelector) Strategy() domain.Strategy {
	return domain.StrategyMaximizePrivacy
}

func (s *maximizePrivacySelector) SelectUtxos(
	utxos []domain.Utxo, targetAmount uint64,
	feeRate domain.FeeRate, dustAmount uint64,
) domain.SelectionResult {
	args := selectionArgs{
		s.Strategy(), targetAmount, feeRate, dustAmount, s.opts.FeeEstimator,
	}
	pool := eligibleUtxos(utxos, s.opts.SpendUnconfirmedChange)
	groups := groupByAddress(pool)

	whole := s.opts.PrivacyPolicy == domain.PrivacyPolicyGroupByAddress
	if sel := args.selectFromSingleGroup(groups, whole); sel != nil {
		return sel
	}

	// No address can pay on its own, merge groups largest-first.
	selected := make([]domain.Utxo, 0, len(pool))
	total := uint64(0)
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if whole {
			selected = append(selected, g.utxos...)
			total += g.total
			if sel, _ := args.finalize(selected, total); sel != nil {
				return sel
			}
			continue
		}
		for _, u := range g.utxos {
			selected = append(selected, u)
			total += u.Value
			if sel, _ := args.finalize(selected, total); sel != nil {
				return sel
			}
		}
	}
	return args.insufficientFunds(pool)
}
