package coinselector

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
)

const (
	// maxSearchCandidates is the max number of utxos explored by the
	// combination search. Only those closest to the target are considered.
	maxSearchCandidates = 20
	// maxSearchIterations bounds the number of combinations visited.
	maxSearchIterations = 100000
)

// acceptFunc filters the selections found by the combination search.
type acceptFunc func(sel *domain.Selection) bool

func acceptAny(*domain.Selection) bool { return true }

func acceptChangeless(sel *domain.Selection) bool { return !sel.HasChange() }

// bestCombination attempts to find the combination of utxos that covers the
// target amount plus fees with the lowest waste, ie. the amount exceeding the
// target and the minimum fee, that ends up in change or is absorbed as dust.
// An exact match (zero waste) terminates the search straightaway.
// Combinations are visited largest-first, and the search never grows a
// combination that already covers the target, since any extra utxo would only
// increase its waste.
// Ties are broken by lowest fee and then by fewest inputs.
// It returns nil if no accepted combination is found within the search
// bounds.
func (a selectionArgs) bestCombination(
	utxos []domain.Utxo, accept acceptFunc,
) *domain.Selection {
	candidates := utxos
	if len(candidates) > maxSearchCandidates {
		candidates = sortedByCloseness(candidates, a.targetAmount)[:maxSearchCandidates]
	}
	candidates = sortedByValueDesc(candidates)

	// remaining[i] is the total value of candidates[i:].
	remaining := make([]uint64, len(candidates)+1)
	for i := len(candidates) - 1; i >= 0; i-- {
		remaining[i] = remaining[i+1] + candidates[i].Value
	}

	var (
		best       *domain.Selection
		bestWaste  uint64
		iterations int
		combo      = make([]domain.Utxo, 0, len(candidates))
	)

	var search func(offset int, total uint64) bool
	search = func(offset int, total uint64) (stop bool) {
		if iterations >= maxSearchIterations {
			return true
		}
		iterations++

		if sel, waste := a.finalize(combo, total); sel != nil {
			if accept(sel) && isBetter(sel, waste, best, bestWaste) {
				best, bestWaste = sel, waste
			}
			return best != nil && bestWaste == 0
		}

		for i := offset; i < len(candidates); i++ {
			if total+remaining[i] < a.targetAmount {
				break
			}
			combo = append(combo, candidates[i])
			stop := search(i+1, total+candidates[i].Value)
			combo = combo[:len(combo)-1]
			if stop {
				return true
			}
		}
		return false
	}
	search(0, 0)

	return best
}

func isBetter(
	sel *domain.Selection, waste uint64, best *domain.Selection, bestWaste uint64,
) bool {
	if best == nil {
		return true
	}
	if waste != bestWaste {
		return waste < bestWaste
	}
	if sel.FeeAmount != best.FeeAmount {
		return sel.FeeAmount < best.FeeAmount
	}
	return len(sel.Utxos) < len(best.Utxos)
}
