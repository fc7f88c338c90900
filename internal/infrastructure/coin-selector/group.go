package coinselector

import (
	"sort"

	"github.com/vulpemventures/coinselect/internal/core/domain"
)

// utxoGroup is the set of utxos locked to the same address. Utxos without an
// address are not linkable to any other, each forms a group on its own.
type utxoGroup struct {
	address string
	utxos   []domain.Utxo
	total   uint64
}

// groupByAddress returns the groups of the given utxos, sorted by total value
// in ascending order. Utxos within a group are sorted by value descending.
func groupByAddress(utxos []domain.Utxo) []utxoGroup {
	indexByAddress := make(map[string]int)
	groups := make([]utxoGroup, 0)
	for _, u := range utxos {
		if u.Address == "" {
			groups = append(groups, utxoGroup{
				address: u.Key().String(),
				utxos:   []domain.Utxo{u},
				total:   u.Value,
			})
			continue
		}
		i, ok := indexByAddress[u.Address]
		if !ok {
			i = len(groups)
			indexByAddress[u.Address] = i
			groups = append(groups, utxoGroup{address: u.Address})
		}
		groups[i].utxos = append(groups[i].utxos, u)
		groups[i].total += u.Value
	}

	for i := range groups {
		groups[i].utxos = sortedByValueDesc(groups[i].utxos)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].total != groups[j].total {
			return groups[i].total < groups[j].total
		}
		return groups[i].address < groups[j].address
	})
	return groups
}

// selectFromSingleGroup returns the selection spending utxos of only one
// group, the one with the lowest total that covers the target amount plus
// fees. If whole is true, all utxos of the group are spent, otherwise they
// are accumulated largest-first until covering the target.
func (a selectionArgs) selectFromSingleGroup(
	groups []utxoGroup, whole bool,
) *domain.Selection {
	for _, g := range groups {
		if whole {
			if sel, _ := a.finalize(g.utxos, g.total); sel != nil {
				return sel
			}
			continue
		}
		if sel := a.accumulateUntilCovered(g.utxos); sel != nil {
			return sel
		}
	}
	return nil
}
