package coinselector

import (
	"math"
	"sort"

	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
	feeestimator "github.com/vulpemventures/coinselect/internal/infrastructure/fee-estimator"
)

const (
	DefaultMaxConsolidationInputs  = 50
	DefaultMaxConsolidationFeeRate = domain.FeeRate(5000) // 5 sat/vB
)

// Options holds the immutable configuration shared by all coin selectors.
//   - FeeEstimator - (optional) The estimator used to compute fees (defaults to the linear one).
//   - SpendUnconfirmedChange - (optional) Whether unconfirmed change outputs of the wallet are spendable.
//   - PrivacyPolicy - (optional) The sub-policy of the maximize-privacy strategy.
//   - MaxConsolidationFeeRate - (optional) The max fee rate at which the consolidate strategy adds more inputs than needed.
//   - MaxConsolidationInputs - (optional) The max number of inputs selected by the consolidate strategy.
type Options struct {
	FeeEstimator            ports.FeeEstimator
	SpendUnconfirmedChange  bool
	PrivacyPolicy           domain.PrivacyPolicy
	MaxConsolidationFeeRate domain.FeeRate
	MaxConsolidationInputs  int
}

func (o Options) withDefaults() Options {
	if o.FeeEstimator == nil {
		o.FeeEstimator = feeestimator.NewLinearFeeEstimator()
	}
	if o.MaxConsolidationFeeRate == 0 {
		o.MaxConsolidationFeeRate = DefaultMaxConsolidationFeeRate
	}
	if o.MaxConsolidationInputs <= 0 {
		o.MaxConsolidationInputs = DefaultMaxConsolidationInputs
	}
	return o
}

// Finalize computes fee and change for spending exactly the given utxos to
// cover the target amount. Any change below the dust amount is added to the
// fee instead of creating an output.
// It returns an *InsufficientFunds if the utxos don't cover the target amount
// plus fees.
func Finalize(
	strategy domain.Strategy, utxos []domain.Utxo,
	targetAmount uint64, feeRate domain.FeeRate, dustAmount uint64,
	estimator ports.FeeEstimator,
) domain.SelectionResult {
	if estimator == nil {
		estimator = feeestimator.NewLinearFeeEstimator()
	}
	args := selectionArgs{strategy, targetAmount, feeRate, dustAmount, estimator}
	if sel, _ := args.finalize(utxos, totalAmount(utxos)); sel != nil {
		return sel
	}
	return args.insufficientFunds(utxos)
}

// selectionArgs holds the params of a single selection call.
type selectionArgs struct {
	strategy     domain.Strategy
	targetAmount uint64
	feeRate      domain.FeeRate
	dustAmount   uint64
	estimator    ports.FeeEstimator
}

// finalize returns the selection spending the given utxos, whose total value
// is given, or nil if they don't cover the target amount and the fee of a
// tx without change.
// The second value is the waste, the amount exceeding target and the minimum
// fee, either in the form of change or of absorbed dust.
func (a selectionArgs) finalize(
	utxos []domain.Utxo, total uint64,
) (*domain.Selection, uint64) {
	if len(utxos) == 0 {
		return nil, 0
	}

	if total < a.targetAmount {
		return nil, 0
	}
	// Comparisons are made on the amount exceeding the target so that they
	// never overflow.
	excess := total - a.targetAmount
	feeNoChange := a.estimator.EstimateFees(utxos, 1, a.feeRate)
	if excess < feeNoChange {
		return nil, 0
	}
	waste := excess - feeNoChange

	selected := make([]domain.Utxo, len(utxos))
	copy(selected, utxos)

	feeWithChange := a.estimator.EstimateFees(utxos, 2, a.feeRate)
	if excess >= feeWithChange {
		change := excess - feeWithChange
		if change > 0 && change >= a.dustAmount {
			return &domain.Selection{
				Strategy:     a.strategy,
				Utxos:        selected,
				TargetAmount: a.targetAmount,
				FeeAmount:    feeWithChange,
				ChangeAmount: change,
			}, waste
		}
	}

	// The remainder is either dust or not enough to pay for the change
	// output, it goes to miners.
	return &domain.Selection{
		Strategy:     a.strategy,
		Utxos:        selected,
		TargetAmount: a.targetAmount,
		FeeAmount:    excess,
	}, waste
}

func (a selectionArgs) insufficientFunds(
	pool []domain.Utxo,
) *domain.InsufficientFunds {
	required := a.targetAmount + a.estimator.EstimateFees(pool, 1, a.feeRate)
	if required < a.targetAmount {
		required = math.MaxUint64
	}
	return &domain.InsufficientFunds{
		Strategy:  a.strategy,
		Available: totalAmount(pool),
		Required:  required,
	}
}

// accumulate adds the given utxos, in order, until they cover the target
// amount plus fees, recomputed every time a utxo is added.
func (a selectionArgs) accumulate(ordered []domain.Utxo) domain.SelectionResult {
	if sel := a.accumulateUntilCovered(ordered); sel != nil {
		return sel
	}
	return a.insufficientFunds(ordered)
}

func (a selectionArgs) accumulateUntilCovered(
	ordered []domain.Utxo,
) *domain.Selection {
	sel, _ := a.accumulateEconomical(ordered)
	return sel
}

// accumulateEconomical is like accumulateUntilCovered but also returns the
// candidates that were not spent, in order. Utxos whose value doesn't pay
// for the fee of their own input are skipped, since they would only move the
// target further away.
func (a selectionArgs) accumulateEconomical(
	ordered []domain.Utxo,
) (*domain.Selection, []domain.Utxo) {
	selected := make([]domain.Utxo, 0, len(ordered))
	skipped := make([]domain.Utxo, 0)
	total := uint64(0)
	for i, u := range ordered {
		if u.Value <= a.marginalFee(selected, u, 1) {
			skipped = append(skipped, u)
			continue
		}
		selected = append(selected, u)
		total += u.Value
		if sel, _ := a.finalize(selected, total); sel != nil {
			return sel, append(skipped, ordered[i+1:]...)
		}
	}
	return nil, nil
}

// marginalFee returns the fee increase caused by adding the given utxo to
// the inputs of a tx with the given number of outputs.
func (a selectionArgs) marginalFee(
	inputs []domain.Utxo, u domain.Utxo, numOutputs int,
) uint64 {
	candidate := append(copyUtxos(inputs), u)
	with := a.estimator.EstimateFees(candidate, numOutputs, a.feeRate)
	without := a.estimator.EstimateFees(inputs, numOutputs, a.feeRate)
	if with <= without {
		return 0
	}
	return with - without
}

// eligibleUtxos returns the candidates that can be spent by a coin selector.
// Frozen and zero-value utxos are never eligible, unconfirmed ones only if
// they are change of the wallet itself and the selector opted in.
func eligibleUtxos(
	utxos []domain.Utxo, spendUnconfirmedChange bool,
) []domain.Utxo {
	eligible := make([]domain.Utxo, 0, len(utxos))
	for _, u := range utxos {
		if u.IsFrozen() || u.Value == 0 {
			continue
		}
		if !u.IsConfirmed() && !(spendUnconfirmedChange && u.IsChange) {
			continue
		}
		eligible = append(eligible, u)
	}
	return eligible
}

func totalAmount(utxos []domain.Utxo) uint64 {
	total := uint64(0)
	for _, u := range utxos {
		total += u.Value
	}
	return total
}

func sortedByValueDesc(utxos []domain.Utxo) []domain.Utxo {
	sorted := copyUtxos(utxos)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].Key().Less(sorted[j].Key())
	})
	return sorted
}

func sortedByValueAsc(utxos []domain.Utxo) []domain.Utxo {
	sorted := copyUtxos(utxos)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value < sorted[j].Value
		}
		return sorted[i].Key().Less(sorted[j].Key())
	})
	return sorted
}

// sortedByCloseness sorts the utxos by their distance from the given amount.
func sortedByCloseness(utxos []domain.Utxo, amount uint64) []domain.Utxo {
	sorted := copyUtxos(utxos)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := distance(sorted[i].Value, amount), distance(sorted[j].Value, amount)
		if di != dj {
			return di < dj
		}
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].Key().Less(sorted[j].Key())
	})
	return sorted
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func copyUtxos(utxos []domain.Utxo) []domain.Utxo {
	cp := make([]domain.Utxo, len(utxos))
	copy(cp, utxos)
	return cp
}
