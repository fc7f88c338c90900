package domain

import (
	"fmt"
)

var (
	ErrInvalidTargetAmount = fmt.Errorf("invalid target amount")
	ErrInvalidDustAmount   = fmt.Errorf("dust amount must be greater than zero")
	ErrFeeRateTooLow       = fmt.Errorf("fee rate is below the minimum allowed")
	ErrInvalidSelection    = fmt.Errorf("coin selection broke balance invariants")
	ErrUtxoNotFound        = fmt.Errorf("utxo not found")
	ErrUtxoFrozen          = fmt.Errorf("utxo is frozen")
	ErrMissingUtxos        = fmt.Errorf("missing utxos")
)

// SelectionResult is the outcome of a coin selection attempt. It is either a
// *Selection or an *InsufficientFunds, callers are expected to type switch
// over the two cases:
//
//	switch res := result.(type) {
//	case *domain.Selection:
//	case *domain.InsufficientFunds:
//	}
type SelectionResult interface {
	isSelectionResult()
	// IsSuccess returns whether the result is a *Selection.
	IsSuccess() bool
}

// Selection is the successful outcome of a coin selection: the list of utxos
// to spend, the fee amount and the change amount (zero if no change output
// has to be created).
type Selection struct {
	Strategy     Strategy
	Utxos        []Utxo
	TargetAmount uint64
	FeeAmount    uint64
	ChangeAmount uint64
}

func (*Selection) isSelectionResult() {}

func (*Selection) IsSuccess() bool {
	return true
}

// TotalAmount returns the sum of the values of the selected utxos.
func (s *Selection) TotalAmount() uint64 {
	var total uint64
	for _, u := range s.Utxos {
		total += u.Value
	}
	return total
}

// HasChange returns whether a change output has to be created.
func (s *Selection) HasChange() bool {
	return s.ChangeAmount > 0
}

func (s *Selection) Keys() []UtxoKey {
	keys := make([]UtxoKey, 0, len(s.Utxos))
	for _, u := range s.Utxos {
		keys = append(keys, u.Key())
	}
	return keys
}

// Validate makes sure the selection conserves the balance and doesn't create
// a dust change output.
func (s *Selection) Validate(dustAmount uint64) error {
	if len(s.Utxos) == 0 && s.TargetAmount > 0 {
		return fmt.Errorf("%w: empty selection", ErrInvalidSelection)
	}
	total := s.TotalAmount()
	if total < s.TargetAmount ||
		total-s.TargetAmount < s.FeeAmount ||
		total-s.TargetAmount-s.FeeAmount != s.ChangeAmount {
		return fmt.Errorf(
			"%w: selected %d, expected target %d + fee %d + change %d",
			ErrInvalidSelection, total, s.TargetAmount, s.FeeAmount, s.ChangeAmount,
		)
	}
	if s.ChangeAmount > 0 && s.ChangeAmount < dustAmount {
		return fmt.Errorf(
			"%w: change %d is below dust threshold %d",
			ErrInvalidSelection, s.ChangeAmount, dustAmount,
		)
	}
	seen := make(map[UtxoKey]struct{}, len(s.Utxos))
	for _, u := range s.Utxos {
		if u.IsFrozen() {
			return fmt.Errorf("%w: frozen utxo %s", ErrInvalidSelection, u.Key())
		}
		if _, ok := seen[u.Key()]; ok {
			return fmt.Errorf("%w: duplicate utxo %s", ErrInvalidSelection, u.Key())
		}
		seen[u.Key()] = struct{}{}
	}
	return nil
}

// InsufficientFunds is the outcome of a coin selection that couldn't cover
// the target amount plus fees with the candidates eligible for the
// strategy. It's an ordinary result, not a fault: relaxing the filters (ie.
// unfreezing some utxos) or lowering the target might lead to a successful
// selection.
type InsufficientFunds struct {
	Strategy  Strategy
	Available uint64
	Required  uint64
}

func (*InsufficientFunds) isSelectionResult() {}

func (*InsufficientFunds) IsSuccess() bool {
	return false
}

// Missing returns the amount missing to cover the required one.
func (i *InsufficientFunds) Missing() uint64 {
	if i.Available >= i.Required {
		return 0
	}
	return i.Required - i.Available
}

func (i *InsufficientFunds) Error() string {
	return fmt.Sprintf(
		"insufficient funds: available %d, required %d", i.Available, i.Required,
	)
}
