package application

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
	coinselector "github.com/vulpemventures/coinselect/internal/infrastructure/coin-selector"
)

// Selector is responsible for validating coin selection requests and for
// dispatching them to the coin selector implementing the requested strategy.
//
// Every request generates a domain.SelectionAttempted event followed by
// either a domain.SelectionSucceeded or a domain.SelectionFailed one. Events
// are delivered synchronously to the given sink, if any: a failing or
// panicking sink never affects the outcome of the selection.
//
// Every successful selection is verified against the balance and dust
// invariants before being returned.
type Selector struct {
	coinSelectors map[domain.Strategy]ports.CoinSelector
	feeEstimator  ports.FeeEstimator
	minFeeRate    domain.FeeRate

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewSelector(opts coinselector.Options) *Selector {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("selector: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("selector: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	coinSelectors := make(map[domain.Strategy]ports.CoinSelector)
	for strategy, factory := range coinSelectorByType {
		coinSelectors[strategy] = factory(opts)
	}

	return &Selector{
		coinSelectors, opts.FeeEstimator, domain.FeeRate(MinMillisatsPerByte),
		logFn, warnFn,
	}
}

// Select runs the given strategy over the given utxos.
// Invalid requests are rejected with an error before any utxo is scanned.
// Not having enough funds is not an error, but a *domain.InsufficientFunds
// result.
func (s *Selector) Select(
	utxos []domain.Utxo, strategy domain.Strategy,
	targetAmount uint64, feeRate domain.FeeRate, dustAmount uint64,
	sink ports.SelectionEventSink,
) (domain.SelectionResult, error) {
	event := domain.NewSelectionAttemptedEvent(
		uuid.New().String(), strategy.String(), false,
		targetAmount, feeRate, dustAmount,
	)
	s.publish(sink, event)

	result, err := s.selectUtxos(utxos, strategy, targetAmount, feeRate, dustAmount)
	s.publish(sink, event.Outcome(result, err))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SelectCoinControl spends exactly the given utxos, bypassing any strategy,
// and only computes fee and change with the same rules used by the
// strategies.
// The utxos are expected to be already resolved and checked by the caller.
func (s *Selector) SelectCoinControl(
	utxos []domain.Utxo,
	targetAmount uint64, feeRate domain.FeeRate, dustAmount uint64,
	sink ports.SelectionEventSink,
) (domain.SelectionResult, error) {
	event := domain.NewSelectionAttemptedEvent(
		uuid.New().String(), domain.StrategyCoinControl.String(), true,
		targetAmount, feeRate, dustAmount,
	)
	s.publish(sink, event)

	result, err := s.selectCoinControl(utxos, targetAmount, feeRate, dustAmount)
	s.publish(sink, event.Outcome(result, err))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Selector) selectUtxos(
	utxos []domain.Utxo, strategy domain.Strategy,
	targetAmount uint64, feeRate domain.FeeRate, dustAmount uint64,
) (domain.SelectionResult, error) {
	if err := s.validateRequest(targetAmount, feeRate, dustAmount); err != nil {
		return nil, err
	}
	if err := validateUtxoValues(utxos); err != nil {
		return nil, err
	}
	coinSelector, ok := s.coinSelectors[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownStrategy, strategy)
	}

	s.log(
		"selecting utxos with strategy %s for target %d at %s out of %d candidates",
		strategy, targetAmount, feeRate, len(utxos),
	)
	result := coinSelector.SelectUtxos(utxos, targetAmount, feeRate, dustAmount)
	return s.checkResult(result, dustAmount)
}

func (s *Selector) selectCoinControl(
	utxos []domain.Utxo,
	targetAmount uint64, feeRate domain.FeeRate, dustAmount uint64,
) (domain.SelectionResult, error) {
	if err := s.validateRequest(targetAmount, feeRate, dustAmount); err != nil {
		return nil, err
	}
	if len(utxos) <= 0 {
		return nil, domain.ErrMissingUtxos
	}
	if err := validateUtxoValues(utxos); err != nil {
		return nil, err
	}

	s.log(
		"spending %d selected utxos for target %d at %s",
		len(utxos), targetAmount, feeRate,
	)
	result := coinselector.Finalize(
		domain.StrategyCoinControl, utxos, targetAmount, feeRate, dustAmount, s.feeEstimator,
	)
	return s.checkResult(result, dustAmount)
}

func (s *Selector) validateRequest(
	targetAmount uint64, feeRate domain.FeeRate, dustAmount uint64,
) error {
	if targetAmount == 0 {
		return fmt.Errorf("%w: must be greater than zero", domain.ErrInvalidTargetAmount)
	}
	if targetAmount > domain.MaxAmount {
		return fmt.Errorf(
			"%w: %d exceeds max %d", domain.ErrInvalidTargetAmount,
			targetAmount, domain.MaxAmount,
		)
	}
	if dustAmount == 0 {
		return domain.ErrInvalidDustAmount
	}
	if feeRate < s.minFeeRate {
		return fmt.Errorf(
			"%w: got %s, min %s", domain.ErrFeeRateTooLow, feeRate, s.minFeeRate,
		)
	}
	return nil
}

// validateUtxoValues makes sure the sum of any subset of the given utxos
// can't overflow.
func validateUtxoValues(utxos []domain.Utxo) error {
	total := uint64(0)
	for _, u := range utxos {
		if u.Value > domain.MaxAmount {
			return fmt.Errorf(
				"%w: %s has value %d above max %d",
				domain.ErrInvalidUtxoValue, u.Key(), u.Value, domain.MaxAmount,
			)
		}
		total += u.Value
		if total > math.MaxInt64 {
			return fmt.Errorf(
				"%w: total value of candidates overflows", domain.ErrInvalidUtxoValue,
			)
		}
	}
	return nil
}

func (s *Selector) checkResult(
	result domain.SelectionResult, dustAmount uint64,
) (domain.SelectionResult, error) {
	switch res := result.(type) {
	case *domain.Selection:
		if err := res.Validate(dustAmount); err != nil {
			return nil, err
		}
		s.log(
			"selected %d utxos (%s) with fee %d and change %d",
			len(res.Utxos), UtxoKeys(res.Keys()), res.FeeAmount, res.ChangeAmount,
		)
	case *domain.InsufficientFunds:
		s.log(
			"insufficient funds: available %d, required %d",
			res.Available, res.Required,
		)
	default:
		return nil, fmt.Errorf("%w: unexpected result %T", domain.ErrInvalidSelection, result)
	}
	return result, nil
}

func (s *Selector) publish(
	sink ports.SelectionEventSink, event domain.SelectionEvent,
) {
	if sink == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.warn(
				fmt.Errorf("%v", r),
				"recovered from panic while publishing %s event %s", event.Type, event.ID,
			)
		}
	}()

	if err := sink.PublishSelectionEvent(event); err != nil {
		s.warn(err, "failed to publish %s event %s", event.Type, event.ID)
	}
}
