package domain

import "time"

const (
	SelectionAttempted SelectionEventType = iota
	SelectionSucceeded
	SelectionFailed
)

var (
	selectionEventTypeString = map[SelectionEventType]string{
		SelectionAttempted: "SelectionAttempted",
		SelectionSucceeded: "SelectionSucceeded",
		SelectionFailed:    "SelectionFailed",
	}
)

type SelectionEventType int

func (t SelectionEventType) String() string {
	return selectionEventTypeString[t]
}

// SelectionEvent notifies about a coin selection attempt and its outcome.
// Every attempt generates exactly one SelectionAttempted event followed by
// either a SelectionSucceeded or a SelectionFailed one, sharing the same ID.
// Failures carry either the insufficient funds summary or the error that
// rejected the request.
type SelectionEvent struct {
	ID           string
	Type         SelectionEventType
	Strategy     string
	CoinControl  bool
	TargetAmount uint64
	FeeRate      FeeRate
	DustAmount   uint64
	NumInputs    int
	FeeAmount    uint64
	ChangeAmount uint64
	Available    uint64
	Required     uint64
	Error        string
	Timestamp    int64
}

// NewSelectionAttemptedEvent returns the event that precedes a selection.
func NewSelectionAttemptedEvent(
	id, strategy string, coinControl bool,
	targetAmount uint64, feeRate FeeRate, dustAmount uint64,
) SelectionEvent {
	return SelectionEvent{
		ID:           id,
		Type:         SelectionAttempted,
		Strategy:     strategy,
		CoinControl:  coinControl,
		TargetAmount: targetAmount,
		FeeRate:      feeRate,
		DustAmount:   dustAmount,
		Timestamp:    time.Now().Unix(),
	}
}

// Outcome returns the event that follows the given attempt, summarizing the
// given result or error.
func (e SelectionEvent) Outcome(
	result SelectionResult, err error,
) SelectionEvent {
	event := e
	event.Type = SelectionFailed
	event.Timestamp = time.Now().Unix()

	if err != nil {
		event.Error = err.Error()
		return event
	}

	switch res := result.(type) {
	case *Selection:
		event.Type = SelectionSucceeded
		event.NumInputs = len(res.Utxos)
		event.FeeAmount = res.FeeAmount
		event.ChangeAmount = res.ChangeAmount
	case *InsufficientFunds:
		event.Available = res.Available
		event.Required = res.Required
		event.Error = res.Error()
	}
	return event
}
