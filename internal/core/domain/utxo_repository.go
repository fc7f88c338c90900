package domain

import (
	"context"
)

const (
	UtxoAdded UtxoEventType = iota
	UtxoConfirmed
	UtxoFrozen
	UtxoUnfrozen
	UtxoRemoved
	UtxoUpdated
)

var (
	utxoTypeString = map[UtxoEventType]string{
		UtxoAdded:     "UtxoAdded",
		UtxoConfirmed: "UtxoConfirmed",
		UtxoFrozen:    "UtxoFrozen",
		UtxoUnfrozen:  "UtxoUnfrozen",
		UtxoRemoved:   "UtxoRemoved",
		UtxoUpdated:   "UtxoUpdated",
	}
)

type UtxoEventType int

func (t UtxoEventType) String() string {
	return utxoTypeString[t]
}

// UtxoEvent holds info about an event occured within the repository.
type UtxoEvent struct {
	EventType UtxoEventType
	Utxos     []UtxoInfo
}

// UtxoRepository is the abstraction for any kind of database intended to
// persist the wallet's Utxos across restarts.
type UtxoRepository interface {
	// AddUtxos adds the provided utxos to the repository by preventing
	// duplicates.
	// Generates a UtxoAdded event if successfull.
	AddUtxos(ctx context.Context, utxos []*Utxo) (int, error)
	// GetUtxosByKey returns the utxos identified by the given keys.
	GetUtxosByKey(ctx context.Context, utxoKeys []UtxoKey) ([]*Utxo, error)
	// GetAllUtxos returns the entire UTXO set, included those frozen or
	// unconfirmed.
	GetAllUtxos(ctx context.Context) ([]*Utxo, error)
	// GetSpendableUtxos returns all confirmed and not frozen utxos.
	GetSpendableUtxos(ctx context.Context) ([]*Utxo, error)
	// GetBalance returns the confirmed, unconfirmed and frozen balances.
	GetBalance(ctx context.Context) (*Balance, error)
	// ConfirmUtxos updates the number of confirmations of the given utxos.
	// Generates a UtxoConfirmed event if successfull.
	ConfirmUtxos(
		ctx context.Context, utxoKeys []UtxoKey, confirmations uint32,
	) (int, error)
	// FreezeUtxos excludes the given list of utxos from coin selection.
	// Generates a UtxoFrozen event if successfull.
	FreezeUtxos(ctx context.Context, utxoKeys []UtxoKey) (int, error)
	// UnfreezeUtxos makes the given list of utxos selectable again.
	// Generates a UtxoUnfrozen event if successfull.
	UnfreezeUtxos(ctx context.Context, utxoKeys []UtxoKey) (int, error)
	// UpdateUtxos overwrites the metadata (address, script, change flag) of
	// the given utxos.
	// Generates a UtxoUpdated event if successfull.
	UpdateUtxos(ctx context.Context, utxos []*Utxo) (int, error)
	// DeleteUtxos removes the given utxos, either spent or evicted.
	// Generates a UtxoRemoved event if successfull.
	DeleteUtxos(ctx context.Context, utxoKeys []UtxoKey) (int, error)
	// GetEventChannel returns the channel of UtxoEvents.
	GetEventChannel() chan UtxoEvent
}
