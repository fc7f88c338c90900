package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MaxAmount is the max number of sats that can ever exist, the upper bound
// of any utxo value or target amount.
const MaxAmount = uint64(btcutil.MaxSatoshi)

var (
	ErrInvalidUtxoKey   = fmt.Errorf("invalid utxo key")
	ErrInvalidUtxoValue = fmt.Errorf("invalid utxo value")
)

// UtxoKey represents the key of an Utxo, composed by its txid and vout.
type UtxoKey struct {
	TxID string
	VOut uint32
}

// ParseUtxoKey parses an outpoint in the "txid:vout" format.
func ParseUtxoKey(str string) (UtxoKey, error) {
	parts := strings.Split(str, ":")
	if len(parts) != 2 {
		return UtxoKey{}, fmt.Errorf(
			"%w: %s, must be in the format txid:vout", ErrInvalidUtxoKey, str,
		)
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return UtxoKey{}, fmt.Errorf("%w: invalid vout %s", ErrInvalidUtxoKey, parts[1])
	}
	key := UtxoKey{TxID: parts[0], VOut: uint32(vout)}
	if err := key.Validate(); err != nil {
		return UtxoKey{}, err
	}
	return key, nil
}

// Validate returns an error if the txid is not a valid 32-byte hash.
func (k UtxoKey) Validate() error {
	if len(k.TxID) != chainhash.MaxHashStringSize {
		return fmt.Errorf("%w: txid must be a 32-byte hex string", ErrInvalidUtxoKey)
	}
	if _, err := chainhash.NewHashFromStr(k.TxID); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUtxoKey, err)
	}
	return nil
}

func (k UtxoKey) Hash() string {
	buf, _ := hex.DecodeString(k.TxID)
	vout := make([]byte, 4)
	binary.LittleEndian.PutUint32(vout, k.VOut)
	buf = append(buf, vout...)
	return hex.EncodeToString(btcutil.Hash160(buf))
}

func (k UtxoKey) String() string {
	return fmt.Sprintf("%s:%d", k.TxID, k.VOut)
}

// Less defines the canonical ordering of utxos, used to break ties.
func (k UtxoKey) Less(other UtxoKey) bool {
	if k.TxID != other.TxID {
		return k.TxID < other.TxID
	}
	return k.VOut < other.VOut
}

// UtxoInfo is a light view of an Utxo, carried by repository events.
type UtxoInfo struct {
	UtxoKey
	Value         uint64
	Confirmations uint32
	IsChange      bool
	Frozen        bool
	Address       string
	AccountName   string
}

func (i UtxoInfo) Key() UtxoKey {
	return i.UtxoKey
}

// Balance holds info about the balance of a list of utxos.
type Balance struct {
	Confirmed   uint64
	Unconfirmed uint64
	Frozen      uint64
}

func (b *Balance) Total() uint64 {
	return b.Confirmed + b.Unconfirmed + b.Frozen
}

// Utxo is the data structure representing a spendable output owned by the
// wallet, with extra info like the number of confirmations, whether it's the
// change of a previous wallet tx, whether the user froze it, and the address
// it's locked to.
type Utxo struct {
	UtxoKey
	Value         uint64
	Confirmations uint32
	IsChange      bool
	Frozen        bool
	Address       string
	Script        []byte
	AccountName   string
}

// IsConfirmed returns whether the utxo has been included in a block.
func (u *Utxo) IsConfirmed() bool {
	return u.Confirmations > 0
}

// IsFrozen returns whether the utxo has been excluded from automatic coin
// selection by the user.
func (u *Utxo) IsFrozen() bool {
	return u.Frozen
}

// Key returns the UtxoKey of the current utxo.
func (u *Utxo) Key() UtxoKey {
	return u.UtxoKey
}

// Info returns a light view of the current utxo.
func (u *Utxo) Info() UtxoInfo {
	return UtxoInfo{
		u.Key(), u.Value, u.Confirmations, u.IsChange, u.Frozen, u.Address,
		u.AccountName,
	}
}

// Validate returns an error if the utxo can't be considered for selection.
func (u *Utxo) Validate() error {
	if err := u.UtxoKey.Validate(); err != nil {
		return err
	}
	if u.Value == 0 {
		return fmt.Errorf(
			"%w (%s): must be greater than zero", ErrInvalidUtxoValue, u.UtxoKey,
		)
	}
	if u.Value > MaxAmount {
		return fmt.Errorf(
			"%w (%s): %d exceeds max %d", ErrInvalidUtxoValue, u.UtxoKey,
			u.Value, MaxAmount,
		)
	}
	return nil
}

// Freeze marks the utxo as excluded from automatic coin selection.
func (u *Utxo) Freeze() bool {
	if u.Frozen {
		return false
	}
	u.Frozen = true
	return true
}

// Unfreeze makes the utxo available again for automatic coin selection.
func (u *Utxo) Unfreeze() bool {
	if !u.Frozen {
		return false
	}
	u.Frozen = false
	return true
}

// Confirm updates the number of confirmations of the utxo.
// It returns false if nothing changed.
func (u *Utxo) Confirm(confirmations uint32) bool {
	if u.Confirmations == confirmations {
		return false
	}
	u.Confirmations = confirmations
	return true
}

// SetAddress updates the address owning the utxo.
func (u *Utxo) SetAddress(address string) bool {
	if u.Address == address {
		return false
	}
	u.Address = address
	return true
}
