package wallet

import (
	"github.com/btcsuite/btcd/txscript"
)

const (
	P2PK = iota
	P2PKH
	P2MS
	P2SH_P2WPKH
	P2SH_P2WSH
	P2WPKH
	P2WSH
	P2TR
)

var (
	scriptTypes = map[txscript.ScriptClass]int{
		txscript.PubKeyTy:              P2PK,
		txscript.PubKeyHashTy:          P2PKH,
		txscript.MultiSigTy:            P2MS,
		txscript.ScriptHashTy:          P2SH_P2WPKH,
		txscript.WitnessV0PubKeyHashTy: P2WPKH,
		txscript.WitnessV0ScriptHashTy: P2WSH,
		txscript.WitnessV1TaprootTy:    P2TR,
	}
)

// Input is the data structure representing an input of a transaction for
// the sake of size estimation: the script of the prevout it spends and,
// optionally, the redeem script and the exact scriptsig/witness sizes.
// Inputs with unknown or empty script are considered P2WPKH.
type Input struct {
	Script        []byte
	RedeemScript  []byte
	ScriptSigSize int
	WitnessSize   int
}

func (i Input) ScriptType() int {
	if len(i.Script) == 0 {
		return P2WPKH
	}
	t, ok := scriptTypes[txscript.GetScriptClass(i.Script)]
	if !ok {
		return P2WPKH
	}
	if t == P2SH_P2WPKH && len(i.RedeemScript) > 0 {
		t = P2SH_P2WSH
	}
	return t
}

func (i Input) isSegwit() bool {
	switch i.ScriptType() {
	case P2PK, P2PKH, P2MS:
		return false
	default:
		return true
	}
}
