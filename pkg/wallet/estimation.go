package wallet

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

var (
	scripsigtSizeByScriptType = map[int]int{
		P2PK:        74,  // len + opcode + sig
		P2PKH:       108, // len + opcode + sig + opcode + pubkey
		P2SH_P2WPKH: 23,  // len + p2wpkh script
		P2SH_P2WSH:  35,  // len + p2wsh script
		P2WPKH:      1,   // no scriptsig, still len is serialized
		P2WSH:       1,   // no scriptsig
		P2TR:        1,   // no scriptsig
	}
)

// EstimateTxSize makes an estimation of the virtual size of a transaction for
// which is required to specify the type of the inputs and outputs according to
// those of the Bitcoin standard (P2PK, P2PKH, P2MS, P2SH(P2WPKH), P2SH(P2WSH),
// P2WPKH, P2WSH, P2TR).
// The estimation might not be accurate in case of one or more P2WSH inputs
// without redeem script nor explicit witness size, since the method is not
// able to guess the size of the witness.
func EstimateTxSize(inputs []Input, outputs []Output) uint64 {
	inScriptsigsSize, inWitnessesSize := make([]int, 0), make([]int, 0)
	hasWitness := false
	for _, in := range inputs {
		inType := in.ScriptType()
		scriptsigSize := in.ScriptSigSize
		witnessSize := in.WitnessSize
		if scriptsigSize <= 0 {
			scriptsigSize = scriptSigSize(in, inType)
		}
		if in.isSegwit() {
			hasWitness = true
			if witnessSize <= 0 {
				witnessSize = witnessSizeByType(in, inType)
			}
		} else {
			// legacy inputs serialize an empty witness stack in segwit txs.
			witnessSize = 1
		}
		inScriptsigsSize = append(inScriptsigsSize, scriptsigSize)
		inWitnessesSize = append(inWitnessesSize, witnessSize)
	}
	outsSize := make([]int, 0, len(outputs))
	for _, out := range outputs {
		// value + script
		outsSize = append(outsSize, 8+out.ScriptSize())
	}

	baseSize := calcTxBaseSize(inScriptsigsSize, outsSize)
	totalSize := baseSize
	if hasWitness {
		totalSize += calcTxWitnessSize(inWitnessesSize)
	}

	weight := baseSize*3 + totalSize
	vsize := (weight + 3) / 4

	return uint64(vsize)
}

// EstimateFees estimates the virtual size of the transaciton composed of the
// given Inputs and Outputs and then returns the corresponding fee amount based
// on the given mSats/vByte ratio, rounded up.
func EstimateFees(
	inputs []Input, outputs []Output, millisatsPerByte uint64,
) uint64 {
	txSize := EstimateTxSize(inputs, outputs)
	millisats := txSize * millisatsPerByte
	fee := millisats / 1000
	if millisats%1000 != 0 {
		fee++
	}
	return fee
}

func scriptSigSize(in Input, inType int) int {
	if inType == P2MS {
		_, m, err := txscript.CalcMultiSigStats(in.Script)
		if err == nil {
			// len + OP_0 + m * (len + sig)
			return 1 + 1 + m*73
		}
	}
	return scripsigtSizeByScriptType[inType]
}

func witnessSizeByType(in Input, inType int) int {
	switch inType {
	case P2TR:
		// num of items + len + schnorr sig
		return 1 + 1 + 64
	case P2WSH, P2SH_P2WSH:
		if len(in.RedeemScript) > 0 {
			if _, m, err := txscript.CalcMultiSigStats(in.RedeemScript); err == nil {
				// num of items + empty item + sigs + redeem script
				return 1 + 1 + m*73 + varSliceSerializeSize(in.RedeemScript)
			}
			return 1 + 73 + varSliceSerializeSize(in.RedeemScript)
		}
	}
	// num of items + witness[sig, pubkey]
	return 1 + 73 + 34
}

func calcTxBaseSize(inScripsigsSize, outsSize []int) int {
	// hash + index + sequence
	inBaseSize := 40
	insSize := 0
	for _, scriptSigSize := range inScripsigsSize {
		insSize += inBaseSize + scriptSigSize
	}

	outputsSize := 0
	for _, outSize := range outsSize {
		outputsSize += outSize
	}

	// version + locktime
	return 8 +
		varIntSerializeSize(uint64(len(inScripsigsSize))) +
		varIntSerializeSize(uint64(len(outsSize))) +
		insSize + outputsSize
}

func calcTxWitnessSize(inWitnessesSize []int) int {
	// marker + flag
	size := 2
	for _, witnessSize := range inWitnessesSize {
		size += witnessSize
	}
	return size
}

func varIntSerializeSize(val uint64) int {
	return wire.VarIntSerializeSize(val)
}

func varSliceSerializeSize(val []byte) int {
	return varIntSerializeSize(uint64(len(val))) + len(val)
}
