package feeestimator

import (
	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
	"github.com/vulpemventures/coinselect/pkg/wallet"
)

const (
	// Virtual sizes of a P2WPKH-only transaction.
	txOverheadVSize = 11 // version + locktime + counters + segwit marker/flag
	inputVSize      = 68
	outputVSize     = 31

	// DefaultFixedVSize is the size of a 1-input 2-outputs P2WPKH tx.
	DefaultFixedVSize = txOverheadVSize + inputVSize + 2*outputVSize
)

type linearEstimator struct {
	overhead, perInput, perOutput uint64
}

// NewLinearFeeEstimator returns an estimator that multiplies the fee rate by
// an approximate per-input and per-output virtual size, all P2WPKH.
func NewLinearFeeEstimator() ports.FeeEstimator {
	return &linearEstimator{txOverheadVSize, inputVSize, outputVSize}
}

func (e *linearEstimator) EstimateFees(
	inputs []domain.Utxo, numOutputs int, feeRate domain.FeeRate,
) uint64 {
	vsize := e.overhead +
		e.perInput*uint64(len(inputs)) +
		e.perOutput*uint64(numOutputs)
	return feeRate.FeeForSize(vsize)
}

type fixedEstimator struct {
	vsize uint64
}

// NewFixedFeeEstimator returns an estimator that ignores the shape of the
// transaction and always returns feeRate * vsize.
func NewFixedFeeEstimator(vsize uint64) ports.FeeEstimator {
	if vsize == 0 {
		vsize = DefaultFixedVSize
	}
	return &fixedEstimator{vsize}
}

func (e *fixedEstimator) EstimateFees(
	_ []domain.Utxo, _ int, feeRate domain.FeeRate,
) uint64 {
	return feeRate.FeeForSize(e.vsize)
}

type weightEstimator struct {
	outputScript []byte
}

// NewWeightFeeEstimator returns an estimator that computes the virtual size
// of the tx from the weight of every input, based on its prevout script
// type. All outputs are assumed to have the given script, or P2WPKH if nil.
func NewWeightFeeEstimator(outputScript []byte) ports.FeeEstimator {
	return &weightEstimator{outputScript}
}

func (e *weightEstimator) EstimateFees(
	inputs []domain.Utxo, numOutputs int, feeRate domain.FeeRate,
) uint64 {
	ins := make([]wallet.Input, 0, len(inputs))
	for _, u := range inputs {
		ins = append(ins, wallet.Input{Script: u.Script})
	}
	outs := make([]wallet.Output, 0, numOutputs)
	for i := 0; i < numOutputs; i++ {
		outs = append(outs, wallet.Output{Script: e.outputScript})
	}
	return wallet.EstimateFees(ins, outs, feeRate.MillisatsPerVByte())
}
