package wallet

const defaultOutputScriptSize = 22 // P2WPKH: OP_0 + push(20)

// Output is the data structure representing an output of a transaction for
// the sake of size estimation. Outputs with empty script are considered
// P2WPKH.
type Output struct {
	Script []byte
}

func (o Output) ScriptSize() int {
	if len(o.Script) == 0 {
		return varIntSerializeSize(defaultOutputScriptSize) + defaultOutputScriptSize
	}
	return varSliceSerializeSize(o.Script)
}
