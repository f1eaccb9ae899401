package settlement

import "math"

// Weight components in weight units (WU), per BIP-141. These mirror the
// standard input/output templates used by the forfeit-fee estimator: a
// legacy P2PKH input (the Server's forfeit-collection input), one
// tapscript-spend input per owned VTXO, and a single P2WPKH change
// output.
const (
	p2pkhInputWeight     = 148 * 4 // outpoint(36)+len(1)+sig(~107)+seq(4), scaled as base bytes *4
	p2wpkhOutputWeight   = 31 * 4
	baseTxOverheadWeight = 10 * 4

	schnorrSigSize = 64
)

// EstimateForfeitVSize returns the estimated virtual size, in vbytes, of a
// forfeit transaction carrying one tapscript input whose leaf script is
// scriptSize bytes long and whose control block is controlBlockSize bytes
// long (BIP-341 key-path vs script-path witnesses differ only in these two
// fields beyond the fixed 2-schnorr-signature witness stack).
func EstimateForfeitVSize(scriptSize, controlBlockSize int) int64 {
	witnessWeight := (2*schnorrSigSize + scriptSize + controlBlockSize + 4) // +4 for varint/stack-count overhead
	tapscriptInputWeight := 41*4 + witnessWeight

	totalWeight := baseTxOverheadWeight + p2pkhInputWeight + tapscriptInputWeight + p2wpkhOutputWeight
	return int64(math.Ceil(float64(totalWeight) / 4))
}

// EstimateForfeitFee converts EstimateForfeitVSize into a fee in
// satoshis at the given relay fee rate (sat/vbyte).
func EstimateForfeitFee(scriptSize, controlBlockSize int, minRelayFeeRate float64) int64 {
	vsize := EstimateForfeitVSize(scriptSize, controlBlockSize)
	return int64(math.Ceil(float64(vsize) * minRelayFeeRate))
}
