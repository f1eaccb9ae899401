package arkwallet

import "sort"

// DustAmount is the minimum value considered worth creating an output
// for. Callers should prefer the Server's reported dust_amount where
// available; this value is used only as a sane local default.
const DustAmount = uint64(546)

// baseTxOverheadVBytes, perCoinVBytes and changeOutputVBytes approximate an
// off-chain send: fixed overhead plus one tapscript-spend input per selected
// coin plus a change output.
const (
	baseTxOverheadVBytes = 12
	perCoinVBytes        = 70
	changeOutputVBytes   = 43
)

// SelectionResult is the outcome of a successful coin selection.
type SelectionResult struct {
	Selected []VirtualCoin
	Total    uint64
	Fee      uint64
	Change   uint64
}

// SelectCoins picks a subset of coins covering target plus the fee
// implied by the final input/output count, at feeRate sat/vbyte. It
// first looks for a single coin that alone covers the requirement (to
// avoid needlessly combining small coins), then falls back to
// accumulating coins smallest-first. If the resulting change would be
// non-zero but below dust, it is added to the fee rather than left as an
// unspendable output.
func SelectCoins(coins []VirtualCoin, target uint64, feeRate float64, dust uint64) (*SelectionResult, error) {
	if len(coins) == 0 {
		return nil, ErrNoCoins
	}
	if target < dust {
		return nil, ErrDustAmount
	}

	sorted := make([]VirtualCoin, len(coins))
	copy(sorted, coins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })

	if idx, ok := findSingleCoinCover(sorted, target, feeRate); ok {
		return finalizeSelection(sorted[idx:idx+1], target, feeRate, dust)
	}

	var selected []VirtualCoin
	var total uint64
	for _, c := range sorted {
		selected = append(selected, c)
		total += c.Value
		fee := estimateFee(len(selected), feeRate)
		if total >= target+fee {
			return finalizeSelection(selected, target, feeRate, dust)
		}
	}
	return nil, ErrInsufficientFunds
}

// findSingleCoinCover returns the index of the smallest coin that alone
// covers target plus a one-input fee, if any.
func findSingleCoinCover(ascending []VirtualCoin, target uint64, feeRate float64) (int, bool) {
	fee := estimateFee(1, feeRate)
	for i, c := range ascending {
		if c.Value >= target+fee {
			return i, true
		}
	}
	return 0, false
}

func finalizeSelection(selected []VirtualCoin, target uint64, feeRate float64, dust uint64) (*SelectionResult, error) {
	total := uint64(0)
	for _, c := range selected {
		total += c.Value
	}
	fee := estimateFee(len(selected), feeRate)
	if total < target+fee {
		return nil, ErrInsufficientFunds
	}
	change := total - target - fee
	if change > 0 && change < dust {
		// Absorbing the dust into the fee is preferable to leaving an
		// unspendable change output or silently dropping value.
		fee += change
		change = 0
	}
	return &SelectionResult{Selected: selected, Total: total, Fee: fee, Change: change}, nil
}

func estimateFee(numInputs int, feeRate float64) uint64 {
	vsize := baseTxOverheadVBytes + numInputs*perCoinVBytes + changeOutputVBytes
	return uint64(float64(vsize) * feeRate)
}
