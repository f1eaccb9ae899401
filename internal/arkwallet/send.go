package arkwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"

	"github.com/arkwallet/client-core/internal/arkscript"
	"github.com/arkwallet/client-core/internal/arktx"
)

// SendResult is the prepared, unsigned virtual transaction for an
// off-chain send, plus the coin-selection bookkeeping that produced it.
type SendResult struct {
	Packet       *psbt.Packet
	Selected     []VirtualCoin
	ChangeAmount uint64
}

// SendBitcoin builds an unsigned virtual transaction paying amount to
// destAddress (an Ark bech32m address), selecting from the wallet's
// spendable VTXOs and returning change to this wallet's own address when
// the leftover exceeds dust. The caller is responsible for running the
// result through a settlement round or a direct off-chain send flow.
func (w *Wallet) SendBitcoin(destAddress string, amount uint64, feeRate float64) (*SendResult, error) {
	dest, err := arkscript.DecodeAddress(destAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	w.mu.RLock()
	dust := w.dustAmount
	w.mu.RUnlock()

	if amount < dust {
		return nil, ErrDustAmount
	}

	selection, err := SelectCoins(w.SpendableVtxos(), amount, feeRate, dust)
	if err != nil {
		return nil, err
	}

	inputs := make([]arktx.VirtualTxInput, len(selection.Selected))
	for i, coin := range selection.Selected {
		leaves := coin.Script.Leaves()
		if len(leaves) == 0 {
			return nil, fmt.Errorf("vtxo %s has no spendable leaf", coin.Outpoint)
		}
		leafHash := arkscript.LeafHash(leaves[0])
		leaf, err := coin.Script.FindLeaf(leafHash)
		if err != nil {
			return nil, err
		}
		pkScript, err := coin.Script.PkScript()
		if err != nil {
			return nil, err
		}
		inputs[i] = arktx.VirtualTxInput{
			Outpoint:    wireOutPoint(coin.Outpoint),
			WitnessUtxo: newTxOut(int64(coin.Value), pkScript),
			Leaf:        leaf,
		}
	}

	destOutput, err := arktx.ArkOutput(dest.VtxoKey, int64(amount))
	if err != nil {
		return nil, err
	}
	outputs := []arktx.VirtualTxOutput{destOutput}

	if selection.Change > 0 {
		changeOutput, err := arktx.ArkOutput(w.OwnVtxoKey(), int64(selection.Change))
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, changeOutput)
	}

	packet, err := arktx.BuildVirtualTx(inputs, outputs, false)
	if err != nil {
		return nil, err
	}

	return &SendResult{
		Packet:       packet,
		Selected:     selection.Selected,
		ChangeAmount: selection.Change,
	}, nil
}
