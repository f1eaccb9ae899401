package arkwallet

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/arkwallet/client-core/internal/arkscript"
	"github.com/arkwallet/client-core/internal/settlement"
)

// Balance is a rollup of the wallet's spendable value by lifecycle stage.
type Balance struct {
	Settled      uint64
	Preconfirmed uint64
	Boarding     uint64
}

// Wallet orchestrates the script, coin-selection, and settlement layers
// over one identity's VTXO and boarding-UTXO set.
type Wallet struct {
	mu sync.RWMutex

	ownKey       *btcec.PrivateKey
	serverPubKey [32]byte
	hrp          string

	vtxos    []VirtualCoin
	boarding []BoardingUtxo

	dustAmount uint64
}

// NewWallet creates a wallet for the given identity key, HRP, and the
// Server's address tag.
func NewWallet(ownKey *btcec.PrivateKey, serverPubKey [32]byte, hrp string) *Wallet {
	return &Wallet{
		ownKey:       ownKey,
		serverPubKey: serverPubKey,
		hrp:          hrp,
		dustAmount:   DustAmount,
	}
}

// SetDustAmount overrides the dust threshold, typically sourced from the
// Server's get_info() response rather than hardcoded.
func (w *Wallet) SetDustAmount(dust uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dustAmount = dust
}

// SetCoins replaces the wallet's known coin set, as refreshed from the
// Server's get_vtxos and the block explorer's get_coins.
func (w *Wallet) SetCoins(vtxos []VirtualCoin, boarding []BoardingUtxo) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vtxos = vtxos
	w.boarding = boarding
}

// OwnVtxoKey returns the x-only public key identifying this wallet's
// VTXOs, as used in the address and in script templates.
func (w *Wallet) OwnVtxoKey() [32]byte {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out [32]byte
	copy(out[:], schnorr.SerializePubKey(w.ownKey.PubKey()))
	return out
}

// Address returns this wallet's Ark address.
func (w *Wallet) Address() (string, error) {
	vtxoKey := w.OwnVtxoKey()
	w.mu.RLock()
	defer w.mu.RUnlock()
	return arkscript.EncodeAddress(w.serverPubKey, vtxoKey, w.hrp)
}

// Balance rolls up the wallet's unspent coins by lifecycle stage.
func (w *Wallet) Balance() Balance {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var b Balance
	for _, v := range w.vtxos {
		if v.IsSpent {
			continue
		}
		switch v.VirtualStatus.State {
		case VtxoSettled:
			b.Settled += v.Value
		case VtxoPreconfirmed:
			b.Preconfirmed += v.Value
		}
	}
	for _, u := range w.boarding {
		b.Boarding += u.Value
	}
	return b
}

// SpendableVtxos returns every unspent, unswept VTXO.
func (w *Wallet) SpendableVtxos() []VirtualCoin {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]VirtualCoin, 0, len(w.vtxos))
	for _, v := range w.vtxos {
		if !v.IsSpent && v.VirtualStatus.State != VtxoSwept {
			out = append(out, v)
		}
	}
	return out
}

// OwnedVtxos implements settlement.WalletView.
func (w *Wallet) OwnedVtxos() []settlement.OwnedVtxo {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]settlement.OwnedVtxo, 0, len(w.vtxos))
	for _, v := range w.vtxos {
		if v.IsSpent {
			continue
		}
		pkScript, err := v.Script.PkScript()
		if err != nil {
			continue
		}
		forfeitLeaf, err := forfeitLeafFor(v.Script)
		if err != nil {
			continue
		}
		out = append(out, settlement.OwnedVtxo{
			Outpoint:    wireOutPoint(v.Outpoint),
			Amount:      int64(v.Value),
			Script:      pkScript,
			ForfeitLeaf: forfeitLeaf,
			PrivateKey:  w.ownKey,
		})
	}
	return out
}

// BoardingInputs implements settlement.WalletView.
func (w *Wallet) BoardingInputs() []settlement.BoardingInput {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]settlement.BoardingInput, 0, len(w.boarding))
	for _, b := range w.boarding {
		pkScript, err := b.Script.PkScript()
		if err != nil {
			continue
		}
		out = append(out, settlement.BoardingInput{
			Outpoint:    wireOutPoint(b.Outpoint),
			WitnessUtxo: newTxOut(int64(b.Value), pkScript),
			PrivateKey:  w.ownKey,
		})
	}
	return out
}

// ForfeitOutputScript implements settlement.WalletView: the Server's
// cooperative-close destination, currently the wallet's own taproot
// output (a real deployment sources this from get_info()).
func (w *Wallet) ForfeitOutputScript() []byte {
	w.mu.RLock()
	defer w.mu.RUnlock()
	xOnly := schnorr.SerializePubKey(w.ownKey.PubKey())
	script := make([]byte, 0, 34)
	script = append(script, 0x51, 0x20)
	return append(script, xOnly...)
}

// forfeitLeafFor selects the cooperative forfeit leaf from a VTXO's
// script tree: by convention the first leaf in tree order, matching the
// script templates' construction order for forfeit-eligible trees.
func forfeitLeafFor(tree *arkscript.VtxoTree) (*arkscript.TapLeafScript, error) {
	leaves := tree.Leaves()
	if len(leaves) == 0 {
		return nil, fmt.Errorf("vtxo script has no leaves")
	}
	leafHash := arkscript.LeafHash(leaves[0])
	return tree.FindLeaf(leafHash)
}
