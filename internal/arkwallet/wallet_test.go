package arkwallet

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/arkwallet/client-core/internal/arkscript"
)

func newTestKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

func newTestVtxoTree(t *testing.T, ownerKey, serverKey *btcec.PrivateKey) *arkscript.VtxoTree {
	t.Helper()
	ownerXOnly := schnorr.SerializePubKey(ownerKey.PubKey())
	serverXOnly := schnorr.SerializePubKey(serverKey.PubKey())
	leaf, err := arkscript.Multisig([][]byte{serverXOnly, ownerXOnly})
	require.NoError(t, err)
	tree, err := arkscript.BuildTree([][]byte{leaf})
	require.NoError(t, err)
	return tree
}

func newTestVirtualCoin(t *testing.T, ownerKey, serverKey *btcec.PrivateKey, value uint64, state VtxoState) VirtualCoin {
	t.Helper()
	var txid chainhash.Hash
	txid[0] = byte(value)
	return VirtualCoin{
		Outpoint:      Outpoint{Txid: txid, Vout: 0},
		Value:         value,
		Script:        newTestVtxoTree(t, ownerKey, serverKey),
		VirtualStatus: VirtualStatus{State: state},
		CreatedAt:     time.Now(),
	}
}

func TestWalletBalanceRollsUpByLifecycleStage(t *testing.T) {
	ownerKey := newTestKey(t)
	serverKey := newTestKey(t)
	var serverTag [32]byte

	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)
	w.SetCoins([]VirtualCoin{
		newTestVirtualCoin(t, ownerKey, serverKey, 1000, VtxoSettled),
		newTestVirtualCoin(t, ownerKey, serverKey, 2000, VtxoPreconfirmed),
	}, []BoardingUtxo{
		{Outpoint: Outpoint{Vout: 1}, Value: 5000, Script: newTestVtxoTree(t, ownerKey, serverKey), CreatedAt: time.Now()},
	})

	b := w.Balance()
	require.Equal(t, uint64(1000), b.Settled)
	require.Equal(t, uint64(2000), b.Preconfirmed)
	require.Equal(t, uint64(5000), b.Boarding)
}

func TestWalletBalanceExcludesSpentAndSweptCoins(t *testing.T) {
	ownerKey := newTestKey(t)
	serverKey := newTestKey(t)
	var serverTag [32]byte

	spent := newTestVirtualCoin(t, ownerKey, serverKey, 1000, VtxoSettled)
	spent.IsSpent = true
	swept := newTestVirtualCoin(t, ownerKey, serverKey, 3000, VtxoSwept)

	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)
	w.SetCoins([]VirtualCoin{spent, swept}, nil)

	require.Equal(t, Balance{}, w.Balance())
	require.Empty(t, w.SpendableVtxos())
}

func TestWalletAddressRoundTripsThroughDecodeAddress(t *testing.T) {
	ownerKey := newTestKey(t)
	var serverTag [32]byte
	copy(serverTag[:], schnorr.SerializePubKey(newTestKey(t).PubKey()))

	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)
	addr, err := w.Address()
	require.NoError(t, err)

	decoded, err := arkscript.DecodeAddress(addr)
	require.NoError(t, err)
	require.Equal(t, w.OwnVtxoKey(), decoded.VtxoKey)
	require.Equal(t, serverTag, decoded.ServerPubKey)
}

func TestWalletOwnedVtxosImplementsSettlementWalletView(t *testing.T) {
	ownerKey := newTestKey(t)
	serverKey := newTestKey(t)
	var serverTag [32]byte

	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)
	w.SetCoins([]VirtualCoin{
		newTestVirtualCoin(t, ownerKey, serverKey, 1000, VtxoSettled),
	}, nil)

	owned := w.OwnedVtxos()
	require.Len(t, owned, 1)
	require.Equal(t, int64(1000), owned[0].Amount)
	require.NotNil(t, owned[0].ForfeitLeaf)

	script := w.ForfeitOutputScript()
	require.Len(t, script, 34)
	require.Equal(t, byte(0x51), script[0])
}
