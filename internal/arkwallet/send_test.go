package arkwallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/require"

	"github.com/arkwallet/client-core/internal/arkscript"
)

func xOnlyOf(key *btcec.PrivateKey) [32]byte {
	var out [32]byte
	copy(out[:], schnorr.SerializePubKey(key.PubKey()))
	return out
}

func TestSendBitcoinBuildsPacketWithChange(t *testing.T) {
	ownerKey := newTestKey(t)
	serverKey := newTestKey(t)
	destKey := newTestKey(t)
	var serverTag [32]byte

	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)
	w.SetCoins([]VirtualCoin{
		newTestVirtualCoin(t, ownerKey, serverKey, 10000, VtxoSettled),
	}, nil)

	var destTag [32]byte
	copy(destTag[:], schnorr.SerializePubKey(serverKey.PubKey()))
	destAddr, err := arkscript.EncodeAddress(destTag, xOnlyOf(destKey), arkscript.HRPTestnet)
	require.NoError(t, err)

	result, err := w.SendBitcoin(destAddr, 3000, 1.0)
	require.NoError(t, err)
	require.Len(t, result.Packet.UnsignedTx.TxOut, 2)
	require.Equal(t, int64(3000), result.Packet.UnsignedTx.TxOut[0].Value)
	require.Greater(t, result.ChangeAmount, uint64(0))
	require.Equal(t, result.Packet.UnsignedTx.TxOut[1].Value, int64(result.ChangeAmount))
}

func TestSendBitcoinOmitsChangeOutputWhenExact(t *testing.T) {
	ownerKey := newTestKey(t)
	serverKey := newTestKey(t)
	destKey := newTestKey(t)
	var serverTag [32]byte

	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)
	coin := newTestVirtualCoin(t, ownerKey, serverKey, 1070, VtxoSettled)
	w.SetCoins([]VirtualCoin{coin}, nil)

	var destTag [32]byte
	destAddr, err := arkscript.EncodeAddress(destTag, xOnlyOf(destKey), arkscript.HRPTestnet)
	require.NoError(t, err)

	// fee for a single-input, 1.0 sat/vbyte selection is exactly 125 sats,
	// so a 945-sat send against a 1070-sat coin leaves zero change.
	result, err := w.SendBitcoin(destAddr, 945, 1.0)
	require.NoError(t, err)
	require.Len(t, result.Packet.UnsignedTx.TxOut, 1)
	require.Equal(t, uint64(0), result.ChangeAmount)
}

func TestSendBitcoinRejectsInvalidDestination(t *testing.T) {
	ownerKey := newTestKey(t)
	var serverTag [32]byte
	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)

	_, err := w.SendBitcoin("not-an-address", 1000, 1.0)
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSendBitcoinRejectsDustAmount(t *testing.T) {
	ownerKey := newTestKey(t)
	serverKey := newTestKey(t)
	destKey := newTestKey(t)
	var serverTag [32]byte

	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)
	w.SetCoins([]VirtualCoin{newTestVirtualCoin(t, ownerKey, serverKey, 10000, VtxoSettled)}, nil)

	var destTag [32]byte
	destAddr, err := arkscript.EncodeAddress(destTag, xOnlyOf(destKey), arkscript.HRPTestnet)
	require.NoError(t, err)

	_, err = w.SendBitcoin(destAddr, 10, 1.0)
	require.ErrorIs(t, err, ErrDustAmount)
}

func TestSendBitcoinRejectsInsufficientFunds(t *testing.T) {
	ownerKey := newTestKey(t)
	serverKey := newTestKey(t)
	destKey := newTestKey(t)
	var serverTag [32]byte

	w := NewWallet(ownerKey, serverTag, arkscript.HRPTestnet)
	w.SetCoins([]VirtualCoin{newTestVirtualCoin(t, ownerKey, serverKey, 1000, VtxoSettled)}, nil)

	var destTag [32]byte
	destAddr, err := arkscript.EncodeAddress(destTag, xOnlyOf(destKey), arkscript.HRPTestnet)
	require.NoError(t, err)

	_, err = w.SendBitcoin(destAddr, 100000, 1.0)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}
