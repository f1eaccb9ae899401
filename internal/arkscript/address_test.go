package arkscript

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	var serverPubKey, vtxoKey [32]byte
	_, err := rand.Read(serverPubKey[:])
	require.NoError(t, err)
	_, err = rand.Read(vtxoKey[:])
	require.NoError(t, err)

	addr, err := EncodeAddress(serverPubKey, vtxoKey, HRPTestnet)
	require.NoError(t, err)

	decoded, err := DecodeAddress(addr)
	require.NoError(t, err)
	require.Equal(t, HRPTestnet, decoded.HRP)
	require.Equal(t, byte(AddressVersion), decoded.Version)
	require.Equal(t, serverPubKey, decoded.ServerPubKey)
	require.Equal(t, vtxoKey, decoded.VtxoKey)
}

func TestAddressRoundTripManyRandomPairs(t *testing.T) {
	for i := 0; i < 1000; i++ {
		var serverPubKey, vtxoKey [32]byte
		_, _ = rand.Read(serverPubKey[:])
		_, _ = rand.Read(vtxoKey[:])

		addr, err := EncodeAddress(serverPubKey, vtxoKey, HRPMainnet)
		require.NoError(t, err)
		decoded, err := DecodeAddress(addr)
		require.NoError(t, err)
		require.Equal(t, serverPubKey, decoded.ServerPubKey)
		require.Equal(t, vtxoKey, decoded.VtxoKey)
	}
}

func TestAddressZeroVtxoKey(t *testing.T) {
	var serverPubKey, vtxoKey [32]byte
	copy(serverPubKey[:], []byte{0xe3, 0x57, 0x99})

	addr, err := EncodeAddress(serverPubKey, vtxoKey, HRPTestnet)
	require.NoError(t, err)

	decoded, err := DecodeAddress(addr)
	require.NoError(t, err)
	require.Equal(t, vtxoKey, decoded.VtxoKey)
	require.Equal(t, serverPubKey, decoded.ServerPubKey)
}

func TestDecodeAddressRejectsBadChecksum(t *testing.T) {
	var serverPubKey, vtxoKey [32]byte
	addr, err := EncodeAddress(serverPubKey, vtxoKey, HRPTestnet)
	require.NoError(t, err)

	corrupted := addr[:len(addr)-1] + "x"
	_, err = DecodeAddress(corrupted)
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestDecodeAddressRejectsWrongLengthPayload(t *testing.T) {
	addr, err := bech32mEncode(HRPTestnet, []byte{0x00, 0x01, 0x02})
	require.NoError(t, err)
	_, err = DecodeAddress(addr)
	require.ErrorIs(t, err, ErrInvalidAddress)
}
