package arktx

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/stretchr/testify/require"
)

func TestCosignerPubKeyRoundTrip(t *testing.T) {
	in := &psbt.PInput{}
	k1 := make([]byte, 33)
	k1[0] = 0x02
	k2 := make([]byte, 33)
	k2[0] = 0x03

	require.NoError(t, AddCosignerPubKey(in, k1))
	require.NoError(t, AddCosignerPubKey(in, k2))

	keys, err := CosignerPubKeys(in)
	require.NoError(t, err)
	require.Equal(t, [][]byte{k1, k2}, keys)
}

func TestCosignerPubKeyRejectsWrongLength(t *testing.T) {
	in := &psbt.PInput{}
	err := AddCosignerPubKey(in, []byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrMalformedField)
}

func TestVtxoTaprootTreeRoundTrip(t *testing.T) {
	in := &psbt.PInput{}
	leaves := [][]byte{{0x01, 0x02}, {0x03}, {}}
	require.NoError(t, SetVtxoTaprootTree(in, leaves))

	got, err := VtxoTaprootTree(in)
	require.NoError(t, err)
	require.Equal(t, leaves, got)
}

func TestConditionWitnessRoundTrip(t *testing.T) {
	in := &psbt.PInput{}
	witness := [][]byte{{0xAA}, {0xBB, 0xCC}}
	require.NoError(t, SetConditionWitness(in, witness))

	got, err := ConditionWitness(in)
	require.NoError(t, err)
	require.Equal(t, witness, got)
}

func TestVtxoTreeExpiryRoundTrip(t *testing.T) {
	in := &psbt.PInput{}
	_, ok, err := VtxoTreeExpiry(in)
	require.NoError(t, err)
	require.False(t, ok)

	SetVtxoTreeExpiry(in, 144)
	v, ok, err := VtxoTreeExpiry(in)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(144), v)
}
