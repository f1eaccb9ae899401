package arktx

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func sampleInput() VirtualTxInput {
	return VirtualTxInput{
		Outpoint:    wire.OutPoint{Hash: [32]byte{1}, Index: 0},
		WitnessUtxo: wire.NewTxOut(50_000, []byte{0x51, 0x20}),
	}
}

func TestBuildVirtualTxRequiresInputsAndOutputs(t *testing.T) {
	_, err := BuildVirtualTx(nil, []VirtualTxOutput{{Amount: 1}}, false)
	require.ErrorIs(t, err, ErrNoInputs)

	_, err = BuildVirtualTx([]VirtualTxInput{sampleInput()}, nil, false)
	require.ErrorIs(t, err, ErrNoOutputs)
}

func TestBuildVirtualTxAnchorSelectsVersion3(t *testing.T) {
	out := VirtualTxOutput{PkScript: []byte{0x51, 0x20}, Amount: 1000}

	noAnchor, err := BuildVirtualTx([]VirtualTxInput{sampleInput()}, []VirtualTxOutput{out}, false)
	require.NoError(t, err)
	require.Equal(t, int32(2), noAnchor.UnsignedTx.Version)
	require.Len(t, noAnchor.UnsignedTx.TxOut, 1)

	withAnchor, err := BuildVirtualTx([]VirtualTxInput{sampleInput()}, []VirtualTxOutput{out}, true)
	require.NoError(t, err)
	require.Equal(t, int32(3), withAnchor.UnsignedTx.Version)
	require.Len(t, withAnchor.UnsignedTx.TxOut, 2)
	require.Equal(t, int64(0), withAnchor.UnsignedTx.TxOut[1].Value)
}

func TestBuildVirtualTxRejectsMixedLocktimeUnits(t *testing.T) {
	height := uint32(700_000)
	unixTime := uint32(1_700_000_000)

	in1 := sampleInput()
	in1.AbsoluteLocktime = &height
	in2 := sampleInput()
	in2.Outpoint.Index = 1
	in2.AbsoluteLocktime = &unixTime

	_, err := BuildVirtualTx([]VirtualTxInput{in1, in2}, []VirtualTxOutput{{PkScript: []byte{0x51, 0x20}, Amount: 1}}, false)
	require.ErrorIs(t, err, ErrMixedLocktimeUnits)
}

func TestBuildVirtualTxAttachesCustomFields(t *testing.T) {
	in := sampleInput()
	in.VtxoTree = [][]byte{{0x01}, {0x02}}
	in.CosignerPubKeys = [][]byte{make([]byte, 33)}

	packet, err := BuildVirtualTx([]VirtualTxInput{in}, []VirtualTxOutput{{PkScript: []byte{0x51, 0x20}, Amount: 1}}, false)
	require.NoError(t, err)

	leaves, err := VtxoTaprootTree(&packet.Inputs[0])
	require.NoError(t, err)
	require.Equal(t, in.VtxoTree, leaves)

	keys, err := CosignerPubKeys(&packet.Inputs[0])
	require.NoError(t, err)
	require.Len(t, keys, 1)
}
