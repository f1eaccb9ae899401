package intent

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestTaggedHashSensitiveToMessage(t *testing.T) {
	a := TaggedHash(tagIntentProofMessage, []byte("one"))
	b := TaggedHash(tagIntentProofMessage, []byte("two"))
	require.NotEqual(t, a, b)
}

func TestTaggedHashSensitiveToTag(t *testing.T) {
	a := TaggedHash("tag-a", []byte("msg"))
	b := TaggedHash("tag-b", []byte("msg"))
	require.NotEqual(t, a, b)
}

func TestRegisterMessageCanonicalEncoding(t *testing.T) {
	msg := RegisterMessage{
		OnchainOutputIndexes: []int{0, 2},
		ValidAt:              100,
		ExpireAt:             200,
		CosignersPublicKeys:  []string{"aa", "bb"},
	}
	want := `{"type":"register","onchain_output_indexes":[0,2],"valid_at":100,"expire_at":200,"cosigners_public_keys":["aa","bb"]}`
	require.Equal(t, want, string(Encode(msg)))
}

func TestDeleteMessageCanonicalEncoding(t *testing.T) {
	msg := DeleteMessage{ExpireAt: 42}
	require.Equal(t, `{"type":"delete","expire_at":42}`, string(Encode(msg)))
}

func TestGetPendingTxMessageCanonicalEncoding(t *testing.T) {
	msg := GetPendingTxMessage{ExpireAt: 7}
	require.Equal(t, `{"type":"get-pending-tx","expire_at":7}`, string(Encode(msg)))
}

func TestBuildToSpendRejectsEmptyScript(t *testing.T) {
	_, err := BuildToSpend(nil, DeleteMessage{ExpireAt: 1})
	require.ErrorIs(t, err, ErrMissingScript)
}

func TestBuildToSpendCommitsToMessage(t *testing.T) {
	script := []byte{0x51, 0x20}
	txA, err := BuildToSpend(script, DeleteMessage{ExpireAt: 1})
	require.NoError(t, err)
	txB, err := BuildToSpend(script, DeleteMessage{ExpireAt: 2})
	require.NoError(t, err)

	require.NotEqual(t, txA.TxHash(), txB.TxHash())
	require.Equal(t, uint32(0xFFFFFFFF), txA.TxIn[0].PreviousOutPoint.Index)
	require.Equal(t, uint32(0), txA.TxIn[0].Sequence)
	require.Equal(t, script, []byte(txA.TxOut[0].PkScript))
}

func TestBuildToSignStructure(t *testing.T) {
	script := []byte{0x51, 0x20}
	toSpend, err := BuildToSpend(script, DeleteMessage{ExpireAt: 1})
	require.NoError(t, err)

	extra := ProvingInput{
		Outpoint:    wire.OutPoint{Index: 0},
		WitnessUtxo: wire.NewTxOut(1000, script),
	}

	packet, err := BuildToSign(toSpend, script, []ProvingInput{extra}, nil, 0)
	require.NoError(t, err)

	require.Equal(t, int32(2), packet.UnsignedTx.Version)
	require.Len(t, packet.UnsignedTx.TxIn, 2)
	require.Equal(t, toSpend.TxHash(), packet.UnsignedTx.TxIn[0].PreviousOutPoint.Hash)
	require.Len(t, packet.UnsignedTx.TxOut, 1)
	require.Equal(t, []byte{0x6a}, []byte(packet.UnsignedTx.TxOut[0].PkScript)) // OP_RETURN
}

func TestBuildToSignPreservesProvidedOutputs(t *testing.T) {
	script := []byte{0x51, 0x20}
	toSpend, err := BuildToSpend(script, DeleteMessage{ExpireAt: 1})
	require.NoError(t, err)

	outputs := []ProofOutput{{PkScript: []byte{0x51, 0x20}, Amount: 5000}}
	packet, err := BuildToSign(toSpend, script, nil, outputs, 0)
	require.NoError(t, err)

	require.Len(t, packet.UnsignedTx.TxOut, 1)
	require.Equal(t, int64(5000), packet.UnsignedTx.TxOut[0].Value)
}
