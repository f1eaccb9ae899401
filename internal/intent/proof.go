package intent

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkwallet/client-core/internal/arktx"
)

const tagIntentProofMessage = "ark-intent-proof-message"

// TaggedHash implements the BIP-340 tagged hash construction used to bind
// a message into the to_spend scriptSig: SHA256(SHA256(tag) ||
// SHA256(tag) || msg).
func TaggedHash(tag string, msg []byte) chainhash.Hash {
	tagHash := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	h.Write(msg)
	var out chainhash.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ProvingInput is one additional input of the to_sign transaction beyond
// the mandatory to_spend anchor input.
type ProvingInput struct {
	Outpoint         wire.OutPoint
	WitnessUtxo      *wire.TxOut
	VtxoTaprootTree  [][]byte
	ConditionWitness [][]byte
}

// ProofOutput is one output of the to_sign transaction.
type ProofOutput struct {
	PkScript []byte
	Amount   int64
}

// BuildToSpend constructs the non-broadcastable anchor transaction
// committing to message via its tagged-hash scriptSig.
func BuildToSpend(firstInputPkScript []byte, message Message) (*wire.MsgTx, error) {
	if len(firstInputPkScript) == 0 {
		return nil, ErrMissingScript
	}

	msgHash := TaggedHash(tagIntentProofMessage, Encode(message))

	scriptSig, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(msgHash[:]).
		Script()
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(0)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{}, Index: 0xFFFFFFFF},
		SignatureScript:  scriptSig,
		Sequence:         0,
	})
	tx.AddTxOut(wire.NewTxOut(0, firstInputPkScript))
	return tx, nil
}

// BuildToSign constructs the PSBT that is actually signed: it spends the
// to_spend output plus any additional inputs_to_prove, paying the
// provided outputs (or a single OP_RETURN if none are given).
func BuildToSign(toSpend *wire.MsgTx, firstInputPkScript []byte, provingInputs []ProvingInput, outputs []ProofOutput, lockTime uint32) (*psbt.Packet, error) {
	toSpendTxid := toSpend.TxHash()

	outPoints := make([]*wire.OutPoint, 0, len(provingInputs)+1)
	sequences := make([]uint32, 0, len(provingInputs)+1)
	outPoints = append(outPoints, &wire.OutPoint{Hash: toSpendTxid, Index: 0})
	sequences = append(sequences, wire.MaxTxInSequenceNum)
	for _, in := range provingInputs {
		op := in.Outpoint
		outPoints = append(outPoints, &op)
		sequences = append(sequences, wire.MaxTxInSequenceNum)
	}

	txOuts := make([]*wire.TxOut, 0, len(outputs)+1)
	if len(outputs) == 0 {
		opReturn, err := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).Script()
		if err != nil {
			return nil, err
		}
		txOuts = append(txOuts, wire.NewTxOut(0, opReturn))
	} else {
		for _, o := range outputs {
			txOuts = append(txOuts, wire.NewTxOut(o.Amount, o.PkScript))
		}
	}

	packet, err := psbt.New(outPoints, txOuts, 2, lockTime, sequences)
	if err != nil {
		return nil, err
	}

	packet.Inputs[0].WitnessUtxo = wire.NewTxOut(0, firstInputPkScript)
	packet.Inputs[0].SighashType = txscript.SigHashAll

	for i, in := range provingInputs {
		pin := &packet.Inputs[i+1]
		pin.WitnessUtxo = in.WitnessUtxo
		pin.SighashType = txscript.SigHashAll
		if len(in.VtxoTaprootTree) > 0 {
			if err := arktx.SetVtxoTaprootTree(pin, in.VtxoTaprootTree); err != nil {
				return nil, err
			}
		}
		if len(in.ConditionWitness) > 0 {
			if err := arktx.SetConditionWitness(pin, in.ConditionWitness); err != nil {
				return nil, err
			}
		}
	}

	return packet, nil
}
