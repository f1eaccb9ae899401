package arktx

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// BuildForfeitTx builds the cooperative-spend transaction a VTXO holder
// signs to surrender their unilateral-exit right: a single output paying
// the Server's forfeit address plus a zero-value anchor output.
func BuildForfeitTx(inputs []VirtualTxInput, forfeitOutputScript []byte, forfeitAmount int64) (*psbt.Packet, error) {
	outputs := []VirtualTxOutput{{PkScript: forfeitOutputScript, Amount: forfeitAmount}}
	return BuildVirtualTx(inputs, outputs, true)
}

// ConnectorInput is one connector-tree output a forfeit transaction may be
// paired with.
type ConnectorInput struct {
	Outpoint    wire.OutPoint
	WitnessUtxo *wire.TxOut
}

// SignedForfeit wraps a fully-signed forfeit transaction for submission to
// the Server. The packet is ready to finalize once the Server has confirmed
// connector selection.
type SignedForfeit struct {
	Packet *psbt.Packet
}

// BuildForfeitTxsWithConnectors produces one forfeit transaction per
// supplied connector, consuming the VTXO input alongside each connector;
// connectors are not filtered by amount, and each forfeit output carries
// the connector's value. When the VTXO's selected leaf carries no locktime the VTXO
// input uses SIGHASH_DEFAULT; when the signer is delegating connector
// selection to the Server it instead uses SIGHASH_ALL|ANYONECANPAY so the
// Server may freely choose which connector completes the transaction.
func BuildForfeitTxsWithConnectors(
	vtxoInput VirtualTxInput,
	forfeitOutputScript []byte,
	connectors []ConnectorInput,
	delegateConnectorSelection bool,
) ([]*psbt.Packet, error) {
	if len(connectors) == 0 {
		return nil, fmt.Errorf("%w: no connectors supplied", ErrNoInputs)
	}

	sigHash := txscript.SigHashDefault
	if vtxoInput.AbsoluteLocktime != nil {
		sigHash = txscript.SigHashAll
	}
	if delegateConnectorSelection {
		sigHash = txscript.SigHashAll | txscript.SigHashAnyOneCanPay
	}

	txs := make([]*psbt.Packet, 0, len(connectors))
	for _, conn := range connectors {
		inputs := []VirtualTxInput{
			vtxoInput,
			{Outpoint: conn.Outpoint, WitnessUtxo: conn.WitnessUtxo},
		}
		outputs := []VirtualTxOutput{{PkScript: forfeitOutputScript, Amount: conn.WitnessUtxo.Value}}
		packet, err := BuildVirtualTx(inputs, outputs, true)
		if err != nil {
			return nil, err
		}
		packet.Inputs[0].SighashType = sigHash
		txs = append(txs, packet)
	}
	return txs, nil
}
