package arktx

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkwallet/client-core/internal/arkscript"
)

// absoluteLocktimeThreshold is BIP-65's height/time boundary: values below
// it are a block height, values at or above it are a unix timestamp.
const absoluteLocktimeThreshold = 500_000_000

// p2aAnchorScript is the zero-value "pay to anchor" output `OP_1 0x4e73`
// appended to forfeit/virtual transactions so any party can CPFP-bump them.
var p2aAnchorScript = []byte{txscript.OP_1, 0x02, 0x4e, 0x73}

// VirtualTxInput is one spend of a VTXO (or boarding UTXO) into a virtual
// or forfeit transaction.
type VirtualTxInput struct {
	Outpoint        wire.OutPoint
	WitnessUtxo     *wire.TxOut
	Leaf            *arkscript.TapLeafScript
	VtxoTree        [][]byte // full leaf list, for the taptree custom field
	CosignerPubKeys [][]byte

	// AbsoluteLocktime is non-nil when the selected leaf is a CLTV
	// template; its value is a height or a unix time depending on
	// magnitude (see absoluteLocktimeThreshold).
	AbsoluteLocktime *uint32
}

// VirtualTxOutput is a transaction output, either an Ark address (encoded
// as a P2TR output of the embedded VTXO key) or an arbitrary script.
type VirtualTxOutput struct {
	PkScript []byte
	Amount   int64
}

// ArkOutput builds a VirtualTxOutput paying an Ark address's VTXO key as a
// plain P2TR output (OP_1 <vtxo_key>); the server_pubkey tag in the address
// is informational only and not part of the on-chain script.
func ArkOutput(vtxoXOnlyKey [32]byte, amount int64) (VirtualTxOutput, error) {
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_1)
	builder.AddData(vtxoXOnlyKey[:])
	script, err := builder.Script()
	if err != nil {
		return VirtualTxOutput{}, err
	}
	return VirtualTxOutput{PkScript: script, Amount: amount}, nil
}

// BuildVirtualTx builds a protocol "virtual transaction": a PSBT spending
// one or more VTXO/boarding inputs via their selected script-tree leaf,
// paying the given outputs, with the protocol's custom fields attached.
// withAnchor appends a zero-value P2A anchor output (forfeit/anchor flow).
func BuildVirtualTx(inputs []VirtualTxInput, outputs []VirtualTxOutput, withAnchor bool) (*psbt.Packet, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}

	lockTime, hasLocktime, err := combinedLocktime(inputs)
	if err != nil {
		return nil, err
	}

	outPoints := make([]*wire.OutPoint, len(inputs))
	sequences := make([]uint32, len(inputs))
	for i, in := range inputs {
		op := in.Outpoint
		outPoints[i] = &op
		if hasLocktime {
			sequences[i] = math.MaxUint32 - 1
		} else {
			sequences[i] = math.MaxUint32
		}
	}

	txOuts := make([]*wire.TxOut, 0, len(outputs)+1)
	for _, o := range outputs {
		txOuts = append(txOuts, wire.NewTxOut(o.Amount, o.PkScript))
	}
	if withAnchor {
		txOuts = append(txOuts, wire.NewTxOut(0, p2aAnchorScript))
	}

	version := int32(2)
	if withAnchor {
		version = 3
	}
	packet, err := psbt.New(outPoints, txOuts, version, lockTime, sequences)
	if err != nil {
		return nil, fmt.Errorf("failed to build virtual tx: %w", err)
	}

	for i, in := range inputs {
		pin := &packet.Inputs[i]
		pin.WitnessUtxo = in.WitnessUtxo
		if in.Leaf != nil {
			pin.TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
				ControlBlock: in.Leaf.ControlBlock,
				Script:       in.Leaf.Script,
				LeafVersion:  in.Leaf.Version,
			}}
		}
		if len(in.VtxoTree) > 0 {
			if err := SetVtxoTaprootTree(pin, in.VtxoTree); err != nil {
				return nil, err
			}
		}
		for _, pk := range in.CosignerPubKeys {
			if err := AddCosignerPubKey(pin, pk); err != nil {
				return nil, err
			}
		}
	}

	return packet, nil
}

// combinedLocktime resolves the transaction-wide lockTime per the
// "maximum absolute timelock among CLTV inputs" rule, rejecting inputs
// that mix height-based and time-based units.
func combinedLocktime(inputs []VirtualTxInput) (uint32, bool, error) {
	var (
		max       uint32
		have      bool
		sawHeight bool
		sawTime   bool
	)
	for _, in := range inputs {
		if in.AbsoluteLocktime == nil {
			continue
		}
		v := *in.AbsoluteLocktime
		if v >= absoluteLocktimeThreshold {
			sawTime = true
		} else {
			sawHeight = true
		}
		if sawHeight && sawTime {
			return 0, false, ErrMixedLocktimeUnits
		}
		if !have || v > max {
			max = v
			have = true
		}
	}
	return max, have, nil
}
