package txtree

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkwallet/client-core/internal/arktx"
	"github.com/arkwallet/client-core/internal/musig2tree"
)

// ValidateVtxoTxTree checks a freshly-received VTXO tree against the
// commitment transaction and the Server's sweep tap-tree root, per the
// transaction-tree invariants: the root spends the known batch output,
// every child's cosigner-set aggregate (taproot-tweaked with the sweep
// root) equals its parent output key, and amounts balance top to bottom.
func ValidateVtxoTxTree(tree *Tree, commitmentTx *wire.MsgTx, batchOutputIndex int, sweepTapTreeRoot []byte) error {
	return validateTree(tree, commitmentTx, batchOutputIndex, sweepTapTreeRoot)
}

// ValidateConnectorsTxTree is the same contract as ValidateVtxoTxTree, but
// anchored to the commitment's connectors-output index instead of the
// batch-output index.
func ValidateConnectorsTxTree(tree *Tree, commitmentTx *wire.MsgTx, connectorsOutputIndex int, sweepTapTreeRoot []byte) error {
	return validateTree(tree, commitmentTx, connectorsOutputIndex, sweepTapTreeRoot)
}

func validateTree(tree *Tree, commitmentTx *wire.MsgTx, anchorOutputIndex int, sweepTapTreeRoot []byte) error {
	root, err := tree.Root()
	if err != nil {
		return err
	}
	if len(root.Tx.UnsignedTx.TxIn) == 0 {
		return fmt.Errorf("%w: root has no inputs", ErrWrongCommitmentTxid)
	}

	commitmentTxid := commitmentTx.TxHash()
	rootIn := root.Tx.UnsignedTx.TxIn[0].PreviousOutPoint
	if rootIn.Hash != commitmentTxid || int(rootIn.Index) != anchorOutputIndex {
		return ErrWrongCommitmentTxid
	}
	if anchorOutputIndex >= len(commitmentTx.TxOut) || commitmentTx.TxOut[anchorOutputIndex].Value <= 0 {
		return ErrInvalidAmount
	}

	rootOutputSum := int64(0)
	for _, out := range root.Tx.UnsignedTx.TxOut {
		rootOutputSum += out.Value
	}
	if rootOutputSum != commitmentTx.TxOut[anchorOutputIndex].Value {
		return ErrInvalidAmount
	}

	hasLeaf := false
	for _, level := range tree.Levels() {
		for _, node := range level {
			if node.Leaf {
				hasLeaf = true
			}

			computedTxid := node.Tx.UnsignedTx.TxHash()
			if computedTxid != node.Txid {
				return fmt.Errorf("%w: node %s recomputed as %s", ErrTxidMismatch, node.Txid, computedTxid)
			}

			if node.IsRoot {
				continue
			}

			parent, err := tree.ByTxid(node.ParentTxid)
			if err != nil {
				return err
			}

			parentOutIdx := node.Tx.UnsignedTx.TxIn[0].PreviousOutPoint.Index
			if int(parentOutIdx) >= len(parent.Tx.UnsignedTx.TxOut) {
				return fmt.Errorf("%w: parent output index out of range", ErrInvalidAmount)
			}
			parentOut := parent.Tx.UnsignedTx.TxOut[parentOutIdx]

			childOutputSum := int64(0)
			for _, out := range node.Tx.UnsignedTx.TxOut {
				childOutputSum += out.Value
			}
			if childOutputSum != parentOut.Value {
				return ErrInvalidAmount
			}

			if len(node.Tx.Inputs) == 0 {
				return fmt.Errorf("%w: node has no PSBT input", ErrMissingCosigners)
			}
			cosigners, err := arktx.CosignerPubKeys(&node.Tx.Inputs[0])
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMissingCosigners, err)
			}
			if len(cosigners) == 0 {
				return ErrMissingCosigners
			}

			finalKey, err := musig2tree.AggregateKeys(cosigners, sweepTapTreeRoot)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidTaprootScript, err)
			}

			parentXOnly, err := xOnlyFromP2TR(parentOut.PkScript)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidTaprootScript, err)
			}
			if parentXOnly != [32]byte(schnorr.SerializePubKey(finalKey)) {
				return ErrInvalidTaprootScript
			}
		}
	}

	if !hasLeaf {
		return ErrNoLeaves
	}
	return nil
}

func xOnlyFromP2TR(pkScript []byte) ([32]byte, error) {
	var out [32]byte
	if len(pkScript) != 34 || pkScript[0] != txscript.OP_1 || pkScript[1] != txscript.OP_DATA_32 {
		return out, fmt.Errorf("not a P2TR script")
	}
	copy(out[:], pkScript[2:])
	return out, nil
}

// Receiver is an expected output of a settlement round, as registered by
// the client in its intent.
type Receiver struct {
	XOnlyKey [32]byte
	Amount   int64
	Assets   []ReceiverAsset
}

// ReceiverAsset is an expected asset-packet allocation on the receiver's
// output.
type ReceiverAsset struct {
	AssetID [34]byte
	Amount  uint64
}

// AssetPacketLookup resolves the asset groups carried by the leaf tx
// containing a given output, used to cross-check ReceiverAsset entries
// without txtree depending on the asset package directly.
type AssetPacketLookup func(leaf *TreeNode, vout uint32, assetID [34]byte) (amount uint64, found bool)

// ValidateReceivers checks that every expected receiver output exists among
// the tree's leaves with the right amount, and (if assets are expected)
// that the leaf's asset packet allocates the right amount to that output.
// This guards against a malicious Server omitting or altering a user's
// output during a round.
func ValidateReceivers(tree *Tree, receivers []Receiver, lookupAsset AssetPacketLookup) error {
	for _, recv := range receivers {
		leaf, vout, ok := findReceiverOutput(tree, recv)
		if !ok {
			return ErrReceiverOutputNotFound
		}
		for _, asset := range recv.Assets {
			if lookupAsset == nil {
				return ErrAssetGroupNotFound
			}
			amount, found := lookupAsset(leaf, vout, asset.AssetID)
			if !found {
				return ErrAssetOutputNotFound
			}
			if amount != asset.Amount {
				return ErrInvalidAssetAmount
			}
		}
	}
	return nil
}

func findReceiverOutput(tree *Tree, recv Receiver) (*TreeNode, uint32, bool) {
	for _, leaf := range tree.Leaves() {
		for i, out := range leaf.Tx.UnsignedTx.TxOut {
			xOnly, err := xOnlyFromP2TR(out.PkScript)
			if err != nil {
				continue
			}
			if xOnly == recv.XOnlyKey && out.Value == recv.Amount {
				return leaf, uint32(i), true
			}
		}
	}
	return nil, 0, false
}
