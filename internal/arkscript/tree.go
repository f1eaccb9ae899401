package arkscript

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// numsInternalKeyHex is the standard BIP-341 unspendable "nothing up my
// sleeve" internal key, the lift-x of SHA256("Ark-Bitcoin-VTXO-Tree")... in
// practice the well-known NUMS point used across taproot script-only trees.
const numsInternalKeyHex = "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac"

// NUMSInternalKey returns the unspendable internal key used for every VTXO
// script tree, so the key-path spend is provably unusable.
func NUMSInternalKey() (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(numsInternalKeyHex)
	if err != nil {
		return nil, err
	}
	return schnorr.ParsePubKey(b)
}

// TapLeafScript is the data needed to satisfy one leaf of a VTXO script
// tree: the leaf script, its control block material, and the leaf version.
type TapLeafScript struct {
	Version     txscript.TapscriptLeafVersion
	InternalKey *btcec.PublicKey
	ControlBlock []byte
	Script      []byte
}

// VtxoTree is an assembled taproot script tree over a fixed ordered set of
// leaves, using the shared NUMS internal key.
type VtxoTree struct {
	leaves      [][]byte
	internalKey *btcec.PublicKey
	tapTree     *txscript.IndexedTapScriptTree
	tweakedKey  *btcec.PublicKey
	leafIndex   map[chainhash.Hash]int
}

// BuildTree assembles leaves (in the given order) into a taproot tree over
// the unspendable NUMS internal key. Leaf hashes are BIP-341 tagged hashes;
// the taproot tweak is the standard BIP-341 tweak of the merkle root.
func BuildTree(leaves [][]byte) (*VtxoTree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("%w: no leaves", ErrInvalidScript)
	}
	internalKey, err := NUMSInternalKey()
	if err != nil {
		return nil, err
	}

	tapLeaves := make([]txscript.TapLeaf, len(leaves))
	leafIndex := make(map[chainhash.Hash]int, len(leaves))
	for i, leafScript := range leaves {
		tapLeaves[i] = txscript.NewBaseTapLeaf(leafScript)
		leafIndex[tapLeaves[i].TapHash()] = i
	}

	tapTree := txscript.AssembleTaprootScriptTree(tapLeaves...)
	root := tapTree.RootNode.TapHash()
	tweakedKey := txscript.ComputeTaprootOutputKey(internalKey, root[:])

	return &VtxoTree{
		leaves:      leaves,
		internalKey: internalKey,
		tapTree:     tapTree,
		tweakedKey:  tweakedKey,
		leafIndex:   leafIndex,
	}, nil
}

// PkScript returns the P2TR output script `OP_1 <tweaked_key>`.
func (t *VtxoTree) PkScript() ([]byte, error) {
	xOnly := schnorr.SerializePubKey(t.tweakedKey)
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_1)
	builder.AddData(xOnly)
	return builder.Script()
}

// TweakedKey returns the output's x-only taproot key.
func (t *VtxoTree) TweakedKey() *btcec.PublicKey {
	return t.tweakedKey
}

// InternalKey returns the tree's (shared, unspendable) internal key.
func (t *VtxoTree) InternalKey() *btcec.PublicKey {
	return t.internalKey
}

// RootHash returns the tap-tree merkle root.
func (t *VtxoTree) RootHash() chainhash.Hash {
	return t.tapTree.RootNode.TapHash()
}

// FindLeaf locates a leaf by its tagged leaf hash and returns the data
// required to spend it via the script path.
func (t *VtxoTree) FindLeaf(leafHash chainhash.Hash) (*TapLeafScript, error) {
	idx, ok := t.leafIndex[leafHash]
	if !ok {
		return nil, ErrUnknownLeaf
	}
	proof := t.tapTree.LeafMerkleProofs[idx]
	ctrlBlock := proof.ToControlBlock(t.internalKey)
	ctrlBytes, err := ctrlBlock.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	return &TapLeafScript{
		Version:      proof.TapLeaf.LeafVersion,
		InternalKey:  t.internalKey,
		ControlBlock: ctrlBytes,
		Script:       t.leaves[idx],
	}, nil
}

// LeafHash computes the BIP-341 tagged leaf hash of a raw leaf script.
func LeafHash(script []byte) chainhash.Hash {
	return txscript.NewBaseTapLeaf(script).TapHash()
}

// Leaves returns the tree's leaf scripts in tree order, for persistence.
func (t *VtxoTree) Leaves() [][]byte {
	out := make([][]byte, len(t.leaves))
	copy(out, t.leaves)
	return out
}
