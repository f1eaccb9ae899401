package txtree

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TreeNode is one transaction in a VTXO or connector tree.
type TreeNode struct {
	Txid       chainhash.Hash
	Tx         *psbt.Packet
	ParentTxid chainhash.Hash
	IsRoot     bool
	Leaf       bool
	Level      int
	LevelIndex int
}

// nodeRef locates a node within the level matrix.
type nodeRef struct {
	level int
	index int
}

// Tree is the matrix-of-levels shape: levels[L][i] holds the i-th node
// committed at depth L. Parent/child edges are expressed by txid, not by
// in-memory pointers, so the structure stays an acyclic map rather than a
// graph of live references.
type Tree struct {
	levels [][]*TreeNode
	byTxid map[chainhash.Hash]nodeRef
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{byTxid: make(map[chainhash.Hash]nodeRef)}
}

// AddNode inserts a node at node.Level, appending to that level's slice
// and setting node.LevelIndex to its position there. The caller sets
// node.Level.
func (t *Tree) AddNode(node *TreeNode) {
	for len(t.levels) <= node.Level {
		t.levels = append(t.levels, nil)
	}
	node.LevelIndex = len(t.levels[node.Level])
	t.levels[node.Level] = append(t.levels[node.Level], node)
	t.byTxid[node.Txid] = nodeRef{level: node.Level, index: node.LevelIndex}
}

// AddSignature writes a taproot key-path signature into input 0 of the node
// at (level, index).
func (t *Tree) AddSignature(level, index int, sig []byte) error {
	node, err := t.nodeAt(level, index)
	if err != nil {
		return err
	}
	if len(node.Tx.Inputs) == 0 {
		return fmt.Errorf("%w: node has no inputs", ErrNodeNotFound)
	}
	node.Tx.Inputs[0].TaprootKeySpendSig = sig
	return nil
}

func (t *Tree) nodeAt(level, index int) (*TreeNode, error) {
	if level < 0 || level >= len(t.levels) || index < 0 || index >= len(t.levels[level]) {
		return nil, fmt.Errorf("%w: level=%d index=%d", ErrNodeNotFound, level, index)
	}
	return t.levels[level][index], nil
}

// Levels returns the underlying level matrix.
func (t *Tree) Levels() [][]*TreeNode {
	return t.levels
}

// Root returns the single level-0 node.
func (t *Tree) Root() (*TreeNode, error) {
	if len(t.levels) == 0 || len(t.levels[0]) == 0 {
		return nil, ErrEmptyTree
	}
	if len(t.levels[0]) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one root, found %d", ErrInvalidTaprootScript, len(t.levels[0]))
	}
	return t.levels[0][0], nil
}

// Leaves returns every node marked as a leaf.
func (t *Tree) Leaves() []*TreeNode {
	var out []*TreeNode
	for _, level := range t.levels {
		for _, n := range level {
			if n.Leaf {
				out = append(out, n)
			}
		}
	}
	return out
}

// ByTxid looks up a node by its txid.
func (t *Tree) ByTxid(txid chainhash.Hash) (*TreeNode, error) {
	ref, ok := t.byTxid[txid]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return t.levels[ref.level][ref.index], nil
}

// Children returns every node whose ParentTxid equals txid.
func (t *Tree) Children(txid chainhash.Hash) []*TreeNode {
	var out []*TreeNode
	for _, level := range t.levels {
		for _, n := range level {
			if !n.IsRoot && n.ParentTxid == txid {
				out = append(out, n)
			}
		}
	}
	return out
}

// Branch returns the root-to-leaf path ending at leafTxid.
func (t *Tree) Branch(leafTxid chainhash.Hash) ([]*TreeNode, error) {
	node, err := t.ByTxid(leafTxid)
	if err != nil {
		return nil, err
	}
	branch := []*TreeNode{node}
	for !node.IsRoot {
		parent, err := t.ByTxid(node.ParentTxid)
		if err != nil {
			return nil, err
		}
		branch = append([]*TreeNode{parent}, branch...)
		node = parent
	}
	return branch, nil
}

// ExitBranch returns the minimal off-chain suffix of the branch ending at
// leafTxid that still must be broadcast to realise a unilateral exit: every
// node starting from the first one whose confirmation status is unknown (or
// reported unconfirmed) down to the leaf. isTxConfirmed is consulted
// root-first since once a node is confirmed every ancestor necessarily is.
func (t *Tree) ExitBranch(leafTxid chainhash.Hash, isTxConfirmed func(chainhash.Hash) (bool, error)) ([]*TreeNode, error) {
	branch, err := t.Branch(leafTxid)
	if err != nil {
		return nil, err
	}
	start := 0
	for i, node := range branch {
		confirmed, err := isTxConfirmed(node.Txid)
		if err != nil {
			return nil, err
		}
		if confirmed {
			start = i + 1
			continue
		}
		break
	}
	return branch[start:], nil
}
