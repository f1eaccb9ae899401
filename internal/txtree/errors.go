// Package txtree is the in-memory VTXO-tree / connector-tree data
// structure produced by a settlement round: a matrix of levels, each level
// holding the transactions committed at that depth of the tree.
package txtree

import "errors"

var (
	ErrEmptyTree            = errors.New("empty tree")
	ErrWrongCommitmentTxid  = errors.New("root input does not reference the commitment transaction")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMissingCosigners     = errors.New("missing cosigner set on node")
	ErrInvalidTaprootScript = errors.New("child taproot key does not match parent output")
	ErrNoLeaves             = errors.New("tree has no leaves")
	ErrTxidMismatch         = errors.New("recomputed txid does not match node")
	ErrNodeNotFound         = errors.New("node not found")

	ErrReceiverOutputNotFound = errors.New("receiver output not found")
	ErrAssetGroupNotFound     = errors.New("asset group not found")
	ErrAssetOutputNotFound    = errors.New("asset output not found")
	ErrInvalidAssetAmount     = errors.New("invalid asset amount")
)
