package arkrpc

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkwallet/client-core/internal/txtree"
)

// encodePacket renders a PSBT as the base64 string the Server's RPC surface
// carries on the wire.
func encodePacket(p *psbt.Packet) (string, error) {
	var buf bytes.Buffer
	if err := p.Serialize(&buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodePacket(b64 string) (*psbt.Packet, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	p, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return p, nil
}

func encodeTx(tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

func decodeTx(hexStr string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	tx := wire.NewMsgTx(2)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return tx, nil
}

// treeNodeWire is one flattened tree node as carried on the wire: level and
// parent are expressed explicitly since JSON has no native matrix shape.
type treeNodeWire struct {
	Txid       string `json:"txid"`
	Tx         string `json:"tx"`
	ParentTxid string `json:"parent_txid,omitempty"`
	IsRoot     bool   `json:"is_root"`
	Leaf       bool   `json:"leaf"`
	Level      int    `json:"level"`
	LevelIndex int    `json:"level_index"`
}

func encodeTree(t *txtree.Tree) ([]treeNodeWire, error) {
	var out []treeNodeWire
	for _, level := range t.Levels() {
		for _, n := range level {
			packetB64, err := encodePacket(n.Tx)
			if err != nil {
				return nil, err
			}
			out = append(out, treeNodeWire{
				Txid:       n.Txid.String(),
				Tx:         packetB64,
				ParentTxid: n.ParentTxid.String(),
				IsRoot:     n.IsRoot,
				Leaf:       n.Leaf,
				Level:      n.Level,
				LevelIndex: n.LevelIndex,
			})
		}
	}
	return out, nil
}

func decodeTree(nodes []treeNodeWire) (*txtree.Tree, error) {
	tree := txtree.NewTree()
	for _, nw := range nodes {
		txid, err := chainhash.NewHashFromStr(nw.Txid)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		var parentTxid chainhash.Hash
		if nw.ParentTxid != "" {
			p, err := chainhash.NewHashFromStr(nw.ParentTxid)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
			}
			parentTxid = *p
		}
		packet, err := decodePacket(nw.Tx)
		if err != nil {
			return nil, err
		}
		tree.AddNode(&txtree.TreeNode{
			Txid:       *txid,
			Tx:         packet,
			ParentTxid: parentTxid,
			IsRoot:     nw.IsRoot,
			Leaf:       nw.Leaf,
			Level:      nw.Level,
		})
	}
	return tree, nil
}
