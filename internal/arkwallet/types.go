package arkwallet

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/arkwallet/client-core/internal/arkscript"
)

// Outpoint is a transaction output reference. Canonical display is
// hex(txid) + ":" + decimal vout, matching on-chain tooling conventions.
type Outpoint struct {
	Txid chainhash.Hash
	Vout uint32
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.Txid.String(), o.Vout)
}

// VtxoState is the lifecycle stage of a VTXO.
type VtxoState string

const (
	VtxoSettled      VtxoState = "settled"
	VtxoPreconfirmed VtxoState = "preconfirmed"
	VtxoSwept        VtxoState = "swept"
)

// VirtualStatus tracks a VTXO's settlement lifecycle: which round(s)
// committed it on-chain and whether it has since been swept by the
// Server after expiry.
type VirtualStatus struct {
	State           VtxoState
	CommitmentTxIds map[chainhash.Hash]struct{}
}

// VirtualCoin is a VTXO: a taproot output committed to a batch
// transaction (or accepted preconfirmed off-chain), spendable via its
// script tree.
type VirtualCoin struct {
	Outpoint      Outpoint
	Value         uint64
	Script        *arkscript.VtxoTree
	VirtualStatus VirtualStatus
	CreatedAt     time.Time
	IsSpent       bool
	ArkTxID       *chainhash.Hash
	SettledBy     *chainhash.Hash
}

// BoardingUtxo is an on-chain UTXO paying a boarding script: a
// user-owned taproot with the Server as co-signer, plus a user-only exit
// path unlocked after a long relative timelock.
type BoardingUtxo struct {
	Outpoint  Outpoint
	Value     uint64
	Script    *arkscript.VtxoTree
	CreatedAt time.Time
}
