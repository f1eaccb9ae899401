package settlement

import (
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkwallet/client-core/internal/musig2tree"
	"github.com/arkwallet/client-core/internal/txtree"
)

// Event is one message pushed by the Server's unidirectional event
// stream. Implementations are intentionally unexported-interface-free:
// the session type-switches on the concrete type.
type Event interface {
	kind() eventKind
}

// SigningStartEvent carries the freshly-built VTXO tree, the commitment
// transaction it hangs from, and the full cosigner set for this round.
type SigningStartEvent struct {
	RequestID        string
	Tree             *txtree.Tree
	CommitmentTx     *wire.MsgTx
	BatchOutputIndex int
	SweepTapTreeRoot []byte
	CosignerPubKeys  [][]byte
}

func (SigningStartEvent) kind() eventKind { return eventKindSigningStart }

// SigningNoncesGeneratedEvent carries the per-node combined public nonce
// once every cosigner has submitted its own.
type SigningNoncesGeneratedEvent struct {
	RequestID      string
	CombinedNonces map[musig2tree.NodeKey][musig2.PubNonceSize]byte
}

func (SigningNoncesGeneratedEvent) kind() eventKind { return eventKindSigningNoncesGenerated }

// ConnectorOutput is one connector output available to pair with a
// forfeit transaction.
type ConnectorOutput struct {
	Outpoint wire.OutPoint
	Amount   int64
	Script   []byte
}

// FinalizationEvent requests every owned VTXO's forfeit transaction, one
// per connector, plus signatures over any registered boarding inputs.
type FinalizationEvent struct {
	RequestID       string
	Connectors      []ConnectorOutput
	MinRelayFeeRate float64
}

func (FinalizationEvent) kind() eventKind { return eventKindFinalization }

// FinalizedEvent reports that the round committed on-chain.
type FinalizedEvent struct {
	RequestID      string
	CommitmentTxid chainhash.Hash
}

func (FinalizedEvent) kind() eventKind { return eventKindFinalized }

// FailedEvent terminates the session regardless of its current state.
type FailedEvent struct {
	RequestID string
	Reason    string
	Retryable bool
}

func (FailedEvent) kind() eventKind { return eventKindFailed }
