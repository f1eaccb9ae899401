package arkrpc

import (
	"context"

	"github.com/btcsuite/btcd/btcutil/psbt"

	"github.com/arkwallet/client-core/internal/settlement"
)

// ServerInfo is the response to get_info().
type ServerInfo struct {
	ServerPubKey        [32]byte
	ForfeitAddress      string
	DustAmount          uint64
	BatchInterval       int64
	VtxoTreeExpiry      int64
	UnilateralExitDelay int64
	BoardingExitDelay   int64
	CheckpointTapscript []byte
	FeeRateSatPerVByte  float64
}

// VtxoQuery filters get_vtxos().
type VtxoQuery struct {
	Scripts       [][]byte
	SpendableOnly bool
	Page          int
}

// VtxoSummary is one entry of a get_vtxos() response.
type VtxoSummary struct {
	Outpoint      string
	Amount        uint64
	Script        []byte
	Spendable     bool
	CommitmentTxs []string
}

// VtxoPage is a paginated get_vtxos() response.
type VtxoPage struct {
	Vtxos    []VtxoSummary
	NextPage int
	HasMore  bool
}

// SubmitTxResult is the response to submit_tx().
type SubmitTxResult struct {
	ArkTxid           string
	SignedCheckpoints []*psbt.Packet
}

// ServerClient is the client side of the Server's RPC surface (spec §6.1).
type ServerClient interface {
	GetInfo(ctx context.Context) (*ServerInfo, error)
	GetVtxos(ctx context.Context, q VtxoQuery) (*VtxoPage, error)
	SubmitTx(ctx context.Context, signedArkTx *psbt.Packet, checkpoints []*psbt.Packet) (*SubmitTxResult, error)
	FinalizeTx(ctx context.Context, arkTxid string, finalCheckpoints []*psbt.Packet) error

	RegisterInputsForNextRound(ctx context.Context, intentProof *psbt.Packet, cosignerPubKey []byte) (requestID string, err error)
	RegisterOutputsForNextRound(ctx context.Context, requestID string, outputs []RegisteredOutput) error

	// EventStream returns the per-request-id channel of settlement events;
	// the caller drains it until it closes or a FailedEvent arrives.
	EventStream(ctx context.Context, requestID string) (<-chan EventEnvelope, error)
}

// RegisteredOutput is one output registered for a settlement round.
type RegisteredOutput struct {
	Script []byte
	Amount int64
}

// EventEnvelope wraps one decoded settlement event or a stream-level
// error. A connection read error is the last element before the stream
// closes; a message that fails to decode is reported and the stream goes on.
type EventEnvelope struct {
	Event settlement.Event
	Err   error
}
