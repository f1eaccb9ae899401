package arkrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/gorilla/websocket"

	"github.com/arkwallet/client-core/internal/musig2tree"
	"github.com/arkwallet/client-core/internal/settlement"
)

// wireEvent is the tagged-union envelope the Server pushes over the
// event-stream websocket, one JSON object per line.
type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventStream implements ServerClient: it dials the round's event-stream
// endpoint and decodes each pushed message into a settlement.Event,
// closing the returned channel when the connection ends.
func (c *HTTPServerClient) EventStream(ctx context.Context, requestID string) (<-chan EventEnvelope, error) {
	url := fmt.Sprintf("%s/v1/round/events/%s", c.wsURL, requestID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	c.mu.Lock()
	c.conns[requestID] = conn
	c.mu.Unlock()

	out := make(chan EventEnvelope)
	go func() {
		defer close(out)
		defer conn.Close()
		defer func() {
			c.mu.Lock()
			delete(c.conns, requestID)
			c.mu.Unlock()
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				select {
				case out <- EventEnvelope{Err: fmt.Errorf("%w: %v", ErrStreamClosed, err)}:
				case <-ctx.Done():
				}
				return
			}

			var we wireEvent
			if err := json.Unmarshal(raw, &we); err != nil {
				select {
				case out <- EventEnvelope{Err: fmt.Errorf("%w: %v", ErrRequestFailed, err)}:
				case <-ctx.Done():
					return
				}
				continue
			}

			ev, err := decodeEvent(requestID, we)
			if err != nil {
				select {
				case out <- EventEnvelope{Err: err}:
				case <-ctx.Done():
					return
				}
				continue
			}
			if ev == nil {
				// Unrecognised or informational event (e.g. BatchStarted,
				// which this client does not act on directly); skip it.
				continue
			}

			select {
			case out <- EventEnvelope{Event: ev}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func decodeEvent(requestID string, we wireEvent) (settlement.Event, error) {
	switch we.Type {
	case "BatchStarted":
		return nil, nil

	case "SigningStart":
		var data struct {
			Tree             []treeNodeWire `json:"tree"`
			CommitmentTx     string         `json:"commitment_tx"`
			BatchOutputIndex int            `json:"batch_output_index"`
			SweepTapTreeRoot string         `json:"sweep_tap_tree_root"`
			CosignerPubKeys  []string       `json:"cosigner_pubkeys"`
		}
		if err := json.Unmarshal(we.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: signing_start: %v", ErrRequestFailed, err)
		}
		tree, err := decodeTree(data.Tree)
		if err != nil {
			return nil, err
		}
		commitmentTx, err := decodeTx(data.CommitmentTx)
		if err != nil {
			return nil, err
		}
		sweepRoot, err := hexDecode(data.SweepTapTreeRoot)
		if err != nil {
			return nil, err
		}
		cosigners := make([][]byte, len(data.CosignerPubKeys))
		for i, k := range data.CosignerPubKeys {
			pk, err := hexDecode(k)
			if err != nil {
				return nil, err
			}
			cosigners[i] = pk
		}
		return settlement.SigningStartEvent{
			RequestID:        requestID,
			Tree:             tree,
			CommitmentTx:     commitmentTx,
			BatchOutputIndex: data.BatchOutputIndex,
			SweepTapTreeRoot: sweepRoot,
			CosignerPubKeys:  cosigners,
		}, nil

	case "SigningNoncesGenerated":
		var data struct {
			Nonces []nodeNonceWire `json:"nonces"`
		}
		if err := json.Unmarshal(we.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: signing_nonces_generated: %v", ErrRequestFailed, err)
		}
		combined := make(map[musig2tree.NodeKey][musig2.PubNonceSize]byte, len(data.Nonces))
		for _, n := range data.Nonces {
			raw, err := hexDecode(n.Nonce)
			if err != nil {
				return nil, err
			}
			if len(raw) != musig2.PubNonceSize {
				return nil, fmt.Errorf("%w: bad nonce size %d", ErrRequestFailed, len(raw))
			}
			var pubNonce [musig2.PubNonceSize]byte
			copy(pubNonce[:], raw)
			combined[musig2tree.NodeKey{Level: n.Level, Index: n.Index}] = pubNonce
		}
		return settlement.SigningNoncesGeneratedEvent{RequestID: requestID, CombinedNonces: combined}, nil

	case "Finalization":
		var data struct {
			Connectors []struct {
				Txid   string `json:"txid"`
				Vout   uint32 `json:"vout"`
				Amount int64  `json:"amount"`
				Script string `json:"script"`
			} `json:"connectors"`
			MinRelayFeeRate float64 `json:"min_relay_fee_rate"`
		}
		if err := json.Unmarshal(we.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: finalization: %v", ErrRequestFailed, err)
		}
		connectors := make([]settlement.ConnectorOutput, len(data.Connectors))
		for i, c := range data.Connectors {
			txid, err := chainhash.NewHashFromStr(c.Txid)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
			}
			script, err := hexDecode(c.Script)
			if err != nil {
				return nil, err
			}
			connectors[i] = settlement.ConnectorOutput{
				Outpoint: wire.OutPoint{Hash: *txid, Index: c.Vout},
				Amount:   c.Amount,
				Script:   script,
			}
		}
		return settlement.FinalizationEvent{
			RequestID:       requestID,
			Connectors:      connectors,
			MinRelayFeeRate: data.MinRelayFeeRate,
		}, nil

	case "Finalized":
		var data struct {
			CommitmentTxid string `json:"commitment_txid"`
		}
		if err := json.Unmarshal(we.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: finalized: %v", ErrRequestFailed, err)
		}
		txid, err := chainhash.NewHashFromStr(data.CommitmentTxid)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		return settlement.FinalizedEvent{RequestID: requestID, CommitmentTxid: *txid}, nil

	case "Failed":
		var data struct {
			Reason    string `json:"reason"`
			Retryable bool   `json:"retryable"`
		}
		if err := json.Unmarshal(we.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: failed: %v", ErrRequestFailed, err)
		}
		return settlement.FailedEvent{RequestID: requestID, Reason: data.Reason, Retryable: data.Retryable}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrRequestFailed, we.Type)
	}
}
