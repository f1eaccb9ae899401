package arkrpc

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"

	"github.com/arkwallet/client-core/internal/musig2tree"
	"github.com/arkwallet/client-core/internal/settlement"
)

func TestDecodeEventBatchStartedIsIgnored(t *testing.T) {
	ev, err := decodeEvent("req-1", wireEvent{Type: "BatchStarted", Data: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if ev != nil {
		t.Errorf("decodeEvent(BatchStarted) = %v, want nil", ev)
	}
}

func TestDecodeEventSigningStart(t *testing.T) {
	packet := newTestPacket(t)
	hexTx, err := encodeTx(packet.UnsignedTx)
	if err != nil {
		t.Fatalf("encodeTx() error = %v", err)
	}

	payload := map[string]interface{}{
		"tree":                []treeNodeWire{},
		"commitment_tx":       hexTx,
		"batch_output_index":  2,
		"sweep_tap_tree_root": hexEncode([]byte{0x01, 0x02}),
		"cosigner_pubkeys":    []string{hexEncode([]byte{0x03, 0x04})},
	}
	raw, _ := json.Marshal(payload)

	ev, err := decodeEvent("req-2", wireEvent{Type: "SigningStart", Data: raw})
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	start, ok := ev.(settlement.SigningStartEvent)
	if !ok {
		t.Fatalf("decodeEvent() returned %T, want settlement.SigningStartEvent", ev)
	}
	if start.RequestID != "req-2" {
		t.Errorf("RequestID = %q, want req-2", start.RequestID)
	}
	if start.BatchOutputIndex != 2 {
		t.Errorf("BatchOutputIndex = %d, want 2", start.BatchOutputIndex)
	}
	if len(start.CosignerPubKeys) != 1 {
		t.Fatalf("CosignerPubKeys = %v, want 1 entry", start.CosignerPubKeys)
	}
}

func TestDecodeEventSigningNoncesGenerated(t *testing.T) {
	var nonce [musig2.PubNonceSize]byte
	nonce[0] = 0x42

	payload := map[string]interface{}{
		"nonces": []nodeNonceWire{
			{Level: 0, Index: 0, Nonce: hexEncode(nonce[:])},
		},
	}
	raw, _ := json.Marshal(payload)

	ev, err := decodeEvent("req-3", wireEvent{Type: "SigningNoncesGenerated", Data: raw})
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	generated, ok := ev.(settlement.SigningNoncesGeneratedEvent)
	if !ok {
		t.Fatalf("decodeEvent() returned %T, want settlement.SigningNoncesGeneratedEvent", ev)
	}
	got, ok := generated.CombinedNonces[musig2tree.NodeKey{Level: 0, Index: 0}]
	if !ok {
		t.Fatal("missing nonce for node (0,0)")
	}
	if got != nonce {
		t.Errorf("nonce = %x, want %x", got, nonce)
	}
}

func TestDecodeEventFinalized(t *testing.T) {
	txid := "aa000000000000000000000000000000000000000000000000000000000000bb"
	raw, _ := json.Marshal(map[string]string{"commitment_txid": txid})

	ev, err := decodeEvent("req-4", wireEvent{Type: "Finalized", Data: raw})
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	finalized, ok := ev.(settlement.FinalizedEvent)
	if !ok {
		t.Fatalf("decodeEvent() returned %T, want settlement.FinalizedEvent", ev)
	}
	if finalized.CommitmentTxid.String() != txid {
		t.Errorf("CommitmentTxid = %s, want %s", finalized.CommitmentTxid.String(), txid)
	}
}

func TestDecodeEventFailed(t *testing.T) {
	raw, _ := json.Marshal(map[string]interface{}{"reason": "round aborted", "retryable": true})

	ev, err := decodeEvent("req-5", wireEvent{Type: "Failed", Data: raw})
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	failed, ok := ev.(settlement.FailedEvent)
	if !ok {
		t.Fatalf("decodeEvent() returned %T, want settlement.FailedEvent", ev)
	}
	if failed.Reason != "round aborted" || !failed.Retryable {
		t.Errorf("FailedEvent = %+v, unexpected", failed)
	}
}

func TestDecodeEventUnknownTypeErrors(t *testing.T) {
	_, err := decodeEvent("req-6", wireEvent{Type: "SomethingElse", Data: json.RawMessage(`{}`)})
	if err == nil {
		t.Error("expected an error for an unknown event type")
	}
}
