package arkrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkwallet/client-core/internal/arktx"
	"github.com/arkwallet/client-core/internal/musig2tree"
)

func TestGetInfoDecodesServerResponse(t *testing.T) {
	var pubKey [32]byte
	pubKey[0] = 0x07

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/info" {
			t.Errorf("path = %s, want /v1/info", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"server_pubkey":          hexEncode(pubKey[:]),
			"forfeit_address":        "bc1qforfeit",
			"dust_amount":            546,
			"batch_interval":         30,
			"vtxo_tree_expiry":       144,
			"unilateral_exit_delay":  144,
			"boarding_exit_delay":    144,
			"checkpoint_tapscript":   hexEncode([]byte{0x51}),
			"fee_rate_sat_per_vbyte": 1.5,
		})
	}))
	defer srv.Close()

	c := NewHTTPServerClient(srv.URL, "ws://unused")
	info, err := c.GetInfo(context.Background())
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.ServerPubKey != pubKey {
		t.Errorf("ServerPubKey = %x, want %x", info.ServerPubKey, pubKey)
	}
	if info.DustAmount != 546 {
		t.Errorf("DustAmount = %d, want 546", info.DustAmount)
	}
	if info.ForfeitAddress != "bc1qforfeit" {
		t.Errorf("ForfeitAddress = %q, want bc1qforfeit", info.ForfeitAddress)
	}
}

func TestGetInfoRetriesOnTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"server_pubkey":        hexEncode(make([]byte, 32)),
			"checkpoint_tapscript": "",
		})
	}))
	defer srv.Close()

	c := NewHTTPServerClient(srv.URL, "ws://unused")
	if _, err := c.GetInfo(context.Background()); err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestGetInfoMapsRateLimitedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPServerClient(srv.URL, "ws://unused")
	if _, err := c.GetInfo(context.Background()); err != ErrRateLimited {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestGetVtxosRoundTripsScriptsAsHex(t *testing.T) {
	wantScript := []byte{0xaa, 0xbb, 0xcc}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Scripts []string `json:"scripts"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Scripts) != 1 || req.Scripts[0] != hexEncode(wantScript) {
			t.Errorf("request scripts = %v, want [%s]", req.Scripts, hexEncode(wantScript))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"vtxos": []map[string]interface{}{
				{"outpoint": "abc:0", "amount": 1000, "script": hexEncode(wantScript), "spendable": true},
			},
			"has_more": false,
		})
	}))
	defer srv.Close()

	c := NewHTTPServerClient(srv.URL, "ws://unused")
	page, err := c.GetVtxos(context.Background(), VtxoQuery{Scripts: [][]byte{wantScript}})
	if err != nil {
		t.Fatalf("GetVtxos() error = %v", err)
	}
	if len(page.Vtxos) != 1 {
		t.Fatalf("page.Vtxos = %v, want 1 entry", page.Vtxos)
	}
	if string(page.Vtxos[0].Script) != string(wantScript) {
		t.Errorf("Script = %x, want %x", page.Vtxos[0].Script, wantScript)
	}
}

func TestSubmitTreeNoncesEncodesNodeKeys(t *testing.T) {
	var nonce [musig2.PubNonceSize]byte
	nonce[0] = 0x09

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RequestID string          `json:"request_id"`
			Nonces    []nodeNonceWire `json:"nonces"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.RequestID != "round-1" {
			t.Errorf("RequestID = %q, want round-1", req.RequestID)
		}
		if len(req.Nonces) != 1 || req.Nonces[0].Level != 2 || req.Nonces[0].Index != 3 {
			t.Errorf("Nonces = %+v, want one entry at (2,3)", req.Nonces)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPServerClient(srv.URL, "ws://unused")
	nonces := map[musig2tree.NodeKey][musig2.PubNonceSize]byte{
		{Level: 2, Index: 3}: nonce,
	}
	if err := c.SubmitTreeNonces(context.Background(), "round-1", nonces); err != nil {
		t.Fatalf("SubmitTreeNonces() error = %v", err)
	}
}

func TestSubmitSignedForfeitTxsEncodesBoardingSigsByOutpoint(t *testing.T) {
	packet := newTestPacket(t)
	op := wire.OutPoint{Index: 7}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Forfeits     []string          `json:"forfeits"`
			BoardingSigs []boardingSigWire `json:"boarding_signatures"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Forfeits) != 1 {
			t.Errorf("Forfeits = %v, want 1 entry", req.Forfeits)
		}
		if len(req.BoardingSigs) != 1 || req.BoardingSigs[0].Vout != 7 {
			t.Errorf("BoardingSigs = %+v, want one entry at vout 7", req.BoardingSigs)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPServerClient(srv.URL, "ws://unused")
	forfeits := []*arktx.SignedForfeit{{Packet: packet}}
	boardingSigs := map[wire.OutPoint][]byte{op: {0x01, 0x02}}
	if err := c.SubmitSignedForfeitTxs(context.Background(), "round-1", forfeits, boardingSigs); err != nil {
		t.Fatalf("SubmitSignedForfeitTxs() error = %v", err)
	}
}
