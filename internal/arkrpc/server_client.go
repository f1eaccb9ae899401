package arkrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/gorilla/websocket"

	"github.com/arkwallet/client-core/internal/arktx"
	"github.com/arkwallet/client-core/internal/musig2tree"
)

// HTTPServerClient talks to the Server's RPC surface over plain HTTP for
// request/response calls and over a websocket for the settlement event
// stream, splitting the thin REST client from a separate connection hub
// for push events.
type HTTPServerClient struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewHTTPServerClient creates a client against baseURL (REST) and wsURL
// (websocket, typically baseURL with an ws(s):// scheme).
func NewHTTPServerClient(baseURL, wsURL string) *HTTPServerClient {
	return &HTTPServerClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		wsURL:      strings.TrimSuffix(wsURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		conns:      make(map[string]*websocket.Conn),
	}
}

func (c *HTTPServerClient) postJSON(ctx context.Context, path string, body, out interface{}) error {
	return withRetry(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return ErrRateLimited
		}
		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
		}
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

type getInfoResponse struct {
	ServerPubKey        string  `json:"server_pubkey"`
	ForfeitAddress      string  `json:"forfeit_address"`
	DustAmount          uint64  `json:"dust_amount"`
	BatchInterval       int64   `json:"batch_interval"`
	VtxoTreeExpiry      int64   `json:"vtxo_tree_expiry"`
	UnilateralExitDelay int64   `json:"unilateral_exit_delay"`
	BoardingExitDelay   int64   `json:"boarding_exit_delay"`
	CheckpointTapscript string  `json:"checkpoint_tapscript"`
	FeeRateSatPerVByte  float64 `json:"fee_rate_sat_per_vbyte"`
}

// GetInfo implements ServerClient.
func (c *HTTPServerClient) GetInfo(ctx context.Context) (*ServerInfo, error) {
	var resp getInfoResponse
	if err := c.postJSON(ctx, "/v1/info", nil, &resp); err != nil {
		return nil, err
	}
	pubKeyBytes, err := hexDecode32(resp.ServerPubKey)
	if err != nil {
		return nil, err
	}
	tapscript, err := hexDecode(resp.CheckpointTapscript)
	if err != nil {
		return nil, err
	}
	return &ServerInfo{
		ServerPubKey:        pubKeyBytes,
		ForfeitAddress:      resp.ForfeitAddress,
		DustAmount:          resp.DustAmount,
		BatchInterval:       resp.BatchInterval,
		VtxoTreeExpiry:      resp.VtxoTreeExpiry,
		UnilateralExitDelay: resp.UnilateralExitDelay,
		BoardingExitDelay:   resp.BoardingExitDelay,
		CheckpointTapscript: tapscript,
		FeeRateSatPerVByte:  resp.FeeRateSatPerVByte,
	}, nil
}

// GetVtxos implements ServerClient.
func (c *HTTPServerClient) GetVtxos(ctx context.Context, q VtxoQuery) (*VtxoPage, error) {
	req := struct {
		Scripts       []string `json:"scripts"`
		SpendableOnly bool     `json:"spendable_only"`
		Page          int      `json:"page,omitempty"`
	}{SpendableOnly: q.SpendableOnly, Page: q.Page}
	for _, s := range q.Scripts {
		req.Scripts = append(req.Scripts, hexEncode(s))
	}

	var resp struct {
		Vtxos []struct {
			Outpoint      string   `json:"outpoint"`
			Amount        uint64   `json:"amount"`
			Script        string   `json:"script"`
			Spendable     bool     `json:"spendable"`
			CommitmentTxs []string `json:"commitment_txs"`
		} `json:"vtxos"`
		NextPage int  `json:"next_page"`
		HasMore  bool `json:"has_more"`
	}
	if err := c.postJSON(ctx, "/v1/vtxos", req, &resp); err != nil {
		return nil, err
	}

	page := &VtxoPage{NextPage: resp.NextPage, HasMore: resp.HasMore}
	for _, v := range resp.Vtxos {
		script, err := hexDecode(v.Script)
		if err != nil {
			return nil, err
		}
		page.Vtxos = append(page.Vtxos, VtxoSummary{
			Outpoint:      v.Outpoint,
			Amount:        v.Amount,
			Script:        script,
			Spendable:     v.Spendable,
			CommitmentTxs: v.CommitmentTxs,
		})
	}
	return page, nil
}

// SubmitTx implements ServerClient.
func (c *HTTPServerClient) SubmitTx(ctx context.Context, signedArkTx *psbt.Packet, checkpoints []*psbt.Packet) (*SubmitTxResult, error) {
	arkTxB64, err := encodePacket(signedArkTx)
	if err != nil {
		return nil, err
	}
	checkpointsB64 := make([]string, len(checkpoints))
	for i, cp := range checkpoints {
		b64, err := encodePacket(cp)
		if err != nil {
			return nil, err
		}
		checkpointsB64[i] = b64
	}

	req := struct {
		SignedArkTxPsbtB64 string   `json:"signed_ark_tx_psbt_b64"`
		CheckpointsPsbtB64 []string `json:"checkpoints_psbt_b64"`
	}{arkTxB64, checkpointsB64}

	var resp struct {
		ArkTxid           string   `json:"ark_txid"`
		SignedCheckpoints []string `json:"signed_checkpoint_txs"`
	}
	if err := c.postJSON(ctx, "/v1/tx/submit", req, &resp); err != nil {
		return nil, err
	}

	signed := make([]*psbt.Packet, len(resp.SignedCheckpoints))
	for i, b64 := range resp.SignedCheckpoints {
		p, err := decodePacket(b64)
		if err != nil {
			return nil, err
		}
		signed[i] = p
	}
	return &SubmitTxResult{ArkTxid: resp.ArkTxid, SignedCheckpoints: signed}, nil
}

// FinalizeTx implements ServerClient.
func (c *HTTPServerClient) FinalizeTx(ctx context.Context, arkTxid string, finalCheckpoints []*psbt.Packet) error {
	checkpointsB64 := make([]string, len(finalCheckpoints))
	for i, cp := range finalCheckpoints {
		b64, err := encodePacket(cp)
		if err != nil {
			return err
		}
		checkpointsB64[i] = b64
	}
	req := struct {
		ArkTxid          string   `json:"ark_txid"`
		FinalCheckpoints []string `json:"final_checkpoints"`
	}{arkTxid, checkpointsB64}
	return c.postJSON(ctx, "/v1/tx/finalize", req, nil)
}

// RegisterInputsForNextRound implements ServerClient.
func (c *HTTPServerClient) RegisterInputsForNextRound(ctx context.Context, intentProof *psbt.Packet, cosignerPubKey []byte) (string, error) {
	proofB64, err := encodePacket(intentProof)
	if err != nil {
		return "", err
	}
	req := struct {
		IntentProof    string `json:"intent_proof"`
		CosignerPubKey string `json:"cosigner_pubkey"`
	}{proofB64, hexEncode(cosignerPubKey)}

	var resp struct {
		RequestID string `json:"request_id"`
	}
	if err := c.postJSON(ctx, "/v1/round/register-inputs", req, &resp); err != nil {
		return "", err
	}
	return resp.RequestID, nil
}

// RegisterOutputsForNextRound implements ServerClient.
func (c *HTTPServerClient) RegisterOutputsForNextRound(ctx context.Context, requestID string, outputs []RegisteredOutput) error {
	req := struct {
		RequestID string `json:"request_id"`
		Outputs   []struct {
			Script string `json:"script"`
			Amount int64  `json:"amount"`
		} `json:"outputs"`
	}{RequestID: requestID}
	for _, o := range outputs {
		req.Outputs = append(req.Outputs, struct {
			Script string `json:"script"`
			Amount int64  `json:"amount"`
		}{hexEncode(o.Script), o.Amount})
	}
	return c.postJSON(ctx, "/v1/round/register-outputs", req, nil)
}

// Ping implements settlement.ServerSubmitter.
func (c *HTTPServerClient) Ping(ctx context.Context, requestID string) error {
	req := struct {
		RequestID string `json:"request_id"`
	}{requestID}
	return c.postJSON(ctx, "/v1/round/ping", req, nil)
}

// SubmitTreeNonces implements settlement.ServerSubmitter.
func (c *HTTPServerClient) SubmitTreeNonces(ctx context.Context, requestID string, nonces map[musig2tree.NodeKey][musig2.PubNonceSize]byte) error {
	req := struct {
		RequestID string          `json:"request_id"`
		Nonces    []nodeNonceWire `json:"nonces"`
	}{RequestID: requestID}
	for key, nonce := range nonces {
		req.Nonces = append(req.Nonces, nodeNonceWire{Level: key.Level, Index: key.Index, Nonce: hexEncode(nonce[:])})
	}
	return c.postJSON(ctx, "/v1/round/submit-tree-nonces", req, nil)
}

// SubmitTreeSignatures implements settlement.ServerSubmitter.
func (c *HTTPServerClient) SubmitTreeSignatures(ctx context.Context, requestID string, sigs map[musig2tree.NodeKey][]byte) error {
	req := struct {
		RequestID  string        `json:"request_id"`
		Signatures []nodeSigWire `json:"signatures"`
	}{RequestID: requestID}
	for key, sig := range sigs {
		req.Signatures = append(req.Signatures, nodeSigWire{Level: key.Level, Index: key.Index, Signature: hexEncode(sig)})
	}
	return c.postJSON(ctx, "/v1/round/submit-tree-signatures", req, nil)
}

// SubmitSignedForfeitTxs implements settlement.ServerSubmitter.
func (c *HTTPServerClient) SubmitSignedForfeitTxs(ctx context.Context, requestID string, forfeits []*arktx.SignedForfeit, boardingSigs map[wire.OutPoint][]byte) error {
	req := struct {
		RequestID    string            `json:"request_id"`
		Forfeits     []string          `json:"forfeits"`
		BoardingSigs []boardingSigWire `json:"boarding_signatures"`
	}{RequestID: requestID}

	for _, f := range forfeits {
		b64, err := encodePacket(f.Packet)
		if err != nil {
			return err
		}
		req.Forfeits = append(req.Forfeits, b64)
	}
	for op, sig := range boardingSigs {
		req.BoardingSigs = append(req.BoardingSigs, boardingSigWire{
			Txid:      op.Hash.String(),
			Vout:      op.Index,
			Signature: hexEncode(sig),
		})
	}
	return c.postJSON(ctx, "/v1/round/submit-signed-forfeits", req, nil)
}

type boardingSigWire struct {
	Txid      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Signature string `json:"signature"`
}

type nodeNonceWire struct {
	Level int    `json:"level"`
	Index int    `json:"index"`
	Nonce string `json:"nonce"`
}

type nodeSigWire struct {
	Level     int    `json:"level"`
	Index     int    `json:"index"`
	Signature string `json:"signature"`
}
