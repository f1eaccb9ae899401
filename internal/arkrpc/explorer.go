package arkrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UTXO is one unspent output a block explorer reports for an address,
// the on-chain counterpart of a boarding output.
type UTXO struct {
	TxID          string
	Vout          uint32
	Amount        uint64
	Confirmed     bool
	Confirmations int64
	BlockHeight   int64
}

// BlockExplorer is the client side of the block-explorer interface (spec
// §6.2): the minimal read/broadcast surface a wallet needs to discover
// boarding coins and push finalized transactions, independent of any
// particular Server.
type BlockExplorer interface {
	GetCoins(ctx context.Context, address string) ([]UTXO, error)
	BroadcastTx(ctx context.Context, txHex string) (string, error)
	GetBlockTip(ctx context.Context) (height int64, hash string, err error)
	IsTxConfirmed(ctx context.Context, txid string) (bool, error)
}

// EsploraExplorer implements BlockExplorer against an Esplora-compatible
// REST API (mempool.space, blockstream.info, and self-hosted instances
// all speak this dialect).
type EsploraExplorer struct {
	baseURL    string
	httpClient *http.Client
}

// NewEsploraExplorer builds a BlockExplorer pointed at baseURL, e.g.
// "https://mempool.space/api".
func NewEsploraExplorer(baseURL string) *EsploraExplorer {
	return &EsploraExplorer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *EsploraExplorer) GetCoins(ctx context.Context, address string) ([]UTXO, error) {
	var result []struct {
		TxID   string `json:"txid"`
		Vout   uint32 `json:"vout"`
		Value  uint64 `json:"value"`
		Status struct {
			Confirmed   bool  `json:"confirmed"`
			BlockHeight int64 `json:"block_height"`
		} `json:"status"`
	}
	if err := e.get(ctx, "/address/"+address+"/utxo", &result); err != nil {
		return nil, err
	}

	tip, _, err := e.GetBlockTip(ctx)
	if err != nil {
		tip = 0
	}

	utxos := make([]UTXO, len(result))
	for i, u := range result {
		var confirmations int64
		if u.Status.Confirmed && u.Status.BlockHeight > 0 && tip > 0 {
			confirmations = tip - u.Status.BlockHeight + 1
		} else if u.Status.Confirmed {
			confirmations = 1
		}
		utxos[i] = UTXO{
			TxID:          u.TxID,
			Vout:          u.Vout,
			Amount:        u.Value,
			Confirmed:     u.Status.Confirmed,
			Confirmations: confirmations,
			BlockHeight:   u.Status.BlockHeight,
		}
	}
	return utxos, nil
}

func (e *EsploraExplorer) BroadcastTx(ctx context.Context, txHex string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/tx", strings.NewReader(txHex))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrBroadcastFailed, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}

func (e *EsploraExplorer) GetBlockTip(ctx context.Context) (int64, string, error) {
	var height int64
	if err := e.get(ctx, "/blocks/tip/height", &height); err != nil {
		return 0, "", err
	}
	var hash string
	if err := e.get(ctx, "/blocks/tip/hash", &hash); err != nil {
		return 0, "", err
	}
	return height, hash, nil
}

func (e *EsploraExplorer) IsTxConfirmed(ctx context.Context, txid string) (bool, error) {
	var result struct {
		Confirmed bool `json:"confirmed"`
	}
	err := e.get(ctx, "/tx/"+txid+"/status", &result)
	if err != nil {
		return false, err
	}
	return result.Confirmed, nil
}

// get performs a GET request and decodes a JSON or JSON-scalar response,
// mapping transport and status-code failures onto arkrpc's sentinel errors.
func (e *EsploraExplorer) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrTxNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	// Esplora returns bare scalars (a height, a hash string) for some
	// endpoints rather than JSON objects; try JSON first, fall back to
	// treating the body as a raw string for a *string out param.
	if err := json.Unmarshal(body, out); err != nil {
		if sp, ok := out.(*string); ok {
			*sp = strings.TrimSpace(string(body))
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return nil
}
