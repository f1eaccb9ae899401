// Package arkrpc is the client side of the Server's RPC surface and the
// Bitcoin block explorer a wallet uses to discover on-chain state.
package arkrpc

import "errors"

var (
	ErrNotConnected    = errors.New("server not connected")
	ErrRequestFailed   = errors.New("server request failed")
	ErrStreamClosed    = errors.New("event stream closed")
	ErrTxNotFound      = errors.New("transaction not found")
	ErrBroadcastFailed = errors.New("broadcast failed")
	ErrRateLimited     = errors.New("rate limited")
)
