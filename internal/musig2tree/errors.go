// Package musig2tree implements MuSig2 key aggregation and per-node nonce
// generation / partial signing across a batch of transactions that share a
// cosigner set, as used to co-sign a VTXO tree.
package musig2tree

import "errors"

var (
	ErrInvalidKey           = errors.New("public key must be 33 bytes (compressed)")
	ErrKeyAggregationFailed = errors.New("key aggregation failed")
	ErrKeysAlreadySet       = errors.New("cosigner keys already set")
	ErrNoncesAlreadySet     = errors.New("aggregated nonces already set")
	ErrSelfKeyNotInSet      = errors.New("own public key not present in cosigner set")
	ErrKeysNotSet           = errors.New("cosigner keys not set")
	ErrNoncesNotGenerated   = errors.New("nonces not generated")
	ErrNoncesNotSet         = errors.New("aggregated nonces not set")
	ErrSigningFailed        = errors.New("signing failed")
	ErrNonceReuse           = errors.New("attempted nonce reuse detected")
	ErrVerificationFailed   = errors.New("signature verification failed")
)
