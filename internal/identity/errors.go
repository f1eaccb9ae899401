// Package identity implements the wallet core's signer contract (an
// x-only public key, PSBT input signing, and a MuSig2 session factory) plus
// an in-memory-key implementation suitable for a demo or single-user
// wallet. External signers (hardware wallets, remote signing services) are
// expected to satisfy the same Signer interface.
package identity

import "errors"

var (
	ErrNoMatchingKey   = errors.New("identity: input has no script this signer's key can satisfy")
	ErrMissingUtxo     = errors.New("identity: psbt input is missing its witness utxo")
	ErrIndexOutOfRange = errors.New("identity: input index out of range")
)
