// Package intent builds and signs BIP-322-derived intent proofs: a
// non-broadcastable transaction pair used as a signed assertion over a
// registration, deletion, or pending-tx request.
package intent

import "errors"

var (
	ErrNoInputs       = errors.New("intent proof requires at least one input")
	ErrUnknownVariant = errors.New("unknown intent message variant")
	ErrMissingScript  = errors.New("first input's pk_script is required")
)
