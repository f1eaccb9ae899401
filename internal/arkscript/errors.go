// Package arkscript builds and decodes VTXO taproot script trees: leaf
// templates, tree assembly, control blocks, and the bech32m address format.
package arkscript

import "errors"

// Errors returned by the script and address layer.
var (
	ErrInvalidScript  = errors.New("invalid script")
	ErrUnknownLeaf    = errors.New("unknown leaf")
	ErrInvalidKey     = errors.New("public key must be 32 bytes (x-only)")
	ErrTooFewKeys     = errors.New("multisig requires at least 2 keys")
	ErrTimelockRange  = errors.New("timelock out of range [0, 2^31)")
	ErrInvalidAddress = errors.New("invalid address")
	ErrWrongHRP       = errors.New("address has unexpected human-readable part")
)
