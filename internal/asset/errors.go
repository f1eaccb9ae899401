// Package asset codes the TLV "asset packet" protocol carried in
// OP_RETURN outputs: a compact binary description of which inputs and
// outputs of a transaction move which custom asset, alongside optional
// issuance and control metadata.
package asset

import "errors"

var (
	ErrInvalidMagic  = errors.New("invalid magic")
	ErrInvalidMarker = errors.New("invalid marker byte")
	ErrTruncated     = errors.New("truncated asset packet")
	ErrUnknownType   = errors.New("unknown type byte")
	ErrTrailingBytes = errors.New("trailing bytes after last group")
	ErrNotFound      = errors.New("no asset packet found in payload")
)
