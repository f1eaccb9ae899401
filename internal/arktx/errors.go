// Package arktx builds the protocol's "virtual transactions" and "forfeit
// transactions": ordinary PSBTs carrying a handful of proprietary custom
// fields under key-type 0xFF.
package arktx

import "errors"

var (
	ErrMixedLocktimeUnits = errors.New("mixed locktime units across inputs")
	ErrNoInputs           = errors.New("transaction requires at least one input")
	ErrNoOutputs          = errors.New("transaction requires at least one output")
	ErrFieldNotFound      = errors.New("custom psbt field not found")
	ErrMalformedField     = errors.New("malformed custom psbt field")
)
