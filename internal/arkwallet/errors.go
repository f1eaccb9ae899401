// Package arkwallet aggregates the script, transaction, tree, and
// settlement layers into balance, coin-selection, send, and history
// operations over a user's VTXO and boarding-UTXO set.
package arkwallet

import "errors"

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDustAmount        = errors.New("amount below dust threshold")
	ErrNoCoins           = errors.New("no coins available")
	ErrInvalidAddress    = errors.New("invalid destination address")
)
