package arkwallet

import "github.com/btcsuite/btcd/wire"

func wireOutPoint(o Outpoint) wire.OutPoint {
	return wire.OutPoint{Hash: o.Txid, Index: o.Vout}
}

func newTxOut(amount int64, pkScript []byte) *wire.TxOut {
	return wire.NewTxOut(amount, pkScript)
}
