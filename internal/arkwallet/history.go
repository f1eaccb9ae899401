package arkwallet

import (
	"sort"
	"time"
)

// TxKind classifies a historical wallet event.
type TxKind string

const (
	TxKindBoarding TxKind = "boarding"
	TxKindReceived TxKind = "received"
	TxKindSent     TxKind = "sent"
	TxKindSettled  TxKind = "settled"
	TxKindSwept    TxKind = "swept"
)

// TxRecord is one entry in a wallet's transaction history.
type TxRecord struct {
	Kind      TxKind
	Outpoint  Outpoint
	Amount    uint64
	CreatedAt time.Time
}

// TransactionHistory reconstructs a best-effort, chronologically ordered
// history from the wallet's current coin set. A VTXO created by a prior
// send appears once as "sent" when it is later spent (IsSpent), and
// every coin appears once as "received" or "boarding" at creation; a
// coin reaching VtxoSettled or VtxoSwept additionally records that
// transition, since both change what is safe to rely on for finality.
func (w *Wallet) TransactionHistory() []TxRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []TxRecord
	for _, v := range w.vtxos {
		out = append(out, TxRecord{
			Kind:      TxKindReceived,
			Outpoint:  v.Outpoint,
			Amount:    v.Value,
			CreatedAt: v.CreatedAt,
		})
		if v.IsSpent {
			out = append(out, TxRecord{
				Kind:      TxKindSent,
				Outpoint:  v.Outpoint,
				Amount:    v.Value,
				CreatedAt: v.CreatedAt,
			})
		}
		switch v.VirtualStatus.State {
		case VtxoSettled:
			out = append(out, TxRecord{
				Kind:      TxKindSettled,
				Outpoint:  v.Outpoint,
				Amount:    v.Value,
				CreatedAt: v.CreatedAt,
			})
		case VtxoSwept:
			out = append(out, TxRecord{
				Kind:      TxKindSwept,
				Outpoint:  v.Outpoint,
				Amount:    v.Value,
				CreatedAt: v.CreatedAt,
			})
		}
	}
	for _, b := range w.boarding {
		out = append(out, TxRecord{
			Kind:      TxKindBoarding,
			Outpoint:  b.Outpoint,
			Amount:    b.Value,
			CreatedAt: b.CreatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
