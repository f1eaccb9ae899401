package arkscript

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// HTLCParams describes a hash-timelocked VTXO leaf set.
type HTLCParams struct {
	PreimageHash []byte // 20 bytes, HASH160(preimage)
	Sender       []byte // x-only pubkey, refund path
	Receiver     []byte // x-only pubkey, claim path
	Server       []byte // x-only pubkey, cooperative co-signer

	RefundLocktime                 uint32 // absolute CLTV for the cooperative refund
	UnilateralClaimDelay           uint32 // CSV delay, unilateral claim
	UnilateralRefundDelay          uint32 // CSV delay, unilateral refund
	UnilateralRefundWithoutReceiverDelay uint32 // CSV delay, longest, no receiver cooperation needed
}

// HTLCLeaves is the five-leaf script set produced by the htlc template.
type HTLCLeaves struct {
	CooperativeClaim              []byte
	CooperativeRefund              []byte
	UnilateralClaim                []byte
	UnilateralRefund                []byte
	UnilateralRefundWithoutReceiver []byte
}

// All returns the leaves in a stable order, suitable for build_tree.
func (h *HTLCLeaves) All() [][]byte {
	return [][]byte{
		h.CooperativeClaim,
		h.CooperativeRefund,
		h.UnilateralClaim,
		h.UnilateralRefund,
		h.UnilateralRefundWithoutReceiver,
	}
}

// Claim selects the claim leaf: cooperative when the server is willing to
// co-sign, unilateral otherwise.
func (h *HTLCLeaves) Claim(cooperative bool) []byte {
	if cooperative {
		return h.CooperativeClaim
	}
	return h.UnilateralClaim
}

// Refund selects the refund leaf. withoutReceiver picks the longest-delay
// path that needs no receiver cooperation at all.
func (h *HTLCLeaves) Refund(cooperative, withoutReceiver bool) []byte {
	switch {
	case cooperative:
		return h.CooperativeRefund
	case withoutReceiver:
		return h.UnilateralRefundWithoutReceiver
	default:
		return h.UnilateralRefund
	}
}

// HTLC builds the five-leaf HTLC template described in the script templates
// design: a cooperative claim/refund pair (signed with the Server) and an
// escalating unilateral fallback.
func HTLC(p HTLCParams) (*HTLCLeaves, error) {
	if len(p.PreimageHash) != 20 {
		return nil, fmt.Errorf("%w: preimage hash must be 20 bytes, got %d", ErrInvalidScript, len(p.PreimageHash))
	}
	for _, pk := range [][]byte{p.Sender, p.Receiver, p.Server} {
		if err := checkXOnlyKey(pk); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
		}
	}

	coopClaim, err := hashLockedMultisig(p.PreimageHash, p.Server, p.Receiver)
	if err != nil {
		return nil, err
	}
	coopRefund, err := CLTVMultisig(p.RefundLocktime, [][]byte{p.Server, p.Sender})
	if err != nil {
		return nil, err
	}
	uniClaim, err := hashLockedCSVSingle(p.PreimageHash, p.UnilateralClaimDelay, p.Receiver)
	if err != nil {
		return nil, err
	}
	uniRefund, err := csvSingle(p.UnilateralRefundDelay, p.Sender)
	if err != nil {
		return nil, err
	}
	uniRefundNoReceiver, err := csvSingle(p.UnilateralRefundWithoutReceiverDelay, p.Sender)
	if err != nil {
		return nil, err
	}

	return &HTLCLeaves{
		CooperativeClaim:                coopClaim,
		CooperativeRefund:                coopRefund,
		UnilateralClaim:                  uniClaim,
		UnilateralRefund:                 uniRefund,
		UnilateralRefundWithoutReceiver:  uniRefundNoReceiver,
	}, nil
}

// hashLockedMultisig renders `HASH160 <hash> EQUALVERIFY <k1> CHECKSIGVERIFY <k2> CHECKSIG`.
func hashLockedMultisig(hash160 []byte, keys ...[]byte) ([]byte, error) {
	if err := checkMultisigKeys(keys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(hash160)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	for i, pk := range keys {
		builder.AddData(pk)
		if i == len(keys)-1 {
			builder.AddOp(txscript.OP_CHECKSIG)
		} else {
			builder.AddOp(txscript.OP_CHECKSIGVERIFY)
		}
	}
	script, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	return script, nil
}

// csvSingle renders `<seq> CSV DROP <key> CHECKSIG`.
func csvSingle(delay uint32, key []byte) ([]byte, error) {
	seq, err := RelativeSequence(delay, TimelockBlocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	return txscript.NewScriptBuilder().AddInt64(seq).AddOp(txscript.OP_CHECKSEQUENCEVERIFY).
		AddOp(txscript.OP_DROP).AddData(key).AddOp(txscript.OP_CHECKSIG).Script()
}

// hashLockedCSVSingle renders `HASH160 <hash> EQUALVERIFY <seq> CSV DROP <key> CHECKSIG`.
func hashLockedCSVSingle(hash160 []byte, delay uint32, key []byte) ([]byte, error) {
	if err := checkXOnlyKey(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	seq, err := RelativeSequence(delay, TimelockBlocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(hash160)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddInt64(seq)
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(key)
	builder.AddOp(txscript.OP_CHECKSIG)
	script, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	return script, nil
}
