package arkscript

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// TimelockUnit selects the unit a relative timelock is encoded in, per BIP-68.
type TimelockUnit int

const (
	// TimelockBlocks encodes the timelock as a number of blocks.
	TimelockBlocks TimelockUnit = iota
	// TimelockSeconds encodes the timelock as a number of 512-second buckets.
	TimelockSeconds
)

const (
	// sequenceTypeFlag is BIP-68 bit 22: when set, the lower 16 bits are
	// units of 512 seconds instead of a block count.
	sequenceTypeFlag = 1 << 22
	// maxTimelock bounds every absolute/relative timelock value accepted
	// by a template: BIP-65/68 script numbers must fit in 31 bits.
	maxTimelock = 1 << 31
)

// RelativeSequence encodes a BIP-68 relative timelock value as the script
// number pushed before OP_CHECKSEQUENCEVERIFY.
func RelativeSequence(timelock uint32, unit TimelockUnit) (int64, error) {
	if timelock >= maxTimelock {
		return 0, ErrTimelockRange
	}
	seq := int64(timelock)
	if unit == TimelockSeconds {
		seq |= sequenceTypeFlag
	}
	return seq, nil
}

func checkXOnlyKey(pk []byte) error {
	if len(pk) != 32 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(pk))
	}
	return nil
}

func checkMultisigKeys(pubkeys [][]byte) error {
	if len(pubkeys) < 2 {
		return ErrTooFewKeys
	}
	for _, pk := range pubkeys {
		if err := checkXOnlyKey(pk); err != nil {
			return err
		}
	}
	return nil
}

// Multisig renders `<p1> CHECKSIGVERIFY <p2> CHECKSIGVERIFY ... <pN> CHECKSIG`.
// Key order is significant and is not sorted by this function.
func Multisig(pubkeys [][]byte) ([]byte, error) {
	if err := checkMultisigKeys(pubkeys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	builder := txscript.NewScriptBuilder()
	for i, pk := range pubkeys {
		builder.AddData(pk)
		if i == len(pubkeys)-1 {
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

// CSVMultisig prepends `<seq> CHECKSEQUENCEVERIFY DROP` to a multisig leaf.
func CSVMultisig(timelock uint32, unit TimelockUnit, pubkeys [][]byte) ([]byte, error) {
	seq, err := RelativeSequence(timelock, unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if err := checkMultisigKeys(pubkeys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	builder := txscript.NewScriptBuilder()
	builder.AddInt64(seq)
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	for i, pk := range pubkeys {
		builder.AddData(pk)
		if i == len(pubkeys)-1 {
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

// CLTVMultisig prepends `<locktime> CHECKLOCKTIMEVERIFY DROP` to a multisig
// leaf. Whether locktime is interpreted as a height or a unix time is left
// to the caller; the PSBT builder in internal/arktx enforces no-mixing
// across a single transaction's selected leaves.
func CLTVMultisig(absoluteLocktime uint32, pubkeys [][]byte) ([]byte, error) {
	if absoluteLocktime >= maxTimelock {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, ErrTimelockRange)
	}
	if err := checkMultisigKeys(pubkeys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}

	builder := txscript.NewScriptBuilder()
	builder.AddInt64(int64(absoluteLocktime))
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	for i, pk := range pubkeys {
		builder.AddData(pk)
		if i == len(pubkeys)-1 {
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

// Conditional prepends an arbitrary witness-verification snippet ahead of a
// multisig leaf, so a spender must also satisfy `condition` (e.g. a hash
// lock or oracle signature check) in addition to the key(s). `condition`
// must leave TRUE on the stack and consume only what it pushed.
func Conditional(condition []byte, pubkeys [][]byte) ([]byte, error) {
	if err := checkMultisigKeys(pubkeys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	ms, err := Multisig(pubkeys)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(condition)+len(ms))
	out = append(out, condition...)
	out = append(out, ms...)
	return out, nil
}

// DelegationCSVMultisig is the two-party CSV-multisig variant used for VTXO
// renewal delegation: `owner` and `delegatePubkey` jointly own the leaf, but
// the Server-controlled delegate key is fixed by the caller rather than
// negotiated per round. It is otherwise exactly csv_multisig.
func DelegationCSVMultisig(timelock uint32, unit TimelockUnit, ownerPubkey, delegatePubkey []byte) ([]byte, error) {
	return CSVMultisig(timelock, unit, [][]byte{ownerPubkey, delegatePubkey})
}
