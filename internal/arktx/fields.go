package arktx

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
)

// proprietaryKeyType is the custom PSBT key-type this Protocol uses for all
// of its unknown/proprietary input fields.
const proprietaryKeyType = 0xFF

// Field name prefixes, carried as the key data after proprietaryKeyType.
const (
	fieldCosigner = "cosigner"
	fieldTapTree  = "taptree"
	fieldCondition = "condition"
	fieldExpiry   = "expiry"
)

func fieldKey(name string) []byte {
	return append([]byte{proprietaryKeyType}, []byte(name)...)
}

func isField(u *psbt.Unknown, name string) bool {
	return bytes.Equal(u.Key, fieldKey(name))
}

func addUnknown(in *psbt.PInput, name string, value []byte) {
	in.Unknowns = append(in.Unknowns, &psbt.Unknown{
		Key:   fieldKey(name),
		Value: value,
	})
}

func findUnknowns(in *psbt.PInput, name string) [][]byte {
	var out [][]byte
	for _, u := range in.Unknowns {
		if isField(u, name) {
			out = append(out, u.Value)
		}
	}
	return out
}

// AddCosignerPubKey appends a 33-byte compressed cosigner public key. The
// field may appear multiple times on one input.
func AddCosignerPubKey(in *psbt.PInput, compressedPubKey []byte) error {
	if len(compressedPubKey) != 33 {
		return fmt.Errorf("%w: cosigner pubkey must be 33 bytes, got %d", ErrMalformedField, len(compressedPubKey))
	}
	addUnknown(in, fieldCosigner, compressedPubKey)
	return nil
}

// CosignerPubKeys returns every cosigner public key attached to the input.
func CosignerPubKeys(in *psbt.PInput) ([][]byte, error) {
	keys := findUnknowns(in, fieldCosigner)
	for _, k := range keys {
		if len(k) != 33 {
			return nil, fmt.Errorf("%w: cosigner pubkey must be 33 bytes, got %d", ErrMalformedField, len(k))
		}
	}
	return keys, nil
}

// SetVtxoTaprootTree attaches the encoded leaf-script list: a varuint count
// followed by length-prefixed scripts.
func SetVtxoTaprootTree(in *psbt.PInput, leaves [][]byte) error {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(leaves))); err != nil {
		return err
	}
	for _, leaf := range leaves {
		if err := wire.WriteVarInt(&buf, 0, uint64(len(leaf))); err != nil {
			return err
		}
		buf.Write(leaf)
	}
	// Replace any existing tree field rather than accumulate duplicates.
	filtered := in.Unknowns[:0]
	for _, u := range in.Unknowns {
		if !isField(u, fieldTapTree) {
			filtered = append(filtered, u)
		}
	}
	in.Unknowns = filtered
	addUnknown(in, fieldTapTree, buf.Bytes())
	return nil
}

// VtxoTaprootTree decodes the leaf-script list attached by SetVtxoTaprootTree.
func VtxoTaprootTree(in *psbt.PInput) ([][]byte, error) {
	vals := findUnknowns(in, fieldTapTree)
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: taptree", ErrFieldNotFound)
	}
	r := bytes.NewReader(vals[len(vals)-1])
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedField, err)
	}
	leaves := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		length, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedField, err)
		}
		leaf := make([]byte, length)
		if _, err := io.ReadFull(r, leaf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedField, err)
		}
		leaves = append(leaves, leaf)
	}
	return leaves, nil
}

// SetConditionWitness attaches the witness stack a spender appends to
// satisfy a conditional leaf, beyond its key-signatures.
func SetConditionWitness(in *psbt.PInput, witness [][]byte) error {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(witness))); err != nil {
		return err
	}
	for _, item := range witness {
		if err := wire.WriteVarInt(&buf, 0, uint64(len(item))); err != nil {
			return err
		}
		buf.Write(item)
	}
	addUnknown(in, fieldCondition, buf.Bytes())
	return nil
}

// ConditionWitness decodes the condition witness stack, if any.
func ConditionWitness(in *psbt.PInput) ([][]byte, error) {
	vals := findUnknowns(in, fieldCondition)
	if len(vals) == 0 {
		return nil, nil
	}
	r := bytes.NewReader(vals[len(vals)-1])
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedField, err)
	}
	out := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		length, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedField, err)
		}
		item := make([]byte, length)
		if _, err := r.Read(item); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedField, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// SetVtxoTreeExpiry attaches the BIP-68 relative-timelock script-number used
// by the Server's sweep path for this VTXO.
func SetVtxoTreeExpiry(in *psbt.PInput, seq int64) {
	var buf bytes.Buffer
	_ = wire.WriteVarInt(&buf, 0, uint64(seq))
	addUnknown(in, fieldExpiry, buf.Bytes())
}

// VtxoTreeExpiry decodes the expiry field, if present.
func VtxoTreeExpiry(in *psbt.PInput) (int64, bool, error) {
	vals := findUnknowns(in, fieldExpiry)
	if len(vals) == 0 {
		return 0, false, nil
	}
	r := bytes.NewReader(vals[len(vals)-1])
	v, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrMalformedField, err)
	}
	return int64(v), true, nil
}
