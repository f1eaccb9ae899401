package asset

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

var magic = []byte("ARK")

const marker byte = 0x00

// Encode serializes a packet into its OP_RETURN payload form: magic,
// marker, varuint group count, then each group in order.
func Encode(p Packet) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic)
	buf.WriteByte(marker)
	if err := wire.WriteVarInt(&buf, 0, uint64(len(p.Groups))); err != nil {
		return nil, err
	}
	for _, g := range p.Groups {
		if err := encodeGroup(&buf, g); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeGroup(buf *bytes.Buffer, g Group) error {
	presence := byte(0)
	if g.AssetID != nil {
		presence |= MaskAssetID
	}
	if g.ControlAsset != nil {
		presence |= MaskControlAsset
	}
	if len(g.Metadata) > 0 {
		presence |= MaskMetadata
	}
	buf.WriteByte(presence)

	if g.AssetID != nil {
		buf.Write(g.AssetID[:])
	}
	if g.ControlAsset != nil {
		buf.Write(g.ControlAsset[:])
	}
	if len(g.Metadata) > 0 {
		if err := wire.WriteVarInt(buf, 0, uint64(len(g.Metadata))); err != nil {
			return err
		}
		for _, m := range g.Metadata {
			if err := wire.WriteVarInt(buf, 0, uint64(len(m))); err != nil {
				return err
			}
			buf.Write(m)
		}
	}

	if err := wire.WriteVarInt(buf, 0, uint64(len(g.Inputs))); err != nil {
		return err
	}
	for _, in := range g.Inputs {
		buf.WriteByte(in.Type)
		if in.Type == InputIntent {
			buf.Write(in.TxID[:])
		}
		var vinBytes [2]byte
		binary.LittleEndian.PutUint16(vinBytes[:], in.Vin)
		buf.Write(vinBytes[:])
		if err := wire.WriteVarInt(buf, 0, in.Amount); err != nil {
			return err
		}
	}

	if err := wire.WriteVarInt(buf, 0, uint64(len(g.Outputs))); err != nil {
		return err
	}
	for _, out := range g.Outputs {
		buf.WriteByte(outputMarker)
		var voutBytes [2]byte
		binary.LittleEndian.PutUint16(voutBytes[:], out.Vout)
		buf.Write(voutBytes[:])
		if err := wire.WriteVarInt(buf, 0, out.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses raw as an asset packet, requiring it begin exactly with
// the magic/marker/group-count framing and be fully consumed (no
// trailing bytes).
func Decode(raw []byte) (*Packet, error) {
	if len(raw) < len(magic)+1 {
		return nil, ErrTruncated
	}
	if !bytes.Equal(raw[:len(magic)], magic) {
		return nil, ErrInvalidMagic
	}
	if raw[len(magic)] != marker {
		return nil, ErrInvalidMarker
	}

	r := bytes.NewReader(raw[len(magic)+1:])
	groupCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	groups := make([]Group, 0, groupCount)
	for i := uint64(0); i < groupCount; i++ {
		g, err := decodeGroup(r)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	if r.Len() != 0 {
		return nil, ErrTrailingBytes
	}
	return &Packet{Groups: groups}, nil
}

func decodeGroup(r *bytes.Reader) (Group, error) {
	var g Group

	presence, err := r.ReadByte()
	if err != nil {
		return g, fmt.Errorf("%w: presence byte: %v", ErrTruncated, err)
	}

	if presence&MaskAssetID != 0 {
		id, err := readID(r)
		if err != nil {
			return g, err
		}
		g.AssetID = &id
	}
	if presence&MaskControlAsset != 0 {
		id, err := readID(r)
		if err != nil {
			return g, err
		}
		g.ControlAsset = &id
	}
	if presence&MaskMetadata != 0 {
		count, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return g, fmt.Errorf("%w: metadata count: %v", ErrTruncated, err)
		}
		for i := uint64(0); i < count; i++ {
			length, err := wire.ReadVarInt(r, 0)
			if err != nil {
				return g, fmt.Errorf("%w: metadata length: %v", ErrTruncated, err)
			}
			item := make([]byte, length)
			if _, err := readFull(r, item); err != nil {
				return g, err
			}
			g.Metadata = append(g.Metadata, item)
		}
	}

	inputCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return g, fmt.Errorf("%w: input count: %v", ErrTruncated, err)
	}
	for i := uint64(0); i < inputCount; i++ {
		in, err := decodeInput(r)
		if err != nil {
			return g, err
		}
		g.Inputs = append(g.Inputs, in)
	}

	outputCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return g, fmt.Errorf("%w: output count: %v", ErrTruncated, err)
	}
	for i := uint64(0); i < outputCount; i++ {
		out, err := decodeOutput(r)
		if err != nil {
			return g, err
		}
		g.Outputs = append(g.Outputs, out)
	}

	return g, nil
}

func decodeInput(r *bytes.Reader) (Input, error) {
	var in Input
	typeByte, err := r.ReadByte()
	if err != nil {
		return in, fmt.Errorf("%w: input type: %v", ErrTruncated, err)
	}
	if typeByte != InputLocal && typeByte != InputIntent {
		return in, fmt.Errorf("%w: input type %d", ErrUnknownType, typeByte)
	}
	in.Type = typeByte

	if typeByte == InputIntent {
		if _, err := readFull(r, in.TxID[:]); err != nil {
			return in, err
		}
	}

	var vinBytes [2]byte
	if _, err := readFull(r, vinBytes[:]); err != nil {
		return in, err
	}
	in.Vin = binary.LittleEndian.Uint16(vinBytes[:])

	amount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return in, fmt.Errorf("%w: input amount: %v", ErrTruncated, err)
	}
	in.Amount = amount
	return in, nil
}

func decodeOutput(r *bytes.Reader) (Output, error) {
	var out Output
	markerByte, err := r.ReadByte()
	if err != nil {
		return out, fmt.Errorf("%w: output marker: %v", ErrTruncated, err)
	}
	if markerByte != outputMarker {
		return out, fmt.Errorf("%w: output marker %d", ErrUnknownType, markerByte)
	}

	var voutBytes [2]byte
	if _, err := readFull(r, voutBytes[:]); err != nil {
		return out, err
	}
	out.Vout = binary.LittleEndian.Uint16(voutBytes[:])

	amount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return out, fmt.Errorf("%w: output amount: %v", ErrTruncated, err)
	}
	out.Amount = amount
	return out, nil
}

func readID(r *bytes.Reader) (ID, error) {
	var id ID
	if _, err := readFull(r, id[:]); err != nil {
		return id, err
	}
	return id, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n, err := r.Read(buf)
	if err != nil || n != len(buf) {
		return n, fmt.Errorf("%w: expected %d bytes, got %d", ErrTruncated, len(buf), n)
	}
	return n, nil
}
