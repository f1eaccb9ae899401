package asset

import "bytes"

// Scan searches payload for an asset packet, starting from each
// occurrence of the magic prefix in turn. A literal "ARK" is unlikely to
// recur by accident, but the marker byte that must immediately follow it
// is 0x00 — a value that legitimately appears inside unrelated binary
// data placed before or after the packet in the same OP_RETURN output.
// Scan therefore trial-parses at every candidate offset and returns the
// first one that decodes cleanly to the end of the buffer, rather than
// trusting the first magic occurrence.
func Scan(payload []byte) (*Packet, error) {
	offset := 0
	for {
		idx := bytes.Index(payload[offset:], magic)
		if idx < 0 {
			return nil, ErrNotFound
		}
		start := offset + idx

		packet, err := Decode(payload[start:])
		if err == nil {
			return packet, nil
		}

		offset = start + 1
		if offset >= len(payload) {
			return nil, ErrNotFound
		}
	}
}
