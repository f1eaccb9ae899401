package intent

import (
	"bytes"
	"fmt"
)

// Message is one of the three intent message variants. Each variant's
// JSON encoding is hand-built in a fixed field order rather than left to
// encoding/json's struct-tag ordering, since the signed message bytes
// must be byte-identical between client and Server.
type Message interface {
	encode() []byte
}

// RegisterMessage signals intent to join a settlement round with the
// given inputs, validity window, and cosigner keys.
type RegisterMessage struct {
	OnchainOutputIndexes []int
	ValidAt              int64
	ExpireAt             int64
	CosignersPublicKeys  []string
}

func (m RegisterMessage) encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"type":"register","onchain_output_indexes":`)
	writeIntArray(&buf, m.OnchainOutputIndexes)
	fmt.Fprintf(&buf, `,"valid_at":%d,"expire_at":%d,"cosigners_public_keys":`, m.ValidAt, m.ExpireAt)
	writeStringArray(&buf, m.CosignersPublicKeys)
	buf.WriteByte('}')
	return buf.Bytes()
}

// DeleteMessage signals intent to cancel a previously registered intent.
type DeleteMessage struct {
	ExpireAt int64
}

func (m DeleteMessage) encode() []byte {
	return []byte(fmt.Sprintf(`{"type":"delete","expire_at":%d}`, m.ExpireAt))
}

// GetPendingTxMessage requests the client's currently pending settlement
// transaction, if any.
type GetPendingTxMessage struct {
	ExpireAt int64
}

func (m GetPendingTxMessage) encode() []byte {
	return []byte(fmt.Sprintf(`{"type":"get-pending-tx","expire_at":%d}`, m.ExpireAt))
}

func writeIntArray(buf *bytes.Buffer, values []int) {
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(buf, "%d", v)
	}
	buf.WriteByte(']')
}

func writeStringArray(buf *bytes.Buffer, values []string) {
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(v)
		buf.WriteByte('"')
	}
	buf.WriteByte(']')
}

// Encode returns the canonical JSON bytes for a message, used as the
// payload of the tagged hash committed in the proof's to_spend input.
func Encode(m Message) []byte {
	return m.encode()
}
