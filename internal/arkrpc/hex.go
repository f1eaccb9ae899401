package arkrpc

import (
	"encoding/hex"
	"fmt"
)

func hexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

func hexDecode(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return b, nil
}

func hexDecode32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hexDecode(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("%w: expected 32 bytes, got %d", ErrRequestFailed, len(b))
	}
	copy(out[:], b)
	return out, nil
}
