package arkscript

import (
	"fmt"
	"strings"
)

// Ark addresses are bech32m, like a witness v1 (taproot) address, but the
// payload is much larger (version + server pubkey + vtxo key) than a plain
// P2TR payload, so the usual ~90-character bech32 limit does not apply.
const maxAddressLength = 1023

const (
	bech32mConst = 0x2bc830a3
	charset      = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

	// AddressVersion is the only version currently defined for Ark
	// addresses: version(1) || server_pubkey(32) || vtxo_key(32).
	AddressVersion = 0x00

	// HRPMainnet and HRPTestnet are the two human-readable parts this
	// Protocol defines; regtest reuses HRPTestnet.
	HRPMainnet = "ark"
	HRPTestnet = "tark"
)

var charsetIndex = func() map[byte]byte {
	m := make(map[byte]byte, len(charset))
	for i := 0; i < len(charset); i++ {
		m[charset[i]] = byte(i)
	}
	return m
}()

// Address is the decoded form of an Ark bech32m address.
type Address struct {
	HRP          string
	Version      byte
	ServerPubKey [32]byte
	VtxoKey      [32]byte
}

// EncodeAddress renders `version(1) || server_pubkey(32) || vtxo_key(32)` as
// bech32m under the given HRP.
func EncodeAddress(serverPubKey, vtxoKey [32]byte, hrp string) (string, error) {
	payload := make([]byte, 0, 65)
	payload = append(payload, AddressVersion)
	payload = append(payload, serverPubKey[:]...)
	payload = append(payload, vtxoKey[:]...)
	return bech32mEncode(hrp, payload)
}

// DecodeAddress parses a bech32m Ark address and returns its fields.
func DecodeAddress(addr string) (*Address, error) {
	hrp, payload, err := bech32mDecode(addr)
	if err != nil {
		return nil, err
	}
	if len(payload) != 65 {
		return nil, fmt.Errorf("%w: expected 65-byte payload, got %d", ErrInvalidAddress, len(payload))
	}
	if payload[0] != AddressVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidAddress, payload[0])
	}
	out := &Address{HRP: hrp, Version: payload[0]}
	copy(out.ServerPubKey[:], payload[1:33])
	copy(out.VtxoKey[:], payload[33:65])
	return out, nil
}

func bech32mEncode(hrp string, data []byte) (string, error) {
	if hrp == "" {
		return "", fmt.Errorf("%w: empty hrp", ErrInvalidAddress)
	}
	conv, err := convertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	checksum := createChecksum(hrp, conv)
	combined := append(conv, checksum...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, b := range combined {
		sb.WriteByte(charset[b])
	}
	result := sb.String()
	if len(result) > maxAddressLength {
		return "", fmt.Errorf("%w: encoded address exceeds %d characters", ErrInvalidAddress, maxAddressLength)
	}
	return result, nil
}

func bech32mDecode(addr string) (string, []byte, error) {
	if len(addr) > maxAddressLength {
		return "", nil, fmt.Errorf("%w: address exceeds %d characters", ErrInvalidAddress, maxAddressLength)
	}
	if strings.ToLower(addr) != addr && strings.ToUpper(addr) != addr {
		return "", nil, fmt.Errorf("%w: mixed case", ErrInvalidAddress)
	}
	addr = strings.ToLower(addr)

	sep := strings.LastIndexByte(addr, '1')
	if sep < 1 || sep+7 > len(addr) {
		return "", nil, fmt.Errorf("%w: missing separator", ErrInvalidAddress)
	}
	hrp := addr[:sep]
	dataPart := addr[sep+1:]

	values := make([]byte, len(dataPart))
	for i := 0; i < len(dataPart); i++ {
		v, ok := charsetIndex[dataPart[i]]
		if !ok {
			return "", nil, fmt.Errorf("%w: invalid character %q", ErrInvalidAddress, dataPart[i])
		}
		values[i] = v
	}

	if !verifyChecksum(hrp, values) {
		return "", nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	payload, err := convertBits(values[:len(values)-6], 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return hrp, payload, nil
}

func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	var result []byte
	maxv := uint32((1 << toBits) - 1)

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data range")
		}
		acc = (acc << fromBits) | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			result = append(result, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			result = append(result, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || ((acc<<(toBits-bits))&maxv) != 0 {
		return nil, fmt.Errorf("invalid padding")
	}

	return result, nil
}

func hrpExpand(hrp string) []byte {
	result := make([]byte, len(hrp)*2+1)
	for i, c := range hrp {
		result[i] = byte(c >> 5)
		result[i+len(hrp)+1] = byte(c & 31)
	}
	result[len(hrp)] = 0
	return result
}

func polymod(values []byte) uint32 {
	gen := []uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		b := chk >> 25
		chk = ((chk & 0x1ffffff) << 5) ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (b>>i)&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func createChecksum(hrp string, data []byte) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, []byte{0, 0, 0, 0, 0, 0}...)
	mod := polymod(values) ^ bech32mConst

	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte((mod >> (5 * (5 - i))) & 31)
	}
	return checksum
}

func verifyChecksum(hrp string, data []byte) bool {
	values := append(hrpExpand(hrp), data...)
	return polymod(values) == bech32mConst
}
