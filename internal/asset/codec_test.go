package asset

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeLiteralHexPacket(t *testing.T) {
	raw := "41524b00" + // "ARK" + marker
		"01" + // group count = 1
		"01" + // presence = MaskAssetID
		strings.Repeat("00", 32) + "0000" + // asset_id: zero txid, vout 0
		"01" + // input count = 1
		"01" + "0000" + "64" + // Local input, vin 0, amount 100
		"01" + // output count = 1
		"01" + "0000" + "64" // output, vout 0, amount 100

	b, err := hex.DecodeString(raw)
	require.NoError(t, err)

	packet, err := Decode(b)
	require.NoError(t, err)
	require.Len(t, packet.Groups, 1)

	g := packet.Groups[0]
	require.NotNil(t, g.AssetID)
	require.Len(t, g.Inputs, 1)
	require.Len(t, g.Outputs, 1)
	require.Equal(t, uint64(100), g.Inputs[0].Amount)
	require.Equal(t, uint64(100), g.Outputs[0].Amount)
	require.Equal(t, InputLocal, g.Inputs[0].Type)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var assetID ID
	assetID[32] = 0x01

	p := Packet{Groups: []Group{
		{
			AssetID: &assetID,
			Inputs:  []Input{{Type: InputLocal, Vin: 1, Amount: 50}},
			Outputs: []Output{{Vout: 0, Amount: 30}, {Vout: 1, Amount: 20}},
		},
	}}

	encoded, err := Encode(p)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, p, *decoded)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode([]byte("XYZ\x00\x00"))
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecodeRejectsBadMarker(t *testing.T) {
	_, err := Decode([]byte("ARK\x01\x00"))
	require.ErrorIs(t, err, ErrInvalidMarker)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	p := Packet{Groups: []Group{{Inputs: nil, Outputs: nil}}}
	encoded, err := Encode(p)
	require.NoError(t, err)

	encoded = append(encoded, 0xFF)
	_, err = Decode(encoded)
	require.ErrorIs(t, err, ErrTrailingBytes)
}

func TestDecodeRejectsUnknownInputType(t *testing.T) {
	raw := "41524b00" + // "ARK" + marker
		"01" + // group count = 1
		"00" + // presence = none
		"01" + // input count = 1
		"03" + "0000" + "01" + // unknown input type 3
		"00" // output count = 0

	b, err := hex.DecodeString(raw)
	require.NoError(t, err)

	_, err = Decode(b)
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestIssuanceAndReissuanceClassification(t *testing.T) {
	issuance := Group{Outputs: []Output{{Vout: 0, Amount: 100}}}
	require.True(t, issuance.IsIssuance())
	require.False(t, issuance.IsReissuance())

	var assetID ID
	reissuance := Group{
		AssetID: &assetID,
		Inputs:  []Input{{Type: InputLocal, Amount: 10}},
		Outputs: []Output{{Vout: 0, Amount: 50}},
	}
	require.False(t, reissuance.IsIssuance())
	require.True(t, reissuance.IsReissuance())

	transfer := Group{
		AssetID: &assetID,
		Inputs:  []Input{{Type: InputLocal, Amount: 50}},
		Outputs: []Output{{Vout: 0, Amount: 50}},
	}
	require.False(t, transfer.IsReissuance())
}
