package asset

// Presence-byte masks for a group's optional fields.
const (
	MaskAssetID      byte = 0x01
	MaskControlAsset byte = 0x02
	MaskMetadata     byte = 0x04
)

// Input type bytes.
const (
	InputLocal  byte = 1
	InputIntent byte = 2
)

// outputMarker is the fixed leading byte of every encoded output.
const outputMarker byte = 0x01

// ID is a 34-byte asset identifier: the genesis transaction's txid
// followed by a little-endian uint16 output index.
type ID [34]byte

// Input is one transaction input that contributes to a group's asset
// balance. TxID is only meaningful when Type is InputIntent, where the
// contributing input lives in a different (already-confirmed) tx than
// the one carrying this packet.
type Input struct {
	Type   byte
	TxID   [32]byte
	Vin    uint16
	Amount uint64
}

// Output is one transaction output receiving an allocation of a group's
// asset.
type Output struct {
	Vout   uint16
	Amount uint64
}

// Group is one asset's packet within a transaction: its identity (absent
// for a fresh issuance), optional control-asset reference and metadata,
// and the inputs/outputs moving it.
type Group struct {
	AssetID      *ID
	ControlAsset *ID
	Metadata     [][]byte
	Inputs       []Input
	Outputs      []Output
}

// Packet is the full decoded TLV payload of an asset OP_RETURN output.
type Packet struct {
	Groups []Group
}

// IsIssuance reports whether g introduces a new asset: no asset id and no
// inputs.
func (g Group) IsIssuance() bool {
	return g.AssetID == nil && len(g.Inputs) == 0
}

// IsReissuance reports whether g mints additional supply of an existing
// asset: its output sum exceeds the sum of its Local inputs.
func (g Group) IsReissuance() bool {
	if g.AssetID == nil {
		return false
	}
	var outSum, localInSum uint64
	for _, o := range g.Outputs {
		outSum += o.Amount
	}
	for _, in := range g.Inputs {
		if in.Type == InputLocal {
			localInSum += in.Amount
		}
	}
	return outSum > localInSum
}
