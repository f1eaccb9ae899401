package musig2tree

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
)

// TreeCoordinatorSession mirrors TreeSignerSession for the party that
// collects every cosigner's nonces and partial signatures and combines
// them into the final per-node taproot key-spend signature. A client runs
// this only when acting as the settlement coordinator for its own round;
// otherwise the Server performs this role and the client only validates
// the result with ValidateTreeSigs.
type TreeCoordinatorSession struct {
	cosignerKeys [][]byte
	keysSet      bool

	sweepTapTreeRoot []byte

	pubNonces map[NodeKey][][musig2.PubNonceSize]byte

	aggregatedNonces map[NodeKey][musig2.PubNonceSize]byte
	noncesSet        bool

	partials map[NodeKey][]*musig2.PartialSignature
}

// NewTreeCoordinatorSession creates a coordinator session for the given
// sweep tap-tree root (nil for key-path-only aggregation).
func NewTreeCoordinatorSession(sweepTapTreeRoot []byte) *TreeCoordinatorSession {
	return &TreeCoordinatorSession{
		sweepTapTreeRoot: sweepTapTreeRoot,
		pubNonces:        make(map[NodeKey][][musig2.PubNonceSize]byte),
		aggregatedNonces: make(map[NodeKey][musig2.PubNonceSize]byte),
		partials:         make(map[NodeKey][]*musig2.PartialSignature),
	}
}

// SetKeys is a one-shot setter for the full cosigner key set.
func (c *TreeCoordinatorSession) SetKeys(cosignerKeys [][]byte) error {
	if c.keysSet {
		return ErrKeysAlreadySet
	}
	c.cosignerKeys = cosignerKeys
	c.keysSet = true
	return nil
}

// AddNonceCommitment records one cosigner's public nonce for a node.
func (c *TreeCoordinatorSession) AddNonceCommitment(node NodeKey, nonce [musig2.PubNonceSize]byte) {
	c.pubNonces[node] = append(c.pubNonces[node], nonce)
}

// AggregateNonces combines every recorded nonce commitment per node into
// the single combined nonce every cosigner then registers.
func (c *TreeCoordinatorSession) AggregateNonces() (map[NodeKey][musig2.PubNonceSize]byte, error) {
	if c.noncesSet {
		return nil, ErrNoncesAlreadySet
	}
	out := make(map[NodeKey][musig2.PubNonceSize]byte, len(c.pubNonces))
	for node, nonces := range c.pubNonces {
		combined, err := musig2.AggregateNonces(nonces)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
		}
		out[node] = combined
	}
	c.aggregatedNonces = out
	c.noncesSet = true
	return out, nil
}

// AddPartialSignature records one cosigner's partial signature for a node.
func (c *TreeCoordinatorSession) AddPartialSignature(node NodeKey, sig *musig2.PartialSignature) {
	c.partials[node] = append(c.partials[node], sig)
}

// CombineSignatures finalizes every node's taproot key-spend signature
// from its recorded partial signatures, returning the final aggregate
// key alongside the per-node 64-byte Schnorr signatures.
func (c *TreeCoordinatorSession) CombineSignatures() (*btcec.PublicKey, map[NodeKey][]byte, error) {
	if !c.keysSet {
		return nil, nil, ErrKeysNotSet
	}
	if !c.noncesSet {
		return nil, nil, ErrNoncesNotSet
	}

	_, finalKey, err := AggregatePreTweak(c.cosignerKeys, c.sweepTapTreeRoot)
	if err != nil {
		return nil, nil, err
	}

	out := make(map[NodeKey][]byte, len(c.partials))
	for node, partials := range c.partials {
		sig, err := musig2.CombineSigs(nil, partials)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
		}
		out[node] = sig.Serialize()
	}
	return finalKey, out, nil
}
