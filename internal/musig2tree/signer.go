package musig2tree

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// NodeKey identifies one transaction within a tree by its (level, index)
// coordinates, matching internal/txtree's level matrix.
type NodeKey struct {
	Level int
	Index int
}

// NoncePair is the public/secret nonce generated for one tree node. The
// secret half never leaves this package and is zeroed after Sign.
type NoncePair struct {
	Pub [musig2.PubNonceSize]byte
	sec *musig2.Nonces
}

// PartialSig is an encoded MuSig2 partial signature for one tree node.
type PartialSig struct {
	Bytes []byte
}

// TreeSignerSession is the client-side MuSig2 co-signer for every node of a
// VTXO (or connector) tree sharing the same cosigner set. It is
// single-threaded and single-use per settlement round: once a session has
// produced partial signatures it cannot be reused — a new round starts a
// new session.
type TreeSignerSession struct {
	ownKey *btcec.PrivateKey

	sweepTapTreeRoot []byte

	cosignerKeys [][]byte
	keysSet      bool

	nonces map[NodeKey]*NoncePair

	aggregatedNonces map[NodeKey][musig2.PubNonceSize]byte
	noncesSet        bool

	sessions map[NodeKey]*musig2.Session
}

// NewTreeSignerSession creates a signer session for the given secret key
// and sweep tap-tree root (the taproot tweak shared by every tree node).
func NewTreeSignerSession(ownKey *btcec.PrivateKey, sweepTapTreeRoot []byte) *TreeSignerSession {
	return &TreeSignerSession{
		ownKey:           ownKey,
		sweepTapTreeRoot: sweepTapTreeRoot,
		nonces:           make(map[NodeKey]*NoncePair),
		aggregatedNonces: make(map[NodeKey][musig2.PubNonceSize]byte),
		sessions:         make(map[NodeKey]*musig2.Session),
	}
}

// SetKeys is a one-shot setter for the cosigner key set shared by every
// node this session signs.
func (s *TreeSignerSession) SetKeys(cosignerKeys [][]byte) error {
	if s.keysSet {
		return ErrKeysAlreadySet
	}
	ownCompressed := s.ownKey.PubKey().SerializeCompressed()
	found := false
	for _, k := range cosignerKeys {
		if len(k) == 33 && string(k) == string(ownCompressed) {
			found = true
			break
		}
	}
	if !found {
		return ErrSelfKeyNotInSet
	}
	s.cosignerKeys = cosignerKeys
	s.keysSet = true
	return nil
}

// GetNonces generates one (pub_nonce, sec_nonce) pair per requested node.
// Nonces must not be reused across signing attempts; the session stores
// secret nonces only in memory and zeroes them after Sign.
func (s *TreeSignerSession) GetNonces(nodes []NodeKey) (map[NodeKey][musig2.PubNonceSize]byte, error) {
	out := make(map[NodeKey][musig2.PubNonceSize]byte, len(nodes))
	for _, key := range nodes {
		if existing, ok := s.nonces[key]; ok && existing.sec != nil {
			return nil, fmt.Errorf("%w: node %+v", ErrNonceReuse, key)
		}
		n, err := musig2.GenNonces(musig2.WithPublicKey(s.ownKey.PubKey()))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
		}
		s.nonces[key] = &NoncePair{Pub: n.PubNonce, sec: n}
		out[key] = n.PubNonce
	}
	return out, nil
}

// SetAggregatedNonces is a one-shot setter for the combined public nonces
// the Server returns after every cosigner has submitted its own.
func (s *TreeSignerSession) SetAggregatedNonces(combined map[NodeKey][musig2.PubNonceSize]byte) error {
	if s.noncesSet {
		return ErrNoncesAlreadySet
	}
	s.aggregatedNonces = combined
	s.noncesSet = true
	return nil
}

// Sign produces a partial signature for every node whose BIP-341 sighash is
// given, using SIGHASH_DEFAULT semantics (the caller computed the sighash
// of input 0 with the parent output's amount and script).
func (s *TreeSignerSession) Sign(sighashes map[NodeKey]chainhash.Hash) (map[NodeKey]*PartialSig, error) {
	if !s.keysSet {
		return nil, ErrKeysNotSet
	}
	if !s.noncesSet {
		return nil, ErrNoncesNotSet
	}

	out := make(map[NodeKey]*PartialSig, len(sighashes))
	for key, msg := range sighashes {
		noncePair, ok := s.nonces[key]
		if !ok || noncePair.sec == nil {
			return nil, ErrNoncesNotGenerated
		}
		combinedNonce, ok := s.aggregatedNonces[key]
		if !ok {
			return nil, ErrNoncesNotSet
		}

		keys, err := parsePubKeys(s.cosignerKeys)
		if err != nil {
			return nil, err
		}
		signOpts := []musig2.SignOption{musig2.WithSortedKeys()}
		if len(s.sweepTapTreeRoot) > 0 {
			signOpts = append(signOpts, musig2.WithTaprootSignTweak(s.sweepTapTreeRoot))
		} else {
			signOpts = append(signOpts, musig2.WithBip86SignTweak())
		}

		partial, err := musig2.Sign(noncePair.sec.SecNonce, s.ownKey, combinedNonce, keys, msg, signOpts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
		}

		encoded, err := encodePartial(partial)
		if err != nil {
			return nil, err
		}
		out[key] = &PartialSig{Bytes: encoded}

		// Zero the secret nonce material immediately after use; a reused
		// nonce leaks the private key.
		noncePair.sec.SecNonce = [musig2.SecNonceSize]byte{}
		noncePair.sec = nil
	}
	return out, nil
}

func (s *TreeSignerSession) sessionFor(key NodeKey, noncePair *NoncePair, combinedNonce [musig2.PubNonceSize]byte) (*musig2.Session, error) {
	if existing, ok := s.sessions[key]; ok {
		return existing, nil
	}

	keys, err := parsePubKeys(s.cosignerKeys)
	if err != nil {
		return nil, err
	}

	var ctxOpts []musig2.ContextOption
	ctxOpts = append(ctxOpts, musig2.WithKnownSigners(keys))
	if len(s.sweepTapTreeRoot) > 0 {
		ctxOpts = append(ctxOpts, musig2.WithTaprootTweakCtx(s.sweepTapTreeRoot))
	} else {
		ctxOpts = append(ctxOpts, musig2.WithBip86TweakCtx())
	}

	ctx, err := musig2.NewContext(s.ownKey, false, ctxOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	session, err := ctx.NewSession(musig2.WithPreGeneratedNonce(noncePair.sec))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	if _, err := session.RegisterPubNonce(combinedNonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	s.sessions[key] = session
	return session, nil
}

func encodePartial(sig *musig2.PartialSignature) ([]byte, error) {
	var buf bytes.Buffer
	if err := sig.Encode(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return buf.Bytes(), nil
}

// ValidateTreeSigs verifies every node's tapKeySig as a Schnorr signature
// over its recomputed sighash against the final aggregate key — the
// client-side self-test described for the coordinator session.
func ValidateTreeSigs(finalKey *btcec.PublicKey, sighashes map[NodeKey]chainhash.Hash, sigs map[NodeKey][]byte) error {
	for key, msg := range sighashes {
		raw, ok := sigs[key]
		if !ok {
			return fmt.Errorf("%w: missing signature for %+v", ErrVerificationFailed, key)
		}
		sig, err := schnorr.ParseSignature(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
		}
		if !sig.Verify(msg[:], finalKey) {
			return fmt.Errorf("%w: node %+v", ErrVerificationFailed, key)
		}
	}
	return nil
}
