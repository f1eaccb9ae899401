package identity

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
)

// Musig2SigningSession is a one-shot MuSig2 co-signing session over a
// single arbitrary 32-byte message, scoped to one signer's key. It is the
// generic signing primitive behind Signer.SignerSession; the VTXO tree
// cosigner in internal/musig2tree does not use it and keeps its own
// per-node signing state.
type Musig2SigningSession interface {
	// PublicKey returns this session's own compressed public key, to be
	// shared with the other cosigners before key aggregation.
	PublicKey() []byte

	// SetCosigners fixes the full cosigner set (including this session's
	// own key); Sign aggregates the keys in sorted order. It may only be
	// called once per session.
	SetCosigners(pubKeys [][]byte) error

	// PublicNonce generates and returns this session's public nonce. It
	// may only be called once per session; calling it again would risk
	// nonce reuse.
	PublicNonce() ([musig2.PubNonceSize]byte, error)

	// SetAggregatedNonce supplies the combined public nonce of every
	// cosigner, unblocking Sign.
	SetAggregatedNonce(combined [musig2.PubNonceSize]byte) error

	// Sign produces this session's partial signature over message. A
	// session signs at most once; the secret nonce is zeroed afterward.
	Sign(message [32]byte) ([]byte, error)
}

type schnorrSession struct {
	ownKey *btcec.PrivateKey

	cosigners   []*btcec.PublicKey
	keysSet     bool
	localNonces *musig2.Nonces
	combined    [musig2.PubNonceSize]byte
	haveNonce   bool
	signed      bool
}

func newSchnorrSession(ownKey *btcec.PrivateKey) *schnorrSession {
	return &schnorrSession{ownKey: ownKey}
}

func (s *schnorrSession) PublicKey() []byte {
	return s.ownKey.PubKey().SerializeCompressed()
}

func (s *schnorrSession) SetCosigners(pubKeys [][]byte) error {
	if s.keysSet {
		return fmt.Errorf("identity: cosigners already set for this session")
	}
	own := s.ownKey.PubKey().SerializeCompressed()
	found := false
	keys := make([]*btcec.PublicKey, 0, len(pubKeys))
	for _, raw := range pubKeys {
		pk, err := btcec.ParsePubKey(raw)
		if err != nil {
			return fmt.Errorf("identity: parse cosigner key: %w", err)
		}
		keys = append(keys, pk)
		if bytes.Equal(raw, own) {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("identity: own key not present in cosigner set")
	}
	s.cosigners = keys
	s.keysSet = true
	return nil
}

func (s *schnorrSession) PublicNonce() ([musig2.PubNonceSize]byte, error) {
	if s.localNonces != nil {
		return [musig2.PubNonceSize]byte{}, fmt.Errorf("identity: nonce already generated for this session")
	}
	nonces, err := musig2.GenNonces(musig2.WithPublicKey(s.ownKey.PubKey()))
	if err != nil {
		return [musig2.PubNonceSize]byte{}, fmt.Errorf("identity: generate nonce: %w", err)
	}
	s.localNonces = nonces
	return nonces.PubNonce, nil
}

func (s *schnorrSession) SetAggregatedNonce(combined [musig2.PubNonceSize]byte) error {
	if s.haveNonce {
		return fmt.Errorf("identity: aggregated nonce already set for this session")
	}
	s.combined = combined
	s.haveNonce = true
	return nil
}

func (s *schnorrSession) Sign(message [32]byte) ([]byte, error) {
	if !s.keysSet {
		return nil, fmt.Errorf("identity: cosigners not set")
	}
	if s.localNonces == nil || !s.haveNonce {
		return nil, fmt.Errorf("identity: nonces not ready")
	}
	if s.signed {
		return nil, fmt.Errorf("identity: session already signed")
	}

	partial, err := musig2.Sign(s.localNonces.SecNonce, s.ownKey, s.combined, s.cosigners, message, musig2.WithSortedKeys())
	if err != nil {
		return nil, fmt.Errorf("identity: sign: %w", err)
	}

	s.localNonces.SecNonce = [musig2.SecNonceSize]byte{}
	s.localNonces = nil
	s.signed = true

	var buf bytes.Buffer
	if err := partial.Encode(&buf); err != nil {
		return nil, fmt.Errorf("identity: encode partial signature: %w", err)
	}
	return buf.Bytes(), nil
}
