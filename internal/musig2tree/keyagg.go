package musig2tree

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
)

// parsePubKeys parses a set of 33-byte compressed keys.
func parsePubKeys(compressed [][]byte) ([]*btcec.PublicKey, error) {
	keys := make([]*btcec.PublicKey, len(compressed))
	for i, k := range compressed {
		if len(k) != 33 {
			return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(k))
		}
		pk, err := btcec.ParsePubKey(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		keys[i] = pk
	}
	return keys, nil
}

// AggregateKeys aggregates an unordered set of compressed cosigner keys,
// sorting lexicographically first so every cosigner computes the same
// result regardless of input order, then applies the BIP-341 taproot tweak
// with the given merkle root (nil/empty for no script-tree tweak) and
// returns the final tweaked aggregate key.
func AggregateKeys(compressed [][]byte, tweak []byte) (*btcec.PublicKey, error) {
	keys, err := parsePubKeys(compressed)
	if err != nil {
		return nil, err
	}

	opts := []musig2.KeyAggOption{musig2.WithBIP86KeyTweak()}
	if len(tweak) > 0 {
		var root [32]byte
		copy(root[:], tweak)
		opts = []musig2.KeyAggOption{musig2.WithTaprootKeyTweak(root[:])}
	}

	agg, _, _, err := musig2.AggregateKeys(keys, true, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAggregationFailed, err)
	}
	return agg.FinalKey, nil
}

// AggregatePreTweak returns both the pre-tweak aggregate key (used as the
// MuSig2 signing context's internal key) and the final BIP-341-tweaked key,
// given an unordered set of compressed cosigner keys and a taproot merkle
// root (nil for key-path-only, i.e. BIP-86).
func AggregatePreTweak(compressed [][]byte, merkleRoot []byte) (preTweaked, final *btcec.PublicKey, err error) {
	keys, err := parsePubKeys(compressed)
	if err != nil {
		return nil, nil, err
	}

	var opts []musig2.KeyAggOption
	if len(merkleRoot) > 0 {
		opts = append(opts, musig2.WithTaprootKeyTweak(merkleRoot))
	} else {
		opts = append(opts, musig2.WithBIP86KeyTweak())
	}

	agg, _, _, err := musig2.AggregateKeys(keys, true, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyAggregationFailed, err)
	}
	return agg.PreTweakedKey, agg.FinalKey, nil
}
