package identity

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/tyler-smith/go-bip39"
)

// bip86Purpose is BIP-86's hardened purpose constant for single-key
// taproot wallets: m/86'/coin'/account'/change/index.
const bip86Purpose = 86 + hdkeychain.HardenedKeyStart

// Signer is the minimal contract the wallet core requires of a signing
// identity: a stable x-only public key, PSBT input signing, and a factory
// for MuSig2 sessions over arbitrary messages under the same key.
type Signer interface {
	XOnlyPublicKey() [32]byte
	Sign(packet *psbt.Packet, inputIndexes []int) (*psbt.Packet, error)
	SignerSession() Musig2SigningSession
}

// GenerateMnemonic produces a new 24-word BIP-39 mnemonic for a fresh
// wallet.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("identity: generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic reports whether mnemonic is a well-formed BIP-39 phrase.
func ValidateMnemonic(mnemonic string) bool {
	_, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	return err == nil
}

// KeySigner is an in-memory Signer: a single BIP-86 derived key, held as a
// plaintext private key for the lifetime of the process. Production
// deployments should replace it with a signer backed by an HSM, enclave, or
// hardware wallet behind the same interface.
type KeySigner struct {
	mu      sync.Mutex
	privKey *btcec.PrivateKey
}

// NewKeySignerFromMnemonic derives a KeySigner's signing key at
// m/86'/coin'/0'/0/0 from a BIP-39 mnemonic, where coin is 0 for mainnet
// and 1 for every test network (per BIP-44's shared testnet coin type).
func NewKeySignerFromMnemonic(mnemonic, passphrase string, network *chaincfg.Params) (*KeySigner, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid mnemonic: %w", err)
	}
	return NewKeySignerFromSeed(seed, network)
}

// NewKeySignerFromSeed derives a KeySigner directly from a BIP-32 seed,
// for callers that manage mnemonic handling themselves.
func NewKeySignerFromSeed(seed []byte, network *chaincfg.Params) (*KeySigner, error) {
	master, err := hdkeychain.NewMaster(seed, network)
	if err != nil {
		return nil, fmt.Errorf("identity: derive master key: %w", err)
	}

	coinType := uint32(0)
	if network.Net != chaincfg.MainNetParams.Net {
		coinType = 1
	}

	key := master
	for _, idx := range []uint32{bip86Purpose, coinType + hdkeychain.HardenedKeyStart, hdkeychain.HardenedKeyStart, 0, 0} {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("identity: derive signing key: %w", err)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("identity: extract private key: %w", err)
	}
	return &KeySigner{privKey: privKey}, nil
}

// XOnlyPublicKey implements Signer.
func (k *KeySigner) XOnlyPublicKey() [32]byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out [32]byte
	copy(out[:], schnorr.SerializePubKey(k.privKey.PubKey()))
	return out
}

// SignerSession implements Signer, returning a fresh MuSig2 session over
// this signer's key. Each call starts an independent session; nonces must
// never be reused across sessions.
func (k *KeySigner) SignerSession() Musig2SigningSession {
	k.mu.Lock()
	defer k.mu.Unlock()
	return newSchnorrSession(k.privKey)
}

// Sign implements Signer. inputIndexes selects which packet inputs to
// sign; a nil or empty slice selects every input. A selected input whose
// leaf script does not carry this key fails the whole call with
// ErrNoMatchingKey. An input is signed either via its script-path leaf
// (when TaprootLeafScript is set and the script pushes this key) or,
// absent a leaf, via BIP-86 key-path spend of the witness utxo's taproot
// output key.
func (k *KeySigner) Sign(packet *psbt.Packet, inputIndexes []int) (*psbt.Packet, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	indexes := inputIndexes
	if len(indexes) == 0 {
		indexes = make([]int, len(packet.Inputs))
		for i := range packet.Inputs {
			indexes[i] = i
		}
	}

	fetcher, err := prevOutputFetcher(packet)
	if err != nil {
		return nil, err
	}
	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, fetcher)
	xOnlyPub := schnorr.SerializePubKey(k.privKey.PubKey())

	for _, idx := range indexes {
		if idx < 0 || idx >= len(packet.Inputs) {
			return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, idx)
		}
		pin := &packet.Inputs[idx]
		if pin.WitnessUtxo == nil {
			return nil, fmt.Errorf("%w: input %d", ErrMissingUtxo, idx)
		}

		hashType := pin.SighashType
		if hashType == 0 {
			hashType = txscript.SigHashDefault
		}

		if len(pin.TaprootLeafScript) > 0 {
			leaf := pin.TaprootLeafScript[0]
			if !scriptEndsInChecksig(leaf.Script, xOnlyPub) {
				return nil, fmt.Errorf("%w: input %d", ErrNoMatchingKey, idx)
			}
			tapLeaf := txscript.NewTapLeaf(leaf.LeafVersion, leaf.Script)
			sigHash, err := txscript.CalcTapscriptSignaturehash(sigHashes, hashType, packet.UnsignedTx, idx, fetcher, tapLeaf)
			if err != nil {
				return nil, fmt.Errorf("identity: tapscript sighash for input %d: %w", idx, err)
			}
			sig, err := schnorr.Sign(k.privKey, sigHash)
			if err != nil {
				return nil, fmt.Errorf("identity: sign input %d: %w", idx, err)
			}
			sigBytes := sig.Serialize()
			if hashType != txscript.SigHashDefault {
				sigBytes = append(sigBytes, byte(hashType))
			}
			leafHash := tapLeaf.TapHash()
			pin.TaprootScriptSpendSig = append(pin.TaprootScriptSpendSig, &psbt.TaprootScriptSpendSig{
				XOnlyPubKey: xOnlyPub,
				LeafHash:    leafHash[:],
				Signature:   sigBytes,
				SigHash:     hashType,
			})
			continue
		}

		tweaked := txscript.TweakTaprootPrivKey(*k.privKey, nil)
		sigHash, err := txscript.CalcTaprootSignatureHash(sigHashes, hashType, packet.UnsignedTx, idx, fetcher)
		if err != nil {
			return nil, fmt.Errorf("identity: taproot sighash for input %d: %w", idx, err)
		}
		sig, err := schnorr.Sign(tweaked, sigHash)
		if err != nil {
			return nil, fmt.Errorf("identity: sign input %d: %w", idx, err)
		}
		sigBytes := sig.Serialize()
		if hashType != txscript.SigHashDefault {
			sigBytes = append(sigBytes, byte(hashType))
		}
		pin.TaprootKeySpendSig = sigBytes
	}

	return packet, nil
}

// scriptEndsInChecksig reports whether any 32-byte data push in the leaf
// script equals xOnlyPub; the position of that push and the opcode that
// follows it are not checked.
func scriptEndsInChecksig(script []byte, xOnlyPub []byte) bool {
	tokens, err := txscript.PushedData(script)
	if err != nil {
		return false
	}
	for _, t := range tokens {
		if len(t) == 32 && string(t) == string(xOnlyPub) {
			return true
		}
	}
	return false
}

func prevOutputFetcher(packet *psbt.Packet) (*txscript.MultiPrevOutFetcher, error) {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, txIn := range packet.UnsignedTx.TxIn {
		if packet.Inputs[i].WitnessUtxo == nil {
			return nil, fmt.Errorf("%w: input %d", ErrMissingUtxo, i)
		}
		fetcher.AddPrevOut(txIn.PreviousOutPoint, packet.Inputs[i].WitnessUtxo)
	}
	return fetcher, nil
}
