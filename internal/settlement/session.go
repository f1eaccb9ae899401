package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcec/v2/schnorr/musig2"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/arkwallet/client-core/internal/arkscript"
	"github.com/arkwallet/client-core/internal/arktx"
	"github.com/arkwallet/client-core/internal/musig2tree"
	"github.com/arkwallet/client-core/internal/txtree"
	"github.com/arkwallet/client-core/pkg/logging"
)

// OwnedVtxo is one VTXO this wallet is registering for settlement.
type OwnedVtxo struct {
	Outpoint    wire.OutPoint
	Amount      int64
	Script      []byte
	ForfeitLeaf *arkscript.TapLeafScript
	PrivateKey  *btcec.PrivateKey
}

// BoardingInput is one on-chain boarding UTXO registered alongside VTXOs.
type BoardingInput struct {
	Outpoint    wire.OutPoint
	WitnessUtxo *wire.TxOut
	PrivateKey  *btcec.PrivateKey
}

// WalletView is the subset of wallet state a settlement session needs; the
// wallet orchestration layer implements this over its coin set.
type WalletView interface {
	OwnedVtxos() []OwnedVtxo
	BoardingInputs() []BoardingInput
	ForfeitOutputScript() []byte
}

// ServerSubmitter is the subset of the Server RPC surface a settlement
// session drives.
type ServerSubmitter interface {
	Ping(ctx context.Context, requestID string) error
	SubmitTreeNonces(ctx context.Context, requestID string, nonces map[musig2tree.NodeKey][musig2.PubNonceSize]byte) error
	SubmitTreeSignatures(ctx context.Context, requestID string, sigs map[musig2tree.NodeKey][]byte) error
	SubmitSignedForfeitTxs(ctx context.Context, requestID string, forfeits []*arktx.SignedForfeit, boardingSigs map[wire.OutPoint][]byte) error
}

// Session drives one client through a settlement round. It is not safe
// for concurrent HandleEvent calls; the Server's event stream is
// inherently sequential so this matches the protocol.
type Session struct {
	mu sync.Mutex

	requestID string
	state     State

	wallet WalletView
	server ServerSubmitter
	log    *logging.Logger

	cosignerKey *btcec.PrivateKey

	tree             *txtree.Tree
	commitmentTx     *wire.MsgTx
	batchOutputIndex int
	sweepTapTreeRoot []byte

	signer *musig2tree.TreeSignerSession
	hb     *heartbeat
}

// NewSession creates an idle settlement session. cosignerKey is the
// ephemeral key this round registers as its cosigner-set contribution.
func NewSession(requestID string, cosignerKey *btcec.PrivateKey, wallet WalletView, server ServerSubmitter, log *logging.Logger) *Session {
	return &Session{
		requestID:   requestID,
		state:       StateIdle,
		wallet:      wallet,
		server:      server,
		log:         log.With("request_id", requestID),
		cosignerKey: cosignerKey,
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Register moves the session from idle to registered and starts the 1 Hz
// heartbeat. The caller is expected to have already submitted the signed
// intent proof covering inputs, outputs, and this round's cosigner pubkey.
func (s *Session) Register(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return nil
	}
	s.transitionLocked(ctx, StateRegistered)
	return nil
}

// transitionLocked stops the previous heartbeat and starts a new one
// scoped to the new state; terminal states run no heartbeat. Caller must
// hold s.mu.
func (s *Session) transitionLocked(ctx context.Context, next State) {
	s.hb.stop()
	s.hb = nil
	s.state = next
	if next == StateFinalized || next == StateFailed {
		return
	}
	s.hb = startHeartbeat(ctx, s.requestID, s.server.Ping, s.log)
}

// HandleEvent applies one Server-pushed event. Events that do not match
// the current state are silently ignored to tolerate replay, except
// FailedEvent, which always terminates the session. A FinalizedEvent moves
// the session to finalized; its CommitmentTxid is neither stored nor
// returned.
func (s *Session) HandleEvent(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !acceptedEvent(s.state, ev.kind()) {
		s.log.Debug("ignoring out-of-order event", "state", s.state, "event", fmt.Sprintf("%T", ev))
		return nil
	}

	switch e := ev.(type) {
	case FailedEvent:
		s.transitionLocked(ctx, StateFailed)
		return &SettlementAborted{Reason: e.Reason, Err: &RemoteError{Reason: e.Reason, Retryable: e.Retryable}}

	case SigningStartEvent:
		if err := s.handleSigningStart(ctx, e); err != nil {
			return err
		}
		s.transitionLocked(ctx, StateSigningStart)
		return nil

	case SigningNoncesGeneratedEvent:
		if err := s.handleNoncesGenerated(ctx, e); err != nil {
			return err
		}
		s.transitionLocked(ctx, StateNoncesGenerated)
		return nil

	case FinalizationEvent:
		if err := s.handleFinalization(ctx, e); err != nil {
			return err
		}
		s.transitionLocked(ctx, StateFinalizing)
		return nil

	case FinalizedEvent:
		s.transitionLocked(ctx, StateFinalized)
		return nil
	}
	return nil
}

func (s *Session) handleSigningStart(ctx context.Context, e SigningStartEvent) error {
	if err := txtree.ValidateVtxoTxTree(e.Tree, e.CommitmentTx, e.BatchOutputIndex, e.SweepTapTreeRoot); err != nil {
		return fmt.Errorf("%w: %v", ErrTreeInvalid, err)
	}

	s.tree = e.Tree
	s.commitmentTx = e.CommitmentTx
	s.batchOutputIndex = e.BatchOutputIndex
	s.sweepTapTreeRoot = e.SweepTapTreeRoot

	s.signer = musig2tree.NewTreeSignerSession(s.cosignerKey, e.SweepTapTreeRoot)
	if err := s.signer.SetKeys(e.CosignerPubKeys); err != nil {
		return err
	}

	nodes := allNodeKeys(e.Tree)
	nonces, err := s.signer.GetNonces(nodes)
	if err != nil {
		return err
	}
	return s.server.SubmitTreeNonces(ctx, s.requestID, nonces)
}

func (s *Session) handleNoncesGenerated(ctx context.Context, e SigningNoncesGeneratedEvent) error {
	if err := s.signer.SetAggregatedNonces(e.CombinedNonces); err != nil {
		return err
	}

	sighashes, err := nodeSighashes(s.tree, s.commitmentTx, s.batchOutputIndex)
	if err != nil {
		return err
	}

	partials, err := s.signer.Sign(sighashes)
	if err != nil {
		return err
	}

	sigs := make(map[musig2tree.NodeKey][]byte, len(partials))
	for key, p := range partials {
		sigs[key] = p.Bytes
	}
	return s.server.SubmitTreeSignatures(ctx, s.requestID, sigs)
}

func (s *Session) handleFinalization(ctx context.Context, e FinalizationEvent) error {
	forfeitOutputScript := s.wallet.ForfeitOutputScript()

	connectors := make([]arktx.ConnectorInput, len(e.Connectors))
	for i, c := range e.Connectors {
		connectors[i] = arktx.ConnectorInput{
			Outpoint:    c.Outpoint,
			WitnessUtxo: wire.NewTxOut(c.Amount, c.Script),
		}
	}

	var signed []*arktx.SignedForfeit
	for _, vtxo := range s.wallet.OwnedVtxos() {
		if vtxo.ForfeitLeaf == nil {
			return fmt.Errorf("%w: outpoint %s", ErrForfeitLeafGone, vtxo.Outpoint)
		}

		vtxoInput := arktx.VirtualTxInput{
			Outpoint:    vtxo.Outpoint,
			WitnessUtxo: wire.NewTxOut(vtxo.Amount, vtxo.Script),
			Leaf:        vtxo.ForfeitLeaf,
		}

		txs, err := arktx.BuildForfeitTxsWithConnectors(vtxoInput, forfeitOutputScript, connectors, false)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			if err := signForfeitScriptPath(tx, vtxo); err != nil {
				return err
			}
			signed = append(signed, &arktx.SignedForfeit{Packet: tx})
		}
	}

	boardingSigs := make(map[wire.OutPoint][]byte)
	for _, boarding := range s.wallet.BoardingInputs() {
		sig, err := signCommitmentInput(s.commitmentTx, boarding)
		if err != nil {
			return err
		}
		boardingSigs[boarding.Outpoint] = sig
	}

	return s.server.SubmitSignedForfeitTxs(ctx, s.requestID, signed, boardingSigs)
}

func allNodeKeys(tree *txtree.Tree) []musig2tree.NodeKey {
	var out []musig2tree.NodeKey
	for level, nodes := range tree.Levels() {
		for index := range nodes {
			out = append(out, musig2tree.NodeKey{Level: level, Index: index})
		}
	}
	return out
}

// nodeSighashes computes the BIP-341 key-path sighash (SIGHASH_DEFAULT) of
// input 0 for every tree node, using the parent output's amount and
// script as the single previous output.
func nodeSighashes(tree *txtree.Tree, commitmentTx *wire.MsgTx, batchOutputIndex int) (map[musig2tree.NodeKey]chainhash.Hash, error) {
	out := make(map[musig2tree.NodeKey]chainhash.Hash)
	for level, nodes := range tree.Levels() {
		for index, node := range nodes {
			var prevOut *wire.TxOut
			if node.IsRoot {
				prevOut = commitmentTx.TxOut[batchOutputIndex]
			} else {
				parent, err := tree.ByTxid(node.ParentTxid)
				if err != nil {
					return nil, err
				}
				parentVout := node.Tx.UnsignedTx.TxIn[0].PreviousOutPoint.Index
				prevOut = parent.Tx.UnsignedTx.TxOut[parentVout]
			}

			fetcher := txscript.NewCannedPrevOutputFetcher(prevOut.PkScript, prevOut.Value)
			sigHashes := txscript.NewTxSigHashes(node.Tx.UnsignedTx, fetcher)
			hash, err := txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashDefault, node.Tx.UnsignedTx, 0, fetcher)
			if err != nil {
				return nil, err
			}
			var h chainhash.Hash
			copy(h[:], hash)
			out[musig2tree.NodeKey{Level: level, Index: index}] = h
		}
	}
	return out, nil
}

// signForfeitScriptPath satisfies a forfeit tx's VTXO input (input 0)
// via its tapscript leaf: computes the BIP-341 tapscript sighash and
// writes the owner's Schnorr signature into the input's script-spend
// signature slot.
func signForfeitScriptPath(tx *psbt.Packet, vtxo OwnedVtxo) error {
	pin := &tx.Inputs[0]

	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(tx.Inputs))
	for i, in := range tx.Inputs {
		prevOuts[tx.UnsignedTx.TxIn[i].PreviousOutPoint] = in.WitnessUtxo
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx.UnsignedTx, fetcher)

	leaf := txscript.TapLeaf{LeafVersion: vtxo.ForfeitLeaf.Version, Script: vtxo.ForfeitLeaf.Script}
	hash, err := txscript.CalcTapscriptSignaturehash(sigHashes, pin.SighashType, tx.UnsignedTx, 0, fetcher, leaf)
	if err != nil {
		return err
	}

	sig, err := schnorr.Sign(vtxo.PrivateKey, hash)
	if err != nil {
		return err
	}
	sigBytes := sig.Serialize()
	if pin.SighashType != txscript.SigHashDefault {
		sigBytes = append(sigBytes, byte(pin.SighashType))
	}

	leafHash := leaf.TapHash()
	pin.TaprootScriptSpendSig = []*psbt.TaprootScriptSpendSig{{
		XOnlyPubKey: schnorr.SerializePubKey(vtxo.PrivateKey.PubKey()),
		LeafHash:    leafHash[:],
		Signature:   sigBytes,
		SigHash:     pin.SighashType,
	}}
	return nil
}

func signCommitmentInput(commitmentTx *wire.MsgTx, boarding BoardingInput) ([]byte, error) {
	fetcher := txscript.NewCannedPrevOutputFetcher(boarding.WitnessUtxo.PkScript, boarding.WitnessUtxo.Value)
	sigHashes := txscript.NewTxSigHashes(commitmentTx, fetcher)

	var inputIndex = -1
	for i, in := range commitmentTx.TxIn {
		if in.PreviousOutPoint == boarding.Outpoint {
			inputIndex = i
			break
		}
	}
	if inputIndex < 0 {
		return nil, fmt.Errorf("boarding outpoint %s not found in commitment tx", boarding.Outpoint)
	}

	hash, err := txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashDefault, commitmentTx, inputIndex, fetcher)
	if err != nil {
		return nil, err
	}
	sig, err := schnorr.Sign(boarding.PrivateKey, hash)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}
