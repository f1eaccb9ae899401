package storage

import "context"

// WalletState is the wallet's own synchronization bookkeeping plus
// free-form settings, as opposed to the VTXO set itself.
type WalletState struct {
	LastSyncTime int64
	Settings     map[string]string
}

// VtxoRecord is the on-disk shape of one VTXO or boarding UTXO. It mirrors
// arkwallet's in-memory types field for field but stays independent of that
// package so storage has no import-cycle risk and can be exercised without
// constructing a wallet.
type VtxoRecord struct {
	Txid          string
	Vout          uint32
	Value         uint64
	Script        []byte
	State         string
	CommitmentTxs []string
	CreatedAt     int64
	IsSpent       bool
	ArkTxid       string
	SettledBy     string
	IsBoarding    bool
}

// VtxoFilter narrows LoadVtxos; a zero-value filter matches everything.
type VtxoFilter struct {
	OwnerScript  []byte
	IncludeSpent bool
}

// Contract is one tracked off-chain contract: an Ark address the wallet is
// watching plus whatever the contract-specific state machine has persisted.
type Contract struct {
	ID        string
	State     string
	ExpiresAt int64
	Address   string
	Script    []byte
}

// WalletRepository is the client-side persistence boundary for wallet
// bookkeeping and VTXO sets (spec §6.3: save_state/load_state/save_vtxos/
// load_vtxos).
type WalletRepository interface {
	SaveState(ctx context.Context, state WalletState) error
	LoadState(ctx context.Context) (WalletState, error)
	SaveVtxos(ctx context.Context, ownerScript []byte, vtxos []VtxoRecord) error
	LoadVtxos(ctx context.Context, filter VtxoFilter) ([]VtxoRecord, error)
}

// ContractRepository persists arbitrary per-contract key/value data plus a
// contract index (spec §6.3: set_contract_data/get_contract_data/
// list_contracts). "Contract" here is any off-chain agreement the wallet
// tracks state for, keyed by an application-chosen id.
type ContractRepository interface {
	SetContractData(ctx context.Context, id, key string, value []byte) error
	GetContractData(ctx context.Context, id, key string) ([]byte, error)
	ListContracts(ctx context.Context) ([]Contract, error)
}
