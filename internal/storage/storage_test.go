package storage

import (
	"context"
	"testing"
)

// repoPair returns both backends under test so the contract tests below run
// against each; a MemoryStore and a SQLiteStore must agree on behavior.
func repoPair(t *testing.T) []interface {
	WalletRepository
	ContractRepository
} {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return []interface {
		WalletRepository
		ContractRepository
	}{
		NewMemoryStore(),
		sqliteStore,
	}
}

func TestLoadStateIsEmptyBeforeAnySave(t *testing.T) {
	for _, repo := range repoPair(t) {
		state, err := repo.LoadState(context.Background())
		if err != nil {
			t.Fatalf("LoadState() error = %v", err)
		}
		if state.LastSyncTime != 0 {
			t.Errorf("LastSyncTime = %d, want 0", state.LastSyncTime)
		}
		if state.Settings == nil {
			t.Error("Settings = nil, want an empty map")
		}
	}
}

func TestSaveStateRoundTrips(t *testing.T) {
	for _, repo := range repoPair(t) {
		ctx := context.Background()
		want := WalletState{LastSyncTime: 100, Settings: map[string]string{"network": "mainnet"}}
		if err := repo.SaveState(ctx, want); err != nil {
			t.Fatalf("SaveState() error = %v", err)
		}
		got, err := repo.LoadState(ctx)
		if err != nil {
			t.Fatalf("LoadState() error = %v", err)
		}
		if got.LastSyncTime != want.LastSyncTime {
			t.Errorf("LastSyncTime = %d, want %d", got.LastSyncTime, want.LastSyncTime)
		}
		if got.Settings["network"] != "mainnet" {
			t.Errorf("Settings[network] = %q, want mainnet", got.Settings["network"])
		}
	}
}

func TestSaveStateRejectsRegression(t *testing.T) {
	for _, repo := range repoPair(t) {
		ctx := context.Background()
		if err := repo.SaveState(ctx, WalletState{LastSyncTime: 200, Settings: map[string]string{}}); err != nil {
			t.Fatalf("SaveState() error = %v", err)
		}
		err := repo.SaveState(ctx, WalletState{LastSyncTime: 100, Settings: map[string]string{}})
		if err != ErrStaleWrite {
			t.Errorf("SaveState() regression error = %v, want ErrStaleWrite", err)
		}
	}
}

func TestSaveVtxosReplacesOwnerScriptSet(t *testing.T) {
	for _, repo := range repoPair(t) {
		ctx := context.Background()
		owner := []byte{0xaa, 0xbb}

		first := []VtxoRecord{{Txid: "a", Vout: 0, Value: 1000, Script: owner}}
		if err := repo.SaveVtxos(ctx, owner, first); err != nil {
			t.Fatalf("SaveVtxos() error = %v", err)
		}

		second := []VtxoRecord{{Txid: "b", Vout: 1, Value: 2000, Script: owner}}
		if err := repo.SaveVtxos(ctx, owner, second); err != nil {
			t.Fatalf("SaveVtxos() error = %v", err)
		}

		got, err := repo.LoadVtxos(ctx, VtxoFilter{OwnerScript: owner})
		if err != nil {
			t.Fatalf("LoadVtxos() error = %v", err)
		}
		if len(got) != 1 || got[0].Txid != "b" {
			t.Errorf("LoadVtxos() = %+v, want only the second save's vtxo", got)
		}
	}
}

func TestLoadVtxosExcludesSpentByDefault(t *testing.T) {
	for _, repo := range repoPair(t) {
		ctx := context.Background()
		owner := []byte{0x01}
		vtxos := []VtxoRecord{
			{Txid: "spent", Vout: 0, Value: 500, Script: owner, IsSpent: true},
			{Txid: "unspent", Vout: 0, Value: 500, Script: owner, IsSpent: false},
		}
		if err := repo.SaveVtxos(ctx, owner, vtxos); err != nil {
			t.Fatalf("SaveVtxos() error = %v", err)
		}

		unspentOnly, err := repo.LoadVtxos(ctx, VtxoFilter{OwnerScript: owner})
		if err != nil {
			t.Fatalf("LoadVtxos() error = %v", err)
		}
		if len(unspentOnly) != 1 || unspentOnly[0].Txid != "unspent" {
			t.Errorf("LoadVtxos() = %+v, want only the unspent vtxo", unspentOnly)
		}

		all, err := repo.LoadVtxos(ctx, VtxoFilter{OwnerScript: owner, IncludeSpent: true})
		if err != nil {
			t.Fatalf("LoadVtxos() error = %v", err)
		}
		if len(all) != 2 {
			t.Errorf("LoadVtxos(IncludeSpent) returned %d, want 2", len(all))
		}
	}
}

func TestContractDataRoundTripsAndMissingKeyErrors(t *testing.T) {
	for _, repo := range repoPair(t) {
		ctx := context.Background()
		if err := repo.SetContractData(ctx, "contract-1", "state", []byte("open")); err != nil {
			t.Fatalf("SetContractData() error = %v", err)
		}
		got, err := repo.GetContractData(ctx, "contract-1", "state")
		if err != nil {
			t.Fatalf("GetContractData() error = %v", err)
		}
		if string(got) != "open" {
			t.Errorf("GetContractData() = %q, want open", got)
		}

		if _, err := repo.GetContractData(ctx, "contract-1", "missing"); err != ErrNotFound {
			t.Errorf("GetContractData(missing key) error = %v, want ErrNotFound", err)
		}
		if _, err := repo.GetContractData(ctx, "missing-contract", "state"); err != ErrNotFound {
			t.Errorf("GetContractData(missing contract) error = %v, want ErrNotFound", err)
		}
	}
}

func TestListContractsAssemblesWellKnownKeys(t *testing.T) {
	for _, repo := range repoPair(t) {
		ctx := context.Background()
		if err := repo.SetContractData(ctx, "contract-1", "state", []byte("settled")); err != nil {
			t.Fatalf("SetContractData() error = %v", err)
		}
		if err := repo.SetContractData(ctx, "contract-1", "address", []byte("ark1qexample")); err != nil {
			t.Fatalf("SetContractData() error = %v", err)
		}

		contracts, err := repo.ListContracts(ctx)
		if err != nil {
			t.Fatalf("ListContracts() error = %v", err)
		}
		if len(contracts) != 1 {
			t.Fatalf("ListContracts() returned %d, want 1", len(contracts))
		}
		if contracts[0].ID != "contract-1" {
			t.Errorf("ID = %q, want contract-1", contracts[0].ID)
		}
		if contracts[0].State != "settled" {
			t.Errorf("State = %q, want settled", contracts[0].State)
		}
		if contracts[0].Address != "ark1qexample" {
			t.Errorf("Address = %q, want ark1qexample", contracts[0].Address)
		}
	}
}
