package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// MemoryStore is an in-memory WalletRepository/ContractRepository, useful
// for tests and for the mobile/PWA background task runner's dry-run mode.
type MemoryStore struct {
	mu sync.Mutex

	state    WalletState
	hasState bool

	vtxos     map[string]ownedVtxoRecord // keyed by "txid:vout"
	contracts map[string]map[string][]byte
}

type ownedVtxoRecord struct {
	ownerScript string
	record      VtxoRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vtxos:     make(map[string]ownedVtxoRecord),
		contracts: make(map[string]map[string][]byte),
	}
}

func vtxoKey(txid string, vout uint32) string {
	return txid + ":" + strconv.FormatUint(uint64(vout), 10)
}

func (m *MemoryStore) SaveState(ctx context.Context, state WalletState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasState && state.LastSyncTime < m.state.LastSyncTime {
		return ErrStaleWrite
	}
	settings := make(map[string]string, len(state.Settings))
	for k, v := range state.Settings {
		settings[k] = v
	}
	m.state = WalletState{LastSyncTime: state.LastSyncTime, Settings: settings}
	m.hasState = true
	return nil
}

func (m *MemoryStore) LoadState(ctx context.Context) (WalletState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasState {
		return WalletState{Settings: map[string]string{}}, nil
	}
	settings := make(map[string]string, len(m.state.Settings))
	for k, v := range m.state.Settings {
		settings[k] = v
	}
	return WalletState{LastSyncTime: m.state.LastSyncTime, Settings: settings}, nil
}

func (m *MemoryStore) SaveVtxos(ctx context.Context, ownerScript []byte, vtxos []VtxoRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner := string(ownerScript)
	for key, v := range m.vtxos {
		if v.ownerScript == owner {
			delete(m.vtxos, key)
		}
	}
	for _, v := range vtxos {
		v.Script = append([]byte(nil), v.Script...)
		m.vtxos[vtxoKey(v.Txid, v.Vout)] = ownedVtxoRecord{ownerScript: owner, record: v}
	}
	return nil
}

func (m *MemoryStore) LoadVtxos(ctx context.Context, filter VtxoFilter) ([]VtxoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []VtxoRecord
	owner := string(filter.OwnerScript)
	for _, v := range m.vtxos {
		if !filter.IncludeSpent && v.record.IsSpent {
			continue
		}
		if len(filter.OwnerScript) > 0 && v.ownerScript != owner {
			continue
		}
		out = append(out, v.record)
	}
	return out, nil
}

func (m *MemoryStore) SetContractData(ctx context.Context, id, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.contracts[id] == nil {
		m.contracts[id] = make(map[string][]byte)
	}
	m.contracts[id][key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) GetContractData(ctx context.Context, id, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	value, ok := data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (m *MemoryStore) ListContracts(ctx context.Context) ([]Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Contract, 0, len(m.contracts))
	for id, data := range m.contracts {
		c := Contract{
			ID:      id,
			State:   string(data["state"]),
			Address: string(data["address"]),
			Script:  data["script"],
		}
		if raw := data["expires_at"]; len(raw) > 0 {
			if err := json.Unmarshal(raw, &c.ExpiresAt); err != nil {
				return nil, fmt.Errorf("storage: unmarshal expires_at for %s: %w", id, err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
