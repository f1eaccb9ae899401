package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the embedded, single-writer-per-process persistence
// backend for a wallet: one file holds wallet state, the VTXO set, and
// per-contract application data.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Config configures where the wallet database lives on disk.
type Config struct {
	DataDir string
}

// NewSQLiteStore opens (creating if absent) the wallet database under
// cfg.DataDir, in WAL mode with a single writer connection, matching the
// embedded-sqlite pattern used for node-local state elsewhere in this
// stack.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	dataDir := expandPath(cfg.DataDir)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "wallet.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wallet_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_sync_time INTEGER NOT NULL DEFAULT 0,
		settings TEXT NOT NULL DEFAULT '{}',
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS vtxos (
		txid TEXT NOT NULL,
		vout INTEGER NOT NULL,
		owner_script BLOB NOT NULL,
		value INTEGER NOT NULL,
		script BLOB,
		state TEXT NOT NULL DEFAULT '',
		commitment_txs TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL DEFAULT 0,
		is_spent INTEGER NOT NULL DEFAULT 0,
		ark_txid TEXT NOT NULL DEFAULT '',
		settled_by TEXT NOT NULL DEFAULT '',
		is_boarding INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (txid, vout)
	);

	CREATE INDEX IF NOT EXISTS idx_vtxos_owner_script ON vtxos(owner_script);
	CREATE INDEX IF NOT EXISTS idx_vtxos_is_spent ON vtxos(is_spent);

	CREATE TABLE IF NOT EXISTS contract_data (
		id TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB,
		updated_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (id, key)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveState implements WalletRepository. A write whose LastSyncTime is
// older than the stored value is rejected as stale rather than applied.
func (s *SQLiteStore) SaveState(ctx context.Context, state WalletState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int64
	err := s.db.QueryRowContext(ctx, `SELECT last_sync_time FROM wallet_state WHERE id = 1`).Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err == nil && state.LastSyncTime < stored {
		return ErrStaleWrite
	}

	settingsJSON, err := json.Marshal(state.Settings)
	if err != nil {
		return fmt.Errorf("storage: marshal settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wallet_state (id, last_sync_time, settings, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			settings = excluded.settings,
			updated_at = excluded.updated_at
	`, state.LastSyncTime, string(settingsJSON), time.Now().Unix())
	return err
}

// LoadState implements WalletRepository.
func (s *SQLiteStore) LoadState(ctx context.Context) (WalletState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lastSync int64
	var settingsJSON string
	err := s.db.QueryRowContext(ctx, `SELECT last_sync_time, settings FROM wallet_state WHERE id = 1`).
		Scan(&lastSync, &settingsJSON)
	if err == sql.ErrNoRows {
		return WalletState{Settings: map[string]string{}}, nil
	}
	if err != nil {
		return WalletState{}, err
	}

	settings := map[string]string{}
	if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
		return WalletState{}, fmt.Errorf("storage: unmarshal settings: %w", err)
	}
	return WalletState{LastSyncTime: lastSync, Settings: settings}, nil
}

// SaveVtxos implements WalletRepository: it replaces the full known VTXO
// set for ownerScript with vtxos, as a wallet resync against the Server
// would.
func (s *SQLiteStore) SaveVtxos(ctx context.Context, ownerScript []byte, vtxos []VtxoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vtxos WHERE owner_script = ?`, ownerScript); err != nil {
		return err
	}

	for _, v := range vtxos {
		commitmentJSON, err := json.Marshal(v.CommitmentTxs)
		if err != nil {
			return fmt.Errorf("storage: marshal commitment txs: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO vtxos (
				txid, vout, owner_script, value, script, state, commitment_txs,
				created_at, is_spent, ark_txid, settled_by, is_boarding
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.Txid, v.Vout, ownerScript, v.Value, v.Script, v.State, string(commitmentJSON),
			v.CreatedAt, boolToInt(v.IsSpent), v.ArkTxid, v.SettledBy, boolToInt(v.IsBoarding))
		if err != nil {
			return fmt.Errorf("storage: insert vtxo %s:%d: %w", v.Txid, v.Vout, err)
		}
	}

	return tx.Commit()
}

// LoadVtxos implements WalletRepository.
func (s *SQLiteStore) LoadVtxos(ctx context.Context, filter VtxoFilter) ([]VtxoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT txid, vout, value, script, state, commitment_txs, created_at, is_spent, ark_txid, settled_by, is_boarding FROM vtxos WHERE 1 = 1`
	var args []interface{}
	if len(filter.OwnerScript) > 0 {
		query += ` AND owner_script = ?`
		args = append(args, filter.OwnerScript)
	}
	if !filter.IncludeSpent {
		query += ` AND is_spent = 0`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VtxoRecord
	for rows.Next() {
		var v VtxoRecord
		var commitmentJSON string
		var isSpent, isBoarding int
		if err := rows.Scan(&v.Txid, &v.Vout, &v.Value, &v.Script, &v.State, &commitmentJSON,
			&v.CreatedAt, &isSpent, &v.ArkTxid, &v.SettledBy, &isBoarding); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(commitmentJSON), &v.CommitmentTxs); err != nil {
			return nil, fmt.Errorf("storage: unmarshal commitment txs: %w", err)
		}
		v.IsSpent = isSpent != 0
		v.IsBoarding = isBoarding != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetContractData implements ContractRepository.
func (s *SQLiteStore) SetContractData(ctx context.Context, id, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contract_data (id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, id, key, value, time.Now().Unix())
	return err
}

// GetContractData implements ContractRepository.
func (s *SQLiteStore) GetContractData(ctx context.Context, id, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getContractDataLocked(ctx, id, key)
}

// getContractDataLocked assumes the caller already holds s.mu; sync.RWMutex
// is not reentrant, so ListContracts calls this directly instead of going
// back through GetContractData.
func (s *SQLiteStore) getContractDataLocked(ctx context.Context, id, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM contract_data WHERE id = ? AND key = ?`, id, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return value, err
}

// contractWellKnownKeys are the keys ListContracts assembles a Contract
// summary from; anything else stored via SetContractData is
// application-private and does not surface there.
var contractWellKnownKeys = []string{"state", "expires_at", "address", "script"}

// ListContracts implements ContractRepository.
func (s *SQLiteStore) ListContracts(ctx context.Context) ([]Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT id FROM contract_data ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Contract, 0, len(ids))
	for _, id := range ids {
		c := Contract{ID: id}
		values := make(map[string][]byte, len(contractWellKnownKeys))
		for _, key := range contractWellKnownKeys {
			v, err := s.getContractDataLocked(ctx, id, key)
			if err != nil && err != ErrNotFound {
				return nil, err
			}
			values[key] = v
		}
		c.State = string(values["state"])
		c.Address = string(values["address"])
		c.Script = values["script"]
		if len(values["expires_at"]) > 0 {
			if err := json.Unmarshal(values["expires_at"], &c.ExpiresAt); err != nil {
				return nil, fmt.Errorf("storage: unmarshal expires_at for %s: %w", id, err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
