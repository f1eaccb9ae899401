// Command arkwalletd is the Ark wallet's command-line client: it manages
// the local signing identity, syncs VTXO and boarding-UTXO state from a
// Server and block explorer, and reports balance and address information.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/arkwallet/client-core/internal/arkrpc"
	"github.com/arkwallet/client-core/internal/arkscript"
	"github.com/arkwallet/client-core/internal/config"
	"github.com/arkwallet/client-core/internal/identity"
	"github.com/arkwallet/client-core/internal/storage"
	"github.com/arkwallet/client-core/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.arkwallet", "Data directory")
		configFile  = flag.String("config", "", "Config file path (default: <data-dir>/config.yaml)")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("arkwalletd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		log.Fatal("usage: arkwalletd <init|address|balance|refresh> [args]")
	}

	effectiveDataDir := expandPath(*dataDir)
	cfgPath := *configFile
	if cfgPath == "" {
		cfgPath = filepath.Join(effectiveDataDir, "config.yaml")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}
	cfg.DataDir = effectiveDataDir

	if cmd == "init" {
		runInit(log, cfg)
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid config", "error", err)
	}

	store, err := storage.NewSQLiteStore(storage.Config{DataDir: cfg.DataDir})
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()

	ctx := context.Background()
	signer := loadSigner(log, cfg)

	switch cmd {
	case "address":
		runAddress(ctx, log, cfg, signer)
	case "balance":
		runBalance(ctx, log, store, signer)
	case "refresh":
		runRefresh(ctx, log, cfg, store, signer)
	default:
		log.Fatal("unknown command", "command", cmd)
	}
}

func runInit(log *logging.Logger, cfg config.WalletConfig) {
	path := seedPath(cfg)
	if _, err := os.Stat(path); err == nil {
		log.Fatal("a wallet already exists at this data directory", "path", path)
	}

	mnemonic, err := identity.GenerateMnemonic()
	if err != nil {
		log.Fatal("Failed to generate mnemonic", "error", err)
	}

	password, err := promptPassword("Set a password to encrypt the wallet seed: ")
	if err != nil {
		log.Fatal("Failed to read password", "error", err)
	}

	encrypted, err := identity.EncryptMnemonic(mnemonic, password)
	if err != nil {
		log.Fatal("Failed to encrypt mnemonic", "error", err)
	}
	if err := identity.SaveEncryptedSeed(encrypted, path); err != nil {
		log.Fatal("Failed to save seed", "error", err)
	}

	fmt.Println("Wallet created. Write down this recovery phrase and store it offline:")
	fmt.Println()
	fmt.Println(mnemonic)
	fmt.Println()
	log.Info("Wallet initialized", "path", path)
}

func runAddress(ctx context.Context, log *logging.Logger, cfg config.WalletConfig, signer *identity.KeySigner) {
	client := arkrpc.NewHTTPServerClient(cfg.Server.RPCURL, cfg.Server.WebsocketURL)
	info, err := client.GetInfo(ctx)
	if err != nil {
		log.Fatal("Failed to reach server", "error", err)
	}

	addr, err := arkscript.EncodeAddress(info.ServerPubKey, signer.XOnlyPublicKey(), cfg.Network.Bech32HRP())
	if err != nil {
		log.Fatal("Failed to derive address", "error", err)
	}
	fmt.Println(addr)
}

func runBalance(ctx context.Context, log *logging.Logger, store *storage.SQLiteStore, signer *identity.KeySigner) {
	xOnly := signer.XOnlyPublicKey()

	records, err := store.LoadVtxos(ctx, storage.VtxoFilter{OwnerScript: xOnly[:]})
	if err != nil {
		log.Fatal("Failed to load vtxo set", "error", err)
	}

	var settled, preconfirmed, boarding uint64
	for _, v := range records {
		if v.IsSpent {
			continue
		}
		switch {
		case v.IsBoarding:
			boarding += v.Value
		case v.State == "preconfirmed":
			preconfirmed += v.Value
		default:
			settled += v.Value
		}
	}

	fmt.Printf("settled:      %d sat\n", settled)
	fmt.Printf("preconfirmed: %d sat\n", preconfirmed)
	fmt.Printf("boarding:     %d sat\n", boarding)
}

func runRefresh(ctx context.Context, log *logging.Logger, cfg config.WalletConfig, store *storage.SQLiteStore, signer *identity.KeySigner) {
	xOnly := signer.XOnlyPublicKey()

	client := arkrpc.NewHTTPServerClient(cfg.Server.RPCURL, cfg.Server.WebsocketURL)
	page, err := client.GetVtxos(ctx, arkrpc.VtxoQuery{Scripts: [][]byte{xOnly[:]}, SpendableOnly: false})
	if err != nil {
		log.Fatal("Failed to fetch vtxos from server", "error", err)
	}

	records := make([]storage.VtxoRecord, 0, len(page.Vtxos))
	for _, v := range page.Vtxos {
		records = append(records, storage.VtxoRecord{
			Txid:          v.Outpoint,
			Value:         v.Amount,
			Script:        v.Script,
			State:         vtxoState(v.Spendable),
			CommitmentTxs: v.CommitmentTxs,
			CreatedAt:     unixNow(),
			IsSpent:       !v.Spendable,
		})
	}
	if err := store.SaveVtxos(ctx, xOnly[:], records); err != nil {
		log.Fatal("Failed to persist vtxo set", "error", err)
	}

	explorer := arkrpc.NewEsploraExplorer(cfg.Server.ExplorerURL)
	height, _, err := explorer.GetBlockTip(ctx)
	if err != nil {
		log.Warn("Failed to reach block explorer", "error", err)
	} else {
		log.Info("Synced with chain tip", "height", height)
	}

	if err := store.SaveState(ctx, storage.WalletState{LastSyncTime: unixNow(), Settings: map[string]string{}}); err != nil {
		log.Warn("Failed to record sync time", "error", err)
	}

	log.Info("Refreshed vtxo set", "count", len(records))
}

func vtxoState(spendable bool) string {
	if spendable {
		return "settled"
	}
	return "spent"
}

func unixNow() int64 {
	return time.Now().Unix()
}

func seedPath(cfg config.WalletConfig) string {
	return filepath.Join(cfg.DataDir, "seed.json")
}

// loadSigner decrypts the on-disk seed into a KeySigner, prompting for the
// wallet password interactively.
func loadSigner(log *logging.Logger, cfg config.WalletConfig) *identity.KeySigner {
	encrypted, err := identity.LoadEncryptedSeed(seedPath(cfg))
	if err != nil {
		log.Fatal("no wallet found; run `arkwalletd init` first", "error", err)
	}

	password, err := promptPassword("Wallet password: ")
	if err != nil {
		log.Fatal("Failed to read password", "error", err)
	}

	mnemonic, err := identity.DecryptMnemonic(encrypted, password)
	if err != nil {
		log.Fatal("Failed to unlock wallet", "error", err)
	}

	signer, err := identity.NewKeySignerFromMnemonic(mnemonic, "", networkParams(cfg.Network))
	if err != nil {
		log.Fatal("Failed to derive signing key", "error", err)
	}
	return signer
}

func networkParams(n config.Network) *chaincfg.Params {
	switch n {
	case config.Testnet:
		return &chaincfg.TestNet3Params
	case config.Regtest:
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
