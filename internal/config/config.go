// Package config centralizes the wallet's tunable parameters: network
// selection, server/explorer endpoints, fee and dust policy, and settlement
// timing. No other package should hardcode these values; they load from an
// on-disk YAML file, falling back to the defaults defined here.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Network selects which Bitcoin network (and address HRP) the wallet
// operates against.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
	Regtest Network = "regtest"
)

// Bech32HRP returns the address human-readable part for this network,
// per the ark/tark split in the address format.
func (n Network) Bech32HRP() string {
	if n == Mainnet {
		return "ark"
	}
	return "tark"
}

// ServerConfig points the wallet at one Ark Server and one block explorer.
type ServerConfig struct {
	RPCURL      string `yaml:"rpc_url"`
	WebsocketURL string `yaml:"websocket_url"`
	ExplorerURL string `yaml:"explorer_url"`
}

// FeeConfig governs the wallet's own fee estimation and dust policy; it
// does not set the Server's round fees, which are negotiated per round.
type FeeConfig struct {
	// FeeRateSatPerVByte is the fee rate for transactions the wallet itself
	// broadcasts. Validate requires it to be positive; no other component
	// in this module reads it.
	FeeRateSatPerVByte uint64 `yaml:"fee_rate_sat_per_vbyte"`

	// DustLimitSat is the dust threshold loaded from the config file. No
	// component in this module reads it; coin selection uses the wallet's
	// own dust amount (arkwallet.Wallet.SetDustAmount).
	DustLimitSat uint64 `yaml:"dust_limit_sat"`
}

// DefaultFeeConfig returns conservative defaults suitable for mainnet.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		FeeRateSatPerVByte: 2,
		DustLimitSat:       546,
	}
}

// SettlementConfig holds client-side settlement-round timing settings.
type SettlementConfig struct {
	// HeartbeatInterval is the ping interval loaded from the config file.
	// The settlement session does not read it; its heartbeat ticks at a
	// fixed one second.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// RoundTimeout is loaded from the config file; no component in this
	// module reads it, and settlement sessions have no round timeout.
	RoundTimeout time.Duration `yaml:"round_timeout"`
}

// DefaultSettlementConfig returns the timing defaults in §4 of the
// settlement state machine.
func DefaultSettlementConfig() SettlementConfig {
	return SettlementConfig{
		HeartbeatInterval: time.Second,
		RoundTimeout:      2 * time.Minute,
	}
}

// WalletConfig is the full set of wallet-process configuration, as loaded
// from disk.
type WalletConfig struct {
	Network    Network          `yaml:"network"`
	DataDir    string           `yaml:"data_dir"`
	Server     ServerConfig     `yaml:"server"`
	Fees       FeeConfig        `yaml:"fees"`
	Settlement SettlementConfig `yaml:"settlement"`
}

// Default returns a WalletConfig with every field set to its documented
// default; callers typically Load a file and fall back to these values for
// whatever the file omits.
func Default() WalletConfig {
	return WalletConfig{
		Network:    Mainnet,
		DataDir:    "~/.arkwallet",
		Fees:       DefaultFeeConfig(),
		Settlement: DefaultSettlementConfig(),
	}
}

// Load reads a WalletConfig from a YAML file at path, applying Default()
// for any field the file leaves unset. A missing file is not an error: it
// returns the defaults unchanged.
func Load(path string) (WalletConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return WalletConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return WalletConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports whether cfg is usable: a supported network, the server
// RPC endpoint set, and a positive fee rate.
func (c WalletConfig) Validate() error {
	switch c.Network {
	case Mainnet, Testnet, Regtest:
	default:
		return fmt.Errorf("config: unknown network %q", c.Network)
	}
	if c.Server.RPCURL == "" {
		return fmt.Errorf("config: server.rpc_url is required")
	}
	if c.Fees.FeeRateSatPerVByte == 0 {
		return fmt.Errorf("config: fees.fee_rate_sat_per_vbyte must be positive")
	}
	return nil
}
