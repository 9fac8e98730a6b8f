// Package config defines the client's top-level configuration and provides
// validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BUNDLR_* environment
// variables.
type Config struct {
	Host     string       `toml:"host"`
	Currency string       `toml:"currency"`
	Wallet   WalletConfig `toml:"wallet"`
	Chains   ChainsConfig `toml:"chains"`
	LogLevel string       `toml:"log_level"`
	Timeout  duration     `toml:"timeout"`
}

// WalletConfig locates the signing key material for the configured
// currency's signer variant.
type WalletConfig struct {
	KeyPath     string `toml:"key_path"`
	KeyPassword string `toml:"key_password"`
}

// ChainsConfig holds per-currency chain RPC endpoints and confirmation
// requirements used to build internal/chain adapters.
type ChainsConfig struct {
	EthereumRPC     string `toml:"ethereum_rpc"`
	MaticRPC        string `toml:"matic_rpc"`
	SolanaRPC       string `toml:"solana_rpc"`
	RequiredConfirm uint64 `toml:"required_confirmations"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DurationSeconds builds a Config.Timeout value from a whole number of
// seconds, for callers (such as CLI flag parsing) outside this package.
func DurationSeconds(seconds int) duration {
	return duration{time.Duration(seconds) * time.Second}
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Host:     "https://node1.bundlr.network",
		Currency: "ethereum",
		Chains: ChainsConfig{
			EthereumRPC:     "https://eth.llamarpc.com",
			MaticRPC:        "https://polygon-rpc.com",
			SolanaRPC:       "https://api.mainnet-beta.solana.com",
			RequiredConfirm: 3,
		},
		LogLevel: "info",
		Timeout:  duration{60 * time.Second},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.Host == "" {
		errs = append(errs, "host must not be empty")
	}
	if c.Currency == "" {
		errs = append(errs, "currency must not be empty")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if c.Wallet.KeyPath == "" {
		errs = append(errs, "wallet: key_path must be set")
	}
	if c.Timeout.Duration <= 0 {
		errs = append(errs, "timeout must be > 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
