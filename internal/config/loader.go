package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BUNDLR_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BUNDLR_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Host, "BUNDLR_HOST")
	setStr(&cfg.Currency, "BUNDLR_CURRENCY")
	setStr(&cfg.LogLevel, "BUNDLR_LOG_LEVEL")

	setStr(&cfg.Wallet.KeyPath, "BUNDLR_WALLET_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "BUNDLR_WALLET_KEY_PASSWORD")

	setStr(&cfg.Chains.EthereumRPC, "BUNDLR_CHAINS_ETHEREUM_RPC")
	setStr(&cfg.Chains.MaticRPC, "BUNDLR_CHAINS_MATIC_RPC")
	setStr(&cfg.Chains.SolanaRPC, "BUNDLR_CHAINS_SOLANA_RPC")
	setUint64(&cfg.Chains.RequiredConfirm, "BUNDLR_CHAINS_REQUIRED_CONFIRMATIONS")

	setDuration(&cfg.Timeout, "BUNDLR_TIMEOUT")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
