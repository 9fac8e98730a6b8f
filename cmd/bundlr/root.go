package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bundlr-go/bundlr/internal/client"
	"github.com/bundlr-go/bundlr/internal/config"
	"github.com/bundlr-go/bundlr/internal/domain"
	"github.com/bundlr-go/bundlr/internal/walletkey"
)

var rootFlags struct {
	configPath string
	host       string
	currency   string
	walletPath string
	timeoutSec int
}

var rootCmd = &cobra.Command{
	Use:           "bundlr",
	Short:         "Upload and fund data on a bundler service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "bundlr.toml", "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&rootFlags.host, "host", "", "bundler service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.currency, "currency", "", "funding currency (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.currency, "token", "", "alias for --currency")
	rootCmd.PersistentFlags().StringVar(&rootFlags.walletPath, "wallet", "", "path to an encrypted wallet key file (overrides config)")
	rootCmd.PersistentFlags().IntVar(&rootFlags.timeoutSec, "timeout", 0, "per-request timeout in seconds (overrides config)")

	rootCmd.AddCommand(balanceCmd, fundCmd, withdrawCmd, uploadCmd, priceCmd)
}

// loadConfig merges bundlr.toml, BUNDLR_* environment overrides, and any
// --host/--currency (or --token)/--wallet/--timeout flags the caller set on this
// invocation, then validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return nil, err
	}
	if rootFlags.host != "" {
		cfg.Host = rootFlags.host
	}
	if rootFlags.currency != "" {
		cfg.Currency = rootFlags.currency
	}
	if rootFlags.walletPath != "" {
		cfg.Wallet.KeyPath = rootFlags.walletPath
	}
	if rootFlags.timeoutSec > 0 {
		cfg.Timeout = config.DurationSeconds(rootFlags.timeoutSec)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the shared structured logger at the level cfg requests.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// newClient wires a config + wallet key into a ready client.Client.
func newClient(cfg *config.Config) (*client.Client, error) {
	s, err := walletkey.LoadSigner(walletkey.KeyConfig{
		EncryptedKeyPath: cfg.Wallet.KeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Host, s, client.WithTimeout(cfg.Timeout.Duration)), nil
}

func currencyFromConfig(cfg *config.Config) domain.Currency {
	return domain.Currency(cfg.Currency)
}
