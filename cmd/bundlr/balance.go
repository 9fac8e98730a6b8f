package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Print an account's balance on the configured currency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		c, err := newClient(cfg)
		if err != nil {
			return err
		}

		bal, err := c.Balance(context.Background(), currencyFromConfig(cfg), args[0])
		if err != nil {
			logger.Error("balance query failed", slog.String("address", args[0]), slog.String("error", err.Error()))
			return err
		}

		fmt.Printf("%s %s: %s\n", bal.Currency, bal.Address, bal.Amount.String())
		return nil
	},
}
