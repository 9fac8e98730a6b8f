package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/spf13/cobra"
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <address> <amount>",
	Short: "Withdraw amount (base units) to address on the configured currency",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, ok := new(big.Int).SetString(args[1], 10)
		if !ok {
			return fmt.Errorf("bundlr: invalid amount %q", args[1])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		c, err := newClient(cfg)
		if err != nil {
			return err
		}

		ack, err := c.Withdraw(context.Background(), currencyFromConfig(cfg), args[0], amount)
		if err != nil {
			logger.Error("withdraw failed", slog.String("address", args[0]), slog.String("error", err.Error()))
			return err
		}

		fmt.Printf("accepted=%t tx_id=%s\n", ack.Accepted, ack.TxID)
		return nil
	},
}
