package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var fundCmd = &cobra.Command{
	Use:   "fund <tx-id>",
	Short: "Notify the service that a funding transaction has been broadcast",
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

		ack, err := c.Fund(context.Background(), currencyFromConfig(cfg), args[0])
		if err != nil {
			logger.Error("fund failed", slog.String("tx_id", args[0]), slog.String("error", err.Error()))
			return err
		}

		fmt.Printf("confirmed=%t balance=%s\n", ack.Confirmed, ack.Balance.String())
		return nil
	},
}
