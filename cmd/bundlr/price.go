package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var priceCmd = &cobra.Command{
	Use:   "price <bytes>",
	Short: "Quote the cost of storing n bytes on the configured currency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bundlr: invalid byte count %q: %w", args[0], err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		newLogger(cfg)

		c, err := newClient(cfg)
		if err != nil {
			return err
		}

		quote, err := c.Price(context.Background(), currencyFromConfig(cfg), n)
		if err != nil {
			return err
		}

		fmt.Printf("%d bytes: %s %s\n", quote.Bytes, quote.Winston.String(), quote.Currency)
		return nil
	},
}
