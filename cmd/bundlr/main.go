// Command bundlr is the CLI front end for the client library: fund,
// withdraw, upload, balance, and price, each a cobra subcommand sharing a
// client built from a TOML config file plus BUNDLR_* environment overrides.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bundlr: %v\n", err)
		os.Exit(1)
	}
}
