package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bundlr-go/bundlr/internal/tag"
)

var uploadFlags struct {
	tags []string
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Sign and upload a file, paying on the configured currency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := parseTags(uploadFlags.tags)
		if err != nil {
			return err
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

		receipt, err := c.UploadFile(context.Background(), currencyFromConfig(cfg), args[0], tags)
		if err != nil {
			logger.Error("upload failed", slog.String("file", args[0]), slog.String("error", err.Error()))
			return err
		}

		fmt.Printf("id=%s timestamp=%d\n", receipt.ID, receipt.Timestamp)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringSliceVar(&uploadFlags.tags, "tag", nil, "name:value tag, repeatable")
}

// parseTags turns "name:value" flag strings into tag.Tag values.
func parseTags(raw []string) ([]tag.Tag, error) {
	tags := make([]tag.Tag, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("bundlr: invalid --tag %q, expected name:value", r)
		}
		tags = append(tags, tag.Tag{Name: parts[0], Value: parts[1]})
	}
	return tags, nil
}
