package main

import (
	"context"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Skryldev/darkroom-develop/core"
)

func newReadHistoryCmd(dsn *string) *cobra.Command {
	return &cobra.Command{
		Use:   "read-history <image-id>",
		Short: "Print an image's persisted history as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			store, err := openStore(ctx, *dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			reg := buildRegistry()
			entries, cursor, err := store.ReadHistory(ctx, args[0], oneInstanceOps(reg), nil)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"image_id": args[0],
				"cursor":   cursor,
				"entries":  entries,
			})
		},
	}
}

func newWriteHistoryCmd(dsn *string) *cobra.Command {
	var cursor int
	cmd := &cobra.Command{
		Use:   "write-history <image-id> <entries.json>",
		Short: "Overwrite an image's persisted history from a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			store, err := openStore(ctx, *dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var entries []core.HistoryEntry
			if err := json.Unmarshal(data, &entries); err != nil {
				return err
			}
			if cursor < 0 || cursor >= len(entries) {
				cursor = len(entries) - 1
			}
			return store.WriteHistory(ctx, args[0], entries, cursor, time.Now())
		},
	}
	cmd.Flags().IntVar(&cursor, "cursor", -1, "history cursor to persist (defaults to the last entry)")
	return cmd
}
