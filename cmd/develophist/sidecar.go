package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skryldev/darkroom-develop/persistence"
)

func newExportSidecarCmd(dsn, sidecarDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export-sidecar <image-id>",
		Short: "Export an image's history to its XMP sidecar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			store, err := openStore(ctx, *dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			reg := buildRegistry()
			entries, _, err := store.ReadHistory(ctx, args[0], oneInstanceOps(reg), nil)
			if err != nil {
				return err
			}

			writer, err := persistence.NewSidecarWriter(*sidecarDir)
			if err != nil {
				return err
			}
			if err := writer.Export(ctx, args[0], entries, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d history entries for %s\n", len(entries), args[0])
			return nil
		},
	}
}

func newImportSidecarCmd(sidecarDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import-sidecar <image-id>",
		Short: "Print the history and content hash embedded in an image's sidecar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			writer, err := persistence.NewSidecarWriter(*sidecarDir)
			if err != nil {
				return err
			}
			entries, hash, err := writer.Import(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d history entries, content hash %s\n", len(entries), hash)
			return nil
		},
	}
}
