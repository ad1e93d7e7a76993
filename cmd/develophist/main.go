// Command develophist is a small CLI exercising persistence.Store and
// develop.Controller directly: read/write an image's history, export or
// import its XMP sidecar, and replay its edit stack through the pipeline —
// in the same spirit as the teacher's examples/main.go "wire everything up
// and run representative operations" script.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn, sidecarDir string

	root := &cobra.Command{
		Use:   "develophist",
		Short: "Inspect and replay a darkroom-develop edit history",
	}
	root.PersistentFlags().StringVar(&dsn, "db", "file:develop.db", "sqlite DSN for the persistence store")
	root.PersistentFlags().StringVar(&sidecarDir, "sidecar-dir", "./sidecars", "directory for XMP sidecar files")

	root.AddCommand(
		newReadHistoryCmd(&dsn),
		newWriteHistoryCmd(&dsn),
		newExportSidecarCmd(&dsn, &sidecarDir),
		newImportSidecarCmd(&sidecarDir),
		newReplayCmd(&dsn),
	)
	return root
}
