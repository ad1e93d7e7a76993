package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Skryldev/darkroom-develop/config"
	"github.com/Skryldev/darkroom-develop/core"
	"github.com/Skryldev/darkroom-develop/develop"
	"github.com/Skryldev/darkroom-develop/pipeline"
	"github.com/Skryldev/darkroom-develop/preset"
)

func newReplayCmd(dsn *string) *cobra.Command {
	var width, height int
	cmd := &cobra.Command{
		Use:   "replay <image-id>",
		Short: "Replay an image's history through the full pipeline and report the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			store, err := openStore(ctx, *dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("replay: %s is not a valid image id: %w", args[0], err)
			}

			reg := buildRegistry()
			cfg := config.Default()
			ctrl := develop.NewController(cfg, store, reg, preset.NewResolver(nil), nil,
				[]string{"crop", "resize", "grayscale", "thumbnail"})

			handle := core.ImageHandle{ID: id, Width: width, Height: height}
			state, err := ctrl.LoadImage(ctx, handle)
			if err != nil {
				return err
			}

			entries := pipeline.ResolveEntries(state.History.Snapshot(), state.Ordering)
			roiOut := state.ROIFor(pipeline.ClassFull, width, height, width, height)
			nodes := pipeline.BuildNodes(entries, reg, roiOut, width, height, nil)

			input := &core.Buffer{
				Width:      width,
				Height:     height,
				ColorSpace: "rgba",
				Data:       make([]byte, width*height*4),
			}
			for i := range input.Data {
				input.Data[i] = 0x80
			}

			full, mu := state.Pipeline(pipeline.ClassFull)
			mu.Lock()
			out, flow, err := full.Run(ctx, nodes, input, &core.Shutdown{})
			mu.Unlock()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d nodes, control flow %v, result %dx%d (%s)\n",
				len(nodes), flow, out.Width, out.Height, out.ColorSpace)
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 256, "source image width for the synthetic replay buffer")
	cmd.Flags().IntVar(&height, "height", 256, "source image height for the synthetic replay buffer")
	return cmd
}
