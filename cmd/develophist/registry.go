package main

import (
	"context"

	"github.com/Skryldev/darkroom-develop/core"
	"github.com/Skryldev/darkroom-develop/examplemodules"
	"github.com/Skryldev/darkroom-develop/persistence"
)

// buildRegistry returns the module registry the CLI operates against. A
// real deployment registers its full operation set here; this CLI registers
// the example modules so read-history/replay have something to run.
func buildRegistry() core.ModuleRegistry {
	reg := core.NewRegistry()
	reg.Register(examplemodules.Resize{})
	reg.Register(examplemodules.Crop{})
	reg.Register(examplemodules.Grayscale{})
	reg.Register(examplemodules.Thumbnail{})
	return reg
}

func oneInstanceOps(reg core.ModuleRegistry) map[string]bool {
	out := make(map[string]bool)
	for _, op := range reg.All() {
		if op.Flags.Has(core.FlagOneInstance) {
			out[op.Op] = true
		}
	}
	return out
}

func openStore(ctx context.Context, dsn string) (*persistence.Store, error) {
	return persistence.Open(ctx, dsn)
}
