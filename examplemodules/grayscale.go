package examplemodules

import (
	"context"
	"image"

	json "github.com/goccy/go-json"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// Grayscale is the "grayscale" operation module, adapted from the teacher's
// GrayscaleStep. It has no parameters.
type Grayscale struct{}

func (Grayscale) Descriptor() core.OperationType {
	return core.OperationType{
		Op:            "grayscale",
		SchemaVersion: 1,
		Flags:         core.FlagSupportsBlending,
	}
}

func (Grayscale) Process(ctx context.Context, inst core.OperationInstance, input *core.Buffer, roiIn, roiOut core.ROI, shutdown *core.Shutdown) (*core.Buffer, core.ControlFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.FlowInterrupted, apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "grayscale", err)
	}
	if !inst.Enabled {
		return input, core.FlowOK, nil
	}

	src := toRGBA(input)
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		if shutdown.IsSet() {
			return nil, core.FlowInterrupted, nil
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, src.At(x, y))
		}
	}
	return fromGray(gray), core.FlowOK, nil
}

func (Grayscale) DistortTransform(pts []core.Point) []core.Point      { return pts }
func (Grayscale) DistortBacktransform(pts []core.Point) []core.Point { return pts }
func (Grayscale) CommitParams(*core.OperationInstance) error          { return nil }
func (Grayscale) InitPipe(string) error                                { return nil }
func (Grayscale) CleanupPipe(string) error                              { return nil }

func (Grayscale) LegacyParams(oldBytes []byte, oldVersion int) ([]byte, int, error) {
	return oldBytes, 1, nil
}

func (Grayscale) ReloadDefaults() (params, blendParams []byte) {
	def, _ := json.Marshal(struct{}{})
	return def, nil
}

var _ core.Module = Grayscale{}
