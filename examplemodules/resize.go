package examplemodules

import (
	"context"

	json "github.com/goccy/go-json"
	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// ResizeParams is the JSON-encoded parameter schema for the "resize"
// operation type, adapted from the teacher's ResizeStep fields.
type ResizeParams struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resize is the "resize" operation module: a module-contract adaptation of
// the teacher's ResizeStep, resampling with golang.org/x/image/draw.
type Resize struct{}

func (Resize) Descriptor() core.OperationType {
	def, _ := json.Marshal(ResizeParams{Width: 0, Height: 0})
	return core.OperationType{
		Op:            "resize",
		SchemaVersion: 1,
		ParamSize:     len(def),
		DefaultParams: def,
		Flags:         core.FlagSupportsBlending,
	}
}

func (Resize) Process(ctx context.Context, inst core.OperationInstance, input *core.Buffer, roiIn, roiOut core.ROI, shutdown *core.Shutdown) (*core.Buffer, core.ControlFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.FlowInterrupted, apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "resize", err)
	}
	var p ResizeParams
	if err := json.Unmarshal(inst.Params, &p); err != nil {
		return nil, core.FlowOK, apperrors.Wrap(apperrors.CategoryModuleMismatch, "resize", err)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return input, core.FlowOK, nil
	}

	src := toRGBA(input)
	dst := toRGBAEmpty(p.Width, p.Height)
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)

	if shutdown.IsSet() {
		return nil, core.FlowInterrupted, nil
	}
	return fromRGBA(dst, input.ColorSpace), core.FlowOK, nil
}

func (Resize) DistortTransform(pts []core.Point) []core.Point      { return pts }
func (Resize) DistortBacktransform(pts []core.Point) []core.Point { return pts }
func (Resize) CommitParams(*core.OperationInstance) error          { return nil }
func (Resize) InitPipe(string) error                               { return nil }
func (Resize) CleanupPipe(string) error                             { return nil }

func (Resize) LegacyParams(oldBytes []byte, oldVersion int) ([]byte, int, error) {
	if oldVersion >= 1 {
		return oldBytes, oldVersion, nil
	}
	return oldBytes, 1, nil
}

func (Resize) ReloadDefaults() (params, blendParams []byte) {
	def, _ := json.Marshal(ResizeParams{})
	return def, nil
}

var _ core.Module = Resize{}
