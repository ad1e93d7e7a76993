package examplemodules

import (
	"context"
	"image"
	stddraw "image/draw"

	json "github.com/goccy/go-json"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// CropParams is the JSON-encoded parameter schema for the "crop" operation
// type, adapted from the teacher's CropStep fields.
type CropParams struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Crop is the "crop" operation module.
type Crop struct{}

func (Crop) Descriptor() core.OperationType {
	def, _ := json.Marshal(CropParams{})
	return core.OperationType{
		Op:            "crop",
		SchemaVersion: 1,
		ParamSize:     len(def),
		DefaultParams: def,
		Flags:         core.FlagSupportsBlending,
	}
}

func (Crop) Process(ctx context.Context, inst core.OperationInstance, input *core.Buffer, roiIn, roiOut core.ROI, shutdown *core.Shutdown) (*core.Buffer, core.ControlFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.FlowInterrupted, apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "crop", err)
	}
	var p CropParams
	if err := json.Unmarshal(inst.Params, &p); err != nil {
		return nil, core.FlowOK, apperrors.Wrap(apperrors.CategoryModuleMismatch, "crop", err)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return input, core.FlowOK, nil
	}

	src := toRGBA(input)
	rect := image.Rect(p.X, p.Y, p.X+p.Width, p.Y+p.Height)
	if !rect.In(src.Bounds()) {
		return nil, core.FlowOK, apperrors.New(apperrors.CategoryInput, "crop", apperrors.ErrCursorOutOfRange)
	}

	dst := toRGBAEmpty(p.Width, p.Height)
	stddraw.Draw(dst, dst.Bounds(), src, rect.Min, stddraw.Src)

	if shutdown.IsSet() {
		return nil, core.FlowInterrupted, nil
	}
	return fromRGBA(dst, input.ColorSpace), core.FlowOK, nil
}

func (Crop) DistortTransform(pts []core.Point) []core.Point      { return pts }
func (Crop) DistortBacktransform(pts []core.Point) []core.Point { return pts }
func (Crop) CommitParams(*core.OperationInstance) error          { return nil }
func (Crop) InitPipe(string) error                                { return nil }
func (Crop) CleanupPipe(string) error                              { return nil }

func (Crop) LegacyParams(oldBytes []byte, oldVersion int) ([]byte, int, error) {
	if oldVersion >= 1 {
		return oldBytes, oldVersion, nil
	}
	return oldBytes, 1, nil
}

func (Crop) ReloadDefaults() (params, blendParams []byte) {
	def, _ := json.Marshal(CropParams{})
	return def, nil
}

var _ core.Module = Crop{}
