package examplemodules

import (
	"context"

	json "github.com/goccy/go-json"
	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// ThumbnailParams is the JSON-encoded parameter schema for the "thumbnail"
// operation type: a square edge size, adapted from the teacher's
// ThumbnailStep.
type ThumbnailParams struct {
	Size int `json:"size"`
}

// Thumbnail is the "thumbnail" operation module: resize-to-fit followed by a
// centre crop to a square, adapted from the teacher's ThumbnailStep (which
// composed ResizeStep + CropStep).
type Thumbnail struct{}

func (Thumbnail) Descriptor() core.OperationType {
	def, _ := json.Marshal(ThumbnailParams{})
	return core.OperationType{
		Op:            "thumbnail",
		SchemaVersion: 1,
		ParamSize:     len(def),
		DefaultParams: def,
		Flags:         core.FlagSupportsBlending,
	}
}

func (Thumbnail) Process(ctx context.Context, inst core.OperationInstance, input *core.Buffer, roiIn, roiOut core.ROI, shutdown *core.Shutdown) (*core.Buffer, core.ControlFlow, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.FlowInterrupted, apperrors.Wrap(apperrors.CategoryPipelineInterrupted, "thumbnail", err)
	}
	var p ThumbnailParams
	if err := json.Unmarshal(inst.Params, &p); err != nil {
		return nil, core.FlowOK, apperrors.Wrap(apperrors.CategoryModuleMismatch, "thumbnail", err)
	}
	if p.Size <= 0 {
		return input, core.FlowOK, nil
	}

	src := toRGBA(input)
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	var rw, rh int
	if w < h {
		rw, rh = p.Size, h*p.Size/w
	} else {
		rw, rh = w*p.Size/h, p.Size
	}

	resized := toRGBAEmpty(rw, rh)
	xdraw.BiLinear.Scale(resized, resized.Bounds(), src, bounds, xdraw.Over, nil)

	if shutdown.IsSet() {
		return nil, core.FlowInterrupted, nil
	}

	ox := (rw - p.Size) / 2
	oy := (rh - p.Size) / 2
	dst := toRGBAEmpty(p.Size, p.Size)
	stddrawDraw(dst, resized, ox, oy)

	return fromRGBA(dst, input.ColorSpace), core.FlowOK, nil
}

func (Thumbnail) DistortTransform(pts []core.Point) []core.Point      { return pts }
func (Thumbnail) DistortBacktransform(pts []core.Point) []core.Point { return pts }
func (Thumbnail) CommitParams(*core.OperationInstance) error          { return nil }
func (Thumbnail) InitPipe(string) error                                { return nil }
func (Thumbnail) CleanupPipe(string) error                              { return nil }

func (Thumbnail) LegacyParams(oldBytes []byte, oldVersion int) ([]byte, int, error) {
	return oldBytes, 1, nil
}

func (Thumbnail) ReloadDefaults() (params, blendParams []byte) {
	def, _ := json.Marshal(ThumbnailParams{Size: 256})
	return def, nil
}

var _ core.Module = Thumbnail{}
