// Package vips provides the libvips-backed accelerator execution backend
// (spec.md §4.1's "CPU and accelerator execution" selector): a Decoder,
// Encoder, and a vips-backed core.Module that can be registered in place of
// a pure-Go reference module when the host has libvips available. The
// render scheduler does not choose between the two: whichever module is
// registered under the operation id is the one that runs.
package vips

import (
	"context"
	"io"
	"runtime"

	goccyjson "github.com/goccy/go-json"
	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
	"github.com/Skryldev/darkroom-develop/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Backend is a unified libvips-powered Decoder and Encoder.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// ─── Decoder ────────────────────────────────────────────────────────────

func (b *Backend) CanDecode(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp", "":
		return true
	}
	return false
}

func (b *Backend) Decode(ctx context.Context, r io.Reader) (*core.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "vips.decode", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "vips.decode.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	ref, err := govips.NewImageFromBuffer(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "vips.decode", err)
	}
	defer ref.Close()

	png, _, err := ref.ExportPng(govips.NewPngExportParams())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "vips.decode.export", err)
	}

	return &core.Buffer{
		Width:      ref.Width(),
		Height:     ref.Height(),
		ColorSpace: vipsInterpretationToColorSpace(ref.Interpretation()),
		Data:       png,
	}, nil
}

// ─── Encoder ────────────────────────────────────────────────────────────

func (b *Backend) CanEncode(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

func (b *Backend) Encode(ctx context.Context, buf *core.Buffer, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "vips.encode", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, apperrors.New(apperrors.CategoryInvalidImage, "vips.encode", apperrors.ErrEmptyInput)
	}

	ref, err := govips.NewImageFromBuffer(buf.Data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "vips.encode.reload", err)
	}
	defer ref.Close()

	quality := opts.Quality
	if quality <= 0 {
		quality = b.cfg.DefaultQuality
	}

	switch {
	case opts.Lossless:
		ep := govips.NewPngExportParams()
		ep.StripMetadata = opts.StripEXIF
		ep.Interlace = opts.Interlaced
		out, _, err := ref.ExportPng(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "vips.encode.png", err)
		}
		return out, nil
	default:
		ep := govips.NewJpegExportParams()
		ep.Quality = quality
		ep.StripMetadata = opts.StripEXIF
		ep.Interlace = opts.Interlaced
		out, _, err := ref.ExportJpeg(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "vips.encode.jpeg", err)
		}
		return out, nil
	}
}

// ─── AcceleratedResize ──────────────────────────────────────────────────

// ResizeParams mirrors examplemodules.ResizeParams so history entries are
// interchangeable between the reference and accelerated resize modules.
type ResizeParams struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AcceleratedResize is the libvips-backed fast path for the "resize"
// operation. It implements core.Module directly so it can be registered
// under the same operation id as examplemodules.Resize on hosts where
// libvips is present (nothing selects it automatically), with
// resize-on-load avoiding the
// full-bitmap decode the reference path pays for.
type AcceleratedResize struct{ Backend *Backend }

func (r AcceleratedResize) Descriptor() core.OperationType {
	defaults, _ := goccyjson.Marshal(ResizeParams{Width: 0, Height: 0})
	return core.OperationType{
		Op:            "resize",
		SchemaVersion: 1,
		DefaultParams: defaults,
		Flags:         core.FlagAllowTiling,
	}
}

func (r AcceleratedResize) Process(ctx context.Context, inst core.OperationInstance, input *core.Buffer, roiIn, roiOut core.ROI, shutdown *core.Shutdown) (*core.Buffer, core.ControlFlow, error) {
	if shutdown.IsSet() {
		return nil, core.FlowInterrupted, nil
	}
	var p ResizeParams
	if len(inst.Params) > 0 {
		if err := goccyjson.Unmarshal(inst.Params, &p); err != nil {
			return nil, core.FlowOK, apperrors.Wrap(apperrors.CategoryModuleMismatch, "vips.resize.params", err)
		}
	}
	if p.Width <= 0 || p.Height <= 0 || input == nil {
		return input, core.FlowOK, nil
	}

	ref, err := govips.NewImageFromBuffer(input.Data)
	if err != nil {
		return nil, core.FlowOK, apperrors.Wrap(apperrors.CategoryPipeline, "vips.resize.load", err)
	}
	defer ref.Close()

	scale := float64(p.Width) / float64(ref.Width())
	if err := ref.Resize(scale, govips.KernelLanczos3); err != nil {
		return nil, core.FlowOK, apperrors.Wrap(apperrors.CategoryPipeline, "vips.resize", err)
	}

	out, _, err := ref.ExportPng(govips.NewPngExportParams())
	if err != nil {
		return nil, core.FlowOK, apperrors.Wrap(apperrors.CategoryPipeline, "vips.resize.export", err)
	}

	return &core.Buffer{
		Width:      ref.Width(),
		Height:     ref.Height(),
		ColorSpace: input.ColorSpace,
		Data:       out,
	}, core.FlowOK, nil
}

func (r AcceleratedResize) DistortTransform(pts []core.Point) []core.Point      { return pts }
func (r AcceleratedResize) DistortBacktransform(pts []core.Point) []core.Point { return pts }
func (r AcceleratedResize) CommitParams(inst *core.OperationInstance) error    { return nil }
func (r AcceleratedResize) InitPipe(pipelineName string) error                 { return nil }
func (r AcceleratedResize) CleanupPipe(pipelineName string) error             { return nil }

func (r AcceleratedResize) LegacyParams(oldBytes []byte, oldVersion int) ([]byte, int, error) {
	return oldBytes, 1, nil
}

func (r AcceleratedResize) ReloadDefaults() (params, blendParams []byte) {
	p, _ := goccyjson.Marshal(ResizeParams{})
	return p, nil
}

func vipsInterpretationToColorSpace(i govips.Interpretation) string {
	switch i {
	case govips.InterpretationBW:
		return "gray"
	case govips.InterpretationCMYK:
		return "cmyk"
	default:
		return "rgba"
	}
}

// compile-time interface checks
var _ core.Decoder = (*Backend)(nil)
var _ core.Encoder = (*Backend)(nil)
var _ core.Module = AcceleratedResize{}
