// Package viewport implements Viewport & Zoom (spec.md §4.9): pure,
// lock-free computations deriving a zoom scale and clamped zoom center from
// a mode, a viewport box, and the processed-image dimensions. A pipeline's
// process loop reads this once per run (§4.5 step 6d); the GUI may call it
// freely without taking any pipeline lock.
package viewport

import (
	"math"

	"github.com/Skryldev/darkroom-develop/core"
)

// Mode names the four zoom modes (spec.md §4.9).
type Mode string

const (
	ModeFit    Mode = "fit"
	ModeFill   Mode = "fill"
	ModeOneOne Mode = "1:1"
	ModeFree   Mode = "free"
)

// PreviewDownsample is the preview pipeline's configurable downsampling
// factor, one of {1, 1/2, 1/3, 1/4} (spec.md §4.9).
type PreviewDownsample int

const (
	PreviewFull PreviewDownsample = iota
	PreviewHalf
	PreviewThird
	PreviewQuarter
)

// Factor returns the downsample's scale factor against the source.
func (d PreviewDownsample) Factor() float64 {
	switch d {
	case PreviewHalf:
		return 1.0 / 2
	case PreviewThird:
		return 1.0 / 3
	case PreviewQuarter:
		return 1.0 / 4
	default:
		return 1
	}
}

// State is the live zoom state for one pipeline class (Full or Secondary;
// Preview always processes the whole downsampled source and carries no
// independent zoom state, spec.md §4.9).
type State struct {
	Mode   Mode
	Scale  float64 // only meaningful in ModeFree
	Center core.Point
	// Closeup shrinks the viewport window by 2^Closeup (spec.md §4.9,
	// GLOSSARY "Closeup"): an exponent, not a linear factor.
	Closeup int
}

// DeriveScale computes the zoom scale for mode against a viewport box of
// boxW x boxH pixels and processed-image dimensions imgW x imgH. ModeFree
// uses the caller-supplied free scale verbatim.
func DeriveScale(mode Mode, boxW, boxH, imgW, imgH int, freeScale float64) float64 {
	if imgW <= 0 || imgH <= 0 {
		return 1
	}
	fitScale := math.Min(float64(boxW)/float64(imgW), float64(boxH)/float64(imgH))
	fillScale := math.Max(float64(boxW)/float64(imgW), float64(boxH)/float64(imgH))
	switch mode {
	case ModeFit:
		return fitScale
	case ModeFill:
		return fillScale
	case ModeOneOne:
		return 1
	case ModeFree:
		return freeScale
	default:
		return fitScale
	}
}

// CloseupWindowFrac shrinks a viewport-box fraction of the image (boxFrac,
// in [0,1]) by 2^closeup (spec.md §4.9 "Closeup factor c shrinks the
// viewport window by 2^c").
func CloseupWindowFrac(boxFrac float64, closeup int) float64 {
	return boxFrac / math.Pow(2, float64(closeup))
}

// CheckZoomBounds clamps a zoom center coordinate (normalized to image
// fraction, 0 = image center) into [boxFrac/2 - 0.5, 0.5 - boxFrac/2],
// forcing 0 when the viewport box is as large as or larger than the image
// (spec.md §4.9 "forcing 0 when the viewport box exceeds the image").
func CheckZoomBounds(center, boxFrac float64) float64 {
	if boxFrac >= 1 {
		return 0
	}
	lo := boxFrac/2 - 0.5
	hi := 0.5 - boxFrac/2
	switch {
	case center < lo:
		return lo
	case center > hi:
		return hi
	default:
		return center
	}
}

// ComputeROI derives the Full/Secondary pipeline roi (spec.md §4.5 step 6d:
// "compute the actual roi by clamping to image dimensions, applying closeup
// factor, and centering on the current zoom point; check zoom bounds and
// write back any clamping"). boxW/boxH is the viewport's pixel size on
// screen; srcW/srcH is the processed source's pixel dimensions. The
// returned ROI is already clamped to the source bounds.
//
// s.Center is written back in place with the clamped, bounds-checked
// coordinates, matching the spec's "write back any clamping" step.
func ComputeROI(s *State, boxW, boxH, srcW, srcH int) core.ROI {
	scale := DeriveScale(s.Mode, boxW, boxH, srcW, srcH, s.Scale)
	if scale <= 0 {
		scale = 1
	}

	boxFracW := CloseupWindowFrac(float64(boxW)/(scale*float64(srcW)), s.Closeup)
	boxFracH := CloseupWindowFrac(float64(boxH)/(scale*float64(srcH)), s.Closeup)

	s.Center.X = CheckZoomBounds(s.Center.X, boxFracW)
	s.Center.Y = CheckZoomBounds(s.Center.Y, boxFracH)

	width := clampPositive(int(boxFracW*float64(srcW)), srcW)
	height := clampPositive(int(boxFracH*float64(srcH)), srcH)

	centerPxX := (s.Center.X + 0.5) * float64(srcW)
	centerPxY := (s.Center.Y + 0.5) * float64(srcH)

	x := clampRange(int(centerPxX)-width/2, 0, srcW-width)
	y := clampRange(int(centerPxY)-height/2, 0, srcH-height)

	return core.ROI{X: x, Y: y, Width: width, Height: height, Scale: scale}
}

func clampPositive(v, max int) int {
	if v <= 0 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}

func clampRange(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
