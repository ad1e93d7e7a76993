package viewport

import (
	"math"
	"testing"

	"github.com/Skryldev/darkroom-develop/core"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDeriveScaleModes(t *testing.T) {
	if s := DeriveScale(ModeFit, 100, 200, 1000, 1000, 0); !almostEqual(s, 0.1) {
		t.Fatalf("expected fit scale 0.1, got %v", s)
	}
	if s := DeriveScale(ModeFill, 100, 200, 1000, 1000, 0); !almostEqual(s, 0.2) {
		t.Fatalf("expected fill scale 0.2, got %v", s)
	}
	if s := DeriveScale(ModeOneOne, 100, 200, 1000, 1000, 0); s != 1 {
		t.Fatalf("expected 1:1 scale to be exactly 1, got %v", s)
	}
	if s := DeriveScale(ModeFree, 100, 200, 1000, 1000, 2.5); s != 2.5 {
		t.Fatalf("expected free scale to pass through, got %v", s)
	}
}

func TestCheckZoomBoundsClampsToHalfBox(t *testing.T) {
	// A quarter-width viewport's center can drift until the viewport's edge
	// meets the image edge: 0.5 minus half the box, either way.
	got := CheckZoomBounds(10, 0.25)
	if !almostEqual(got, 0.5-0.125) {
		t.Fatalf("expected center clamped to %v, got %v", 0.5-0.125, got)
	}
	got = CheckZoomBounds(-10, 0.25)
	if !almostEqual(got, -(0.5 - 0.125)) {
		t.Fatalf("expected center clamped to %v, got %v", -(0.5 - 0.125), got)
	}
}

func TestCheckZoomBoundsForcesZeroWhenBoxExceedsImage(t *testing.T) {
	if got := CheckZoomBounds(0.3, 1.0); got != 0 {
		t.Fatalf("expected 0 when box fills the image, got %v", got)
	}
	if got := CheckZoomBounds(0.3, 1.5); got != 0 {
		t.Fatalf("expected 0 when box exceeds the image, got %v", got)
	}
}

func TestCloseupWindowFracShrinksByPowerOfTwo(t *testing.T) {
	if got := CloseupWindowFrac(0.5, 0); !almostEqual(got, 0.5) {
		t.Fatalf("expected closeup 0 to be a no-op, got %v", got)
	}
	if got := CloseupWindowFrac(0.5, 1); !almostEqual(got, 0.25) {
		t.Fatalf("expected closeup 1 to halve the window, got %v", got)
	}
	if got := CloseupWindowFrac(0.5, 2); !almostEqual(got, 0.125) {
		t.Fatalf("expected closeup 2 to quarter the window, got %v", got)
	}
}

func TestComputeROICentersAndClamps(t *testing.T) {
	s := &State{Mode: ModeOneOne, Center: core.Point{X: 0, Y: 0}}
	roi := ComputeROI(s, 100, 100, 1000, 1000)
	if roi.Width != 100 || roi.Height != 100 {
		t.Fatalf("expected 100x100 roi at 1:1, got %dx%d", roi.Width, roi.Height)
	}
	if roi.X != 450 || roi.Y != 450 {
		t.Fatalf("expected roi centered at (450,450), got (%d,%d)", roi.X, roi.Y)
	}
}

func TestComputeROIWritesBackClampedCenter(t *testing.T) {
	// A center that would push the viewport off the edge must be clamped
	// and the clamped value written back onto the state.
	s := &State{Mode: ModeOneOne, Center: core.Point{X: 10, Y: 0}}
	ComputeROI(s, 100, 100, 1000, 1000)
	if s.Center.X >= 10 {
		t.Fatalf("expected out-of-range center to be clamped back, got %v", s.Center.X)
	}
}

func TestPreviewDownsampleFactor(t *testing.T) {
	cases := map[PreviewDownsample]float64{
		PreviewFull:    1,
		PreviewHalf:    0.5,
		PreviewThird:   1.0 / 3,
		PreviewQuarter: 0.25,
	}
	for d, want := range cases {
		if got := d.Factor(); !almostEqual(got, want) {
			t.Fatalf("factor for %v: want %v, got %v", d, want, got)
		}
	}
}
