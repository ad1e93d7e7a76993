// Package decoder provides format-specific image decoders, the external
// collaborators core.Decoder abstracts over (spec §1). Each decoder
// produces a core.Buffer packed as tightly-packed RGBA8, matching the raw
// layout examplemodules and the pipeline expect.
package decoder

import (
	"image"
	"image/color"

	"github.com/Skryldev/darkroom-develop/core"
)

// bufferFromImage packs any image.Image into an RGBA8 core.Buffer.
func bufferFromImage(img image.Image, colorSpace string) *core.Buffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return &core.Buffer{Width: w, Height: h, ColorSpace: colorSpace, Data: out.Pix}
}

// colorSpaceOf classifies an image.Image's colour model the way the pipeline
// expects it tagged on a Buffer.
func colorSpaceOf(img image.Image) string {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return "gray"
	case color.CMYKModel:
		return "cmyk"
	default:
		return "rgba"
	}
}
