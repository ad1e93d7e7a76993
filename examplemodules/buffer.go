// Package examplemodules adapts the teacher's built-in image steps into
// implementations of the core.Module contract. They exist to exercise the
// registry, ordering, and pipeline machinery in tests and the CLI, not to
// specify any operation's math.
package examplemodules

import (
	"image"
	"image/color"
	stddraw "image/draw"

	"github.com/Skryldev/darkroom-develop/core"
)

// toRGBA decodes buf's raw bytes (tightly packed RGBA8, row-major) into an
// image.RGBA for the x/image/draw resampler and stdlib draw to operate on.
func toRGBA(buf *core.Buffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	n := buf.Width * buf.Height * 4
	if n > len(buf.Data) {
		n = len(buf.Data)
	}
	copy(img.Pix, buf.Data[:n])
	return img
}

// toRGBAEmpty allocates a blank image.RGBA of the given size.
func toRGBAEmpty(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// fromRGBA packs an image.RGBA back into a Buffer.
func fromRGBA(img *image.RGBA, colorSpace string) *core.Buffer {
	b := img.Bounds()
	return &core.Buffer{
		Width:      b.Dx(),
		Height:     b.Dy(),
		ColorSpace: colorSpace,
		Data:       append([]byte(nil), img.Pix...),
	}
}

// stddrawDraw composites src onto dst at offset (ox, oy) using stdlib draw,
// clipped to dst's own bounds.
func stddrawDraw(dst, src *image.RGBA, ox, oy int) {
	stddraw.Draw(dst, dst.Bounds(), src, image.Pt(ox, oy), stddraw.Src)
}

// fromGray packs an image.Gray back into a Buffer, expanded to RGBA so
// downstream nodes keep a uniform pixel layout.
func fromGray(img *image.Gray) *core.Buffer {
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return fromRGBA(rgba, "gray")
}
