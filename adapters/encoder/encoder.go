// Package encoder packs rendered core.Buffers back into encoded byte
// streams. No other package in this module imports it.
package encoder

import (
	"image"

	"github.com/Skryldev/darkroom-develop/core"
)

// imageFromBuffer unpacks an RGBA8 core.Buffer into an image.RGBA so stdlib
// codecs can encode it.
func imageFromBuffer(buf *core.Buffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	n := buf.Width * buf.Height * 4
	if n > len(buf.Data) {
		n = len(buf.Data)
	}
	copy(img.Pix, buf.Data[:n])
	return img
}
