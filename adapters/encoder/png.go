package encoder

import (
	"bytes"
	"context"
	"image/png"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// PNG encodes Buffers to PNG format.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanEncode(contentType string) bool { return contentType == "image/png" }

func (p *PNG) Encode(ctx context.Context, buf *core.Buffer, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "png.encode", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, apperrors.New(apperrors.CategoryInvalidImage, "png.encode", apperrors.ErrEmptyInput)
	}

	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	if opts.Lossless {
		enc.CompressionLevel = png.BestCompression
	}

	var out bytes.Buffer
	if err := enc.Encode(&out, imageFromBuffer(buf)); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "png.encode", err)
	}
	return out.Bytes(), nil
}

var _ core.Encoder = (*PNG)(nil)
