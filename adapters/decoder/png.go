package decoder

import (
	"context"
	"image/png"
	"io"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// PNG decodes PNG images using the standard library.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(contentType string) bool {
	return contentType == "image/png"
}

func (p *PNG) Decode(ctx context.Context, r io.Reader) (*core.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "png.decode", err)
	}
	img, err := png.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "png.decode", err)
	}
	return bufferFromImage(img, colorSpaceOf(img)), nil
}

var _ core.Decoder = (*PNG)(nil)
