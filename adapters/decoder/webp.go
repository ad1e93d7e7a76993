package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
	"github.com/Skryldev/darkroom-develop/utils"
)

// WebP decodes WebP images using golang.org/x/image/webp.
// NOTE: golang.org/x/image/webp only supports lossy WebP decoding; the vips
// backend (adapters/vips) covers lossless and animated WebP instead.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(contentType string) bool {
	return contentType == "image/webp"
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "webp.decode", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "webp.drain", err)
	}
	defer utils.ReleaseBuffer(buf)

	img, err := webp.Decode(utils.BytesReader(buf.Bytes()))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "webp.decode", err)
	}

	return bufferFromImage(img, colorSpaceOf(img)), nil
}

var _ core.Decoder = (*WebP)(nil)
