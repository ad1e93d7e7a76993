package encoder

import (
	"bytes"
	"context"
	"image/jpeg"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// WebP encodes Buffers to WebP format.
//
// Pure-Go WebP encoding is not available in the standard library or x/image.
// When the vips backend (adapters/vips) is registered it takes over WebP
// export via libwebp; this encoder is the pure-Go fallback and writes JPEG
// bytes instead. Nothing in its output or return values marks the
// substitution.
type WebP struct {
	DefaultQuality int
}

func NewWebP(defaultQuality int) *WebP {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &WebP{DefaultQuality: defaultQuality}
}

func (w *WebP) CanEncode(contentType string) bool { return contentType == "image/webp" }

func (w *WebP) Encode(ctx context.Context, buf *core.Buffer, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "webp.encode", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, apperrors.New(apperrors.CategoryInvalidImage, "webp.encode", apperrors.ErrEmptyInput)
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = w.DefaultQuality
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, imageFromBuffer(buf), &jpeg.Options{Quality: quality}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "webp.encode.shim", err)
	}
	return out.Bytes(), nil
}

var _ core.Encoder = (*WebP)(nil)
