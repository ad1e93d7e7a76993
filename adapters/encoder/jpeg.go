package encoder

import (
	"bytes"
	"context"
	"image/jpeg"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// JPEG encodes Buffers to JPEG format.
type JPEG struct {
	DefaultQuality int // used when EncodeOptions.Quality == 0
}

func NewJPEG(defaultQuality int) *JPEG {
	if defaultQuality <= 0 {
		defaultQuality = 85
	}
	return &JPEG{DefaultQuality: defaultQuality}
}

func (j *JPEG) CanEncode(contentType string) bool { return contentType == "image/jpeg" }

func (j *JPEG) Encode(ctx context.Context, buf *core.Buffer, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "jpeg.encode", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, apperrors.New(apperrors.CategoryInvalidImage, "jpeg.encode", apperrors.ErrEmptyInput)
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = j.DefaultQuality
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, imageFromBuffer(buf), &jpeg.Options{Quality: quality}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "jpeg.encode", err)
	}
	return out.Bytes(), nil
}

var _ core.Encoder = (*JPEG)(nil)
