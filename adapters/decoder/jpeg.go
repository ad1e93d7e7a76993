package decoder

import (
	"context"
	"image/jpeg"
	"io"

	"github.com/Skryldev/darkroom-develop/core"
	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// JPEG decodes JPEG images using the standard library.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(contentType string) bool {
	return contentType == "image/jpeg" || contentType == ""
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "jpeg.decode", err)
	}
	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInvalidImage, "jpeg.decode", err)
	}
	return bufferFromImage(img, colorSpaceOf(img)), nil
}

var _ core.Decoder = (*JPEG)(nil)
