package pipeline

import (
	"fmt"

	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

func moduleMismatch(op string) error {
	return apperrors.New(apperrors.CategoryModuleMismatch, "pipeline.build_nodes", fmt.Errorf("no module registered for op %q", op))
}

func interrupted(op string) error {
	return apperrors.New(apperrors.CategoryPipelineInterrupted, op, apperrors.ErrContextCanceled)
}
