package persistence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/Skryldev/darkroom-develop/errors"
)

// defaultLockRetryInterval is how often SidecarWriter polls for the sidecar
// file lock while waiting.
const defaultLockRetryInterval = 10 * time.Millisecond

// WithConflictRetry retries fn with exponential backoff while it returns a
// PersistenceConflict error, up to maxRetries attempts — replacing the
// teacher's ad hoc retry loop (see core.Processor.runWithRetry in
// DESIGN.md) with github.com/cenkalti/backoff/v4.
func WithConflictRetry(ctx context.Context, maxRetries int, initialDelay time.Duration, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialDelay
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if apperrors.IsCategory(err, apperrors.CategoryPersistenceConflict) {
			return err // retryable by backoff.Retry
		}
		return backoff.Permanent(err)
	}, bo)
}
