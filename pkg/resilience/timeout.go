package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

// WithTimeout bounds fn to limit. fn keeps running in the background after
// the limit passes, so it must honour ctx. Hitting the limit yields an error
// matching both apperrors.ErrTimeout and context.DeadlineExceeded; a
// cancelled parent is reported as is. limit <= 0 means no bound.
func WithTimeout(ctx context.Context, limit time.Duration, name string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeoutCause(ctx, limit, apperrors.ErrTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(ctx) }()

	select {
	case err := <-result:
		// fn may notice the deadline first; report it the same way.
		if err == nil || ctx.Err() == nil {
			return err
		}
	case <-ctx.Done():
	}
	if cause := context.Cause(ctx); cause != apperrors.ErrTimeout {
		return fmt.Errorf("%s: %w", name, cause)
	}
	return fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, limit, context.DeadlineExceeded)
}
