package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/checkpoint-capture/internal/observability"
)

// errPollTimeout marks a poll that expired without a capture. It resolves to
// NotFound, never to a Failure.
var errPollTimeout = errors.New("poll timeout")

// probeFunc runs one short attempt against the device. done=true ends the
// poll; an error is treated as transient and swallowed.
type probeFunc func(ctx context.Context) (done bool, err error)

// poll drives a bounded retry loop against unreliable hardware. The first
// probe always runs, so timeout zero means exactly one attempt. Single
// failed probes never abort the loop; only expiry or cancellation do.
func poll(ctx context.Context, timeout, interval time.Duration, op string, logger *zap.Logger, metrics *observability.Metrics, probe probeFunc) error {
	deadline := time.Now().Add(timeout)
	for {
		done, err := probe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Debug("transient probe error",
				zap.String("op", op),
				zap.Error(err))
			metrics.RecordTransientError(op)
		} else if done {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !time.Now().Before(deadline) {
			return errPollTimeout
		}
		sleep := interval
		if remaining := time.Until(deadline); remaining < sleep {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

// isCancellation reports whether err stems from a caller-demanded abort.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
